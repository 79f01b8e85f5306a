// Command prepmesh reads a triangle mesh, prints its bounding box, computes
// vertex normals and writes the result as mesh_output.ply.
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/netisu/prepmesh"
)

// version is set at build time via ldflags.
var version = "dev"

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prepmesh <input-mesh>",
		Short: "Compute vertex normals and convert a mesh to PLY",
		Long: `prepmesh reads a triangle mesh (OBJ, glTF/GLB, STL or PLY), prints
its axis-aligned bounding box, computes per-vertex normals and writes the
mesh to mesh_output.ply in the current directory.`,
		Version:       version,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := pipelineFromConfig(cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return p.Run(args[0])
		},
	}
	cmd.PersistentFlags().String("config", "", "config file (default: ./prepmesh.yaml or ~/.config/prepmesh/prepmesh.yaml)")
	return cmd
}

func init() {
	setDefaults()
}

func setDefaults() {
	viper.SetDefault("output", prepmesh.DefaultOutput)
	viper.SetDefault("format", "binary")
	viper.SetDefault("simplify", 0.0)
	viper.SetDefault("verbose", false)
}

// initConfig reads the file named by the command's --config flag, or
// prepmesh.yaml from the working directory or ~/.config/prepmesh when the
// flag is empty. A missing default file is not an error.
func initConfig(cmd *cobra.Command) error {
	cfgFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("prepmesh")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "prepmesh"))
		}
	}

	viper.SetEnvPrefix("PREPMESH")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if cfgFile != "" {
			return fmt.Errorf("reading config %s: %w", cfgFile, err)
		}
		return nil
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "Using config file:", viper.ConfigFileUsed())
	return nil
}

// pipelineFromConfig builds a pipeline from the current viper settings.
func pipelineFromConfig(stdout, stderr io.Writer) (*prepmesh.Pipeline, error) {
	format, err := prepmesh.ParsePLYFormat(viper.GetString("format"))
	if err != nil {
		return nil, err
	}

	p := prepmesh.NewPipeline()
	p.Output = viper.GetString("output")
	p.Format = format
	p.SimplifyFactor = viper.GetFloat64("simplify")
	p.Stdout = stdout
	if viper.GetBool("verbose") {
		p.Logger = log.New(stderr, "prepmesh: ", log.LstdFlags)
	}
	return p, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
