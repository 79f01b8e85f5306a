package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netisu/prepmesh"
)

const cubeOBJ = "../../testdata/cube.obj"

// withConfig sets viper keys for the duration of the test.
func withConfig(t *testing.T, values map[string]any) {
	t.Helper()
	for k, v := range values {
		viper.Set(k, v)
	}
	t.Cleanup(func() {
		for k := range values {
			viper.Set(k, nil)
		}
	})
}

// resetViper restores the package defaults once the test ends, dropping
// any config file the test made viper read.
func resetViper(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		viper.Reset()
		setDefaults()
	})
}

func TestPipelineFromConfigDefaults(t *testing.T) {
	p, err := pipelineFromConfig(&bytes.Buffer{}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, prepmesh.DefaultOutput, p.Output)
	assert.Equal(t, prepmesh.PLYBinary, p.Format)
	assert.Zero(t, p.SimplifyFactor)
}

func TestPipelineFromConfigOverrides(t *testing.T) {
	withConfig(t, map[string]any{
		"output":   "out/custom.ply",
		"format":   "ascii",
		"simplify": 0.5,
		"verbose":  true,
	})
	var stderr bytes.Buffer
	p, err := pipelineFromConfig(&bytes.Buffer{}, &stderr)
	require.NoError(t, err)
	assert.Equal(t, "out/custom.ply", p.Output)
	assert.Equal(t, prepmesh.PLYASCII, p.Format)
	assert.Equal(t, 0.5, p.SimplifyFactor)

	p.Logger.Print("hello")
	assert.Contains(t, stderr.String(), "prepmesh: ")
}

func TestPipelineFromConfigBadFormat(t *testing.T) {
	withConfig(t, map[string]any{"format": "xml"})
	_, err := pipelineFromConfig(&bytes.Buffer{}, &bytes.Buffer{})
	assert.ErrorIs(t, err, prepmesh.ErrUnsupportedFormat)
}

func TestRootCmdRun(t *testing.T) {
	out := filepath.Join(t.TempDir(), "mesh_output.ply")
	withConfig(t, map[string]any{"output": out})

	var stdout bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{cubeOBJ})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, stdout.String(), "AxisAlignedBoundingBox: min: (0, 0, 0), max: (1, 1, 1)")
	_, err := os.Stat(out)
	assert.NoError(t, err)
}

func TestRootCmdArgs(t *testing.T) {
	for _, args := range [][]string{{}, {"a.obj", "b.obj"}} {
		cmd := newRootCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(args)
		assert.Error(t, cmd.Execute(), "args %v", args)
	}
}

func TestRootCmdLoadError(t *testing.T) {
	withConfig(t, map[string]any{"output": filepath.Join(t.TempDir(), "mesh_output.ply")})

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"missing.obj"})
	err := cmd.Execute()

	var loadErr *prepmesh.LoadError
	assert.True(t, errors.As(err, &loadErr), "got %v", err)
}

func TestRootCmdConfigFlag(t *testing.T) {
	resetViper(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "from-config.ply")
	cfg := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(fmt.Sprintf("output: %q\nformat: ascii\n", out)), 0o644))

	var stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"--config", cfg, cubeOBJ})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, stderr.String(), "Using config file: "+cfg)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "format ascii 1.0\n")
}

func TestRootCmdMissingConfigFile(t *testing.T) {
	resetViper(t)
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "nope.yaml"), cubeOBJ})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")
}
