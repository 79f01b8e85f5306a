package prepmesh

import (
	"fmt"
	"io"
	"log"
	"os"
)

// DefaultOutput is where Run writes the converted mesh.
const DefaultOutput = "mesh_output.ply"

// Pipeline loads a mesh, reports its bounding box, computes vertex normals
// and saves the result.
type Pipeline struct {
	Output string
	Format PLYFormat
	// SimplifyFactor in (0, 1) decimates the mesh after loading. Any other
	// value leaves it untouched.
	SimplifyFactor float64
	Stdout         io.Writer
	Logger         *log.Logger
}

func NewPipeline() *Pipeline {
	return &Pipeline{
		Output: DefaultOutput,
		Format: PLYBinary,
		Stdout: os.Stdout,
		Logger: log.New(io.Discard, "prepmesh: ", log.LstdFlags),
	}
}

// Run executes load, diagnose, normalize and export in order and stops at
// the first error. Load failures are *LoadError, export failures *SaveError.
func (p *Pipeline) Run(inputPath string) error {
	fmt.Fprintln(p.Stdout, "Reading input mesh...")
	mesh, err := LoadMesh(inputPath)
	if err != nil {
		return err
	}
	fmt.Fprintln(p.Stdout, "Import completed")
	p.Logger.Printf("loaded %s: %d vertices, %d triangles", inputPath, mesh.VertexCount(), mesh.TriangleCount())

	if p.SimplifyFactor > 0 && p.SimplifyFactor < 1 {
		before := mesh.TriangleCount()
		mesh = mesh.Simplify(p.SimplifyFactor)
		p.Logger.Printf("simplified %d -> %d triangles", before, mesh.TriangleCount())
	}

	fmt.Fprintln(p.Stdout, mesh.BoundingBox())

	mesh.ComputeVertexNormals()
	p.Logger.Printf("computed %d vertex normals", len(mesh.Normals))

	if err := SaveMesh(p.Output, mesh, p.Format); err != nil {
		return err
	}
	p.Logger.Printf("wrote %s (%s)", p.Output, p.Format)
	return nil
}
