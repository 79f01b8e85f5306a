package prepmesh

import (
	"fmt"
	"path/filepath"
	"strings"
)

// LoadMesh reads the mesh at path, choosing the decoder by file extension.
// Every failure is reported as a *LoadError.
func LoadMesh(path string) (*Mesh, error) {
	mesh, err := loadByExtension(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	if mesh.TriangleCount() == 0 {
		return nil, &LoadError{Path: path, Err: ErrNoTriangles}
	}
	return mesh, nil
}

func loadByExtension(path string) (*Mesh, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".obj":
		return LoadOBJ(path)
	case ".gltf", ".glb":
		return LoadGLTF(path)
	case ".stl":
		return LoadSTL(path)
	case ".ply":
		return LoadPLY(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// SaveMesh writes the mesh to path in the format named by its extension.
// The PLY format option is ignored for other formats. Every failure is
// reported as a *SaveError.
func SaveMesh(path string, mesh *Mesh, format PLYFormat) error {
	var err error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".ply":
		err = SavePLY(path, mesh, format)
	case ".stl":
		err = SaveSTL(path, mesh)
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return &SaveError{Path: path, Err: err}
	}
	return nil
}
