package prepmesh

import (
	"fmt"
	"os"
	"strings"

	"github.com/fogleman/simplify"
	"github.com/hschendel/stl"
)

// LoadSTL reads binary or ASCII STL. A file is read as binary only when its
// size is exactly 84 bytes plus 50 per triangle counted in the header;
// anything else must parse as ASCII starting with "solid ". STL stores a
// triangle soup, so coincident corners are welded into shared vertices.
func LoadSTL(path string) (*Mesh, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	solid, err := stl.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("%w: stl: %s", ErrMalformed, strings.TrimSpace(err.Error()))
	}
	soup := make([][3]Vector, len(solid.Triangles))
	for i, t := range solid.Triangles {
		soup[i] = [3]Vector{
			fromSTLVec(t.Vertices[0]),
			fromSTLVec(t.Vertices[1]),
			fromSTLVec(t.Vertices[2]),
		}
	}
	return weld(soup), nil
}

// SaveSTL writes the mesh as binary STL. Vertex normals are not stored.
func SaveSTL(path string, mesh *Mesh) error {
	return toSimplifyMesh(mesh).SaveBinarySTL(path)
}

// Simplify decimates the mesh to roughly factor times its triangle count
// using quadric error metrics. Existing normals are dropped.
func (m *Mesh) Simplify(factor float64) *Mesh {
	return fromSimplifyMesh(toSimplifyMesh(m).Simplify(factor))
}

func toSimplifyMesh(m *Mesh) *simplify.Mesh {
	triangles := make([]*simplify.Triangle, len(m.Triangles))
	for i, t := range m.Triangles {
		triangles[i] = simplify.NewTriangle(
			toSimplifyVector(m.Vertices[t[0]]),
			toSimplifyVector(m.Vertices[t[1]]),
			toSimplifyVector(m.Vertices[t[2]]),
		)
	}
	return simplify.NewMesh(triangles)
}

func fromSimplifyMesh(s *simplify.Mesh) *Mesh {
	soup := make([][3]Vector, len(s.Triangles))
	for i, t := range s.Triangles {
		soup[i] = [3]Vector{
			fromSimplifyVector(t.V1),
			fromSimplifyVector(t.V2),
			fromSimplifyVector(t.V3),
		}
	}
	return weld(soup)
}

func toSimplifyVector(v Vector) simplify.Vector {
	return simplify.Vector{X: v.X, Y: v.Y, Z: v.Z}
}

func fromSimplifyVector(v simplify.Vector) Vector {
	return Vector{v.X, v.Y, v.Z}
}

func fromSTLVec(v stl.Vec3) Vector {
	return Vector{float64(v[0]), float64(v[1]), float64(v[2])}
}
