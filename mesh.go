package prepmesh

import "fmt"

// Mesh is an indexed triangle mesh. Triangles hold zero-based indices into
// Vertices. Normals is either empty or holds one normal per vertex.
type Mesh struct {
	Vertices  []Vector
	Triangles [][3]int
	Normals   []Vector
}

func NewMesh(vertices []Vector, triangles [][3]int) *Mesh {
	return &Mesh{Vertices: vertices, Triangles: triangles}
}

func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

func (m *Mesh) TriangleCount() int {
	return len(m.Triangles)
}

func (m *Mesh) HasNormals() bool {
	return len(m.Normals) > 0 && len(m.Normals) == len(m.Vertices)
}

// BoundingBox returns the axis-aligned box of the vertex positions.
func (m *Mesh) BoundingBox() Box {
	return BoxForVectors(m.Vertices)
}

// Validate checks that every triangle index refers to an existing vertex.
func (m *Mesh) Validate() error {
	n := len(m.Vertices)
	for i, t := range m.Triangles {
		for _, idx := range t {
			if idx < 0 || idx >= n {
				return fmt.Errorf("%w: triangle %d references vertex %d of %d", ErrMalformed, i, idx, n)
			}
		}
	}
	if len(m.Normals) != 0 && len(m.Normals) != n {
		return fmt.Errorf("%w: %d normals for %d vertices", ErrMalformed, len(m.Normals), n)
	}
	return nil
}

// weld builds an indexed mesh from a triangle soup, merging vertices with
// identical positions. Vertex order follows first appearance.
func weld(soup [][3]Vector) *Mesh {
	lookup := make(map[Vector]int, len(soup))
	var vertices []Vector
	triangles := make([][3]int, 0, len(soup))
	for _, t := range soup {
		var tri [3]int
		for i, v := range t {
			idx, ok := lookup[v]
			if !ok {
				idx = len(vertices)
				vertices = append(vertices, v)
				lookup[v] = idx
			}
			tri[i] = idx
		}
		triangles = append(triangles, tri)
	}
	return NewMesh(vertices, triangles)
}
