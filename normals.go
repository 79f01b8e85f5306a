package prepmesh

import "github.com/go-gl/mathgl/mgl64"

// ComputeVertexNormals replaces Normals with area-weighted vertex normals.
// Each triangle contributes its unnormalized face normal to its three
// vertices; the sums are then normalized. Vertices not referenced by any
// non-degenerate triangle get the zero vector.
func (m *Mesh) ComputeVertexNormals() {
	sums := make([]mgl64.Vec3, len(m.Vertices))
	for _, t := range m.Triangles {
		p1 := m.Vertices[t[0]].Vec3()
		p2 := m.Vertices[t[1]].Vec3()
		p3 := m.Vertices[t[2]].Vec3()
		n := p2.Sub(p1).Cross(p3.Sub(p1))
		for _, idx := range t {
			sums[idx] = sums[idx].Add(n)
		}
	}
	normals := make([]Vector, len(sums))
	for i, n := range sums {
		// mgl64 divides by zero on degenerate sums
		if l := n.Len(); l > 0 {
			n = n.Mul(1 / l)
		}
		normals[i] = VectorFromVec3(n)
	}
	m.Normals = normals
}
