package prepmesh

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/EliCDavis/polyform/formats/ply"
	"github.com/EliCDavis/polyform/modeling"
	"github.com/EliCDavis/vector/vector3"
)

type PLYFormat int

const (
	PLYBinary PLYFormat = iota
	PLYASCII
)

// ParsePLYFormat accepts "binary" (little endian) or "ascii".
func ParsePLYFormat(s string) (PLYFormat, error) {
	switch strings.ToLower(s) {
	case "", "binary", "binary_little_endian":
		return PLYBinary, nil
	case "ascii":
		return PLYASCII, nil
	}
	return 0, fmt.Errorf("%w: ply format %q", ErrUnsupportedFormat, s)
}

func (f PLYFormat) String() string {
	if f == PLYASCII {
		return "ascii"
	}
	return "binary_little_endian"
}

func (f PLYFormat) plyFormat() ply.Format {
	if f == PLYASCII {
		return ply.ASCII
	}
	return ply.BinaryLittleEndian
}

func plyWriter(format PLYFormat) ply.MeshWriter {
	return ply.MeshWriter{
		Format: format.plyFormat(),
		Properties: []ply.PropertyWriter{
			ply.Vector3PropertyWriter{
				ModelAttribute: modeling.PositionAttribute,
				Type:           ply.Double,
				PlyPropertyX:   "x",
				PlyPropertyY:   "y",
				PlyPropertyZ:   "z",
			},
			ply.Vector3PropertyWriter{
				ModelAttribute: modeling.NormalAttribute,
				Type:           ply.Double,
				PlyPropertyX:   "nx",
				PlyPropertyY:   "ny",
				PlyPropertyZ:   "nz",
			},
		},
	}
}

var plyReader = ply.MeshReader{
	AttributeElement: ply.VertexElementName,
	Properties: []ply.PropertyReader{
		&ply.Vector3PropertyReader{
			ModelAttribute: modeling.PositionAttribute,
			PlyPropertyX:   "x",
			PlyPropertyY:   "y",
			PlyPropertyZ:   "z",
		},
		&ply.Vector3PropertyReader{
			ModelAttribute: modeling.NormalAttribute,
			PlyPropertyX:   "nx",
			PlyPropertyY:   "ny",
			PlyPropertyZ:   "nz",
		},
	},
}

// SavePLY writes vertices, normals (when present) and faces. Output is a
// pure function of the mesh, so saving the same mesh twice yields identical
// bytes.
func SavePLY(path string, mesh *Mesh, format PLYFormat) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	if err := WritePLY(w, mesh, format); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return file.Close()
}

// WritePLY writes positions and normals as doubles and faces as
// "list uchar int vertex_indices".
func WritePLY(w io.Writer, mesh *Mesh, format PLYFormat) error {
	return plyWriter(format).Write(toModelingMesh(mesh), w)
}

func LoadPLY(path string) (*Mesh, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return LoadPLYFromReader(file)
}

// LoadPLYFromReader reads ascii and binary PLY. Vertex positions and
// optional nx/ny/nz come from the "vertex" element, faces from the
// vertex_indices (or vertex_index) list of a "face" element that directly
// follows it. Faces must be triangles or quads; quads are split in two.
func LoadPLYFromReader(r io.Reader) (*Mesh, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if err := checkPLY(data); err != nil {
		return nil, err
	}

	decoded, err := plyReader.Read(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	mesh := fromModelingMesh(*decoded)
	if err := mesh.Validate(); err != nil {
		return nil, err
	}
	return mesh, nil
}

func toModelingMesh(m *Mesh) modeling.Mesh {
	indices := make([]int, 0, 3*len(m.Triangles))
	for _, t := range m.Triangles {
		indices = append(indices, t[0], t[1], t[2])
	}
	result := modeling.NewTriangleMesh(indices).
		SetFloat3Attribute(modeling.PositionAttribute, toPLYVectors(m.Vertices))
	if m.HasNormals() {
		result = result.SetFloat3Attribute(modeling.NormalAttribute, toPLYVectors(m.Normals))
	}
	return result
}

func fromModelingMesh(m modeling.Mesh) *Mesh {
	mesh := &Mesh{}
	if m.HasFloat3Attribute(modeling.PositionAttribute) {
		mesh.Vertices = fromPLYVectors(m, modeling.PositionAttribute)
	}
	if m.HasFloat3Attribute(modeling.NormalAttribute) {
		mesh.Normals = fromPLYVectors(m, modeling.NormalAttribute)
	}
	if m.Topology() == modeling.TriangleTopology {
		indices := m.Indices()
		for i := 0; i+2 < indices.Len(); i += 3 {
			mesh.Triangles = append(mesh.Triangles, [3]int{indices.At(i), indices.At(i + 1), indices.At(i + 2)})
		}
	}
	return mesh
}

func toPLYVectors(vectors []Vector) []vector3.Float64 {
	result := make([]vector3.Float64, len(vectors))
	for i, v := range vectors {
		result[i] = vector3.New(v.X, v.Y, v.Z)
	}
	return result
}

func fromPLYVectors(m modeling.Mesh, attribute string) []Vector {
	data := m.Float3Attribute(attribute)
	result := make([]Vector, data.Len())
	for i := range result {
		v := data.At(i)
		result[i] = Vector{v.X(), v.Y(), v.Z()}
	}
	return result
}
