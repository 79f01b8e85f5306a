package prepmesh

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// LoadGLTF loads a .gltf or .glb file into an indexed Mesh. Every node of
// the default scene that references a mesh adds that mesh's triangle
// primitives, placed by the node's world transform.
func LoadGLTF(path string) (*Mesh, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, err
	}
	return meshFromDocument(doc)
}

func meshFromDocument(doc *gltf.Document) (*Mesh, error) {
	result := &Mesh{}

	roots := sceneRoots(doc)
	if roots == nil && len(doc.Nodes) == 0 {
		// a document with no node hierarchy places its meshes at the origin
		for i := range doc.Meshes {
			if err := appendGLTFMesh(result, doc, uint32(i), mgl64.Ident4()); err != nil {
				return nil, err
			}
		}
	}
	visiting := make(map[uint32]bool)
	for _, root := range roots {
		if err := appendGLTFNode(result, doc, root, mgl64.Ident4(), visiting); err != nil {
			return nil, err
		}
	}

	if len(result.Triangles) == 0 {
		return nil, fmt.Errorf("%w in gltf", ErrNoTriangles)
	}
	if err := result.Validate(); err != nil {
		return nil, err
	}
	return result, nil
}

// sceneRoots returns the root nodes of the default scene, or of the first
// scene when none is marked default. Without scenes, every node that is no
// other node's child is a root.
func sceneRoots(doc *gltf.Document) []uint32 {
	if len(doc.Scenes) > 0 {
		scene := doc.Scenes[0]
		if doc.Scene != nil && int(*doc.Scene) < len(doc.Scenes) {
			scene = doc.Scenes[*doc.Scene]
		}
		return scene.Nodes
	}

	isChild := make(map[uint32]bool)
	for _, node := range doc.Nodes {
		for _, child := range node.Children {
			isChild[child] = true
		}
	}
	var roots []uint32
	for i := range doc.Nodes {
		if !isChild[uint32(i)] {
			roots = append(roots, uint32(i))
		}
	}
	return roots
}

func appendGLTFNode(dst *Mesh, doc *gltf.Document, index uint32, parent mgl64.Mat4, visiting map[uint32]bool) error {
	if int(index) >= len(doc.Nodes) {
		return fmt.Errorf("%w: node %d of %d", ErrMalformed, index, len(doc.Nodes))
	}
	if visiting[index] {
		return fmt.Errorf("%w: node %d is its own ancestor", ErrMalformed, index)
	}
	visiting[index] = true
	defer delete(visiting, index)

	node := doc.Nodes[index]
	world := parent.Mul4(nodeMatrix(node))
	if node.Mesh != nil {
		if err := appendGLTFMesh(dst, doc, *node.Mesh, world); err != nil {
			return err
		}
	}
	for _, child := range node.Children {
		if err := appendGLTFNode(dst, doc, child, world, visiting); err != nil {
			return err
		}
	}
	return nil
}

// nodeMatrix returns the node's local transform: its matrix when one is
// given, else translation * rotation * scale.
func nodeMatrix(node *gltf.Node) mgl64.Mat4 {
	if m := node.MatrixOrDefault(); m != gltf.DefaultMatrix {
		var out mgl64.Mat4
		for i, v := range m {
			out[i] = float64(v)
		}
		return out
	}

	t := node.TranslationOrDefault()
	r := node.RotationOrDefault()
	s := node.ScaleOrDefault()
	rotation := mgl64.Quat{
		W: float64(r[3]),
		V: mgl64.Vec3{float64(r[0]), float64(r[1]), float64(r[2])},
	}.Normalize()
	return mgl64.Translate3D(float64(t[0]), float64(t[1]), float64(t[2])).
		Mul4(rotation.Mat4()).
		Mul4(mgl64.Scale3D(float64(s[0]), float64(s[1]), float64(s[2])))
}

func appendGLTFMesh(dst *Mesh, doc *gltf.Document, index uint32, world mgl64.Mat4) error {
	if int(index) >= len(doc.Meshes) {
		return fmt.Errorf("%w: mesh %d of %d", ErrMalformed, index, len(doc.Meshes))
	}
	// a mirroring transform turns counter-clockwise faces clockwise
	flip := world.Det() < 0

	for p, primitive := range doc.Meshes[index].Primitives {
		// We only support Triangles (mode 4)
		if primitive.Mode != gltf.PrimitiveTriangles {
			continue
		}

		posIdx, ok := primitive.Attributes[gltf.POSITION]
		if !ok {
			continue
		}
		if int(posIdx) >= len(doc.Accessors) {
			return fmt.Errorf("%w: mesh %d primitive %d: accessor %d of %d", ErrMalformed, index, p, posIdx, len(doc.Accessors))
		}
		positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
		if err != nil {
			return err
		}

		var indices []uint32
		if primitive.Indices != nil {
			if int(*primitive.Indices) >= len(doc.Accessors) {
				return fmt.Errorf("%w: mesh %d primitive %d: accessor %d of %d", ErrMalformed, index, p, *primitive.Indices, len(doc.Accessors))
			}
			// ReadIndices converts uint8/uint16/uint32 to []uint32
			indices, err = modeler.ReadIndices(doc, doc.Accessors[*primitive.Indices], nil)
			if err != nil {
				return err
			}
		} else {
			indices = make([]uint32, len(positions))
			for k := range indices {
				indices[k] = uint32(k)
			}
		}
		if len(indices)%3 != 0 {
			return fmt.Errorf("%w: mesh %d primitive %d: %d indices is not a multiple of 3", ErrMalformed, index, p, len(indices))
		}
		for _, i := range indices {
			if int(i) >= len(positions) {
				return fmt.Errorf("%w: mesh %d primitive %d: index %d outside %d positions", ErrMalformed, index, p, i, len(positions))
			}
		}

		offset := len(dst.Vertices)
		for _, pos := range positions {
			v := world.Mul4x1(mgl64.Vec4{float64(pos[0]), float64(pos[1]), float64(pos[2]), 1})
			dst.Vertices = append(dst.Vertices, Vector{v[0], v[1], v[2]})
		}
		for i := 0; i < len(indices); i += 3 {
			a, b, c := offset+int(indices[i]), offset+int(indices[i+1]), offset+int(indices[i+2])
			if flip {
				b, c = c, b
			}
			dst.Triangles = append(dst.Triangles, [3]int{a, b, c})
		}
	}
	return nil
}
