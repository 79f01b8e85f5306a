package prepmesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOBJCube(t *testing.T) {
	mesh := loadCube(t)
	assert.Equal(t, 8, mesh.VertexCount())
	assert.Equal(t, 12, mesh.TriangleCount())
	assert.Equal(t, [3]int{0, 3, 2}, mesh.Triangles[0])
}

func TestLoadOBJFromBytes(t *testing.T) {
	tests := []struct {
		name      string
		src       string
		wantTris  [][3]int
		wantVerts int
	}{
		{
			name:      "quad is fan triangulated",
			src:       "v 0 0 0\nv 1 0 0\nv 1 1 0\nv 0 1 0\nf 1 2 3 4\n",
			wantTris:  [][3]int{{0, 1, 2}, {0, 2, 3}},
			wantVerts: 4,
		},
		{
			name:      "negative indices",
			src:       "v 0 0 0\nv 1 0 0\nv 0 1 0\nf -3 -2 -1\n",
			wantTris:  [][3]int{{0, 1, 2}},
			wantVerts: 3,
		},
		{
			name:      "texture and normal references",
			src:       "v 0 0 0\nv 1 0 0\nv 0 1 0\nvt 0 0\nvn 0 0 1\nf 1/1/1 2/1/1 3//1\n",
			wantTris:  [][3]int{{0, 1, 2}},
			wantVerts: 3,
		},
		{
			name:      "comments groups and materials",
			src:       "# header\nmtllib x.mtl\no thing\nv 0 0 0\nv 1 0 0\nv 0 1 0\nusemtl red\ns off\nf 1 2 3\n",
			wantTris:  [][3]int{{0, 1, 2}},
			wantVerts: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mesh, err := LoadOBJFromBytes([]byte(tt.src))
			require.NoError(t, err)
			assert.Equal(t, tt.wantVerts, mesh.VertexCount())
			assert.Equal(t, tt.wantTris, mesh.Triangles)
		})
	}
}

func TestLoadOBJMalformed(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"short vertex", "v 0 0\n"},
		{"bad float", "v 0 zero 0\n"},
		{"short face", "v 0 0 0\nv 1 0 0\nf 1 2\n"},
		{"index out of range", "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 4\n"},
		{"zero index", "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 0 1 2\n"},
		{"bad index", "v 0 0 0\nv 1 0 0\nv 0 1 0\nf a b c\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadOBJFromBytes([]byte(tt.src))
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestLoadOBJMissingFile(t *testing.T) {
	_, err := LoadOBJ("testdata/does-not-exist.obj")
	assert.Error(t, err)
}
