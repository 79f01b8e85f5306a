package prepmesh

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

func LoadOBJ(path string) (*Mesh, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return LoadOBJFromReader(file)
}

func LoadOBJFromBytes(b []byte) (*Mesh, error) {
	return LoadOBJFromReader(bytes.NewReader(b))
}

// LoadOBJFromReader reads vertex positions and faces. Polygons are
// fan-triangulated. Texture coordinates, normals, groups and materials are
// ignored.
func LoadOBJFromReader(r io.Reader) (*Mesh, error) {
	vs := make([]Vector, 0, 1024)
	var triangles [][3]int

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if len(line) < 2 || line[0] == '#' {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "v":
			if len(fields) < 4 {
				return nil, fmt.Errorf("%w: line %d: vertex needs 3 coordinates", ErrMalformed, lineNo)
			}
			v, err := parseVector(fields[1:4])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, lineNo, err)
			}
			vs = append(vs, v)
		case "f":
			args := fields[1:]
			if len(args) < 3 {
				return nil, fmt.Errorf("%w: line %d: face needs 3 vertices", ErrMalformed, lineNo)
			}
			fvs := make([]int, len(args))
			for i, arg := range args {
				vertex := strings.SplitN(arg, "/", 2)
				idx, err := fixIndex(vertex[0], len(vs))
				if err != nil {
					return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, lineNo, err)
				}
				fvs[i] = idx
			}
			for i := 1; i < len(fvs)-1; i++ {
				triangles = append(triangles, [3]int{fvs[0], fvs[i], fvs[i+1]})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	mesh := NewMesh(vs, triangles)
	if err := mesh.Validate(); err != nil {
		return nil, err
	}
	return mesh, nil
}

func parseVector(fields []string) (Vector, error) {
	var xyz [3]float64
	for i, f := range fields {
		value, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Vector{}, err
		}
		xyz[i] = value
	}
	return Vector{xyz[0], xyz[1], xyz[2]}, nil
}

// fixIndex converts a 1-based or negative (relative) OBJ index to a
// zero-based index.
func fixIndex(value string, length int) (int, error) {
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	switch {
	case parsed < 0:
		return parsed + length, nil
	case parsed > 0:
		return parsed - 1, nil
	}
	return 0, fmt.Errorf("vertex index 0 is invalid")
}
