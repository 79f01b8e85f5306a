package prepmesh

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type plyProperty struct {
	name      string
	typ       string
	list      bool
	countType string
}

type plyElement struct {
	name       string
	count      int64
	properties []plyProperty
}

type plyHeader struct {
	format   string
	elements []plyElement
	body     []byte
}

var plyTypes = map[string]string{
	"char": "char", "int8": "char",
	"uchar": "uchar", "uint8": "uchar",
	"short": "short", "int16": "short",
	"ushort": "ushort", "uint16": "ushort",
	"int": "int", "int32": "int",
	"uint": "uint", "uint32": "uint",
	"float": "float", "float32": "float",
	"double": "double", "float64": "double",
}

func plySize(typ string) int {
	switch typ {
	case "char", "uchar":
		return 1
	case "short", "ushort":
		return 2
	case "int", "uint", "float":
		return 4
	case "double":
		return 8
	}
	return 0
}

func plyInteger(typ string) bool {
	return typ != "float" && typ != "double"
}

func isPLYIndexList(name string) bool {
	return name == "vertex_indices" || name == "vertex_index"
}

// checkPLY walks the header and body and rejects anything the decoder would
// misread or could not size safely: unknown types, counts larger than the
// data behind them, fractional or out of range indices, faces that are not
// triangles or quads, and faces that do not directly follow the vertices.
func checkPLY(data []byte) error {
	h, err := readPLYHeader(data)
	if err != nil {
		return err
	}
	if err := h.checkLayout(); err != nil {
		return err
	}
	switch h.format {
	case "ascii":
		return h.checkASCIIBody()
	case "binary_big_endian":
		return h.checkBinaryBody(binary.BigEndian)
	}
	return h.checkBinaryBody(binary.LittleEndian)
}

func readPLYHeader(data []byte) (*plyHeader, error) {
	pos := 0
	nextLine := func() (string, bool) {
		i := bytes.IndexByte(data[pos:], '\n')
		if i < 0 {
			return "", false
		}
		line := strings.ReplaceAll(string(data[pos:pos+i]), "\r", "")
		pos += i + 1
		return line, true
	}

	if magic, ok := nextLine(); !ok || magic != "ply" {
		return nil, fmt.Errorf("%w: missing ply magic", ErrMalformed)
	}

	var fields []string
	for len(fields) == 0 {
		line, ok := nextLine()
		if !ok {
			return nil, fmt.Errorf("%w: unterminated ply header", ErrMalformed)
		}
		fields = strings.Fields(line)
	}
	if len(fields) != 3 || fields[0] != "format" {
		return nil, fmt.Errorf("%w: expected format line, got %q", ErrMalformed, strings.Join(fields, " "))
	}
	if fields[2] != "1.0" {
		return nil, fmt.Errorf("%w: ply version %s", ErrUnsupportedFormat, fields[2])
	}
	h := &plyHeader{format: fields[1]}
	switch h.format {
	case "ascii", "binary_little_endian", "binary_big_endian":
	default:
		return nil, fmt.Errorf("%w: ply format %q", ErrUnsupportedFormat, h.format)
	}

	for {
		line, ok := nextLine()
		if !ok {
			return nil, fmt.Errorf("%w: unterminated ply header", ErrMalformed)
		}
		if line == "end_header" {
			h.body = data[pos:]
			return h, nil
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "element":
			if len(fields) != 3 {
				return nil, fmt.Errorf("%w: bad element line %q", ErrMalformed, line)
			}
			count, err := strconv.ParseInt(fields[2], 10, 64)
			if err != nil || count < 0 {
				return nil, fmt.Errorf("%w: bad element count %q", ErrMalformed, fields[2])
			}
			h.elements = append(h.elements, plyElement{name: strings.ToLower(fields[1]), count: count})
		case "property":
			if len(h.elements) == 0 {
				return nil, fmt.Errorf("%w: property before element", ErrMalformed)
			}
			p, err := parsePLYProperty(fields)
			if err != nil {
				return nil, fmt.Errorf("%w: %v in %q", ErrMalformed, err, line)
			}
			e := &h.elements[len(h.elements)-1]
			e.properties = append(e.properties, p)
		}
	}
}

func parsePLYProperty(fields []string) (plyProperty, error) {
	if len(fields) > 1 && strings.ToLower(fields[1]) == "list" {
		if len(fields) != 5 {
			return plyProperty{}, errors.New("bad list property")
		}
		countType, ok := plyTypes[strings.ToLower(fields[2])]
		if !ok {
			return plyProperty{}, fmt.Errorf("unknown type %s", fields[2])
		}
		typ, ok := plyTypes[strings.ToLower(fields[3])]
		if !ok {
			return plyProperty{}, fmt.Errorf("unknown type %s", fields[3])
		}
		return plyProperty{name: strings.ToLower(fields[4]), typ: typ, list: true, countType: countType}, nil
	}
	if len(fields) != 3 {
		return plyProperty{}, errors.New("bad property")
	}
	typ, ok := plyTypes[strings.ToLower(fields[1])]
	if !ok {
		return plyProperty{}, fmt.Errorf("unknown type %s", fields[1])
	}
	return plyProperty{name: fields[2], typ: typ}, nil
}

func (h *plyHeader) face() *plyElement {
	if len(h.elements) > 1 && h.elements[1].name == "face" {
		return &h.elements[1]
	}
	return nil
}

func (h *plyHeader) checkLayout() error {
	if len(h.elements) == 0 || h.elements[0].name != "vertex" {
		return fmt.Errorf("%w: first ply element must be vertex", ErrMalformed)
	}
	for i, e := range h.elements[1:] {
		if e.name == "vertex" || (e.name == "face" && i > 0) {
			return fmt.Errorf("%w: unexpected %s element", ErrMalformed, e.name)
		}
	}

	types := make(map[string]string)
	for _, p := range h.elements[0].properties {
		if p.list {
			return fmt.Errorf("%w: list property %s in vertex element", ErrMalformed, p.name)
		}
		types[p.name] = p.typ
	}
	if err := checkPLYTriple(types, "x", "y", "z", true); err != nil {
		return err
	}
	if err := checkPLYTriple(types, "nx", "ny", "nz", false); err != nil {
		return err
	}

	face := h.face()
	if face == nil {
		return nil
	}
	binaryBody := h.format != "ascii"
	hasIndices := false
	for _, p := range face.properties {
		if !p.list {
			return fmt.Errorf("%w: scalar property %s in face element", ErrMalformed, p.name)
		}
		if !plyInteger(p.countType) ||
			(binaryBody && p.countType != "uchar" && p.countType != "int" && p.countType != "uint") {
			return fmt.Errorf("%w: list length type %s", ErrUnsupportedFormat, p.countType)
		}
		if !isPLYIndexList(p.name) {
			continue
		}
		hasIndices = true
		if !plyInteger(p.typ) || (binaryBody && p.typ != "int" && p.typ != "uint") {
			return fmt.Errorf("%w: vertex index type %s", ErrUnsupportedFormat, p.typ)
		}
	}
	if !hasIndices {
		return fmt.Errorf("%w: face element has no vertex_indices", ErrMalformed)
	}
	return nil
}

// checkPLYTriple requires x, y and z (or nx, ny and nz) to be declared
// together with one numeric type. uchar is excluded since the decoder scales
// it to [0, 1].
func checkPLYTriple(types map[string]string, x, y, z string, required bool) error {
	tx, okX := types[x]
	ty, okY := types[y]
	tz, okZ := types[z]
	if !okX && !okY && !okZ && !required {
		return nil
	}
	if !okX || !okY || !okZ {
		return fmt.Errorf("%w: vertex element needs %s, %s and %s", ErrMalformed, x, y, z)
	}
	if tx != ty || tx != tz {
		return fmt.Errorf("%w: %s, %s and %s have different types", ErrMalformed, x, y, z)
	}
	switch tx {
	case "int", "float", "double":
		return nil
	}
	return fmt.Errorf("%w: vertex %s type %s", ErrUnsupportedFormat, x, tx)
}

func (h *plyHeader) checkASCIIBody() error {
	lines := strings.Split(string(h.body), "\n")
	next := 0
	nextLine := func() (string, error) {
		if next >= len(lines) {
			return "", fmt.Errorf("%w: ply body ends early", ErrMalformed)
		}
		line := lines[next]
		next++
		if len(line) >= bufio.MaxScanTokenSize {
			return "", fmt.Errorf("%w: ply line %d too long", ErrMalformed, next)
		}
		return strings.TrimSuffix(line, "\r"), nil
	}

	vertex := h.elements[0]
	if vertex.count > int64(len(lines)) {
		return fmt.Errorf("%w: %d vertices declared, body has %d lines", ErrMalformed, vertex.count, len(lines))
	}
	for i := int64(0); i < vertex.count; i++ {
		line, err := nextLine()
		if err != nil {
			return err
		}
		fields := strings.Fields(line)
		if len(fields) != len(vertex.properties) {
			return fmt.Errorf("%w: vertex %d has %d values, want %d", ErrMalformed, i, len(fields), len(vertex.properties))
		}
		for _, f := range fields {
			if _, err := strconv.ParseFloat(f, 64); err != nil {
				return fmt.Errorf("%w: vertex %d: bad value %q", ErrMalformed, i, f)
			}
		}
	}

	face := h.face()
	if face == nil {
		return nil
	}
	for i := int64(0); i < face.count; {
		line, err := nextLine()
		if err != nil {
			return err
		}
		// The decoder skips empty lines between faces.
		if line == "" {
			continue
		}
		if err := checkPLYFaceFields(strings.Fields(line), face, vertex.count, i); err != nil {
			return err
		}
		i++
	}
	return nil
}

func checkPLYFaceFields(fields []string, face *plyElement, vertices, i int64) error {
	off := 0
	for _, p := range face.properties {
		if off >= len(fields) {
			return fmt.Errorf("%w: face %d is missing %s", ErrMalformed, i, p.name)
		}
		n, err := strconv.ParseInt(fields[off], 10, 32)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: face %d: bad list length %q", ErrMalformed, i, fields[off])
		}
		items := fields[off+1:]
		if int64(len(items)) < n {
			return fmt.Errorf("%w: face %d: %s has %d of %d values", ErrMalformed, i, p.name, len(items), n)
		}
		if isPLYIndexList(p.name) {
			if n != 3 && n != 4 {
				return fmt.Errorf("%w: face %d has %d vertices, only triangles and quads are read", ErrUnsupportedFormat, i, n)
			}
			for _, item := range items[:n] {
				idx, err := strconv.ParseInt(item, 10, 32)
				if err != nil {
					return fmt.Errorf("%w: face %d: bad vertex index %q", ErrMalformed, i, item)
				}
				if idx < 0 || idx >= vertices {
					return fmt.Errorf("%w: face %d references vertex %d of %d", ErrMalformed, i, idx, vertices)
				}
			}
		}
		off += 1 + int(n)
	}
	return nil
}

func (h *plyHeader) checkBinaryBody(order binary.ByteOrder) error {
	vertex := h.elements[0]
	stride := 0
	for _, p := range vertex.properties {
		stride += plySize(p.typ)
	}
	body := h.body
	if vertex.count > int64(len(body)/stride) {
		return fmt.Errorf("%w: %d vertices declared, body holds %d", ErrMalformed, vertex.count, len(body)/stride)
	}
	body = body[vertex.count*int64(stride):]

	face := h.face()
	if face == nil {
		return nil
	}
	for i := int64(0); i < face.count; i++ {
		for _, p := range face.properties {
			size := plySize(p.countType)
			if len(body) < size {
				return fmt.Errorf("%w: ply body ends at face %d of %d", ErrMalformed, i, face.count)
			}
			var n int64
			if p.countType == "uchar" {
				n = int64(body[0])
			} else {
				n = int64(int32(order.Uint32(body)))
			}
			body = body[size:]

			itemSize := int64(plySize(p.typ))
			if n < 0 || n > int64(len(body))/itemSize {
				return fmt.Errorf("%w: face %d: %s length %d exceeds remaining data", ErrMalformed, i, p.name, n)
			}
			if isPLYIndexList(p.name) {
				if n != 3 && n != 4 {
					return fmt.Errorf("%w: face %d has %d vertices, only triangles and quads are read", ErrUnsupportedFormat, i, n)
				}
				for k := int64(0); k < n; k++ {
					idx := int64(int32(order.Uint32(body[4*k:])))
					if idx < 0 || idx >= vertex.count {
						return fmt.Errorf("%w: face %d references vertex %d of %d", ErrMalformed, i, idx, vertex.count)
					}
				}
			}
			body = body[n*itemSize:]
		}
	}
	return nil
}
