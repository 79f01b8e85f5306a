package prepmesh

import (
	"fmt"
	"strconv"
)

// Box is an axis-aligned bounding box.
type Box struct {
	Min, Max Vector
}

var EmptyBox = Box{}

// BoxForVectors returns the smallest box containing every vector.
// An empty slice yields EmptyBox.
func BoxForVectors(vectors []Vector) Box {
	if len(vectors) == 0 {
		return EmptyBox
	}
	min := vectors[0]
	max := vectors[0]
	for _, v := range vectors[1:] {
		min = min.Min(v)
		max = max.Max(v)
	}
	return Box{min, max}
}

func (a Box) Size() Vector {
	return a.Max.Sub(a.Min)
}

func (a Box) Center() Vector {
	return a.Min.Add(a.Size().MulScalar(0.5))
}

// Contains reports whether b lies inside the box, boundary included.
func (a Box) Contains(b Vector) bool {
	return a.Min.X <= b.X && a.Max.X >= b.X &&
		a.Min.Y <= b.Y && a.Max.Y >= b.Y &&
		a.Min.Z <= b.Z && a.Max.Z >= b.Z
}

func (a Box) String() string {
	return fmt.Sprintf("AxisAlignedBoundingBox: min: %s, max: %s", formatPoint(a.Min), formatPoint(a.Max))
}

func formatPoint(v Vector) string {
	return "(" + formatFloat(v.X) + ", " + formatFloat(v.Y) + ", " + formatFloat(v.Z) + ")"
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
