package prepmesh

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

type Vector struct {
	X, Y, Z float64
}

func V(x, y, z float64) Vector {
	return Vector{x, y, z}
}

func (a Vector) Length() float64 {
	return math.Sqrt(a.X*a.X + a.Y*a.Y + a.Z*a.Z)
}

func (a Vector) Add(b Vector) Vector {
	return Vector{a.X + b.X, a.Y + b.Y, a.Z + b.Z}
}

func (a Vector) Sub(b Vector) Vector {
	return Vector{a.X - b.X, a.Y - b.Y, a.Z - b.Z}
}

func (a Vector) MulScalar(s float64) Vector {
	return Vector{a.X * s, a.Y * s, a.Z * s}
}

func (a Vector) Dot(b Vector) float64 {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z
}

func (a Vector) Cross(b Vector) Vector {
	x := a.Y*b.Z - a.Z*b.Y
	y := a.Z*b.X - a.X*b.Z
	z := a.X*b.Y - a.Y*b.X
	return Vector{x, y, z}
}

// Normalize returns a unit vector. The zero vector is returned unchanged.
func (a Vector) Normalize() Vector {
	l := a.Length()
	if l == 0 {
		return a
	}
	return Vector{a.X / l, a.Y / l, a.Z / l}
}

func (a Vector) Min(b Vector) Vector {
	return Vector{math.Min(a.X, b.X), math.Min(a.Y, b.Y), math.Min(a.Z, b.Z)}
}

func (a Vector) Max(b Vector) Vector {
	return Vector{math.Max(a.X, b.X), math.Max(a.Y, b.Y), math.Max(a.Z, b.Z)}
}

func (a Vector) Vec3() mgl64.Vec3 {
	return mgl64.Vec3{a.X, a.Y, a.Z}
}

func VectorFromVec3(v mgl64.Vec3) Vector {
	return Vector{v[0], v[1], v[2]}
}
