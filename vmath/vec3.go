package vmath

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
)

// Basis axes: X forward, Y side, Z up
var (
	Zero    = r3.Vector{}
	Forward = r3.Vector{X: 1}
	Side    = r3.Vector{Y: 1}
	Up      = r3.Vector{Z: 1}
)

// SafeNormal returns the unit vector of v, or zero when v is too short to normalize
func SafeNormal(v r3.Vector) r3.Vector {
	if v.Norm2() < SmallNumber*SmallNumber {
		return r3.Vector{}
	}
	return v.Normalize()
}

// V3Lerp interpolates component-wise between a and b
func V3Lerp(a, b r3.Vector, t float64) r3.Vector {
	return a.Add(b.Sub(a).Mul(t))
}

// V3NearlyZero reports whether every component is within tolerance of zero
func V3NearlyZero(v r3.Vector, tolerance float64) bool {
	return v.Abs().X <= tolerance && v.Abs().Y <= tolerance && v.Abs().Z <= tolerance
}

// DistanceSquared between two points
func DistanceSquared(a, b r3.Vector) float64 {
	return a.Sub(b).Norm2()
}

// ToMgl converts to the mathgl vector type
func ToMgl(v r3.Vector) mgl64.Vec3 {
	return mgl64.Vec3{v.X, v.Y, v.Z}
}

// FromMgl converts from the mathgl vector type
func FromMgl(v mgl64.Vec3) r3.Vector {
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}
}
