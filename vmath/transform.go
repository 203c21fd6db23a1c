package vmath

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
)

// Transform is a rigid placement: rotation followed by translation
type Transform struct {
	Location r3.Vector
	Rotation mgl64.Quat
}

// IdentityTransform places at origin with no rotation
func IdentityTransform() Transform {
	return Transform{Rotation: mgl64.QuatIdent()}
}

func (t Transform) TransformPosition(p r3.Vector) r3.Vector {
	return t.Location.Add(RotateVector(t.Rotation, p))
}

func (t Transform) TransformVector(v r3.Vector) r3.Vector {
	return RotateVector(t.Rotation, v)
}

// InverseTransformPosition maps a world point into local space
func (t Transform) InverseTransformPosition(p r3.Vector) r3.Vector {
	return RotateVector(t.Rotation.Inverse(), p.Sub(t.Location))
}

// InverseTransformVector maps a world direction into local space
func (t Transform) InverseTransformVector(v r3.Vector) r3.Vector {
	return RotateVector(t.Rotation.Inverse(), v)
}

func (t Transform) ForwardVector() r3.Vector { return RotateVector(t.Rotation, Forward) }
func (t Transform) SideVector() r3.Vector    { return RotateVector(t.Rotation, Side) }
func (t Transform) UpVector() r3.Vector      { return RotateVector(t.Rotation, Up) }

// RotateVector applies q to v
func RotateVector(q mgl64.Quat, v r3.Vector) r3.Vector {
	return FromMgl(q.Rotate(ToMgl(v)))
}

// QuatFromAxes builds the rotation whose local X/Y/Z map to the given orthonormal axes
func QuatFromAxes(forward, side, up r3.Vector) mgl64.Quat {
	m := mgl64.Mat4FromCols(
		ToMgl(forward).Vec4(0),
		ToMgl(side).Vec4(0),
		ToMgl(up).Vec4(0),
		mgl64.Vec4{0, 0, 0, 1},
	)
	return mgl64.Mat4ToQuat(m).Normalize()
}

// QuatFromForwardUp orthonormalizes forward against a reference up vector
// Falls back to world axes when forward and up are parallel
func QuatFromForwardUp(forward, up r3.Vector) mgl64.Quat {
	f := SafeNormal(forward)
	if f == Zero {
		return mgl64.QuatIdent()
	}
	s := SafeNormal(up.Cross(f))
	if s == Zero {
		s = SafeNormal(Up.Cross(f))
		if s == Zero {
			s = SafeNormal(f.Cross(Forward))
		}
	}
	u := f.Cross(s)
	return QuatFromAxes(f, s, u)
}
