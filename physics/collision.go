package physics

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/lixenwraith/pursuit/drive"
	"github.com/lixenwraith/pursuit/vmath"
)

// Obstacle is a static round blocker on the ground plane
type Obstacle struct {
	Center r3.Vector
	Radius float64
}

// Collide pushes the body out of overlapping obstacles, removes the velocity
// into them, and records the blocked sides
func (b *Body) Collide(obstacles []Obstacle) drive.Blockage {
	b.Blockage = 0
	for _, o := range obstacles {
		delta := b.Transform.Location.Sub(o.Center)
		delta.Z = 0
		dist := delta.Norm()
		minDist := o.Radius + b.Profile.Radius
		if dist >= minDist {
			continue
		}

		normal := vmath.SafeNormal(delta)
		if normal == vmath.Zero {
			normal = b.Facing().Mul(-1)
		}
		b.Transform.Location = b.Transform.Location.Add(normal.Mul(minDist - dist))
		if into := b.Velocity.Dot(normal); into < 0 {
			b.Velocity = b.Velocity.Sub(normal.Mul(into))
		}
		b.Blockage |= blockedSide(b.Transform, normal.Mul(-1))
	}
	return b.Blockage
}

// blockedSide classifies a world direction by the body's local quadrant
func blockedSide(t vmath.Transform, toward r3.Vector) drive.Blockage {
	local := t.InverseTransformVector(toward)
	if math.Abs(local.X) >= math.Abs(local.Y) {
		if local.X > 0 {
			return drive.BlockedFront
		}
		return drive.BlockedRear
	}
	if local.Y > 0 {
		return drive.BlockedLeft
	}
	return drive.BlockedRight
}
