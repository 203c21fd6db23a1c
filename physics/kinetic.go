// Package physics is a point-mass vehicle on a ground plane. It stands in for
// a real vehicle model: the drive package only sees it through drive.Vehicle.
package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"

	"github.com/lixenwraith/pursuit/drive"
	"github.com/lixenwraith/pursuit/vmath"
)

// Controls are the inputs integrated by Step
type Controls struct {
	Throttle  float64
	Steering  float64
	Handbrake bool
}

// Body is one simulated vehicle
type Body struct {
	Profile   Profile
	Transform vmath.Transform
	Velocity  r3.Vector

	// YawRate around the up axis (deg/s), positive turns left
	YawRate float64

	// Thrust is the throttle applied on the last step
	Thrust float64

	// GroundNormal tilts gravity along the surface; zero means flat
	GroundNormal r3.Vector

	Blockage drive.Blockage
}

// NewBody places a body at rest
func NewBody(p Profile, t vmath.Transform) *Body {
	return &Body{Profile: p, Transform: t, GroundNormal: vmath.Up}
}

func (b *Body) Facing() r3.Vector { return b.Transform.ForwardVector() }

func (b *Body) Speed() float64 { return b.Velocity.Norm() }

// Flipped reports the body upside down
func (b *Body) Flipped() bool { return b.Transform.UpVector().Z < 0 }

// Gravity is the component of gravity along the ground
func (b *Body) Gravity() r3.Vector {
	n := vmath.SafeNormal(b.GroundNormal)
	if n == vmath.Zero {
		n = vmath.Up
	}
	g := r3.Vector{Z: -b.Profile.Gravity}
	return g.Sub(n.Mul(g.Dot(n)))
}

func (b *Body) DragForce(velocity r3.Vector) r3.Vector {
	return velocity.Mul(-b.Profile.DragCoefficient * velocity.Norm())
}

func (b *Body) RollingResistance(speed float64, velocityDirection, _ r3.Vector) r3.Vector {
	if speed < vmath.SmallNumber {
		return r3.Vector{}
	}
	return velocityDirection.Mul(-b.Profile.RollingResistance)
}

func (b *Body) EnginePower(r3.Vector) float64 { return b.Profile.EngineAccel }

func (b *Body) GearSpeedRangeKph() float64 { return b.Profile.GearSpeedRangeKph }

// Step integrates one tick and returns the movement
func (b *Body) Step(c Controls, dt float64) r3.Vector {
	if dt <= 0 {
		return r3.Vector{}
	}
	p := &b.Profile
	throttle := vmath.Clamp(c.Throttle, -1, 1)
	steering := vmath.Clamp(c.Steering, -1, 1)

	// Yaw authority grows with speed and flips when rolling backwards
	facing := b.Facing()
	forwardSpeed := b.Velocity.Dot(facing)
	authority := vmath.Ratio(vmath.ToKph(math.Abs(forwardSpeed)), 0, p.SteerFullSpeedKph)
	b.YawRate = steering * p.MaxYawRate * authority * vmath.UnitSign(forwardSpeed)

	yaw := b.YawRate * math.Pi / 180 * dt
	b.Transform.Rotation = mgl64.QuatRotate(yaw, vmath.ToMgl(vmath.Up)).Mul(b.Transform.Rotation).Normalize()
	facing = b.Facing()

	engine := throttle * p.EngineAccel
	if throttle < 0 {
		engine *= p.ReverseScale
	}
	accel := facing.Mul(engine).Add(b.Gravity()).Add(b.DragForce(b.Velocity))
	v := b.Velocity.Add(accel.Mul(dt))

	// Rolling resistance and the handbrake only ever slow the body
	decel := p.RollingResistance
	if c.Handbrake {
		decel += p.HandbrakeDecel
	}
	if speed := v.Norm(); speed > vmath.SmallNumber {
		v = v.Mul(math.Max(speed-decel*dt, 0) / speed)
	}

	grip := p.Grip
	if c.Handbrake {
		grip = p.HandbrakeGrip
	}
	along := v.Dot(facing)
	lateral := v.Sub(facing.Mul(along)).Mul(math.Exp(-grip * dt))
	b.Velocity = facing.Mul(along).Add(lateral)
	b.Thrust = throttle

	movement := b.Velocity.Mul(dt)
	b.Transform.Location = b.Transform.Location.Add(movement)
	return movement
}
