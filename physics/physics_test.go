package physics

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"

	"github.com/lixenwraith/pursuit/drive"
	"github.com/lixenwraith/pursuit/vmath"
)

var _ drive.Vehicle = (*Body)(nil)

const dt = 1.0 / 60

func TestTopSpeed(t *testing.T) {
	b := NewBody(Stock, vmath.IdentityTransform())
	for i := 0; i < 120*60; i++ {
		b.Step(Controls{Throttle: 1}, dt)
	}
	p := Stock
	want := math.Sqrt((p.EngineAccel - p.RollingResistance) / p.DragCoefficient)
	if got := b.Speed(); math.Abs(got-want)/want > 0.01 {
		t.Errorf("top speed = %.0f, want %.0f", got, want)
	}
	if b.Transform.Location.X <= 0 || math.Abs(b.Transform.Location.Y) > vmath.SmallNumber {
		t.Errorf("straight run drifted to %v", b.Transform.Location)
	}
}

func TestThrottleForSpeedHolds(t *testing.T) {
	for _, p := range []Profile{Stock, Heavy} {
		target := vmath.Kph(150)
		b := NewBody(p, vmath.IdentityTransform())
		b.Velocity = r3.Vector{X: target}
		for i := 0; i < 10*60; i++ {
			throttle := drive.ThrottleForSpeed(b, b.Facing(), b.Velocity, target)
			b.Step(Controls{Throttle: throttle}, dt)
		}
		if got := b.Speed(); math.Abs(got-target)/target > 0.01 {
			t.Errorf("held %.0f cm/s, want %.0f", got, target)
		}
	}
}

func TestSteeringTurnsLeft(t *testing.T) {
	b := NewBody(Stock, vmath.IdentityTransform())
	b.Velocity = r3.Vector{X: vmath.Kph(100)}
	for i := 0; i < 30; i++ {
		b.Step(Controls{Throttle: 0.5, Steering: 1}, dt)
	}
	if b.YawRate != Stock.MaxYawRate {
		t.Errorf("yaw rate = %v, want %v", b.YawRate, Stock.MaxYawRate)
	}
	if f := b.Facing(); f.Y <= 0 {
		t.Errorf("facing %v, want a left turn", f)
	}
	if b.Transform.Location.Y <= 0 {
		t.Errorf("location %v, want a left turn", b.Transform.Location)
	}
	if b.Flipped() {
		t.Error("flat turn should not flip")
	}
}

func TestStandingStillCannotSteer(t *testing.T) {
	b := NewBody(Stock, vmath.IdentityTransform())
	b.Step(Controls{Steering: 1}, dt)
	if b.YawRate != 0 || b.Facing() != vmath.Forward {
		t.Errorf("yaw %v facing %v at rest", b.YawRate, b.Facing())
	}
}

func TestHandbrakeStops(t *testing.T) {
	b := NewBody(Stock, vmath.IdentityTransform())
	b.Velocity = r3.Vector{X: vmath.Kph(50)}
	for i := 0; i < 2*60; i++ {
		b.Step(Controls{Handbrake: true}, dt)
	}
	if b.Speed() != 0 {
		t.Errorf("speed = %v after braking, want 0", b.Speed())
	}
}

func TestCollideBlocks(t *testing.T) {
	tests := []struct {
		name     string
		obstacle r3.Vector
		want     drive.Blockage
	}{
		{"front", r3.Vector{X: 300}, drive.BlockedFront},
		{"rear", r3.Vector{X: -300}, drive.BlockedRear},
		{"left", r3.Vector{Y: 300}, drive.BlockedLeft},
		{"right", r3.Vector{Y: -300}, drive.BlockedRight},
		{"clear", r3.Vector{X: 5000}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBody(Stock, vmath.IdentityTransform())
			b.Velocity = tt.obstacle.Mul(2)
			got := b.Collide([]Obstacle{{Center: tt.obstacle, Radius: 150}})
			if got != tt.want {
				t.Fatalf("blockage = %v, want %v", got, tt.want)
			}
			if tt.want == 0 {
				return
			}
			if into := b.Velocity.Dot(tt.obstacle); into > vmath.SmallNumber {
				t.Errorf("velocity %v still points into the obstacle", b.Velocity)
			}
			gap := b.Transform.Location.Sub(tt.obstacle).Norm()
			if math.Abs(gap-(150+Stock.Radius)) > 1e-6 {
				t.Errorf("separation = %v", gap)
			}
		})
	}
}
