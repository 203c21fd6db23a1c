package drive

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"

	"github.com/lixenwraith/pursuit/vmath"
)

const tick = 1.0 / 60

// linearVehicle has drag proportional to velocity and nothing else
type linearVehicle struct {
	drag, power float64
}

func (v linearVehicle) Gravity() r3.Vector                { return r3.Vector{} }
func (v linearVehicle) DragForce(vel r3.Vector) r3.Vector { return vel.Mul(-v.drag) }
func (v linearVehicle) EnginePower(r3.Vector) float64     { return v.power }
func (v linearVehicle) GearSpeedRangeKph() float64        { return 60 }
func (v linearVehicle) RollingResistance(float64, r3.Vector, r3.Vector) r3.Vector {
	return r3.Vector{}
}

// standing is a grounded vehicle at the origin facing +X with its aim point ahead
func standing(raceTime float64) Input {
	return Input{
		Delta:         tick,
		RaceTime:      raceTime,
		Started:       true,
		Transform:     vmath.IdentityTransform(),
		Grounded:      true,
		HeadingTo:     r3.Vector{X: 5000},
		PathDirection: vmath.Forward,
	}
}

func TestStuckAgainstBlockageReverses(t *testing.T) {
	c := NewController(DefaultConfig(), nil, 1)

	raceTime := 5.5
	switchedAt := -1.0
	relocalized := false
	for elapsed := 0.0; elapsed < 2.1; elapsed += tick {
		in := standing(raceTime + elapsed)
		in.Thrust = 0.5
		in.Blockage = BlockedFront
		intent := c.Update(in)
		if c.Mode() == ReversingFromBlockage {
			switchedAt = elapsed
			relocalized = intent.Relocalize
			break
		}
	}
	if switchedAt < 0 {
		t.Fatalf("still %v after 2.1s of blocked thrust", c.Mode())
	}
	if switchedAt < 1.9 {
		t.Errorf("switched after %.2fs, before two seconds of history", switchedAt)
	}
	if !relocalized {
		t.Error("stuck detection should ask for re-localization")
	}
}

func TestLightThrustIsNotStuck(t *testing.T) {
	c := NewController(DefaultConfig(), nil, 1)
	for elapsed := 0.0; elapsed < 4; elapsed += tick {
		in := standing(5.5 + elapsed)
		in.Thrust = 0.1
		in.Blockage = BlockedFront
		c.Update(in)
	}
	if c.Mode() != GeneralManeuvering {
		t.Errorf("mode = %v, want general", c.Mode())
	}
}

func TestReversingFromBlockageExits(t *testing.T) {
	tests := []struct {
		name     string
		movement r3.Vector
		maxTime  float64
	}{
		{"distance", r3.Vector{X: -20}, 1},
		{"timeout", r3.Vector{X: -1}, 3.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewController(DefaultConfig(), nil, 1)
			c.SetMode(ReversingFromBlockage)
			for elapsed := 0.0; elapsed < tt.maxTime && c.Mode() == ReversingFromBlockage; elapsed += tick {
				in := standing(10 + elapsed)
				in.Movement = tt.movement
				in.Thrust = -1
				intent := c.Update(in)
				if c.Mode() == ReversingFromBlockage && intent.Throttle != -1 {
					t.Fatalf("reversing throttle = %v", intent.Throttle)
				}
			}
			if c.Mode() != GeneralManeuvering {
				t.Errorf("mode = %v after %.1fs", c.Mode(), tt.maxTime)
			}
		})
	}
}

func TestLostControlRespectsCooldown(t *testing.T) {
	c := NewController(DefaultConfig(), nil, 1)

	in := standing(1)
	in.YawRate = 150
	c.Update(in)
	if c.Mode() != RecoveringControl {
		t.Fatalf("mode = %v, want recovering", c.Mode())
	}

	// Aligned and calm again
	c.Update(standing(1.1))
	if c.Mode() != GeneralManeuvering {
		t.Fatalf("mode = %v, want general", c.Mode())
	}

	in = standing(1.2)
	in.YawRate = 150
	c.Update(in)
	if c.Mode() != GeneralManeuvering {
		t.Errorf("re-entered recovery inside the cooldown")
	}
}

func TestProRecoveryStartsJTurn(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Difficulty = 3
	c := NewController(cfg, linearVehicle{drag: 1, power: 1e6}, 1)

	in := standing(1)
	in.HeadingTo = r3.Vector{X: -5000}
	in.PathDirection = vmath.Forward.Mul(-1)
	in.Velocity = r3.Vector{X: vmath.Kph(80)}
	c.Update(in)
	if c.Mode() != RecoveringControl {
		t.Fatalf("mode = %v, want recovering", c.Mode())
	}

	intent := c.Update(in)
	if c.Mode() != JTurnToReorient {
		t.Fatalf("mode = %v, want jturn", c.Mode())
	}
	if intent.Throttle != -1 {
		t.Errorf("jturn throttle = %v, want -1", intent.Throttle)
	}
}

func TestNoviceRecoveryReverses(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Difficulty = 0
	c := NewController(cfg, nil, 1)
	c.SetMode(RecoveringControl)

	in := standing(1)
	in.HeadingTo = r3.Vector{X: -5000}
	c.Update(in)
	if c.Mode() != ReversingToReorient {
		t.Errorf("mode = %v, want reversing to reorient", c.Mode())
	}
}

func TestSteeringTowardHeading(t *testing.T) {
	tests := []struct {
		name    string
		heading r3.Vector
		want    float64
	}{
		{"ahead", r3.Vector{X: 1000}, 0},
		{"hard left", r3.Vector{Y: 1000}, 1},
		{"hard right", r3.Vector{Y: -1000}, -1},
		{"slight left", r3.Vector{X: 1000, Y: 10}, math.Atan2(10, 1000) / math.Pi * 8},
	}
	for _, tt := range tests {
		c := NewController(DefaultConfig(), nil, 1)
		in := standing(1)
		in.HeadingTo = tt.heading
		intent := c.Update(in)
		if math.Abs(intent.Steering-tt.want) > 1e-9 {
			t.Errorf("%s: steering = %v, want %v", tt.name, intent.Steering, tt.want)
		}
	}
}

func TestGridHoldsHandbrake(t *testing.T) {
	c := NewController(DefaultConfig(), nil, 1)
	in := standing(0)
	in.Started = false
	if intent := c.Update(in); !intent.Handbrake {
		t.Error("handbrake should hold before the start")
	}
	if c.Thrust.Len() != 0 {
		t.Error("no progress is recorded before the start")
	}
}

func TestThrottleForSpeed(t *testing.T) {
	v := linearVehicle{drag: 2, power: 100000}
	target := vmath.Kph(200)
	holding := 2 * target / v.power
	merge := vmath.Kph(50)

	tests := []struct {
		name  string
		speed float64
		want  float64
	}{
		{"standing", 0, 1},
		{"far below", target - merge - 1, 1},
		{"at target", target, holding},
		{"well above", target + merge, -1},
		{"far above", target * 2, -1},
	}
	for _, tt := range tests {
		got := ThrottleForSpeed(v, vmath.Forward, r3.Vector{X: tt.speed}, target)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("%s: throttle = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestSpeedShaping(t *testing.T) {
	if got := ShapeOptimumSpeed(0, 100, 1, 0.05); got != 0 {
		t.Errorf("unlimited stays unlimited, got %v", got)
	}
	if got := ShapeOptimumSpeed(200, 200, 0, 0.05); got != 200 {
		t.Errorf("at speed with no variation = %v, want 200", got)
	}
	if got := ShapeOptimumSpeed(200, 100, 0, 0); got != 250 {
		t.Errorf("full make-up = %v, want 250", got)
	}
	if got := ShapeOptimumSpeed(950, 0, 0, 0); got != 1000 {
		t.Errorf("capped = %v, want 1000", got)
	}
	if got := FloorMinimumSpeed(0, 11); got != 150 {
		t.Errorf("floor = %v, want 150", got)
	}
	if got := FloorMinimumSpeed(0, 5); got != 0 {
		t.Errorf("early floor = %v, want 0", got)
	}
}

func TestModeString(t *testing.T) {
	if GeneralManeuvering.String() != "general" || JTurnToReorient.String() != "jturn_to_reorient" || Mode(99).String() != "unknown" {
		t.Error("unexpected mode names")
	}
	if !ReversingFromBlockage.Reversing() || GeneralManeuvering.Reversing() {
		t.Error("unexpected Reversing")
	}
}
