package drive

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/lixenwraith/pursuit/parameter"
	"github.com/lixenwraith/pursuit/vmath"
)

// Vehicle exposes the force estimates the throttle feed-forward needs
// Forces are in world units; engine power is the force available at full throttle
type Vehicle interface {
	// Gravity is the gravity term opposing travel, per unit mass
	Gravity() r3.Vector
	DragForce(velocity r3.Vector) r3.Vector
	RollingResistance(speed float64, velocityDirection, facing r3.Vector) r3.Vector
	EnginePower(facing r3.Vector) float64

	// GearSpeedRangeKph is the speed span of one gear, used to pace J-turns
	GearSpeedRangeKph() float64
}

// ThrottleForSpeed estimates the throttle that holds targetSpeed (cm/s)
// Far below the target it is full throttle; approaching the target it blends to the
// holding throttle; above the target it blends toward full reverse
func ThrottleForSpeed(v Vehicle, facing, velocity r3.Vector, targetSpeed float64) float64 {
	throttle := 1.0

	velocityDirection := vmath.SafeNormal(velocity)
	if velocityDirection == vmath.Zero {
		velocityDirection = facing
	}

	total := v.DragForce(velocityDirection.Mul(targetSpeed)).
		Add(v.Gravity()).
		Add(v.RollingResistance(targetSpeed, velocityDirection, facing))
	total = total.Mul(-vmath.SafeNormal(total).Dot(velocityDirection))

	targetThrottle := 1.0
	if power := v.EnginePower(facing); power > vmath.SmallNumber {
		targetThrottle = math.Min(total.Norm()/power, 1)
	}

	speed := velocity.Norm()
	mergeRange := vmath.Kph(parameter.ThrottleMergeRangeKph)
	minSpeed := math.Max(0, targetSpeed-mergeRange)

	switch {
	case speed > targetSpeed:
		ratio := vmath.Ratio(speed, targetSpeed, targetSpeed+mergeRange)
		throttle = vmath.Lerp(targetThrottle, -1, ratio)
	case speed > minSpeed:
		// Cubed because drag grows with the square of speed
		ratio := (speed - minSpeed) / (targetSpeed - minSpeed)
		throttle = vmath.Lerp(1, targetThrottle, ratio*ratio*ratio)
	}
	return throttle
}

// ShapeOptimumSpeed adds make-up speed below the target and a slow sinusoidal
// variation; zero stays unlimited
func ShapeOptimumSpeed(optimumKph, speedKph, variationPhase, variation float64) float64 {
	if optimumKph == 0 {
		return 0
	}
	shaped := optimumKph
	if makeUp := vmath.Ratio(optimumKph-speedKph, 0, parameter.MakeUpSpeedRangeKph); makeUp > vmath.SmallNumber {
		shaped += optimumKph * math.Sqrt(makeUp) * parameter.MakeUpSpeedScale
	}
	shaped += math.Sin(variationPhase) * optimumKph * variation
	return math.Min(shaped, parameter.MaxOptimumSpeedKph)
}

// FloorMinimumSpeed raises the minimum speed once the race is underway
func FloorMinimumSpeed(minimumKph, raceTime float64) float64 {
	if minimumKph < parameter.MinimumSpeedFloorKph && raceTime > parameter.MinimumSpeedFloorTime {
		return parameter.MinimumSpeedFloorKph
	}
	return minimumKph
}
