package drive

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/lixenwraith/pursuit/parameter"
	"github.com/lixenwraith/pursuit/vmath"
)

// Weave animates a sideways offset across the path width so agents do not
// all drive the center line
type Weave struct {
	// HalfWidth is the current target half width, SmoothedHalfWidth follows it
	HalfWidth         float64
	SmoothedHalfWidth float64

	// Phase is the position on the sine arc; Rate advances it
	Phase float64
	Rate  float64

	// Ratio fades weaving in after a reset
	Ratio float64

	// VariationPhase drives the optimum speed variation
	VariationPhase float64

	reset bool
}

func newWeave(rate float64) Weave {
	return Weave{Rate: rate, reset: true}
}

// Reset re-seats the weave on the vehicle's current line on the next Retarget
func (w *Weave) Reset() {
	w.reset = true
	w.Ratio = 0
}

// Update animates the weave for one tick; locked freezes the phase
func (w *Weave) Update(delta, speedKph float64, locked bool) {
	if !locked {
		ratio := w.Ratio
		switch {
		case speedKph < parameter.WeavingStartKph:
			ratio = 0
		case speedKph < parameter.WeavingFullKph:
			ratio *= (speedKph - parameter.WeavingStartKph) / (parameter.WeavingFullKph - parameter.WeavingStartKph)
		}
		w.Phase += w.Rate * ratio * delta
		w.Ratio = math.Min(w.Ratio+delta, 1)
	}
	w.SmoothedHalfWidth = vmath.GravitateToTarget(w.SmoothedHalfWidth, w.HalfWidth, parameter.WeavingSmoothingSpeed*delta)
	w.VariationPhase += delta / parameter.SpeedVariationPeriod
}

// Retarget sets the half width at the aim point; after a reset the phase is chosen
// so the offset matches where the vehicle is already heading
func (w *Weave) Retarget(halfWidth float64, aim vmath.Transform, location, travel r3.Vector, rng *vmath.FastRand) {
	w.HalfWidth = math.Max(halfWidth, parameter.WeavingMinHalfWidth)
	if !w.reset {
		return
	}
	w.reset = false
	w.SmoothedHalfWidth = w.HalfWidth

	side := aim.InverseTransformPosition(location).Y
	if hit, ok := rayPlane(location, travel, aim.Location, aim.ForwardVector().Mul(-1)); ok {
		side = aim.InverseTransformPosition(hit).Y
	}
	ratio := math.Min(math.Abs(side)/w.SmoothedHalfWidth, 1)
	w.Phase = math.Asin(ratio) * vmath.UnitSign(side)

	// Either point on the arc gives this width
	if rng != nil && rng.Bool() {
		w.Phase = (math.Pi - math.Abs(w.Phase)) * vmath.UnitSign(w.Phase)
	}
}

// Offset is the sideways offset to apply at the aim point
func (w *Weave) Offset() float64 {
	return math.Sin(w.Phase) * w.SmoothedHalfWidth * w.Ratio
}

// rayPlane intersects a ray with a plane, only forward along the ray
func rayPlane(origin, direction, planePoint, planeNormal r3.Vector) (r3.Vector, bool) {
	dir := vmath.SafeNormal(direction)
	denom := dir.Dot(planeNormal)
	if math.Abs(denom) < vmath.SmallNumber {
		return r3.Vector{}, false
	}
	t := planePoint.Sub(origin).Dot(planeNormal) / denom
	if t < 0 {
		return r3.Vector{}, false
	}
	return origin.Add(dir.Mul(t)), true
}
