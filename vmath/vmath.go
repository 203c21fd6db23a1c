package vmath

import "math"

// SmallNumber is the tolerance used for "nearly zero" float comparisons
const SmallNumber = 1e-4

// Unit conversions between authored units and world units (centimeters)
const (
	CentimetersPerMeter = 100.0
	KphToCmps           = 100000.0 / 3600.0
	CmpsToKph           = 3600.0 / 100000.0
)

// Meters converts meters to world centimeters
func Meters(m float64) float64 { return m * CentimetersPerMeter }

// Kph converts kilometers per hour to centimeters per second
func Kph(kph float64) float64 { return kph * KphToCmps }

// ToKph converts centimeters per second to kilometers per hour
func ToKph(cmps float64) float64 { return cmps * CmpsToKph }

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// Ratio returns where value sits between lo and hi, clamped to [0,1]
// Degenerate ranges return 1 when value reaches hi, else 0
func Ratio(value, lo, hi float64) float64 {
	if hi == lo {
		if value >= hi {
			return 1
		}
		return 0
	}
	return Clamp((value-lo)/(hi-lo), 0, 1)
}

// UnitSign returns -1 for negative values, else 1
func UnitSign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

// GravitateToTarget moves value toward target by at most amount
func GravitateToTarget(value, target, amount float64) float64 {
	if value < target {
		return math.Min(value+amount, target)
	}
	return math.Max(value-amount, target)
}

// DotToDegrees converts a dot product of unit vectors to the angle between them
func DotToDegrees(dot float64) float64 {
	return math.Acos(Clamp(dot, -1, 1)) * 180 / math.Pi
}

// DegreesToDot converts a cone half-angle to the equivalent dot product threshold
func DegreesToDot(deg float64) float64 {
	return math.Cos(deg * math.Pi / 180)
}

// NearlyEqual compares with an absolute tolerance
func NearlyEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

// --- Random ---

// FastRand is a xorshift64 generator; deterministic for a given seed
type FastRand struct {
	state uint64
}

// NewFastRand scrambles seed with a splitmix64 step so adjacent seeds diverge
func NewFastRand(seed uint64) *FastRand {
	z := seed + 0x9E3779B97F4A7C15
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	z ^= z >> 31
	if z == 0 {
		z = 1
	}
	return &FastRand{state: z}
}

func (r *FastRand) Next() uint64 {
	x := r.state
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	r.state = x
	return x
}

func (r *FastRand) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(r.Next() % uint64(n))
}

// Float64 returns a value in [0,1)
func (r *FastRand) Float64() float64 {
	return float64(r.Next()>>11) / (1 << 53)
}

// Range returns a value in [lo,hi)
func (r *FastRand) Range(lo, hi float64) float64 {
	return lo + (hi-lo)*r.Float64()
}

// Bool returns true with even odds
func (r *FastRand) Bool() bool {
	return r.Next()&1 == 1
}
