package path

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"

	"github.com/lixenwraith/pursuit/parameter"
	"github.com/lixenwraith/pursuit/vmath"
)

// NumDistances is the ray count of the environment ring; index 0 points up, NumDistances/2 down
const NumDistances = parameter.NumEnvironmentDistances

// Environment answers ray queries against level geometry
type Environment interface {
	Raycast(from, direction r3.Vector, maxDistance float64) (distance float64, hit bool)
}

// ExtendedPoint is a dense sample along a segment
type ExtendedPoint struct {
	Distance float64

	// MasterDistance is -1 until propagation assigns it
	MasterDistance float64

	// MaxTunnelDiameter is zero outside enclosed sections
	MaxTunnelDiameter float64

	RawWeatherAllowed float64
	UseWeatherAllowed float64

	CurvatureIndex  int
	RawGroundIndex  int
	UseGroundIndex  int
	RawGroundOffset r3.Vector
	UseGroundOffset r3.Vector

	EnvironmentDistances [NumDistances]float64

	OpenLeft  bool
	OpenRight bool

	Orientation mgl64.Quat
}

// IsLevelGround reports a close floor roughly below the path
func (p *ExtendedPoint) IsLevelGround() bool {
	mid := NumDistances / 2
	spread := NumDistances >> 4
	return p.UseGroundIndex >= mid-spread && p.UseGroundIndex <= mid+spread &&
		p.EnvironmentDistances[p.UseGroundIndex] < parameter.LevelSurfaceDistance
}

// IsLevelCeiling reports a close surface roughly above the path
func (p *ExtendedPoint) IsLevelCeiling() bool {
	spread := NumDistances >> 4
	best := 0
	for i := 1; i < NumDistances; i++ {
		if i > spread && i < NumDistances-spread {
			continue
		}
		if p.EnvironmentDistances[i] < p.EnvironmentDistances[best] {
			best = i
		}
	}
	return p.EnvironmentDistances[best] < parameter.LevelSurfaceDistance
}

// DifferenceInDegrees is the ring angle between two indices
func DifferenceInDegrees(a, b int) float64 {
	d := (a - b) % NumDistances
	if d < 0 {
		d += NumDistances
	}
	if d > NumDistances/2 {
		d = NumDistances - d
	}
	return float64(d) * 360 / NumDistances
}

func ringDirection(t vmath.Transform, index int) r3.Vector {
	a := 2 * math.Pi * float64(index) / NumDistances
	return t.UpVector().Mul(math.Cos(a)).Add(t.SideVector().Mul(math.Sin(a)))
}

// --- Build ---

// Build (re)creates the extended samples every spacing world units
// The sample count never shrinks once built; env may be nil
func (s *Segment) Build(env Environment, spacing float64) {
	if spacing <= 0 {
		spacing = vmath.Meters(parameter.ExtendedPointMeters)
	}
	length := s.Length()
	n := int(math.Ceil(length/spacing)) + 1
	if n < 2 {
		n = 2
	}
	if len(s.Extended) > n {
		n = len(s.Extended)
	}
	if len(s.Extended) != n {
		s.Extended = make([]ExtendedPoint, n)
		for i := range s.Extended {
			s.Extended[i].MasterDistance = -1
		}
	}

	pointLength := length / float64(n-1)
	for i := range s.Extended {
		p := &s.Extended[i]
		p.Distance = float64(i) * pointLength
		p.Orientation = s.Curve.RotationAt(p.Distance)

		before := s.Curve.DirectionAt(p.Distance - pointLength*0.5)
		after := s.Curve.DirectionAt(p.Distance + pointLength*0.5)
		p.CurvatureIndex = int(math.Round(vmath.DotToDegrees(before.Dot(after))))
	}

	s.environmentSampled = env != nil
	if env == nil {
		return
	}
	for i := range s.Extended {
		s.sampleEnvironment(env, i)
	}
	s.filterEnvironment()
}

func (s *Segment) sampleEnvironment(env Environment, i int) {
	p := &s.Extended[i]
	t := s.Curve.TransformAt(p.Distance)

	ground := 0
	for k := 0; k < NumDistances; k++ {
		dist, hit := env.Raycast(t.Location, ringDirection(t, k), parameter.UnlimitedEnvironmentDistance)
		if !hit || dist > parameter.UnlimitedEnvironmentDistance {
			dist = parameter.UnlimitedEnvironmentDistance
		}
		p.EnvironmentDistances[k] = dist
		if dist < p.EnvironmentDistances[ground] {
			ground = k
		}
	}

	p.RawGroundIndex = ground
	p.RawGroundOffset = vmath.Zero
	if p.EnvironmentDistances[ground] < parameter.UnlimitedEnvironmentDistance {
		p.RawGroundOffset = ringDirection(t, ground).Mul(p.EnvironmentDistances[ground])
	}

	// Enclosed only when every opposing pair is bounded
	p.MaxTunnelDiameter = 0
	enclosed := true
	diameter := math.MaxFloat64
	for k := 0; k < NumDistances/2; k++ {
		a, b := p.EnvironmentDistances[k], p.EnvironmentDistances[k+NumDistances/2]
		if a >= parameter.UnlimitedEnvironmentDistance || b >= parameter.UnlimitedEnvironmentDistance {
			enclosed = false
			break
		}
		diameter = math.Min(diameter, a+b)
	}
	if enclosed {
		p.MaxTunnelDiameter = diameter
	}

	p.RawWeatherAllowed = 0
	if s.WeatherAllowedAuthored(p.Distance) && p.EnvironmentDistances[0] >= parameter.UnlimitedEnvironmentDistance {
		p.RawWeatherAllowed = 1
	}

	p.OpenLeft = p.EnvironmentDistances[NumDistances/4] >= parameter.UnlimitedEnvironmentDistance
	p.OpenRight = p.EnvironmentDistances[NumDistances*3/4] >= parameter.UnlimitedEnvironmentDistance
}

// WeatherAllowedAuthored returns the authored flag of the control point at or before distance
func (s *Segment) WeatherAllowedAuthored(distance float64) bool {
	i, _, _ := s.pointKeys(distance)
	return s.Points[i].WeatherAllowed
}

// filterEnvironment smooths ground and weather over neighboring samples
func (s *Segment) filterEnvironment() {
	const radius = 2
	n := len(s.Extended)
	neighbor := func(i int) int {
		if s.IsClosedLoop() {
			return ((i % (n - 1)) + (n - 1)) % (n - 1)
		}
		return int(vmath.Clamp(float64(i), 0, float64(n-1)))
	}

	for i := range s.Extended {
		counts := make(map[int]int, 2*radius+1)
		weather := 0.0
		for o := -radius; o <= radius; o++ {
			q := &s.Extended[neighbor(i+o)]
			counts[q.RawGroundIndex]++
			weather += q.RawWeatherAllowed
		}

		p := &s.Extended[i]
		use := p.RawGroundIndex
		for index, count := range counts {
			if count > counts[use] || (count == counts[use] && index < use) {
				use = index
			}
		}
		p.UseGroundIndex = use
		p.UseWeatherAllowed = weather / (2*radius + 1)

		p.UseGroundOffset = vmath.Zero
		if d := p.EnvironmentDistances[use]; d < parameter.UnlimitedEnvironmentDistance {
			p.UseGroundOffset = ringDirection(s.Curve.TransformAt(p.Distance), use).Mul(d)
		}
	}
}

// --- Extended lookups ---

// extendedKeys returns the samples bounding distance and the ratio between them
func (s *Segment) extendedKeys(distance float64) (int, int, float64, bool) {
	n := len(s.Extended)
	if n < 2 {
		return 0, 0, 0, false
	}
	pointLength := s.Length() / float64(n-1)
	distance = s.Curve.ClampDistance(distance)

	k0 := int(math.Floor(distance / pointLength))
	if k0 > n-2 {
		k0 = n - 2
	}
	if k0 < 0 {
		k0 = 0
	}
	k1 := k0 + 1
	ratio := vmath.Clamp((distance-s.Extended[k0].Distance)/pointLength, 0, 1)
	return k0, k1, ratio, true
}

// ExtendedSpacing is the distance between extended samples, zero when unbuilt
func (s *Segment) ExtendedSpacing() float64 {
	if len(s.Extended) < 2 {
		return 0
	}
	return s.Length() / float64(len(s.Extended)-1)
}

// HasMasterDistances reports whether every extended sample carries a master distance
func (s *Segment) HasMasterDistances() bool {
	if len(s.Extended) < 2 {
		return false
	}
	for i := range s.Extended {
		if s.Extended[i].MasterDistance < 0 {
			return false
		}
	}
	return true
}

// ClearMasterDistances marks every sample unset
func (s *Segment) ClearMasterDistances() {
	for i := range s.Extended {
		s.Extended[i].MasterDistance = -1
	}
	s.MasterClass = -1
}

// MasterDistanceAt interpolates master distance, taking the short way across the master seam
// Returns 0 when samples are missing
func (s *Segment) MasterDistanceAt(distance, masterLength float64) float64 {
	k0, k1, ratio, ok := s.extendedKeys(distance)
	if !ok {
		return 0
	}
	v0 := s.Extended[k0].MasterDistance
	v1 := s.Extended[k1].MasterDistance

	if v1 >= v0 || masterLength == 0 || v0-v1 < masterLength*parameter.MasterWrapFraction {
		return vmath.Lerp(v0, v1, ratio)
	}

	l0 := masterLength - v0
	l1 := v1
	l := ratio * (l0 + l1)
	if l < l0 {
		return v0 + l
	}
	return l - l0
}

// TunnelDiameterAt returns the enclosing diameter, or the open-air value outside tunnels.
// An unbuilt segment has no environment data and reports 0
func (s *Segment) TunnelDiameterAt(distance float64) float64 {
	k0, k1, ratio, ok := s.extendedKeys(distance)
	if !ok {
		return 0
	}
	d0 := tunnelOrOpen(s.Extended[k0].MaxTunnelDiameter)
	d1 := tunnelOrOpen(s.Extended[k1].MaxTunnelDiameter)
	return math.Min(vmath.Lerp(d0, d1, ratio), parameter.NotATunnelDiameter)
}

func tunnelOrOpen(d float64) float64 {
	if d <= 0 {
		return parameter.NotATunnelDiameter
	}
	return d
}

// TunnelDiameterOverDistance walks overDistance in direction (+1/-1) and returns the
// minimum or average diameter seen
func (s *Segment) TunnelDiameterOverDistance(distance, overDistance, direction float64, minimum bool) float64 {
	step := s.ExtendedSpacing()
	if step <= 0 {
		return 0
	}

	result := s.TunnelDiameterAt(distance)
	total, count := result, 1
	for travelled := step; travelled <= overDistance; travelled += step {
		d := distance + travelled*vmath.UnitSign(direction)
		if !s.IsClosedLoop() && (d < 0 || d > s.Length()) {
			break
		}
		diameter := s.TunnelDiameterAt(d)
		result = math.Min(result, diameter)
		total += diameter
		count++
	}
	if minimum {
		return result
	}
	return total / float64(count)
}
