// Package curve evaluates arc-length parameterized 3D curves.
// Every query is by distance along the curve, never by raw spline parameter.
package curve

import (
	"errors"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"

	"github.com/lixenwraith/pursuit/parameter"
	"github.com/lixenwraith/pursuit/vmath"
)

var (
	ErrTooFewPoints = errors.New("curve needs at least two control points")
	ErrZeroLength   = errors.New("curve has zero length")
)

// ControlPoint is an authored curve point; a zero Up means world up
type ControlPoint struct {
	Position r3.Vector
	Up       r3.Vector
}

type reparamEntry struct {
	distance float64
	key      float64
}

// Curve is a cubic Hermite curve with Catmull-Rom tangents and an arc-length table
// Immutable after New
type Curve struct {
	positions      []r3.Vector
	ups            []r3.Vector
	tangents       []r3.Vector
	closed         bool
	segments       int
	table          []reparamEntry
	pointDistances []float64
	length         float64
}

// New builds the curve and its reparameterization table
// stepsPerSegment <= 0 uses the default table resolution
func New(points []ControlPoint, closed bool, stepsPerSegment int) (*Curve, error) {
	n := len(points)
	if n < 2 {
		return nil, ErrTooFewPoints
	}
	if stepsPerSegment <= 0 {
		stepsPerSegment = parameter.CurveReparamStepsPerSegment
	}

	c := &Curve{
		positions: make([]r3.Vector, n),
		ups:       make([]r3.Vector, n),
		tangents:  make([]r3.Vector, n),
		closed:    closed,
		segments:  n - 1,
	}
	if closed {
		c.segments = n
	}

	for i, p := range points {
		c.positions[i] = p.Position
		up := vmath.SafeNormal(p.Up)
		if up == vmath.Zero {
			up = vmath.Up
		}
		c.ups[i] = up
	}
	c.computeTangents()

	c.table = make([]reparamEntry, 0, c.segments*stepsPerSegment+1)
	c.table = append(c.table, reparamEntry{})
	c.pointDistances = make([]float64, n)

	distance := 0.0
	prev := c.positions[0]
	for s := 0; s < c.segments; s++ {
		for k := 1; k <= stepsPerSegment; k++ {
			t := float64(k) / float64(stepsPerSegment)
			pos := c.evalPosition(s, t)
			distance += pos.Sub(prev).Norm()
			prev = pos
			c.table = append(c.table, reparamEntry{distance: distance, key: float64(s) + t})
		}
		if s+1 < n {
			c.pointDistances[s+1] = distance
		}
	}

	if distance < vmath.SmallNumber {
		return nil, ErrZeroLength
	}
	c.length = distance
	return c, nil
}

func (c *Curve) computeTangents() {
	n := len(c.positions)
	for i := range c.positions {
		switch {
		case c.closed:
			prev := c.positions[(i-1+n)%n]
			next := c.positions[(i+1)%n]
			c.tangents[i] = next.Sub(prev).Mul(0.5)
		case i == 0:
			c.tangents[i] = c.positions[1].Sub(c.positions[0])
		case i == n-1:
			c.tangents[i] = c.positions[n-1].Sub(c.positions[n-2])
		default:
			c.tangents[i] = c.positions[i+1].Sub(c.positions[i-1]).Mul(0.5)
		}
	}
}

func (c *Curve) segmentEnds(s int) (int, int) {
	return s, (s + 1) % len(c.positions)
}

func (c *Curve) evalPosition(s int, t float64) r3.Vector {
	i0, i1 := c.segmentEnds(s)
	t2 := t * t
	t3 := t2 * t
	h00 := 2*t3 - 3*t2 + 1
	h10 := t3 - 2*t2 + t
	h01 := -2*t3 + 3*t2
	h11 := t3 - t2
	return c.positions[i0].Mul(h00).
		Add(c.tangents[i0].Mul(h10)).
		Add(c.positions[i1].Mul(h01)).
		Add(c.tangents[i1].Mul(h11))
}

func (c *Curve) evalDerivative(s int, t float64) r3.Vector {
	i0, i1 := c.segmentEnds(s)
	t2 := t * t
	d00 := 6*t2 - 6*t
	d10 := 3*t2 - 4*t + 1
	d01 := -6*t2 + 6*t
	d11 := 3*t2 - 2*t
	return c.positions[i0].Mul(d00).
		Add(c.tangents[i0].Mul(d10)).
		Add(c.positions[i1].Mul(d01)).
		Add(c.tangents[i1].Mul(d11))
}

// keyAt maps a distance to the spline parameter through the reparam table
func (c *Curve) keyAt(distance float64) float64 {
	distance = c.ClampDistance(distance)
	i := sort.Search(len(c.table), func(i int) bool { return c.table[i].distance >= distance })
	if i == 0 {
		return 0
	}
	if i >= len(c.table) {
		return c.table[len(c.table)-1].key
	}
	a, b := c.table[i-1], c.table[i]
	span := b.distance - a.distance
	if span <= 0 {
		return b.key
	}
	return vmath.Lerp(a.key, b.key, (distance-a.distance)/span)
}

func (c *Curve) splitKey(key float64) (int, float64) {
	s := int(math.Floor(key))
	if s >= c.segments {
		return c.segments - 1, 1
	}
	if s < 0 {
		return 0, 0
	}
	return s, key - float64(s)
}

// --- Queries ---

func (c *Curve) Length() float64 { return c.length }

func (c *Curve) IsClosedLoop() bool { return c.closed }

func (c *Curve) NumPoints() int { return len(c.positions) }

// DistanceAtPoint returns the arc length at control point i
func (c *Curve) DistanceAtPoint(i int) float64 {
	if i <= 0 {
		return 0
	}
	if i >= len(c.pointDistances) {
		return c.length
	}
	return c.pointDistances[i]
}

// PointPosition returns control point i as authored
func (c *Curve) PointPosition(i int) r3.Vector {
	return c.positions[i]
}

func (c *Curve) PositionAt(distance float64) r3.Vector {
	s, t := c.splitKey(c.keyAt(distance))
	return c.evalPosition(s, t)
}

// DirectionAt returns the unit tangent at distance
func (c *Curve) DirectionAt(distance float64) r3.Vector {
	s, t := c.splitKey(c.keyAt(distance))
	dir := vmath.SafeNormal(c.evalDerivative(s, t))
	if dir == vmath.Zero {
		i0, i1 := c.segmentEnds(s)
		dir = vmath.SafeNormal(c.positions[i1].Sub(c.positions[i0]))
	}
	return dir
}

// UpAt interpolates the authored up vectors
func (c *Curve) UpAt(distance float64) r3.Vector {
	s, t := c.splitKey(c.keyAt(distance))
	i0, i1 := c.segmentEnds(s)
	up := vmath.SafeNormal(vmath.V3Lerp(c.ups[i0], c.ups[i1], t))
	if up == vmath.Zero {
		return vmath.Up
	}
	return up
}

// RotationAt orients X along the tangent and Z toward the authored up
func (c *Curve) RotationAt(distance float64) mgl64.Quat {
	return vmath.QuatFromForwardUp(c.DirectionAt(distance), c.UpAt(distance))
}

func (c *Curve) TransformAt(distance float64) vmath.Transform {
	return vmath.Transform{Location: c.PositionAt(distance), Rotation: c.RotationAt(distance)}
}

// Side reports which side of the curve a location lies on at distance: +1 or -1
func (c *Curve) Side(distance float64, location r3.Vector) float64 {
	t := c.TransformAt(distance)
	return vmath.UnitSign(location.Sub(t.Location).Dot(t.SideVector()))
}

// RelativeDirection is +1 when dir travels with the curve at distance, else -1
func (c *Curve) RelativeDirection(distance float64, dir r3.Vector) float64 {
	return vmath.UnitSign(c.DirectionAt(distance).Dot(dir))
}

// ClampDistance wraps for closed loops, clamps otherwise
func (c *Curve) ClampDistance(distance float64) float64 {
	return ClampDistance(distance, c.length, c.closed)
}

// DistanceDifference is the wrap-aware a-b on this curve
func (c *Curve) DistanceDifference(a, b float64, signed bool) float64 {
	return DistanceDifference(a, b, c.length, c.closed, signed)
}
