package navigation

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/lixenwraith/pursuit/curve"
	"github.com/lixenwraith/pursuit/path"
	"github.com/lixenwraith/pursuit/vmath"
)

// Query describes a re-localization search
type Query struct {
	Location r3.Vector

	// Direction biases toward segments travelling the same way; zero disables
	Direction r3.Vector

	Kind        path.Kind
	VisibleOnly bool

	AllowDeadStarts bool
	AllowDeadEnds   bool

	// MasterDistance constrains matches to within MasterWindow of it; negative disables
	MasterDistance float64
	MasterWindow   float64
}

// Match is the result of a re-localization search
type Match struct {
	Segment      path.SegmentID
	Distance     float64
	DistanceAway float64
}

// FindNearest returns the best segment and distance for q
func (g *Graph) FindNearest(q Query) (Match, bool) {
	best := Match{Segment: path.NoSegment}
	bestScore := math.MaxFloat64
	facing := vmath.SafeNormal(q.Direction)

	for _, s := range g.segments {
		if s.Kind != q.Kind || (q.VisibleOnly && !s.Visible) {
			continue
		}
		if (s.DeadStart && !q.AllowDeadStarts) || (s.DeadEnd && !q.AllowDeadEnds) {
			continue
		}

		d, ok := g.nearestOnSegment(s, q)
		if !ok {
			continue
		}
		away := s.Curve.PositionAt(d).Sub(q.Location).Norm()

		score := away
		if facing != vmath.Zero {
			alignment := s.Curve.DirectionAt(d).Dot(facing)
			score *= 1 + g.cfg.OpposingDirectionPenalty*(1-alignment)*0.5
		}
		if score < bestScore {
			bestScore = score
			best = Match{Segment: s.ID, Distance: d, DistanceAway: away}
		}
	}
	return best, best.Segment != path.NoSegment
}

// nearestOnSegment searches s, honoring the master-distance window when present
func (g *Graph) nearestOnSegment(s *path.Segment, q Query) (float64, bool) {
	if q.MasterDistance < 0 || !s.HasMasterDistances() {
		return s.Curve.NearestDistance(q.Location, 0, 0, g.fullSearch(s)), true
	}

	masterLength := g.MasterLength()
	inWindow := func(d float64) bool {
		md := s.MasterDistanceAt(d, masterLength)
		return math.Abs(curve.DistanceDifference(md, q.MasterDistance, masterLength, true, true)) <= q.MasterWindow
	}

	d := s.Curve.NearestDistance(q.Location, 0, 0, g.fullSearch(s))
	if inWindow(d) {
		return d, true
	}

	// Nearest sample inside the window, then refine around it
	found := false
	bestSample, bestDist := 0.0, math.MaxFloat64
	for i := range s.Extended {
		p := &s.Extended[i]
		if !inWindow(p.Distance) {
			continue
		}
		if dist := vmath.DistanceSquared(s.Curve.PositionAt(p.Distance), q.Location); dist < bestDist {
			bestDist = dist
			bestSample = p.Distance
			found = true
		}
	}
	if !found {
		return 0, false
	}
	spacing := s.ExtendedSpacing()
	d = s.Curve.NearestDistance(q.Location, bestSample-spacing, bestSample+spacing, curve.DefaultSearch())
	if !inWindow(d) {
		d = bestSample
	}
	return d, true
}
