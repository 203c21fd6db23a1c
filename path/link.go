package path

import (
	"math"
	"sort"

	"github.com/lixenwraith/pursuit/parameter"
)

// Link connects a distance on this segment to a distance on Target
// Forward links carry traffic from this segment onto the target
type Link struct {
	Target       SegmentID
	ThisDistance float64
	NextDistance float64
	Forward      bool
}

// Matches treats links to the same target within a meter at both ends as equal
func (l Link) Matches(o Link) bool {
	return l.Target == o.Target &&
		math.Abs(l.ThisDistance-o.ThisDistance) < parameter.LinkMatchDistance &&
		math.Abs(l.NextDistance-o.NextDistance) < parameter.LinkMatchDistance
}

// Resolver looks segments up by ID
type Resolver interface {
	Segment(id SegmentID) *Segment
}

// AddLink appends l unless an equal link already exists
func (s *Segment) AddLink(l Link) bool {
	for _, existing := range s.Links {
		if existing.Matches(l) {
			return false
		}
	}
	s.Links = append(s.Links, l)
	return true
}

// LinkIsRouteChoice reports whether taking l is a real alternative rather than a stub
func LinkIsRouteChoice(l Link, target *Segment) bool {
	if !l.Forward || target == nil {
		return false
	}
	return target.IsClosedLoop() || target.Length()-l.NextDistance >= parameter.RouteChoiceMinRemaining
}

// RouteChoice is a decision point with the links available there
type RouteChoice struct {
	DecisionDistance float64
	Links            []Link

	// CanStay is true when this segment continues past the decision point
	CanStay bool
}

// ComputeRouteChoices groups route-choice links by decision distance
func (s *Segment) ComputeRouteChoices(r Resolver) {
	s.RouteChoices = s.RouteChoices[:0]

	links := make([]Link, 0, len(s.Links))
	for _, l := range s.Links {
		if LinkIsRouteChoice(l, r.Segment(l.Target)) {
			links = append(links, l)
		}
	}
	sort.SliceStable(links, func(i, j int) bool { return links[i].ThisDistance < links[j].ThisDistance })

	for _, l := range links {
		n := len(s.RouteChoices)
		if n > 0 && l.ThisDistance-s.RouteChoices[n-1].DecisionDistance < parameter.LinkMatchDistance {
			s.RouteChoices[n-1].Links = append(s.RouteChoices[n-1].Links, l)
			continue
		}
		s.RouteChoices = append(s.RouteChoices, RouteChoice{
			DecisionDistance: l.ThisDistance,
			Links:            []Link{l},
			CanStay:          s.IsClosedLoop() || s.Length()-l.ThisDistance > parameter.LinkMatchDistance,
		})
	}
}

// IsAboutToMergeWith reports whether this segment ends onto other within the merge lookahead
func (s *Segment) IsAboutToMergeWith(other SegmentID, distance float64) bool {
	if s.IsClosedLoop() {
		return false
	}
	for _, l := range s.Links {
		if l.Target != other || !l.Forward {
			continue
		}
		if l.ThisDistance < s.Length()-parameter.LinkMatchDistance {
			continue
		}
		ahead := l.ThisDistance - distance
		if ahead >= 0 && ahead <= parameter.MergeLookahead {
			return true
		}
	}
	return false
}

// ForwardLinksNear returns forward links whose ThisDistance is within tolerance of distance
func (s *Segment) ForwardLinksNear(distance, tolerance float64) []Link {
	var out []Link
	for _, l := range s.Links {
		if l.Forward && s.Curve.DistanceDifference(l.ThisDistance, distance, false) <= tolerance {
			out = append(out, l)
		}
	}
	return out
}
