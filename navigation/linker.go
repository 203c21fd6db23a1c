package navigation

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/lixenwraith/pursuit/curve"
	"github.com/lixenwraith/pursuit/path"
)

// EstablishLinks joins the open ends of every segment onto nearby segments
// Returns the number of new forward links
func (g *Graph) EstablishLinks() int {
	added := 0
	for _, a := range g.segments {
		if a.IsClosedLoop() {
			continue
		}
		for _, b := range g.segments {
			if a == b {
				continue
			}

			if !a.DeadStart {
				if d, ok := g.nearestWithin(b, a.Curve.PositionAt(0)); ok {
					if b.AddLink(path.Link{Target: a.ID, ThisDistance: d, NextDistance: 0, Forward: true}) {
						added++
					}
					a.AddLink(path.Link{Target: b.ID, ThisDistance: 0, NextDistance: d, Forward: false})
				}
			}

			if !a.DeadEnd {
				end := a.Length()
				if d, ok := g.nearestWithin(b, a.Curve.PositionAt(end)); ok {
					if a.AddLink(path.Link{Target: b.ID, ThisDistance: end, NextDistance: d, Forward: true}) {
						added++
					}
					b.AddLink(path.Link{Target: a.ID, ThisDistance: d, NextDistance: end, Forward: false})
				}
			}
		}
	}
	return added
}

// nearestWithin finds the distance on s closest to p if it lies within the link radius
// Results near an open end snap onto that end
func (g *Graph) nearestWithin(s *path.Segment, p r3.Vector) (float64, bool) {
	d := s.Curve.NearestDistance(p, 0, 0, g.fullSearch(s))
	if s.Curve.PositionAt(d).Sub(p).Norm() > g.cfg.LinkRadius {
		return 0, false
	}
	if !s.IsClosedLoop() {
		if d < g.cfg.LinkEndEpsilon {
			d = 0
		} else if d > s.Length()-g.cfg.LinkEndEpsilon {
			d = s.Length()
		}
	}
	return d, true
}

// fullSearch scales the sample count with length so the first pass cannot skip a bend
func (g *Graph) fullSearch(s *path.Segment) curve.SearchParams {
	spacing := g.cfg.ExtendedSpacing
	if spacing <= 0 {
		spacing = 1000
	}
	n := int(math.Ceil(s.Length() / spacing * 2))
	if n < 20 {
		n = 20
	}
	if n > 4000 {
		n = 4000
	}
	return curve.SearchParams{Iterations: 5, Samples: n, EarlyExit: 0.5}
}
