package navigation

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/lixenwraith/pursuit/status"
)

// Validate reports every structural problem found in the graph
func (g *Graph) Validate() error {
	var err error
	if len(g.segments) == 0 {
		return ErrEmpty
	}
	if g.Master() == nil {
		err = multierr.Append(err, ErrNoMaster)
	}
	err = multierr.Append(err, g.validateLinks())

	unanchored := 0
	for _, s := range g.segments {
		if !s.HasMasterDistances() {
			unanchored++
			err = multierr.Append(err, fmt.Errorf("segment %s: %w", s, ErrUnanchored))
		}
	}
	g.reg.Gauge(status.UnanchoredPoints).Set(float64(unanchored))
	return err
}

func (g *Graph) validateLinks() error {
	var err error
	for _, s := range g.segments {
		for _, l := range s.Links {
			target := g.Segment(l.Target)
			if target == nil {
				err = multierr.Append(err, fmt.Errorf("segment %s links to %d: %w", s, l.Target, ErrUnknownSegment))
				continue
			}
			if l.ThisDistance < 0 || l.ThisDistance > s.Length() || l.NextDistance < 0 || l.NextDistance > target.Length() {
				err = multierr.Append(err, fmt.Errorf("segment %s link to %s out of range (%.0f -> %.0f)", s, target, l.ThisDistance, l.NextDistance))
			}
		}
	}
	return err
}
