package navigation

import (
	"fmt"
	"math"

	"github.com/lixenwraith/pursuit/curve"
	"github.com/lixenwraith/pursuit/parameter"
	"github.com/lixenwraith/pursuit/path"
	"github.com/lixenwraith/pursuit/status"
	"github.com/lixenwraith/pursuit/vmath"
)

// recalibration selects how propagate treats segments that already have data
type recalibration int

const (
	recalibrateNone recalibration = iota
	// recalibrateRepair regenerates a segment when its endpoint anchors disagree
	recalibrateRepair
	// recalibrateProbe only reports whether a segment's data agrees with its anchors
	recalibrateProbe
)

// maxDegreesOfSeparation is the fallback degree that searches the master directly
const maxDegreesOfSeparation = 3

// CalculateMasterDistances assigns every extended sample a master distance
// The pass starts from scratch so repeated runs produce identical values
func (g *Graph) CalculateMasterDistances() error {
	master := g.Master()
	if master == nil {
		return ErrNoMaster
	}
	for _, s := range g.segments {
		s.ClearMasterDistances()
	}

	g.propagate(master, 0, 0, recalibrateNone, 0)
	for degrees := 0; degrees <= maxDegreesOfSeparation; degrees++ {
		for _, s := range g.segments {
			if s.HasMasterDistances() {
				continue
			}
			g.propagate(s, g.seedMasterDistance(s), degrees, recalibrateNone, 0)
		}
	}

	for attempt := 0; attempt < g.cfg.RecalibrationPasses; attempt++ {
		for _, s := range g.segments {
			g.propagate(s, g.seedMasterDistance(s), maxDegreesOfSeparation, recalibrateRepair, attempt)
		}
	}

	for _, s := range g.segments {
		g.checkMonotonic(s)
	}
	return nil
}

// seedMasterDistance estimates the master distance at the start of s
func (g *Graph) seedMasterDistance(s *path.Segment) float64 {
	master := g.Master()
	masterLength := master.Length()
	for _, l := range s.Links {
		if l.ThisDistance >= g.cfg.LinkEndEpsilon {
			continue
		}
		if t := g.Segment(l.Target); t != nil && t.HasMasterDistances() {
			return t.MasterDistanceAt(l.NextDistance, masterLength)
		}
	}
	return master.Curve.NearestDistance(s.Curve.PositionAt(0), 0, 0, g.fullSearch(master))
}

// propagate assigns master distances to s and floods forward along links landing on starts
// Returns true when s got data; in probe mode, true when its data is trustworthy
func (g *Graph) propagate(s *path.Segment, startingDistance float64, degrees int, recal recalibration, attempt int) bool {
	reportGoodData := recal == recalibrateProbe

	if recal != recalibrateNone && s.MasterClass < 2 {
		return reportGoodData
	}
	if recal == recalibrateNone && s.HasMasterDistances() {
		return false
	}

	points := s.Extended
	if len(points) == 0 {
		g.logger.Warn("segment has no extended points", "segment", s.Name)
		return false
	}

	master := g.Master()
	masterLength := master.Length()
	eps := g.cfg.LinkEndEpsilon
	result := false
	dataClass := degrees

	if s == master {
		if recal != recalibrateNone {
			return reportGoodData
		}
		for i := range points {
			points[i].MasterDistance = points[i].Distance
		}
		s.MasterClass = dataClass
		result = true
	} else {
		length := s.Length()
		var (
			linkedStart, linkedEnd     bool
			startDistance, endDistance float64
			startOffset, endOffset     float64
			startSegment, endSegment   *path.Segment
		)

		for _, l := range s.Links {
			if l.Target != master.ID {
				continue
			}
			if l.ThisDistance < eps {
				linkedStart = true
				startSegment = master
				startDistance = l.NextDistance
			} else if l.ThisDistance >= length-eps {
				linkedEnd = true
				endSegment = master
				endDistance = l.NextDistance
			}
		}

		if degrees > 0 {
			if !linkedStart {
			// Neighbors at our start that themselves start on the master
			startSearch:
				for _, l := range s.Links {
					if l.ThisDistance >= eps {
						continue
					}
					neighbor := g.Segment(l.Target)
					if neighbor == nil {
						continue
					}
					for _, child := range neighbor.Links {
						if child.Target != master.ID || child.ThisDistance >= eps {
							continue
						}
						startSegment = neighbor
						if neighbor.HasMasterDistances() {
							linkedStart = true
							startDistance = neighbor.MasterDistanceAt(l.NextDistance, masterLength)
							break startSearch
						}
						if degrees > 1 {
							linkedStart = true
							startDistance = child.NextDistance
							startOffset = l.NextDistance
							break startSearch
						}
					}
				}
			}

			if linkedStart && !linkedEnd {
			// Neighbors at our end that themselves end on the master
			endSearch:
				for _, l := range s.Links {
					if l.ThisDistance < length-eps {
						continue
					}
					neighbor := g.Segment(l.Target)
					if neighbor == nil {
						continue
					}
					neighborLength := neighbor.Length()
					for _, child := range neighbor.Links {
						if child.Target != master.ID || child.ThisDistance < neighborLength-eps {
							continue
						}
						endSegment = neighbor
						if neighbor.HasMasterDistances() {
							linkedEnd = true
							endDistance = neighbor.MasterDistanceAt(l.NextDistance, masterLength)
							break endSearch
						}
						if degrees > 1 {
							linkedEnd = true
							endDistance = child.NextDistance
							endOffset = child.ThisDistance - l.NextDistance
							break endSearch
						}
					}
				}
			}
		}

		if recal == recalibrateRepair && attempt > 0 && (!linkedStart || !linkedEnd) {
			// Later passes trust any well-anchored neighbor at either end
			startSegment, endSegment = nil, nil
			for _, l := range s.Links {
				neighbor := g.Segment(l.Target)
				if neighbor == nil || !neighbor.HasMasterDistances() || neighbor.MasterClass >= maxDegreesOfSeparation {
					continue
				}
				if startSegment == nil && l.ThisDistance < eps {
					linkedStart = true
					startSegment = neighbor
					startDistance = neighbor.MasterDistanceAt(l.NextDistance, masterLength)
				} else if endSegment == nil && l.ThisDistance >= length-eps {
					linkedEnd = true
					endSegment = neighbor
					endDistance = neighbor.MasterDistanceAt(l.NextDistance, masterLength)
				}
			}
		}

		totalLength := startOffset + length + endOffset

		switch {
		case linkedStart && linkedEnd && length > vmath.SmallNumber && totalLength > vmath.SmallNumber:
			regenerate := false

			if recal != recalibrateNone {
				startDifference := master.Curve.DistanceDifference(startDistance, points[0].MasterDistance, false)
				endDifference := master.Curve.DistanceDifference(endDistance, points[len(points)-1].MasterDistance, false)
				threshold := g.cfg.RecalibrationDiscrepancy

				numGood, numBad := 0, 0
				probe := func(neighbor *path.Segment, difference float64, which string) {
					if recal != recalibrateRepair || difference <= threshold {
						return
					}
					g.logger.Debug("master distances out", "segment", s.Name, "end", which, "by_m", int(difference/vmath.CentimetersPerMeter))
					if neighbor != nil && g.propagate(neighbor, startingDistance, degrees, recalibrateProbe, 0) {
						numGood++
					} else {
						numBad++
					}
				}
				probe(startSegment, startDifference, "start")
				probe(endSegment, endDifference, "end")

				regenerate = numGood > 0 && numBad == 0
				if reportGoodData {
					result = startDifference <= threshold && endDifference <= threshold
				}

				if recal == recalibrateRepair && regenerate {
					if startSegment == nil {
						startSegment = s
					}
					if endSegment == nil {
						endSegment = s
					}
					dataClass = max(startSegment.MasterClass, endSegment.MasterClass)
					g.reg.Inc(status.Recalibrations)
					g.logger.Info("regenerating master distances", "segment", s.Name)
				}
			}

			if recal == recalibrateNone || regenerate {
				section := endDistance - startDistance
				if startDistance >= endDistance {
					section = (masterLength - startDistance) + endDistance
				}
				for i := range points {
					d := (points[i].Distance + startOffset) / totalLength
					d = d*section + startDistance
					points[i].MasterDistance = math.Mod(d, masterLength)
				}
				s.MasterClass = dataClass
				result = true
				g.logger.Debug("master distances", "segment", s.Name, "class", dataClass+1)
			}

		case degrees == maxDegreesOfSeparation:
			if recal == recalibrateNone {
				g.scanMaster(s, startingDistance)
				s.MasterClass = dataClass
				result = true
				g.logger.Debug("master distances by search", "segment", s.Name, "class", dataClass+1)
			}

		default:
			return result
		}
	}

	if recal == recalibrateNone {
		for _, l := range s.Links {
			target := g.Segment(l.Target)
			if target != nil && l.Forward && l.NextDistance < parameter.LinkPropagateDistance && !target.HasMasterDistances() {
				if g.propagate(target, s.MasterDistanceAt(l.ThisDistance, masterLength), degrees, recalibrateNone, 0) {
					result = true
				}
			}
		}
	}
	return result
}

// scanMaster walks the samples, searching the master in a window around the previous answer
func (g *Graph) scanMaster(s *path.Segment, startingDistance float64) {
	master := g.Master()
	movementSize := g.cfg.ExtendedSpacing
	span := movementSize * g.cfg.MasterScanSpan
	params := curve.SearchParams{
		Iterations: parameter.NearestSearchIterations,
		Samples:    curve.NumSamplesForRange(span, parameter.NearestSearchIterations, parameter.MasterScanAccuracy),
		EarlyExit:  parameter.MasterScanAccuracy,
	}

	masterDistance := startingDistance
	for i := range s.Extended {
		p := &s.Extended[i]
		t0 := masterDistance - span*0.5
		t1 := masterDistance + span*0.5
		p.MasterDistance = master.Curve.NearestDistance(s.Curve.PositionAt(p.Distance), t0, t1, params)
		masterDistance = p.MasterDistance
	}
}

// checkMonotonic flags segments whose master distance steps backwards along travel
func (g *Graph) checkMonotonic(s *path.Segment) {
	if !s.HasMasterDistances() {
		return
	}
	for i := 1; i < len(s.Extended); i++ {
		step := g.MasterDifference(s.Extended[i].MasterDistance, s.Extended[i-1].MasterDistance)
		if !g.assert.Check(step >= -parameter.LinkMatchDistance, ErrNonMonotonic.Error(),
			"segment", s.Name, "index", i, "step", fmt.Sprintf("%.1f", step)) {
			return
		}
	}
}
