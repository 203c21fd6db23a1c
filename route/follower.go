// Package route tracks one agent's position and aim point on the segment graph.
package route

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/lixenwraith/pursuit/curve"
	"github.com/lixenwraith/pursuit/parameter"
	"github.com/lixenwraith/pursuit/path"
	"github.com/lixenwraith/pursuit/vmath"
)

// Network is the read-only view of the segment graph a follower needs
type Network interface {
	Segment(id path.SegmentID) *path.Segment
	MasterLength() float64
}

// Config tunes route following and branch choice
type Config struct {
	ReconcilePeriod         int     `toml:"reconcile_period"`
	MinMovementSize         float64 `toml:"min_movement_size"`
	ReconcileSearchSpan     float64 `toml:"reconcile_search_span"`
	ReconcileMinSearchRange float64 `toml:"reconcile_min_search_range"`
	BranchConnectionRadius  float64 `toml:"branch_connection_radius"`

	AimAheadSeconds      float64 `toml:"aim_ahead_seconds"`
	AimAheadMinimum      float64 `toml:"aim_ahead_minimum"`
	AimAheadAfterReverse float64 `toml:"aim_ahead_after_reverse"`
	AimAheadRestoreStart float64 `toml:"aim_ahead_restore_start"`
	AimAheadRestoreEnd   float64 `toml:"aim_ahead_restore_end"`
	MaxRouteHops         int     `toml:"max_route_hops"`

	ShortcutCatchupBias float64 `toml:"shortcut_catchup_bias"`
	TurboCarefulPenalty float64 `toml:"turbo_careful_penalty"`
}

func DefaultConfig() Config {
	return Config{
		ReconcilePeriod:         parameter.ReconcilePeriod,
		MinMovementSize:         parameter.MinMovementSize,
		ReconcileSearchSpan:     parameter.ReconcileSearchSpan,
		ReconcileMinSearchRange: parameter.ReconcileMinSearchRange,
		BranchConnectionRadius:  parameter.BranchConnectionRadius,
		AimAheadSeconds:         parameter.AimAheadSeconds,
		AimAheadMinimum:         parameter.AimAheadMinimum,
		AimAheadAfterReverse:    parameter.AimAheadAfterReverse,
		AimAheadRestoreStart:    parameter.AimAheadRestoreStart,
		AimAheadRestoreEnd:      parameter.AimAheadRestoreEnd,
		MaxRouteHops:            parameter.MaxRouteHops,
		ShortcutCatchupBias:     parameter.ShortcutCatchupBias,
		TurboCarefulPenalty:     parameter.TurboCarefulPenalty,
	}
}

// AheadDistance is the lookahead for speed (cm/s)
// sinceReverse is the time since a blockage reversal ended, negative when none
func (c Config) AheadDistance(speed, sinceReverse float64) float64 {
	ahead := math.Max(math.Abs(speed)*c.AimAheadSeconds, c.AimAheadMinimum)
	if sinceReverse >= 0 && sinceReverse < c.AimAheadRestoreEnd {
		r := vmath.Ratio(sinceReverse, c.AimAheadRestoreStart, c.AimAheadRestoreEnd)
		ahead = vmath.Lerp(c.AimAheadAfterReverse, ahead, r)
	}
	return ahead
}

// Bias shapes a single branch decision
type Bias struct {
	// Catchup runs from 0 when leading to 1 when far behind
	Catchup    float64
	UsingTurbo bool

	// StayOnSegment keeps the current segment wherever it continues
	StayOnSegment bool
}

// Follower is one agent's cursor on the graph
type Follower struct {
	This, Next, Last                         path.SegmentID
	ThisDistance, NextDistance, LastDistance float64

	// SwitchingSpline is set on the update that moved This onto a new segment
	SwitchingSpline bool

	// DecidedDistance is the decision point already rolled on This, negative when none
	DecidedDistance    float64
	ThisSwitchDistance float64
	NextSwitchDistance float64
	switchTarget       path.SegmentID

	Kind      path.Kind
	Reconcile Reconciler

	cfg Config
	rng *vmath.FastRand
}

// NewFollower creates a detached follower; phase staggers its exact updates
func NewFollower(cfg Config, kind path.Kind, seed uint64, phase int) *Follower {
	f := &Follower{
		Kind:      kind,
		Reconcile: Reconciler{Phase: phase},
		cfg:       cfg,
		rng:       vmath.NewFastRand(seed),
	}
	f.Reset()
	return f
}

// Reset detaches the follower from the graph
func (f *Follower) Reset() {
	f.This, f.Next, f.Last = path.NoSegment, path.NoSegment, path.NoSegment
	f.ThisDistance, f.NextDistance, f.LastDistance = 0, 0, 0
	f.SwitchingSpline = false
	f.clearDecision()
	f.Reconcile.MarkDirty()
}

// Attach places the follower on id at distance, keeping the previous position as Last
func (f *Follower) Attach(id path.SegmentID, distance float64) {
	if f.This != id {
		f.Last, f.LastDistance = f.This, f.ThisDistance
	}
	f.This, f.ThisDistance = id, distance
	f.Next, f.NextDistance = id, distance
	f.SwitchingSpline = false
	f.clearDecision()
}

func (f *Follower) clearDecision() {
	f.DecidedDistance = -1
	f.ThisSwitchDistance = 0
	f.NextSwitchDistance = 0
	f.switchTarget = path.NoSegment
}

// SwitchTarget is the segment chosen at DecidedDistance, NoSegment when staying
func (f *Follower) SwitchTarget() path.SegmentID { return f.switchTarget }

// IsValid reports whether This still resolves in net
func (f *Follower) IsValid(net Network) bool {
	return f.This != path.NoSegment && net.Segment(f.This) != nil
}

// Current resolves This, nil when detached
func (f *Follower) Current(net Network) *path.Segment {
	if f.This == path.NoSegment {
		return nil
	}
	return net.Segment(f.This)
}

// Position is the world location of the current distance
func (f *Follower) Position(net Network) (r3.Vector, bool) {
	s := f.Current(net)
	if s == nil {
		return r3.Vector{}, false
	}
	return s.Curve.PositionAt(f.ThisDistance), true
}

// AimPoint is the world location of the lookahead target
func (f *Follower) AimPoint(net Network) (r3.Vector, bool) {
	s := net.Segment(f.Next)
	if s == nil {
		return f.Position(net)
	}
	return s.Curve.PositionAt(f.NextDistance), true
}

// MasterDistance is the master distance at the current position, zero when unknown
func (f *Follower) MasterDistance(net Network) float64 {
	s := f.Current(net)
	if s == nil {
		return 0
	}
	return s.MasterDistanceAt(f.ThisDistance, net.MasterLength())
}

// forwardGap is the travel from one distance forward to another, wrapping on loops
// Open segments return a negative gap for points behind
func forwardGap(s *path.Segment, from, to float64) float64 {
	gap := to - from
	if s.IsClosedLoop() && gap < 0 {
		gap += s.Length()
	}
	return gap
}

// EstimateThis advances by the projection of movement onto the curve tangent
// Returns true when the follower crossed onto its decided switch target
func (f *Follower) EstimateThis(net Network, movement r3.Vector) bool {
	s := f.Current(net)
	if s == nil {
		return false
	}
	dir := s.Curve.DirectionAt(f.ThisDistance)
	return f.advance(net, s, f.ThisDistance+movement.Dot(dir))
}

// DetermineThis corrects drift with a nearest search around the current distance
func (f *Follower) DetermineThis(net Network, location r3.Vector, movementSize float64) bool {
	s := f.Current(net)
	if s == nil {
		return false
	}
	c := s.Curve
	window := math.Max(math.Max(movementSize, f.cfg.MinMovementSize)*f.cfg.ReconcileSearchSpan, f.cfg.ReconcileMinSearchRange)
	start, end := f.ThisDistance-window*0.5, f.ThisDistance+window*0.5
	if !c.IsClosedLoop() {
		start = math.Max(start, 0)
		end = math.Min(end, c.Length())
		if end <= 0 {
			end = vmath.SmallNumber
		}
	}

	d := c.NearestDistance(location, start, end, curve.DefaultSearch())
	travel := c.DistanceDifference(d, f.ThisDistance, true)

	// Past the open end the search pins to the end; carry the overshoot
	if !c.IsClosedLoop() && d >= c.Length()-parameter.LinkEndEpsilon {
		beyond := location.Sub(c.PositionAt(c.Length())).Dot(c.DirectionAt(c.Length()))
		travel += math.Max(beyond, 0)
	}
	return f.advance(net, s, f.ThisDistance+travel)
}

// advance moves to raw (possibly beyond the ends), switching segments when
// a decided switch point is passed
func (f *Follower) advance(net Network, s *path.Segment, raw float64) bool {
	moved := raw - f.ThisDistance
	f.SwitchingSpline = false

	if f.DecidedDistance >= 0 && moved > 0 {
		gap := forwardGap(s, f.ThisDistance, f.DecidedDistance)
		if gap >= 0 && moved >= gap {
			if target := net.Segment(f.switchTarget); target != nil {
				overshoot := moved - gap
				f.Last, f.LastDistance = f.This, f.ThisSwitchDistance
				f.This = target.ID
				f.ThisDistance = target.Curve.ClampDistance(f.NextSwitchDistance + overshoot)
				f.SwitchingSpline = true
				f.clearDecision()
				return true
			}
			f.clearDecision()
		}
	}

	f.ThisDistance = s.Curve.ClampDistance(raw)
	return false
}

// nextDecision finds the nearest decision point on s within limit of from
// Open segment ends with forward links count as decisions without a stay option
func nextDecision(s *path.Segment, from, limit float64, inclusive bool) (float64, path.RouteChoice, bool) {
	bestGap := math.MaxFloat64
	var best path.RouteChoice
	accept := func(gap float64) bool {
		if gap < 0 || (!inclusive && gap <= 0) || gap > limit {
			return false
		}
		return gap < bestGap
	}

	endCovered := false
	for _, rc := range s.RouteChoices {
		if !s.IsClosedLoop() && s.Length()-rc.DecisionDistance < parameter.LinkMatchDistance {
			endCovered = true
		}
		if gap := forwardGap(s, from, rc.DecisionDistance); accept(gap) {
			bestGap, best = gap, rc
		}
	}

	if !s.IsClosedLoop() && !endCovered {
		if gap := s.Length() - from; accept(gap) {
			var links []path.Link
			for _, l := range s.Links {
				if l.Forward && l.ThisDistance >= s.Length()-parameter.LinkMatchDistance {
					links = append(links, l)
				}
			}
			if len(links) > 0 {
				bestGap = gap
				best = path.RouteChoice{DecisionDistance: s.Length(), Links: links}
			}
		}
	}
	return bestGap, best, bestGap != math.MaxFloat64
}

// DetermineNext walks ahead along the route, choosing branches at decision points
// The choice at the first decision on This is rolled once and reused until passed
// Returns true when a new decision was rolled
func (f *Follower) DetermineNext(net Network, ahead float64, bias Bias) bool {
	s := f.Current(net)
	if s == nil {
		return false
	}

	rolled := false
	seg, d, remaining := s, f.ThisDistance, ahead
	for hop := 0; hop < f.cfg.MaxRouteHops; hop++ {
		gap, rc, ok := nextDecision(seg, d, remaining, hop == 0)
		if !ok {
			break
		}

		var (
			link path.Link
			stay bool
		)
		if hop == 0 {
			if f.DecidedDistance < 0 || math.Abs(f.DecidedDistance-rc.DecisionDistance) >= parameter.LinkEndEpsilon {
				var didRoll bool
				link, stay, didRoll = f.choose(net, seg, rc, bias, true)
				rolled = rolled || didRoll
				f.DecidedDistance = rc.DecisionDistance
				f.switchTarget = path.NoSegment
				if !stay {
					f.switchTarget = link.Target
					f.ThisSwitchDistance = link.ThisDistance
					f.NextSwitchDistance = link.NextDistance
				}
			}
			stay = f.switchTarget == path.NoSegment
			link = path.Link{Target: f.switchTarget, ThisDistance: f.ThisSwitchDistance, NextDistance: f.NextSwitchDistance, Forward: true}
		} else {
			link, stay, _ = f.choose(net, seg, rc, bias, false)
		}

		remaining -= gap
		if stay {
			d = rc.DecisionDistance
			if !seg.IsClosedLoop() && !rc.CanStay {
				remaining = 0
				break
			}
			continue
		}
		target := net.Segment(link.Target)
		if target == nil {
			d = rc.DecisionDistance
			remaining = 0
			break
		}
		seg, d = target, link.NextDistance
	}

	f.Next = seg.ID
	f.NextDistance = seg.Curve.ClampDistance(d + remaining)
	return rolled
}

type option struct {
	link   path.Link
	stay   bool
	weight float64
}

// choose picks a branch at rc; without roll the heaviest option wins
func (f *Follower) choose(net Network, s *path.Segment, rc path.RouteChoice, bias Bias, roll bool) (path.Link, bool, bool) {
	options := make([]option, 0, len(rc.Links)+1)
	if rc.CanStay {
		if bias.StayOnSegment {
			return path.Link{}, true, false
		}
		options = append(options, option{stay: true, weight: f.weight(s, bias)})
	}

	var fallback []path.Link
	for _, l := range rc.Links {
		t := net.Segment(l.Target)
		if t == nil {
			continue
		}
		if t.Kind != f.Kind {
			fallback = append(fallback, l)
			continue
		}
		if t.AlwaysSelect {
			return l, false, false
		}
		options = append(options, option{link: l, weight: f.weight(t, bias)})
	}

	switch len(options) {
	case 0:
		if len(fallback) > 0 {
			return fallback[0], false, false
		}
		return path.Link{}, true, false
	case 1:
		return options[0].link, options[0].stay, false
	}

	total := 0.0
	for _, o := range options {
		total += o.weight
	}
	if total <= 0 {
		for i := range options {
			options[i].weight = 1
		}
		total = float64(len(options))
	}

	if !roll {
		best := options[0]
		for _, o := range options[1:] {
			if o.weight > best.weight {
				best = o
			}
		}
		return best.link, best.stay, false
	}

	r := f.rng.Float64() * total
	for _, o := range options {
		r -= o.weight
		if r < 0 {
			return o.link, o.stay, true
		}
	}
	last := options[len(options)-1]
	return last.link, last.stay, true
}

// weight is the branch weight of taking s
func (f *Follower) weight(s *path.Segment, bias Bias) float64 {
	w := math.Max(s.BranchProbability, 0)
	if s.IsShortcut {
		w *= 1 + f.cfg.ShortcutCatchupBias*vmath.Clamp(bias.Catchup, 0, 1)
	}
	if bias.UsingTurbo && s.CarefulDriving {
		w *= f.cfg.TurboCarefulPenalty
	}
	return w
}

// CheckBranchConnection reports whether the agent has left This for a linked segment
// without passing a decided switch, which needs a full re-localization
func (f *Follower) CheckBranchConnection(net Network, location r3.Vector) bool {
	s := f.Current(net)
	if s == nil {
		return true
	}
	if s.IsWorldLocationWithinRange(f.ThisDistance, location) {
		return false
	}
	own := vmath.DistanceSquared(s.Curve.PositionAt(f.ThisDistance), location)

	radius := f.cfg.BranchConnectionRadius
	for _, l := range s.Links {
		if s.Curve.DistanceDifference(l.ThisDistance, f.ThisDistance, false) > radius {
			continue
		}
		t := net.Segment(l.Target)
		if t == nil {
			continue
		}
		d := t.Curve.NearestDistance(location, l.NextDistance-radius, l.NextDistance+radius, curve.DefaultSearch())
		if !t.IsWorldLocationWithinRange(d, location) {
			continue
		}
		if vmath.DistanceSquared(t.Curve.PositionAt(d), location) < own {
			return true
		}
	}
	return false
}

// TunnelDiameterOverDistance samples forward from This and forward from where the route joins Next
func (f *Follower) TunnelDiameterOverDistance(net Network, overDistance float64, minimum bool) float64 {
	s := f.Current(net)
	if s == nil {
		return 0
	}
	result := s.TunnelDiameterOverDistance(f.ThisDistance, overDistance, 1, minimum)
	if f.Next == f.This {
		return result
	}
	next := net.Segment(f.Next)
	if next == nil {
		return result
	}
	other := next.TunnelDiameterOverDistance(f.NextSwitchDistance, overDistance, 1, minimum)
	if minimum {
		return math.Min(result, other)
	}
	return (result + other) * 0.5
}
