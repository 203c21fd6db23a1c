// Package sim ticks a population of agents over a built navigation graph.
//
// The graph is read-only while agents tick; Build is the only place it changes,
// and no tick runs until a Build has succeeded.
package sim

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/charmbracelet/log"
	"github.com/golang/geo/r3"

	"github.com/lixenwraith/pursuit/diag"
	"github.com/lixenwraith/pursuit/drive"
	"github.com/lixenwraith/pursuit/navigation"
	"github.com/lixenwraith/pursuit/path"
	"github.com/lixenwraith/pursuit/route"
	"github.com/lixenwraith/pursuit/status"
	"github.com/lixenwraith/pursuit/vmath"
)

var ErrAgentCount = errors.New("kinematics do not match agents")

// World owns the graph, the agents and their shared clock
type World struct {
	cfg    Config
	logger *log.Logger
	reg    *status.Registry
	assert *diag.Asserter

	graph  *navigation.Graph
	clock  *route.Clock
	agents []*Agent
	time   float64
}

// NewWorld creates an empty world; logger and reg may be nil
func NewWorld(cfg Config, logger *log.Logger, reg *status.Registry) *World {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	g := navigation.New(cfg.Navigation, logger.WithPrefix("nav"), reg)
	return &World{
		cfg:    cfg,
		logger: logger,
		reg:    reg,
		assert: g.Asserter(),
		graph:  g,
		clock:  route.NewClock(cfg.Route.ReconcilePeriod),
	}
}

func (w *World) Config() Config { return w.cfg }

// Graph is for populating segments before Build; do not modify it between Build and Tick
func (w *World) Graph() *navigation.Graph { return w.graph }

func (w *World) Agents() []*Agent { return w.agents }

// Agent returns the agent with id, nil when unknown
func (w *World) Agent(id int) *Agent {
	if id < 0 || id >= len(w.agents) {
		return nil
	}
	return w.agents[id]
}

// RaceTime is the time since the grid released
func (w *World) RaceTime() float64 { return math.Max(w.time-w.cfg.GridSeconds, 0) }

func (w *World) Started() bool { return w.time >= w.cfg.GridSeconds }

// Build runs the navigation barrier; agents re-localize on their next tick
func (w *World) Build(env path.Environment) error {
	if err := w.graph.Build(env); err != nil {
		return fmt.Errorf("build navigation: %w", err)
	}
	for _, a := range w.agents {
		a.follower.Reset()
		a.hasMaster = false
	}
	return nil
}

// Spawn adds an agent; it localizes on its first tick
func (w *World) Spawn(spec AgentSpec) *Agent {
	id := len(w.agents)
	if spec.Name == "" {
		spec.Name = fmt.Sprintf("agent-%d", id)
	}
	a := &Agent{
		ID:       id,
		Name:     spec.Name,
		spec:     spec,
		graph:    w.graph,
		follower: route.NewFollower(w.cfg.Route, spec.Kind, spec.Seed, id),
		control:  drive.NewController(w.cfg.Drive, spec.Vehicle, spec.Seed+1),
		rng:      vmath.NewFastRand(spec.Seed + 2),
	}
	w.agents = append(w.agents, a)
	w.reg.Gauge(status.Agents).Set(float64(len(w.agents)))
	return a
}

// Tick advances every agent by dt; kin holds one entry per agent in spawn order
func (w *World) Tick(dt float64, kin []Kinematics) ([]Output, error) {
	if !w.graph.Built() {
		return nil, navigation.ErrNotBuilt
	}
	if len(kin) != len(w.agents) {
		return nil, fmt.Errorf("%w: %d for %d agents", ErrAgentCount, len(kin), len(w.agents))
	}
	w.time += dt

	leader := math.Inf(-1)
	for _, a := range w.agents {
		if a.hasMaster {
			leader = math.Max(leader, a.raceDistance)
		}
	}

	out := make([]Output, len(w.agents))
	for i, a := range w.agents {
		out[i] = w.tickAgent(a, dt, kin[i], leader)
	}
	w.clock.Advance()
	return out, nil
}

func (w *World) tickAgent(a *Agent, dt float64, k Kinematics, leader float64) Output {
	location := k.Transform.Location
	facing := k.Transform.ForwardVector()
	var movement r3.Vector
	if a.placed {
		movement = location.Sub(a.lastLocation)
	}
	a.lastLocation, a.placed = location, true

	f := a.follower
	if !f.IsValid(w.graph) {
		w.relocalize(a, location, facing, locate{beginPlay: !a.hasMaster, allowDeadEnds: true, retain: a.hasMaster})
	} else {
		w.follow(a, dt, location, facing, movement, k.Velocity.Norm())
	}

	seg := f.Current(w.graph)
	if seg == nil {
		a.headingTo, a.optimumKph, a.minimumKph, a.offTrack = location, 0, 0, false
		return Output{Intent: drive.Intent{Handbrake: true}, HeadingTo: location, Mode: a.control.Mode(), MasterDistance: a.masterDistance}
	}
	w.updateMasterDistance(a, seg)
	a.offTrack = w.isOffTrack(seg, f.ThisDistance, location)

	catchup := 0.0
	if w.cfg.CatchupDistance > 0 && !math.IsInf(leader, -1) {
		catchup = vmath.Clamp((leader-a.raceDistance)/w.cfg.CatchupDistance, 0, 1)
	}
	w.aim(a, dt, k, seg, catchup)

	before := a.control.Mode()
	intent := a.control.Update(drive.Input{
		Delta:           dt,
		RaceTime:        w.RaceTime(),
		Started:         w.Started(),
		Transform:       k.Transform,
		Velocity:        k.Velocity,
		Movement:        movement,
		YawRate:         k.YawRate,
		Grounded:        k.Grounded,
		Flipped:         k.Flipped,
		Blockage:        k.Blockage,
		Thrust:          k.Thrust,
		HeadingTo:       a.headingTo,
		PathDirection:   seg.Curve.DirectionAt(f.ThisDistance),
		OptimumSpeedKph: a.control.LimitOptimumSpeed(a.optimumKph),
	})
	if mode := a.control.Mode(); mode != before {
		w.reg.Inc(status.ModeChanges)
		w.logger.Debug("driving mode", "agent", a.Name, "from", before, "to", mode)
	}
	if intent.Relocalize {
		w.reg.Inc(status.StuckDetections)
		w.relocalize(a, location, facing, locate{allowDeadEnds: true, retain: true})
	}

	return Output{
		Intent:          intent,
		HeadingTo:       a.headingTo,
		OptimumSpeedKph: a.optimumKph,
		MinimumSpeedKph: a.minimumKph,
		Mode:            a.control.Mode(),
		MasterDistance:  a.masterDistance,
		OffTrack:        a.offTrack,
	}
}

// follow tracks the agent along its segment and re-localizes when tracking is lost
func (w *World) follow(a *Agent, dt float64, location, facing, movement r3.Vector, speed float64) {
	f := a.follower
	due := f.Reconcile.Due(w.clock)
	if due {
		f.DetermineThis(w.graph, location, math.Max(movement.Norm(), w.cfg.Route.MinMovementSize))
		w.reg.Inc(status.ExactUpdates)
	} else {
		f.EstimateThis(w.graph, movement)
		w.reg.Inc(status.EstimateUpdates)
	}

	// Dead ends mean arena driving, so any nearest segment will do
	seg := f.Current(w.graph)
	if seg.DeadEnd && math.Abs(seg.Length()-f.ThisDistance) < speed*w.cfg.DeadEndSeconds {
		w.relocalize(a, location, facing, locate{})
		return
	}

	if f.CheckBranchConnection(w.graph, location) {
		w.relocalize(a, location, facing, locate{allowDeadEnds: true, retain: true})
	} else if due && !f.SwitchingSpline && w.Started() {
		w.checkValidity(a, seg, location, facing, dt*float64(w.clock.Period))
	}
}

// checkValidity re-localizes after the agent has spent too long outside its segment
func (w *World) checkValidity(a *Agent, seg *path.Segment, location, facing r3.Vector, cycle float64) {
	d := a.follower.ThisDistance
	tooFar := location.Sub(seg.ClosestGroundPosition(d)).Norm() > math.Max(seg.WidthAt(d)*w.cfg.TooFarWidthScale, w.cfg.TooFarMinimum)
	offTrack := w.isOffTrack(seg, d, location)
	if seg.IsWorldLocationWithinRange(d, location) && !offTrack && !tooFar {
		a.outside = 0
		return
	}
	a.outside += cycle
	if offTrack || a.outside > w.cfg.OutsideBudgetSeconds {
		w.relocalize(a, location, facing, locate{allowDeadEnds: true, retain: true})
	}
}

// isOffTrack reports the agent well beside or below the segment
func (w *World) isOffTrack(seg *path.Segment, d float64, location r3.Vector) bool {
	half := seg.WidthAt(d) * 0.5
	away := location.Sub(seg.Curve.PositionAt(d))
	if w.cfg.OffTrackDistance > vmath.SmallNumber && away.Norm()-half > w.cfg.OffTrackDistance {
		return true
	}
	below := away.Dot(seg.Curve.UpAt(d))
	return w.cfg.UnderTrackDistance > vmath.SmallNumber && below < 0 && -below-half > w.cfg.UnderTrackDistance
}

// updateMasterDistance accepts the new master distance unless it jumped implausibly
func (w *World) updateMasterDistance(a *Agent, seg *path.Segment) {
	md := seg.MasterDistanceAt(a.follower.ThisDistance, w.graph.MasterLength())
	if !a.hasMaster {
		a.masterDistance, a.hasMaster, a.explained = md, true, false
		a.raceDistance = w.graph.MasterDifference(md, w.cfg.Navigation.StartLineDistance)
		return
	}

	delta := w.graph.MasterDifference(md, a.masterDistance)
	jump := math.Abs(delta)
	if !a.explained {
		w.reg.Gauge(status.MaxJumpDistance).Max(jump)
		if jump > w.cfg.JumpAnomalyDistance {
			w.reg.Inc(status.JumpAnomalies)
			w.assert.Check(false, "master distance jumped", "agent", a.Name, "segment", seg.Name, "from", int(a.masterDistance), "to", int(md))
			return
		}
	}
	a.explained = false
	a.masterDistance = md
	a.raceDistance += delta
}

// aim picks the heading point, speeds and weave offset for this tick
func (w *World) aim(a *Agent, dt float64, k Kinematics, seg *path.Segment, catchup float64) {
	f := a.follower
	speed := k.Velocity.Norm()
	speedKph := vmath.ToKph(speed)
	location := k.Transform.Location
	locked := seg.CarefulDrivingAt(f.ThisDistance)

	ahead := w.cfg.Route.AheadDistance(speed, a.control.SinceBlockageReversal())
	bias := route.Bias{Catchup: catchup, UsingTurbo: k.UsingTurbo, StayOnSegment: a.spec.StayOnSegment}
	if f.DetermineNext(w.graph, ahead, bias) {
		w.reg.Inc(status.BranchDecisions)
	}

	next := w.graph.Segment(f.Next)
	if next == nil {
		next = seg
	}
	aimAt := next.Curve.TransformAt(f.NextDistance)

	weave := &a.control.Weave
	a.optimumKph = drive.ShapeOptimumSpeed(seg.OptimumSpeedAt(f.ThisDistance), speedKph, weave.VariationPhase, w.cfg.Drive.SpeedVariation)
	a.minimumKph = drive.FloorMinimumSpeed(seg.MinimumSpeedAt(f.ThisDistance), w.RaceTime())

	travel := k.Velocity
	if speed < vmath.SmallNumber {
		travel = k.Transform.ForwardVector()
	}
	weave.Update(dt, speedKph, locked)
	weave.Retarget(next.WidthAt(f.NextDistance)*0.5, aimAt, location, travel, a.rng)
	a.headingTo = aimAt.Location.Add(aimAt.TransformVector(r3.Vector{Y: weave.Offset()}))
}

type locate struct {
	beginPlay     bool
	allowDeadEnds bool
	retain        bool
}

// relocalize searches the whole graph for the agent's best segment
// Retained searches first look near the agent's master distance, then anywhere
func (w *World) relocalize(a *Agent, location, facing r3.Vector, opts locate) bool {
	retain := opts.retain && w.cfg.RetainLapPosition && a.hasMaster && !opts.beginPlay

	var (
		m     navigation.Match
		found bool
	)
	first := 1
	if retain {
		first = 0
	}
	for pass := first; pass < 2 && !found; pass++ {
		q := navigation.Query{
			Location:        location,
			Direction:       facing,
			Kind:            a.spec.Kind,
			VisibleOnly:     true,
			AllowDeadStarts: true,
			AllowDeadEnds:   opts.allowDeadEnds,
			MasterDistance:  -1,
			MasterWindow:    w.cfg.MasterMatchWindow,
		}
		if pass == 0 {
			q.MasterDistance = a.masterDistance
		}
		m, found = w.graph.FindNearest(q)

		// An invisible segment must be much closer to win
		if !found || m.DistanceAway > w.cfg.VisibleFallbackDistance {
			q.VisibleOnly = false
			if other, ok := w.graph.FindNearest(q); ok && (!found || m.DistanceAway > other.DistanceAway*w.cfg.VisibleFallbackRatio) {
				m, found = other, true
			}
		}
	}

	if !found {
		w.reg.Inc(status.RelocalizationFailures)
		w.assert.Check(len(w.graph.Segments()) == 0, "no segment to localize onto", "agent", a.Name, "x", int(location.X), "y", int(location.Y), "z", int(location.Z))
		return false
	}

	f := a.follower
	if retain {
		if cur := f.Current(w.graph); cur != nil {
			if f.This == m.Segment && cur.Curve.DistanceDifference(f.ThisDistance, m.Distance, false) <= w.cfg.RetainSwitchDistance {
				return false
			}
			if w.graph.Segment(m.Segment).IsAboutToMergeWith(f.This, m.Distance) {
				return false
			}
		}
	}

	f.Attach(m.Segment, m.Distance)
	a.outside = 0
	a.explained = !retain
	a.control.Weave.Reset()
	w.reg.Inc(status.Relocalizations)
	w.logger.Debug("relocalized", "agent", a.Name, "segment", w.graph.Segment(m.Segment).Name, "distance", int(m.Distance), "away", int(m.DistanceAway), "retain", retain)
	return true
}
