package sim

import (
	"errors"
	"math"
	"testing"

	"github.com/golang/geo/r3"

	"github.com/lixenwraith/pursuit/curve"
	"github.com/lixenwraith/pursuit/diag"
	"github.com/lixenwraith/pursuit/navigation"
	"github.com/lixenwraith/pursuit/path"
	"github.com/lixenwraith/pursuit/physics"
	"github.com/lixenwraith/pursuit/status"
	"github.com/lixenwraith/pursuit/vmath"
)

func testConfig(dev bool) Config {
	cfg := DefaultConfig()
	cfg.Navigation.ExtendedSpacing = 100
	cfg.Navigation.AutoLink = false
	cfg.Navigation.DevAssertions = dev
	return cfg
}

func addLoop(t *testing.T, g *navigation.Graph, radius, widthMeters float64) *path.Segment {
	t.Helper()
	cps := make([]curve.ControlPoint, 16)
	for i := range cps {
		a := 2 * math.Pi * float64(i) / 16
		cps[i].Position = r3.Vector{X: radius * math.Cos(a), Y: radius * math.Sin(a)}
	}
	data := make([]path.PointData, len(cps))
	for i := range data {
		data[i] = path.DefaultPointData()
		if widthMeters > 0 {
			data[i].ManeuveringWidthMeters = widthMeters
		}
	}
	return addSegment(t, g, "master", cps, data, true)
}

func addLine(t *testing.T, g *navigation.Graph, name string, from, to r3.Vector) *path.Segment {
	t.Helper()
	return addSegment(t, g, name, []curve.ControlPoint{{Position: from}, {Position: to}}, nil, false)
}

func addSegment(t *testing.T, g *navigation.Graph, name string, cps []curve.ControlPoint, data []path.PointData, closed bool) *path.Segment {
	t.Helper()
	c, err := curve.New(cps, closed, 0)
	if err != nil {
		t.Fatalf("curve %s: %v", name, err)
	}
	s, err := path.NewSegment(name, c, data)
	if err != nil {
		t.Fatalf("segment %s: %v", name, err)
	}
	g.Add(s)
	return s
}

func mustLink(t *testing.T, g *navigation.Graph, from, to *path.Segment, thisDistance, nextDistance float64) {
	t.Helper()
	if err := g.Link(from.ID, to.ID, thisDistance, nextDistance); err != nil {
		t.Fatalf("Link: %v", err)
	}
}

func mustBuild(t *testing.T, w *World) {
	t.Helper()
	if err := w.Build(nil); err != nil {
		t.Fatalf("Build: %v", err)
	}
}

// standing places a grounded, stationary agent at p facing forward
func standing(p, forward r3.Vector) Kinematics {
	return Kinematics{
		Transform: vmath.Transform{Location: p, Rotation: vmath.QuatFromForwardUp(forward, vmath.Up)},
		Grounded:  true,
	}
}

func tick(t *testing.T, w *World, kin ...Kinematics) []Output {
	t.Helper()
	out, err := w.Tick(1.0/60, kin)
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	return out
}

func tickRecover(w *World, kin ...Kinematics) (err error) {
	defer diag.Recover(&err)
	_, err = w.Tick(1.0/60, kin)
	return err
}

func TestTickRequiresBuild(t *testing.T) {
	w := NewWorld(testConfig(true), nil, nil)
	addLoop(t, w.Graph(), 20000, 0)
	w.Spawn(AgentSpec{})

	if _, err := w.Tick(0.1, []Kinematics{{}}); !errors.Is(err, navigation.ErrNotBuilt) {
		t.Errorf("tick before build: got %v", err)
	}
	mustBuild(t, w)
	if _, err := w.Tick(0.1, nil); !errors.Is(err, ErrAgentCount) {
		t.Errorf("missing kinematics: got %v", err)
	}
}

func TestSpawnNamesAgents(t *testing.T) {
	reg := status.NewRegistry()
	w := NewWorld(testConfig(true), nil, reg)
	a := w.Spawn(AgentSpec{})
	b := w.Spawn(AgentSpec{Name: "rival"})

	if a.Name != "agent-0" || b.Name != "rival" || b.ID != 1 {
		t.Errorf("agents = %q/%d, %q/%d", a.Name, a.ID, b.Name, b.ID)
	}
	if w.Agent(1) != b || w.Agent(2) != nil || w.Agent(-1) != nil {
		t.Error("Agent lookup by id")
	}
	if got := reg.Gauge(status.Agents).Get(); got != 2 {
		t.Errorf("agents gauge = %v", got)
	}
	if a.Localized() {
		t.Error("agent localized before its first tick")
	}
}

func TestGridHoldsRaceTime(t *testing.T) {
	cfg := testConfig(true)
	cfg.GridSeconds = 1
	w := NewWorld(cfg, nil, nil)
	addLoop(t, w.Graph(), 20000, 0)
	mustBuild(t, w)

	for i := 0; i < 30; i++ {
		tick(t, w)
	}
	if w.Started() || w.RaceTime() != 0 {
		t.Errorf("started=%v race time=%v during grid", w.Started(), w.RaceTime())
	}
	for i := 0; i < 60; i++ {
		tick(t, w)
	}
	if !w.Started() || w.RaceTime() <= 0 {
		t.Errorf("started=%v race time=%v after grid", w.Started(), w.RaceTime())
	}
}

func TestFirstTickLocalizesOntoBranch(t *testing.T) {
	w := NewWorld(testConfig(true), nil, nil)
	g := w.Graph()
	master := addLoop(t, g, 2000/(2*math.Pi), 0)
	p0, p1 := master.Curve.PositionAt(1000), master.Curve.PositionAt(1500)
	branch := addLine(t, g, "branch", p0, p1)
	mustLink(t, g, master, branch, 1000, 0)
	mustLink(t, g, branch, master, branch.Length(), 1500)
	mustBuild(t, w)

	a := w.Spawn(AgentSpec{Name: "car"})
	mid := p0.Add(p1).Mul(0.5)
	out := tick(t, w, standing(mid, p1.Sub(p0)))

	if a.Follower().This != branch.ID {
		t.Fatalf("localized onto %d, want branch %d", a.Follower().This, branch.ID)
	}
	if math.Abs(a.MasterDistance()-1250) > 2 || math.Abs(out[0].MasterDistance-1250) > 2 {
		t.Errorf("master distance = %.1f, want 1250", a.MasterDistance())
	}
	if out[0].Intent.Handbrake {
		t.Error("localized agent should not hold the handbrake")
	}
}

func TestAgentsLapTheLoop(t *testing.T) {
	reg := status.NewRegistry()
	w := NewWorld(testConfig(true), nil, reg)
	addLoop(t, w.Graph(), 20000, 5)
	mustBuild(t, w)

	h := NewHarness(w, nil)
	for i, slot := range GridTransforms(w.Graph(), 2, 2000, 100) {
		h.Spawn(AgentSpec{Seed: uint64(i) * 7}, physics.Stock, slot)
	}

	for step := 0; step < 30*60; step++ {
		if _, err := h.Step(1.0 / 60); err != nil {
			t.Fatalf("Step: %v", err)
		}
	}

	for _, a := range w.Agents() {
		if !a.Localized() {
			t.Errorf("%s lost its segment", a.Name)
		}
		if a.RaceDistance() < 20000 {
			t.Errorf("%s covered %.0f cm in 30s", a.Name, a.RaceDistance())
		}
	}
	if n := reg.Counter(status.JumpAnomalies).Load(); n != 0 {
		t.Errorf("jump anomalies = %d", n)
	}
	if n := reg.Counter(status.ExactUpdates).Load(); n == 0 {
		t.Error("no exact updates ran")
	}
	if n := reg.Counter(status.EstimateUpdates).Load(); n == 0 {
		t.Error("no estimate updates ran")
	}
}

func TestHarnessSeparatesBodies(t *testing.T) {
	w := NewWorld(testConfig(true), nil, nil)
	master := addLoop(t, w.Graph(), 20000, 0)
	mustBuild(t, w)

	h := NewHarness(w, nil)
	slot := master.Curve.TransformAt(0)
	h.Spawn(AgentSpec{}, physics.Stock, slot)
	slot.Location = slot.Location.Add(slot.SideVector().Mul(100))
	h.Spawn(AgentSpec{}, physics.Stock, slot)

	if _, err := h.Step(1.0 / 60); err != nil {
		t.Fatalf("Step: %v", err)
	}
	gap := h.Bodies[0].Transform.Location.Sub(h.Bodies[1].Transform.Location).Norm()
	if gap < 2*physics.Stock.Radius-1e-6 {
		t.Errorf("bodies overlap: gap %.1f", gap)
	}
	if len(h.Outputs()) != 2 {
		t.Errorf("outputs = %d", len(h.Outputs()))
	}

	h.Bodies = h.Bodies[:1]
	if _, err := h.Step(1.0 / 60); !errors.Is(err, ErrAgentCount) {
		t.Errorf("body mismatch: got %v", err)
	}
}

func TestGridTransforms(t *testing.T) {
	w := NewWorld(testConfig(true), nil, nil)
	master := addLoop(t, w.Graph(), 20000, 0)
	mustBuild(t, w)

	slots := GridTransforms(w.Graph(), 4, 1000, 300)
	if len(slots) != 4 {
		t.Fatalf("slots = %d", len(slots))
	}
	for i, s := range slots {
		d := master.Curve.NearestDistance(s.Location, 0, 0, curve.DefaultSearch())
		behind := w.Graph().MasterDifference(d, 0)
		if behind >= 0 {
			t.Errorf("slot %d at master %.0f, want behind the start line", i, d)
		}
		side := master.Curve.Side(d, s.Location)
		if (i%2 == 0) != (side > 0) {
			t.Errorf("slot %d on side %v", i, side)
		}
	}
	if w.Graph().MasterDifference(
		master.Curve.NearestDistance(slots[2].Location, 0, 0, curve.DefaultSearch()),
		master.Curve.NearestDistance(slots[0].Location, 0, 0, curve.DefaultSearch())) >= 0 {
		t.Error("second row must start behind the first")
	}
}

// jumpWorld attaches one agent to a large loop and settles its pending exact update
func jumpWorld(t *testing.T, dev bool) (*World, *status.Registry, *path.Segment, Kinematics) {
	t.Helper()
	cfg := testConfig(dev)
	cfg.Route.ReconcilePeriod = 1000
	reg := status.NewRegistry()
	w := NewWorld(cfg, nil, reg)
	master := addLoop(t, w.Graph(), 20000, 0)
	mustBuild(t, w)
	w.Spawn(AgentSpec{Name: "car"})

	k := standing(master.Curve.PositionAt(0), master.Curve.DirectionAt(0))
	tick(t, w, k)
	tick(t, w, k)
	return w, reg, master, k
}

func TestJumpAnomalyKeepsLastDistance(t *testing.T) {
	w, reg, master, k := jumpWorld(t, false)
	a := w.Agent(0)
	before := a.MasterDistance()

	a.Follower().Attach(master.ID, master.Length()/2)
	tick(t, w, k)

	if n := reg.Counter(status.JumpAnomalies).Load(); n != 1 {
		t.Errorf("jump anomalies = %d, want 1", n)
	}
	if n := reg.Counter(status.Assertions).Load(); n != 1 {
		t.Errorf("assertions = %d, want 1", n)
	}
	if a.MasterDistance() != before {
		t.Errorf("master distance moved to %.0f, want %.0f", a.MasterDistance(), before)
	}
	if got := reg.Gauge(status.MaxJumpDistance).Get(); got < 25000 {
		t.Errorf("max jump gauge = %.0f", got)
	}
}

func TestJumpAnomalyPanicsInDevelopment(t *testing.T) {
	w, _, master, k := jumpWorld(t, true)
	w.Agent(0).Follower().Attach(master.ID, master.Length()/2)

	err := tickRecover(w, k)
	var ae *diag.AssertionError
	if !errors.As(err, &ae) {
		t.Fatalf("got %v, want an assertion", err)
	}
}

func TestRelocalizationFailureHoldsHandbrake(t *testing.T) {
	reg := status.NewRegistry()
	w := NewWorld(testConfig(false), nil, reg)
	master := addLoop(t, w.Graph(), 20000, 0)
	mustBuild(t, w)
	a := w.Spawn(AgentSpec{Kind: path.MissileAssistance})

	out := tick(t, w, standing(master.Curve.PositionAt(0), vmath.Forward))
	if !out[0].Intent.Handbrake {
		t.Error("detached agent should hold the handbrake")
	}
	if a.Localized() {
		t.Error("missile agent localized onto a general segment")
	}
	if n := reg.Counter(status.RelocalizationFailures).Load(); n != 1 {
		t.Errorf("relocalization failures = %d", n)
	}
	if n := reg.Counter(status.Assertions).Load(); n != 1 {
		t.Errorf("assertions = %d", n)
	}
}

func TestDeadEndMovesAgentOff(t *testing.T) {
	reg := status.NewRegistry()
	w := NewWorld(testConfig(false), nil, reg)
	g := w.Graph()
	master := addLoop(t, g, 20000, 0)
	root := master.Curve.PositionAt(1000)
	radial := vmath.SafeNormal(root)
	spur := addLine(t, g, "spur", root, root.Add(radial.Mul(3000)))
	spur.DeadEnd = true
	mustLink(t, g, master, spur, 1000, 0)
	mustBuild(t, w)
	a := w.Spawn(AgentSpec{})

	k := standing(spur.Curve.PositionAt(spur.Length()-200), radial)
	k.Velocity = radial.Mul(5000)
	tick(t, w, k)
	if a.Follower().This != spur.ID {
		t.Fatalf("first tick localized onto %d, want the spur", a.Follower().This)
	}

	tick(t, w, k)
	if a.Follower().This != master.ID {
		t.Errorf("agent still on %d approaching the dead end", a.Follower().This)
	}
	if n := reg.Counter(status.JumpAnomalies).Load(); n != 0 {
		t.Errorf("jump anomalies = %d after leaving a dead end", n)
	}
}

func TestBuildResetsAgents(t *testing.T) {
	w := NewWorld(testConfig(true), nil, nil)
	master := addLoop(t, w.Graph(), 20000, 0)
	mustBuild(t, w)
	a := w.Spawn(AgentSpec{})
	tick(t, w, standing(master.Curve.PositionAt(0), master.Curve.DirectionAt(0)))
	if !a.Localized() {
		t.Fatal("agent did not localize")
	}

	mustBuild(t, w)
	if a.Localized() {
		t.Error("agent kept its segment across a rebuild")
	}
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig([]byte(`
grid_seconds = 3.5
retain_lap_position = false

[navigation]
extended_spacing = 250.0
dev_assertions = true

[route]
reconcile_period = 4
`))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.GridSeconds != 3.5 || cfg.RetainLapPosition {
		t.Errorf("top level = %v, %v", cfg.GridSeconds, cfg.RetainLapPosition)
	}
	if cfg.Navigation.ExtendedSpacing != 250 || !cfg.Navigation.DevAssertions || cfg.Route.ReconcilePeriod != 4 {
		t.Errorf("tables = %+v %+v", cfg.Navigation, cfg.Route)
	}
	def := DefaultConfig()
	if cfg.JumpAnomalyDistance != def.JumpAnomalyDistance || cfg.Drive != def.Drive {
		t.Error("unset keys must keep their defaults")
	}

	if _, err := LoadConfig([]byte("grid_seconds = 1\nbogus = 2\n")); err == nil {
		t.Error("unknown key accepted")
	}
}
