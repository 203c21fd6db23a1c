package path

import (
	"errors"
	"math"
	"testing"

	"github.com/golang/geo/r3"

	"github.com/lixenwraith/pursuit/curve"
	"github.com/lixenwraith/pursuit/parameter"
)

func lineSegment(t *testing.T, name string, length float64, points int, data []PointData) *Segment {
	t.Helper()
	cps := make([]curve.ControlPoint, points)
	for i := range cps {
		cps[i].Position = r3.Vector{X: length * float64(i) / float64(points-1)}
	}
	c, err := curve.New(cps, false, 0)
	if err != nil {
		t.Fatalf("curve.New: %v", err)
	}
	s, err := NewSegment(name, c, data)
	if err != nil {
		t.Fatalf("NewSegment: %v", err)
	}
	return s
}

func loopSegment(t *testing.T, name string, radius float64) *Segment {
	t.Helper()
	cps := make([]curve.ControlPoint, 16)
	for i := range cps {
		a := 2 * math.Pi * float64(i) / 16
		cps[i].Position = r3.Vector{X: radius * math.Cos(a), Y: radius * math.Sin(a)}
	}
	c, err := curve.New(cps, true, 0)
	if err != nil {
		t.Fatalf("curve.New: %v", err)
	}
	s, err := NewSegment(name, c, nil)
	if err != nil {
		t.Fatalf("NewSegment: %v", err)
	}
	return s
}

func TestNewSegmentDefaults(t *testing.T) {
	s := lineSegment(t, "main", 1000, 2, nil)
	if s.BranchProbability != 1 || !s.Visible || s.ID != NoSegment {
		t.Errorf("unexpected defaults: %+v", s)
	}
	if got := s.WidthAt(500); got != 5000 {
		t.Errorf("WidthAt = %v, want 5000", got)
	}
	if got := s.OptimumSpeedAt(500); got != 0 {
		t.Errorf("OptimumSpeedAt = %v, want 0 (unlimited)", got)
	}

	c := s.Curve
	if _, err := NewSegment("bad", c, []PointData{DefaultPointData()}); !errors.Is(err, ErrPointDataMismatch) {
		t.Errorf("mismatched data: got %v", err)
	}
}

func TestPointDataInterpolation(t *testing.T) {
	data := []PointData{DefaultPointData(), DefaultPointData(), DefaultPointData()}
	data[1].OptimumSpeedKph = 200
	data[2].OptimumSpeedKph = 100
	data[1].MinimumSpeedKph = 80
	data[2].ManeuveringWidthMeters = 10
	s := lineSegment(t, "speeds", 1000, 3, data)

	tests := []struct {
		d       float64
		optimum float64
		minimum float64
	}{
		{0, 0, 0},
		{250, 600, 40},
		{500, 200, 80},
		{750, 150, 40},
		{1000, 100, 0},
	}
	for _, tt := range tests {
		if got := s.OptimumSpeedAt(tt.d); math.Abs(got-tt.optimum) > 0.01 {
			t.Errorf("OptimumSpeedAt(%v) = %v, want %v", tt.d, got, tt.optimum)
		}
		if got := s.MinimumSpeedAt(tt.d); math.Abs(got-tt.minimum) > 0.01 {
			t.Errorf("MinimumSpeedAt(%v) = %v, want %v", tt.d, got, tt.minimum)
		}
	}
	if got := s.WidthAt(750); math.Abs(got-3000) > 0.01 {
		t.Errorf("WidthAt(750) = %v, want 3000", got)
	}
}

func TestBuildSamplesAndNeverShrinks(t *testing.T) {
	s := lineSegment(t, "main", 1000, 2, nil)
	s.Build(nil, 100)

	if len(s.Extended) != 11 {
		t.Fatalf("samples = %d, want 11", len(s.Extended))
	}
	for i, p := range s.Extended {
		if math.Abs(p.Distance-float64(i)*100) > 1e-6 {
			t.Errorf("sample %d distance %v", i, p.Distance)
		}
		if p.MasterDistance != -1 {
			t.Errorf("sample %d master distance %v, want -1", i, p.MasterDistance)
		}
	}

	s.Build(nil, 500)
	if len(s.Extended) != 11 {
		t.Errorf("rebuild shrank samples to %d", len(s.Extended))
	}
	if s.HasMasterDistances() {
		t.Error("fresh samples must not report master distances")
	}
}

func TestMasterDistanceInterpolation(t *testing.T) {
	s := lineSegment(t, "branch", 500, 2, nil)
	s.Build(nil, 500)

	s.Extended[0].MasterDistance = 1000
	s.Extended[1].MasterDistance = 1500
	if got := s.MasterDistanceAt(250, 2000); math.Abs(got-1250) > 1e-9 {
		t.Errorf("MasterDistanceAt = %v, want 1250", got)
	}

	// Across the master seam
	s.Extended[0].MasterDistance = 1900
	s.Extended[1].MasterDistance = 100
	tests := []struct{ d, want float64 }{
		{0, 1900},
		{125, 1950},
		{375, 50},
		{500, 100},
	}
	for _, tt := range tests {
		if got := s.MasterDistanceAt(tt.d, 2000); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("seam MasterDistanceAt(%v) = %v, want %v", tt.d, got, tt.want)
		}
	}

	empty := lineSegment(t, "empty", 500, 2, nil)
	if got := empty.MasterDistanceAt(100, 2000); got != 0 {
		t.Errorf("no samples = %v, want 0", got)
	}
}

type tube struct {
	radius   float64
	from, to float64
}

func (e tube) Raycast(from, _ r3.Vector, _ float64) (float64, bool) {
	if from.X < e.from || from.X > e.to {
		return 0, false
	}
	return e.radius, true
}

type floor struct{ depth float64 }

func (e floor) Raycast(_, dir r3.Vector, max float64) (float64, bool) {
	if dir.Z >= -1e-6 {
		return 0, false
	}
	d := e.depth / -dir.Z
	if d > max {
		return 0, false
	}
	return d, true
}

func TestTunnelDiameter(t *testing.T) {
	s := lineSegment(t, "tunnel", 2000, 2, nil)
	s.Build(tube{radius: 300, from: 800, to: 1200}, 100)

	if got := s.TunnelDiameterAt(1000); math.Abs(got-600) > 1e-6 {
		t.Errorf("inside = %v, want 600", got)
	}
	if got := s.TunnelDiameterAt(200); got != parameter.NotATunnelDiameter {
		t.Errorf("outside = %v, want open air", got)
	}
	if got := s.TunnelDiameterOverDistance(200, 1000, 1, true); math.Abs(got-600) > 1e-6 {
		t.Errorf("min over distance = %v, want 600", got)
	}
	avg := s.TunnelDiameterOverDistance(200, 1000, 1, false)
	if avg <= 600 || avg >= parameter.NotATunnelDiameter {
		t.Errorf("average over distance = %v", avg)
	}
	if got := s.TunnelDiameterOverDistance(200, 1000, -1, true); got != parameter.NotATunnelDiameter {
		t.Errorf("backwards from start = %v, want open air", got)
	}

	unbuilt := lineSegment(t, "unbuilt", 2000, 2, nil)
	if got := unbuilt.TunnelDiameterAt(500); got != 0 {
		t.Errorf("unbuilt diameter = %v, want 0", got)
	}
	if got := unbuilt.TunnelDiameterOverDistance(500, 1000, 1, true); got != 0 {
		t.Errorf("unbuilt diameter over distance = %v, want 0", got)
	}
}

func TestEnvironmentGround(t *testing.T) {
	s := lineSegment(t, "ground", 1000, 2, nil)
	s.Build(floor{depth: 200}, 100)

	p := &s.Extended[5]
	if p.UseGroundIndex != NumDistances/2 {
		t.Errorf("ground index = %d, want %d", p.UseGroundIndex, NumDistances/2)
	}
	if !p.IsLevelGround() {
		t.Error("expected level ground")
	}
	if p.IsLevelCeiling() {
		t.Error("no ceiling expected")
	}
	if !p.OpenLeft || !p.OpenRight {
		t.Error("sides should be open")
	}
	if got := s.WeatherAllowedAt(500); got != 1 {
		t.Errorf("weather = %v, want 1", got)
	}
	if g := s.ClosestGroundPosition(500); math.Abs(g.Z+200) > 1e-6 {
		t.Errorf("ground position = %v, want z=-200", g)
	}
	if !s.IsWorldLocationWithinRange(500, r3.Vector{X: 500, Z: -150}) {
		t.Error("point above floor should be within range")
	}
	if s.IsWorldLocationWithinRange(500, r3.Vector{X: 500, Z: -250}) {
		t.Error("point below floor should be out of range")
	}
}

func TestDifferenceInDegrees(t *testing.T) {
	tests := []struct {
		a, b int
		want float64
	}{
		{0, 16, 180},
		{1, 31, 22.5},
		{4, 4, 0},
		{30, 2, 45},
	}
	for _, tt := range tests {
		if got := DifferenceInDegrees(tt.a, tt.b); got != tt.want {
			t.Errorf("DifferenceInDegrees(%d,%d) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
