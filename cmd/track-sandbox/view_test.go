package main

import (
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/golang/geo/r3"
	"github.com/paulmach/orb"
)

func TestFitCentersBound(t *testing.T) {
	b := orb.Bound{Min: orb.Point{-1000, -500}, Max: orb.Point{1000, 500}}
	v := fit(b, 82, 43, 1)

	tests := []struct {
		name string
		p    r3.Vector
		x, y int
	}{
		{"center", r3.Vector{}, 41, 21},
		{"right edge", r3.Vector{X: 1000}, 81, 21},
		{"left edge", r3.Vector{X: -1000}, 1, 21},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y, ok := v.project(tt.p)
			if !ok || x != tt.x || y != tt.y {
				t.Errorf("project(%v) = %d,%d,%v want %d,%d", tt.p, x, y, ok, tt.x, tt.y)
			}
		})
	}

	if _, y, _ := v.project(r3.Vector{Y: 500}); y >= 21 {
		t.Errorf("positive Y should move up the screen, got row %d", y)
	}
	if _, _, ok := v.project(r3.Vector{X: 5000}); ok {
		t.Error("far point reported on screen")
	}
}

func TestZoomScales(t *testing.T) {
	b := orb.Bound{Min: orb.Point{-1000, -1000}, Max: orb.Point{1000, 1000}}
	near, far := fit(b, 80, 40, 2), fit(b, 80, 40, 1)
	if near.scale != 2*far.scale {
		t.Errorf("zoom scale %v vs %v", near.scale, far.scale)
	}
	if clampZoom(100) != maxZoom || clampZoom(0) != minZoom {
		t.Error("zoom not clamped")
	}
}

func TestSandboxDraws(t *testing.T) {
	lvl, err := loadTrack("oval")
	if err != nil {
		t.Fatalf("loadTrack: %v", err)
	}
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("screen: %v", err)
	}
	defer screen.Fini()
	screen.SetSize(100, 40)

	sb, err := NewSandbox(screen, lvl, 2, 1)
	if err != nil {
		t.Fatalf("NewSandbox: %v", err)
	}
	for i := 0; i < 10; i++ {
		if _, err := sb.harness.Step(frameTime.Seconds()); err != nil {
			t.Fatalf("Step: %v", err)
		}
	}
	draw(screen, sb.track, sb.harness.World, sb.harness.Bodies, sb.zoom, sb.paused)

	cells, w, h := screen.GetContents()
	var track, agents int
	for _, c := range cells[:w*(h-1)] {
		if len(c.Runes) == 0 {
			continue
		}
		switch c.Runes[0] {
		case '·':
			track++
		case '0', '1':
			agents++
		}
	}
	if track == 0 {
		t.Error("no track drawn")
	}
	if agents == 0 {
		t.Error("no agents drawn")
	}
	if w != 100 {
		t.Errorf("width = %d", w)
	}

	if !sb.handleInput(tcell.NewEventKey(tcell.KeyRune, ' ', tcell.ModNone)) || !sb.paused {
		t.Error("space should pause")
	}
	if !sb.handleInput(tcell.NewEventKey(tcell.KeyRune, '+', tcell.ModNone)) || sb.zoom <= 1 {
		t.Error("+ should zoom in")
	}
	if sb.handleInput(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone)) {
		t.Error("escape should quit")
	}
}
