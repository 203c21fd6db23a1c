package main

import (
	"fmt"
	"math"

	"github.com/gdamore/tcell/v2"
	"github.com/golang/geo/r3"
	"github.com/paulmach/orb"

	"github.com/lixenwraith/pursuit/drive"
	"github.com/lixenwraith/pursuit/navigation"
	"github.com/lixenwraith/pursuit/path"
	"github.com/lixenwraith/pursuit/physics"
	"github.com/lixenwraith/pursuit/sim"
	"github.com/lixenwraith/pursuit/vmath"
)

// cellAspect is the height of a terminal cell in widths
const cellAspect = 2.0

const (
	minZoom    = 0.25
	maxZoom    = 16.0
	sampleStep = 200.0
)

var (
	styleMaster   = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleBranch   = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleCareful  = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleMissile  = tcell.StyleDefault.Foreground(tcell.ColorPurple)
	styleObstacle = tcell.StyleDefault.Foreground(tcell.ColorMaroon)
	styleAim      = tcell.StyleDefault.Foreground(tcell.ColorTeal)
	styleStatus   = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorSilver)
)

// modeStyles colors agents by driving mode
var modeStyles = map[drive.Mode]tcell.Style{
	drive.GeneralManeuvering:    tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true),
	drive.RecoveringControl:     tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true),
	drive.ReversingToReorient:   tcell.StyleDefault.Foreground(tcell.ColorOrange).Bold(true),
	drive.ReversingFromBlockage: tcell.StyleDefault.Foreground(tcell.ColorOrange).Bold(true),
	drive.LaunchToReorient:      tcell.StyleDefault.Foreground(tcell.ColorFuchsia).Bold(true),
	drive.JTurnToReorient:       tcell.StyleDefault.Foreground(tcell.ColorFuchsia).Bold(true),
}

// track is the static geometry flattened to the ground plane
type track struct {
	lines     []orb.LineString
	styles    []tcell.Style
	obstacles []physics.Obstacle
	bound     orb.Bound
}

func newTrack(g *navigation.Graph, obstacles []physics.Obstacle) *track {
	t := &track{obstacles: obstacles}
	first := true
	extend := func(b orb.Bound) {
		if first {
			t.bound, first = b, false
			return
		}
		t.bound = t.bound.Union(b)
	}

	for _, s := range g.Segments() {
		n := int(math.Ceil(s.Length()/sampleStep)) + 1
		ls := make(orb.LineString, 0, n)
		for i := 0; i < n; i++ {
			p := s.Curve.PositionAt(math.Min(float64(i)*sampleStep, s.Length()))
			ls = append(ls, orb.Point{p.X, p.Y})
		}
		t.lines = append(t.lines, ls)
		t.styles = append(t.styles, segmentStyle(g, s))
		extend(ls.Bound())
	}
	for _, o := range obstacles {
		extend(orb.Bound{
			Min: orb.Point{o.Center.X - o.Radius, o.Center.Y - o.Radius},
			Max: orb.Point{o.Center.X + o.Radius, o.Center.Y + o.Radius},
		})
	}
	return t
}

func segmentStyle(g *navigation.Graph, s *path.Segment) tcell.Style {
	switch {
	case s == g.Master():
		return styleMaster
	case s.Kind == path.MissileAssistance:
		return styleMissile
	case s.CarefulDriving:
		return styleCareful
	default:
		return styleBranch
	}
}

// view maps world units to terminal cells
type view struct {
	width, height int
	center        orb.Point
	scale         float64 // cells per world unit horizontally
	zoom          float64
}

// fit centers b in a width x height screen with a one-cell margin
func fit(b orb.Bound, width, height int, zoom float64) view {
	v := view{width: width, height: height, center: b.Center(), zoom: zoom}
	w := math.Max(b.Right()-b.Left(), 1)
	h := math.Max(b.Top()-b.Bottom(), 1)
	usableW := math.Max(float64(width-2), 1)
	usableH := math.Max(float64(height-3), 1) * cellAspect
	v.scale = math.Min(usableW/w, usableH/h) * zoom
	return v
}

// project returns the cell for a world point and whether it is on screen
func (v view) project(p r3.Vector) (int, int, bool) {
	x := int(math.Round((p.X-v.center.X())*v.scale + float64(v.width)/2))
	y := int(math.Round(float64(v.height-1)/2 - (p.Y-v.center.Y())*v.scale/cellAspect))
	return x, y, x >= 0 && y >= 0 && x < v.width && y < v.height-1
}

func (v view) set(s tcell.Screen, p r3.Vector, r rune, style tcell.Style) {
	if x, y, ok := v.project(p); ok {
		s.SetContent(x, y, r, nil, style)
	}
}

// draw renders one frame; agents are drawn by index digit
func draw(s tcell.Screen, t *track, w *sim.World, bodies []*physics.Body, zoom float64, paused bool) {
	s.Clear()
	width, height := s.Size()
	v := fit(t.bound, width, height, zoom)

	for i, ls := range t.lines {
		for _, p := range ls {
			v.set(s, r3.Vector{X: p[0], Y: p[1]}, '·', t.styles[i])
		}
	}
	for _, o := range t.obstacles {
		for a := 0.0; a < 2*math.Pi; a += math.Pi / 12 {
			v.set(s, o.Center.Add(r3.Vector{X: math.Cos(a), Y: math.Sin(a)}.Mul(o.Radius)), 'o', styleObstacle)
		}
	}
	for i, a := range w.Agents() {
		if a.Localized() {
			v.set(s, a.HeadingTo(), '+', styleAim)
		}
		if i < len(bodies) {
			v.set(s, bodies[i].Transform.Location, agentRune(i), modeStyles[a.Mode()])
		}
	}

	status := fmt.Sprintf(" t=%.1fs  zoom x%.2f  agents %d", w.RaceTime(), zoom, len(w.Agents()))
	if paused {
		status += "  [paused]"
	}
	status += "  space pause  +/- zoom  q quit "
	for x := 0; x < width; x++ {
		r := ' '
		if x < len(status) {
			r = rune(status[x])
		}
		s.SetContent(x, height-1, r, nil, styleStatus)
	}
	s.Show()
}

func agentRune(i int) rune {
	const glyphs = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	return rune(glyphs[i%len(glyphs)])
}

func clampZoom(z float64) float64 {
	return vmath.Clamp(z, minZoom, maxZoom)
}
