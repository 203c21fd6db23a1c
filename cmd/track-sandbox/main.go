package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/pursuit/asset"
	"github.com/lixenwraith/pursuit/level"
	"github.com/lixenwraith/pursuit/physics"
	"github.com/lixenwraith/pursuit/sim"
)

var (
	trackFlag  = flag.String("track", asset.DefaultTrack, "embedded track name or level file path")
	agentsFlag = flag.Int("agents", 6, "number of agents")
	seedFlag   = flag.Uint64("seed", 1, "random seed")
)

const (
	frameTime = 16 * time.Millisecond // ~60 FPS
	zoomStep  = 1.25
)

// Sandbox owns the screen and the running race
type Sandbox struct {
	screen  tcell.Screen
	harness *sim.Harness
	track   *track

	zoom   float64
	paused bool
}

func NewSandbox(screen tcell.Screen, lvl *level.LevelConfig, agents int, seed uint64) (*Sandbox, error) {
	world := sim.NewWorld(sim.DefaultConfig(), log.New(io.Discard), nil)
	if err := lvl.Build(world.Graph()); err != nil {
		return nil, fmt.Errorf("level %s: %w", lvl.Name, err)
	}
	scene := lvl.Scene()
	if err := world.Build(scene); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(physics.Profiles))
	for name := range physics.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	h := sim.NewHarness(world, scene.Obstacles)
	for i, slot := range sim.GridTransforms(world.Graph(), agents, 800, 250) {
		name := names[i%len(names)]
		h.Spawn(sim.AgentSpec{Name: fmt.Sprintf("%s-%d", name, i), Seed: seed + uint64(i)*17}, physics.Profiles[name], slot)
	}

	return &Sandbox{
		screen:  screen,
		harness: h,
		track:   newTrack(world.Graph(), scene.Obstacles),
		zoom:    1,
	}, nil
}

// handleInput returns false when the sandbox should quit
func (s *Sandbox) handleInput(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
			return false
		}
		if ev.Key() == tcell.KeyRune {
			switch ev.Rune() {
			case 'q':
				return false
			case ' ':
				s.paused = !s.paused
			case '+', '=':
				s.zoom = clampZoom(s.zoom * zoomStep)
			case '-', '_':
				s.zoom = clampZoom(s.zoom / zoomStep)
			case '0':
				s.zoom = 1
			}
		}

	case *tcell.EventResize:
		s.screen.Sync()
	}
	return true
}

func (s *Sandbox) run() error {
	ticker := time.NewTicker(frameTime)
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := s.screen.PollEvent()
			if ev == nil {
				return
			}
			eventChan <- ev
		}
	}()

	dt := frameTime.Seconds()
	for {
		select {
		case ev := <-eventChan:
			if !s.handleInput(ev) {
				return nil
			}

		case <-ticker.C:
			if !s.paused {
				if _, err := s.harness.Step(dt); err != nil {
					return err
				}
			}
			draw(s.screen, s.track, s.harness.World, s.harness.Bodies, s.zoom, s.paused)
		}
	}
}

func loadTrack(name string) (*level.LevelConfig, error) {
	if _, err := os.Stat(name); err == nil {
		return level.LoadFile(name)
	}
	data, err := asset.Track(name)
	if err != nil {
		return nil, err
	}
	return level.Parse(data)
}

func main() {
	flag.Parse()

	lvl, err := loadTrack(*trackFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load track: %v\n", err)
		os.Exit(1)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}

	// Restore the terminal before reporting a crash
	defer func() {
		if r := recover(); r != nil {
			screen.Fini()
			fmt.Fprintf(os.Stderr, "\n\x1b[31mTRACK-SANDBOX CRASHED: %v\x1b[0m\n", r)
			fmt.Fprintf(os.Stderr, "Stack Trace:\n%s\n", debug.Stack())
			os.Exit(1)
		}
	}()

	sandbox, err := NewSandbox(screen, lvl, *agentsFlag, *seedFlag)
	if err == nil {
		err = sandbox.run()
	}
	screen.Fini()
	if err != nil {
		fmt.Fprintf(os.Stderr, "track-sandbox: %v\n", err)
		os.Exit(1)
	}
}
