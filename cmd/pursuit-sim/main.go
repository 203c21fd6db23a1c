package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"text/tabwriter"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/lixenwraith/pursuit/asset"
	"github.com/lixenwraith/pursuit/diag"
	"github.com/lixenwraith/pursuit/level"
	"github.com/lixenwraith/pursuit/physics"
	"github.com/lixenwraith/pursuit/sim"
	"github.com/lixenwraith/pursuit/status"
	"github.com/lixenwraith/pursuit/vmath"
)

var (
	trackFlag   = flag.String("track", asset.DefaultTrack, "embedded track name or level file path")
	configFlag  = flag.String("config", "", "simulation config TOML file")
	agentsFlag  = flag.Int("agents", 4, "number of agents")
	secondsFlag = flag.Float64("seconds", 60, "simulated seconds")
	hzFlag      = flag.Int("hz", 60, "ticks per simulated second")
	seedFlag    = flag.Uint64("seed", 1, "random seed")
	devFlag     = flag.Bool("dev", false, "panic on broken navigation invariants")
	debugFlag   = flag.Bool("debug", false, "write debug logs to logs/pursuit.log")
	metricsFlag = flag.Bool("metrics", false, "print Prometheus metrics on exit")
)

const (
	gridRowSpacing = 800.0
	gridLateral    = 250.0
	reportSeconds  = 10
)

func main() {
	flag.Parse()

	logger, logFile := setupLogging(*debugFlag)
	code := 0
	if err := run(logger, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "pursuit-sim: %v\n", err)
		code = 1
	}
	if logFile != nil {
		logFile.Close()
	}
	os.Exit(code)
}

func run(logger *log.Logger, out io.Writer) (err error) {
	defer diag.Recover(&err)

	if *agentsFlag < 1 || *hzFlag < 1 || *secondsFlag <= 0 {
		return fmt.Errorf("agents, hz and seconds must be positive")
	}

	cfg, err := loadConfig(*configFlag)
	if err != nil {
		return err
	}
	if *devFlag {
		cfg.Navigation.DevAssertions = true
	}
	lvl, err := loadTrack(*trackFlag)
	if err != nil {
		return err
	}

	// 1. Graph
	reg := status.NewRegistry()
	world := sim.NewWorld(cfg, logger, reg)
	if err := lvl.Build(world.Graph()); err != nil {
		return fmt.Errorf("level %s: %w", lvl.Name, err)
	}
	scene := lvl.Scene()
	if err := world.Build(scene); err != nil {
		return err
	}

	// 2. Agents on the grid
	harness := sim.NewHarness(world, scene.Obstacles)
	profiles := profileNames()
	slots := sim.GridTransforms(world.Graph(), *agentsFlag, gridRowSpacing, gridLateral)
	for i, slot := range slots {
		name := profiles[i%len(profiles)]
		harness.Spawn(sim.AgentSpec{
			Name: fmt.Sprintf("%s-%d", name, i),
			Seed: *seedFlag + uint64(i)*17,
		}, physics.Profiles[name], slot)
	}
	logger.Info("race", "track", lvl.Name, "agents", len(slots), "master_m", int(world.Graph().MasterLength()/vmath.CentimetersPerMeter))

	// 3. Race
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	dt := 1 / float64(*hzFlag)
	steps := int(*secondsFlag * float64(*hzFlag))
	for step := 1; step <= steps && ctx.Err() == nil; step++ {
		if _, err := harness.Step(dt); err != nil {
			return err
		}
		if step%(reportSeconds*(*hzFlag)) == 0 {
			leader := standings(world)[0]
			fmt.Fprintf(out, "t=%4.0fs leader %-10s lap %d  %.0fm\n", world.RaceTime(), leader.Name, leader.Laps()+1, leader.LapDistance()/vmath.CentimetersPerMeter)
		}
	}

	printStandings(out, world)
	if *metricsFlag {
		return printMetrics(out, reg)
	}
	return nil
}

func loadConfig(filename string) (sim.Config, error) {
	if filename == "" {
		return sim.DefaultConfig(), nil
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return sim.Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	return sim.LoadConfig(data)
}

// loadTrack prefers a file on disk, then an embedded track of that name
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

func profileNames() []string {
	names := make([]string, 0, len(physics.Profiles))
	for name := range physics.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func standings(w *sim.World) []*sim.Agent {
	agents := append([]*sim.Agent(nil), w.Agents()...)
	sort.SliceStable(agents, func(i, j int) bool {
		return agents[i].RaceDistance() > agents[j].RaceDistance()
	})
	return agents
}

func printStandings(out io.Writer, w *sim.World) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "POS\tAGENT\tLAPS\tLAP m\tRACE m\tMODE\tOFF TRACK")
	for i, a := range standings(w) {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%.0f\t%.0f\t%s\t%v\n",
			i+1, a.Name, a.Laps(), a.LapDistance()/vmath.CentimetersPerMeter,
			a.RaceDistance()/vmath.CentimetersPerMeter, a.Mode(), a.IsOffTrack())
	}
	tw.Flush()
}

func printMetrics(out io.Writer, reg *status.Registry) error {
	promReg := prometheus.NewRegistry()
	if err := promReg.Register(status.NewCollector(reg, "pursuit")); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	families, err := promReg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(out, mf); err != nil {
			return err
		}
	}
	return nil
}
