// Package navigation owns the segment graph: linking, master-distance
// propagation and re-localization queries.
package navigation

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/lixenwraith/pursuit/curve"
	"github.com/lixenwraith/pursuit/diag"
	"github.com/lixenwraith/pursuit/parameter"
	"github.com/lixenwraith/pursuit/path"
	"github.com/lixenwraith/pursuit/status"
	"github.com/lixenwraith/pursuit/vmath"
)

var (
	ErrEmpty          = errors.New("graph has no segments")
	ErrNoMaster       = errors.New("no closed general segment to act as master")
	ErrNotBuilt       = errors.New("graph has not been built")
	ErrUnknownSegment = errors.New("unknown segment")
	ErrUnanchored     = errors.New("segment has no master distances")
	ErrNonMonotonic   = errors.New("master distances run backwards")
)

// Config tunes graph building and queries
type Config struct {
	// ExtendedSpacing between dense samples, world units
	ExtendedSpacing float64 `toml:"extended_spacing"`

	// AutoLink joins open segment ends onto nearby segments during Build
	AutoLink       bool    `toml:"auto_link"`
	LinkRadius     float64 `toml:"link_radius"`
	LinkEndEpsilon float64 `toml:"link_end_epsilon"`

	RecalibrationDiscrepancy float64 `toml:"recalibration_discrepancy"`
	RecalibrationPasses      int     `toml:"recalibration_passes"`
	MasterScanSpan           float64 `toml:"master_scan_span"`

	// StartLineDistance is the master distance of the start line
	StartLineDistance float64 `toml:"start_line_distance"`

	OpposingDirectionPenalty float64 `toml:"opposing_direction_penalty"`

	// DevAssertions panics on invariant failures instead of logging them
	DevAssertions bool `toml:"dev_assertions"`
}

func DefaultConfig() Config {
	return Config{
		ExtendedSpacing:          vmath.Meters(parameter.ExtendedPointMeters),
		AutoLink:                 true,
		LinkRadius:               parameter.LinkRadius,
		LinkEndEpsilon:           parameter.LinkEndEpsilon,
		RecalibrationDiscrepancy: parameter.RecalibrationDiscrepancy,
		RecalibrationPasses:      parameter.RecalibrationPasses,
		MasterScanSpan:           parameter.MasterScanSpan,
		OpposingDirectionPenalty: parameter.OpposingDirectionPenalty,
	}
}

// Graph is the arena of segments; segments refer to each other by ID
type Graph struct {
	cfg    Config
	logger *log.Logger
	assert *diag.Asserter
	reg    *status.Registry

	segments []*path.Segment
	byName   map[string]path.SegmentID
	master   path.SegmentID
	built    bool
}

// New creates an empty graph; logger and reg may be nil
func New(cfg Config, logger *log.Logger, reg *status.Registry) *Graph {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Graph{
		cfg:    cfg,
		logger: logger,
		assert: diag.New(logger, cfg.DevAssertions, reg),
		reg:    reg,
		byName: make(map[string]path.SegmentID),
		master: path.NoSegment,
	}
}

func (g *Graph) Config() Config { return g.cfg }

// Asserter shares the graph's invariant reporting with its users
func (g *Graph) Asserter() *diag.Asserter { return g.assert }

func (g *Graph) Logger() *log.Logger { return g.logger }

// Add registers s and assigns its ID; the graph must be rebuilt afterwards
func (g *Graph) Add(s *path.Segment) path.SegmentID {
	id := path.SegmentID(len(g.segments))
	s.ID = id
	g.segments = append(g.segments, s)
	if s.Name != "" {
		g.byName[s.Name] = id
	}
	g.built = false
	return id
}

// Segment resolves id; unknown IDs return nil
func (g *Graph) Segment(id path.SegmentID) *path.Segment {
	if id < 0 || int(id) >= len(g.segments) {
		return nil
	}
	return g.segments[id]
}

// Segments returns all segments in ID order
func (g *Graph) Segments() []*path.Segment { return g.segments }

// Find looks a segment up by name
func (g *Graph) Find(name string) (*path.Segment, bool) {
	id, ok := g.byName[name]
	if !ok {
		return nil, false
	}
	return g.segments[id], true
}

func (g *Graph) Built() bool { return g.built }

// Master returns the master segment, nil before DetermineMaster
func (g *Graph) Master() *path.Segment { return g.Segment(g.master) }

func (g *Graph) MasterLength() float64 {
	if m := g.Master(); m != nil {
		return m.Length()
	}
	return 0
}

// SetMaster selects an authored master segment
func (g *Graph) SetMaster(id path.SegmentID) error {
	s := g.Segment(id)
	if s == nil {
		return fmt.Errorf("set master %d: %w", id, ErrUnknownSegment)
	}
	if !s.IsClosedLoop() {
		return fmt.Errorf("set master %s: %w", s, ErrNoMaster)
	}
	g.master = id
	return nil
}

// DetermineMaster picks the first closed general loop
func (g *Graph) DetermineMaster() error {
	for _, s := range g.segments {
		if s.IsClosedLoop() && s.Kind == path.General && s.Curve.NumPoints() > 1 {
			g.master = s.ID
			return nil
		}
	}
	return ErrNoMaster
}

// Link adds an authored forward link from one segment onto another, plus its backward mirror
func (g *Graph) Link(from, to path.SegmentID, thisDistance, nextDistance float64) error {
	a, b := g.Segment(from), g.Segment(to)
	if a == nil || b == nil {
		return fmt.Errorf("link %d -> %d: %w", from, to, ErrUnknownSegment)
	}
	a.AddLink(path.Link{Target: to, ThisDistance: a.Curve.ClampDistance(thisDistance), NextDistance: b.Curve.ClampDistance(nextDistance), Forward: true})
	b.AddLink(path.Link{Target: from, ThisDistance: b.Curve.ClampDistance(nextDistance), NextDistance: a.Curve.ClampDistance(thisDistance), Forward: false})
	g.built = false
	return nil
}

// Build is the navigation barrier: samples, links, route choices and master distances
// Queries that need master distances are only valid after Build succeeds
func (g *Graph) Build(env path.Environment) error {
	g.built = false
	if len(g.segments) == 0 {
		return ErrEmpty
	}

	for _, s := range g.segments {
		s.Build(env, g.cfg.ExtendedSpacing)
	}

	if g.master == path.NoSegment {
		if err := g.DetermineMaster(); err != nil {
			return err
		}
	}

	if g.cfg.AutoLink {
		n := g.EstablishLinks()
		g.logger.Debug("established links", "count", n)
	}
	if err := g.validateLinks(); err != nil {
		return err
	}
	for _, s := range g.segments {
		s.ComputeRouteChoices(g)
	}

	if err := g.CalculateMasterDistances(); err != nil {
		return fmt.Errorf("master distances: %w", err)
	}
	if err := g.Validate(); err != nil {
		return err
	}

	g.built = true
	g.reg.Gauge(status.Segments).Set(float64(len(g.segments)))
	g.reg.Gauge(status.MasterLength).Set(g.MasterLength())
	g.logger.Info("navigation built", "segments", len(g.segments), "master", g.Master().Name, "length_m", int(g.MasterLength()/vmath.CentimetersPerMeter))
	return nil
}

// LapDistance converts a master distance to a distance from the start line
func (g *Graph) LapDistance(masterDistance float64) float64 {
	return curve.ClampDistance(masterDistance-g.cfg.StartLineDistance, g.MasterLength(), true)
}

// MasterDifference is the wrap-aware signed a-b along the master
func (g *Graph) MasterDifference(a, b float64) float64 {
	return curve.DistanceDifference(a, b, g.MasterLength(), true, true)
}
