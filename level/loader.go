package level

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/golang/geo/r3"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/multierr"

	"github.com/lixenwraith/pursuit/curve"
	"github.com/lixenwraith/pursuit/navigation"
	"github.com/lixenwraith/pursuit/path"
	"github.com/lixenwraith/pursuit/vmath"
)

var (
	ErrUnknownSegment   = errors.New("unknown segment")
	ErrDuplicateSegment = errors.New("duplicate segment")
	ErrBadPoint         = errors.New("point needs 2 or 3 coordinates")
	ErrBadSpan          = errors.New("span outside control points")
	ErrNoSegments       = errors.New("level has no segments")
)

// Parse decodes and validates a level document; every problem found is reported
func Parse(data []byte) (*LevelConfig, error) {
	var cfg LevelConfig
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal level: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("level %q: %w", cfg.Name, err)
	}
	return &cfg, nil
}

// LoadFile reads and parses a level from disk
func LoadFile(filename string) (*LevelConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read level: %w", err)
	}
	return Parse(data)
}

func (c *LevelConfig) validate() error {
	if len(c.Segments) == 0 {
		return ErrNoSegments
	}

	var errs error
	names := make(map[string]bool, len(c.Segments))
	for i := range c.Segments {
		s := &c.Segments[i]
		if s.Name == "" {
			errs = multierr.Append(errs, fmt.Errorf("segment %d has no name", i))
		} else if names[s.Name] {
			errs = multierr.Append(errs, fmt.Errorf("segment %q: %w", s.Name, ErrDuplicateSegment))
		}
		names[s.Name] = true

		if _, err := path.ParseKind(s.Kind); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("segment %q: %w", s.Name, err))
		}
		if len(s.Points) < 2 {
			errs = multierr.Append(errs, fmt.Errorf("segment %q: %w", s.Name, curve.ErrTooFewPoints))
		}
		for j, p := range s.Points {
			if len(p) != 2 && len(p) != 3 {
				errs = multierr.Append(errs, fmt.Errorf("segment %q point %d: %w", s.Name, j, ErrBadPoint))
			}
		}
		for _, sp := range s.Spans {
			if sp.From < 0 || sp.To < sp.From || sp.To >= len(s.Points) {
				errs = multierr.Append(errs, fmt.Errorf("segment %q span %d-%d: %w", s.Name, sp.From, sp.To, ErrBadSpan))
			}
		}
		if s.Probability != nil && *s.Probability < 0 {
			errs = multierr.Append(errs, fmt.Errorf("segment %q: negative branch probability", s.Name))
		}
	}

	for _, l := range c.Links {
		if !names[l.From] {
			errs = multierr.Append(errs, fmt.Errorf("link from %q: %w", l.From, ErrUnknownSegment))
		}
		if !names[l.To] {
			errs = multierr.Append(errs, fmt.Errorf("link to %q: %w", l.To, ErrUnknownSegment))
		}
	}
	if c.Master != "" && !names[c.Master] {
		errs = multierr.Append(errs, fmt.Errorf("master %q: %w", c.Master, ErrUnknownSegment))
	}

	for i, o := range c.Obstacles {
		if len(o.Center) != 2 && len(o.Center) != 3 {
			errs = multierr.Append(errs, fmt.Errorf("obstacle %d: %w", i, ErrBadPoint))
		}
		if o.RadiusMeter <= 0 {
			errs = multierr.Append(errs, fmt.Errorf("obstacle %d: radius must be positive", i))
		}
	}
	return errs
}

// Build adds the level's segments and links to g and selects its master
// The graph still needs a Build before agents can tick
func (c *LevelConfig) Build(g *navigation.Graph) error {
	// 1. Segments
	var errs error
	for i := range c.Segments {
		s, err := c.Segments[i].segment()
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		g.Add(s)
	}
	if errs != nil {
		return errs
	}

	// 2. Links, now that every name resolves
	for _, l := range c.Links {
		from, ok := g.Find(l.From)
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("link from %q: %w", l.From, ErrUnknownSegment))
			continue
		}
		to, ok := g.Find(l.To)
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("link to %q: %w", l.To, ErrUnknownSegment))
			continue
		}
		at := vmath.Meters(l.At)
		if l.AtEnd {
			at = from.Length()
		}
		errs = multierr.Append(errs, g.Link(from.ID, to.ID, at, vmath.Meters(l.Onto)))
	}

	// 3. Master
	if c.Master != "" {
		m, ok := g.Find(c.Master)
		if !ok {
			return multierr.Append(errs, fmt.Errorf("master %q: %w", c.Master, ErrUnknownSegment))
		}
		errs = multierr.Append(errs, g.SetMaster(m.ID))
	}
	return errs
}

func (s *SegmentConfig) segment() (*path.Segment, error) {
	cps := make([]curve.ControlPoint, len(s.Points))
	for i, p := range s.Points {
		cps[i].Position = toWorld(p)
	}
	c, err := curve.New(cps, s.Closed, 0)
	if err != nil {
		return nil, fmt.Errorf("segment %q: %w", s.Name, err)
	}

	seg, err := path.NewSegment(s.Name, c, s.pointData())
	if err != nil {
		return nil, err
	}
	seg.Kind, _ = path.ParseKind(s.Kind)
	seg.DeadStart = s.DeadStart
	seg.DeadEnd = s.DeadEnd
	seg.IsShortcut = s.Shortcut
	seg.CarefulDriving = s.Careful
	seg.AlwaysSelect = s.AlwaysSelect
	seg.SuitableForMissileGuidance = s.MissileGuidance
	seg.ContainsPickups = s.Pickups
	seg.Visible = !s.Hidden
	if s.Probability != nil {
		seg.BranchProbability = *s.Probability
	}
	return seg, nil
}

func (s *SegmentConfig) pointData() []path.PointData {
	data := make([]path.PointData, len(s.Points))
	for i := range data {
		d := path.DefaultPointData()
		apply(&d, s.WidthMeters, s.OptimumSpeedKph, s.MinimumSpeedKph, s.NoWeather, s.FollowTerrain)
		data[i] = d
	}
	for _, sp := range s.Spans {
		for i := sp.From; i <= sp.To && i < len(data); i++ {
			apply(&data[i], sp.WidthMeters, sp.OptimumSpeedKph, sp.MinimumSpeedKph, sp.NoWeather, sp.FollowTerrain)
		}
	}
	return data
}

func apply(d *path.PointData, width, optimum, minimum float64, noWeather bool, followTerrain *bool) {
	if width > 0 {
		d.ManeuveringWidthMeters = width
	}
	if optimum > 0 {
		d.OptimumSpeedKph = optimum
	}
	if minimum > 0 {
		d.MinimumSpeedKph = minimum
	}
	if noWeather {
		d.WeatherAllowed = false
	}
	if followTerrain != nil {
		d.ProjectilesFollowTerrain = *followTerrain
	}
}

// toWorld converts an authored [x, y(, z)] in meters to world units
func toWorld(p []float64) r3.Vector {
	var v r3.Vector
	if len(p) > 0 {
		v.X = vmath.Meters(p[0])
	}
	if len(p) > 1 {
		v.Y = vmath.Meters(p[1])
	}
	if len(p) > 2 {
		v.Z = vmath.Meters(p[2])
	}
	return v
}
