// Package path holds navigable segments: a curve plus per-point authored data,
// dense extended samples, and links to other segments.
package path

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/golang/geo/r3"

	"github.com/lixenwraith/pursuit/curve"
	"github.com/lixenwraith/pursuit/parameter"
	"github.com/lixenwraith/pursuit/vmath"
)

// SegmentID indexes a segment in its owning graph
type SegmentID int32

// NoSegment marks an unset segment reference
const NoSegment SegmentID = -1

// Kind classifies who may use a segment
type Kind uint8

const (
	General Kind = iota
	MilitaryReserved
	MissileAssistance
)

var kindNames = [...]string{"general", "military", "missile"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// ParseKind accepts the names produced by String; empty means General
func ParseKind(s string) (Kind, error) {
	if s == "" {
		return General, nil
	}
	for i, name := range kindNames {
		if strings.EqualFold(s, name) {
			return Kind(i), nil
		}
	}
	return General, fmt.Errorf("unknown segment kind %q", s)
}

var ErrPointDataMismatch = errors.New("point data count does not match control points")

// PointData is authored per control point
type PointData struct {
	// OptimumSpeedKph of zero means unlimited
	OptimumSpeedKph          float64
	MinimumSpeedKph          float64
	ManeuveringWidthMeters   float64
	WeatherAllowed           bool
	ProjectilesFollowTerrain bool
}

// DefaultPointData is applied to points without authored data
func DefaultPointData() PointData {
	return PointData{
		ManeuveringWidthMeters:   parameter.DefaultManeuveringWidthMeters,
		WeatherAllowed:           true,
		ProjectilesFollowTerrain: true,
	}
}

// Segment is one navigable curve with its metadata and links
type Segment struct {
	ID    SegmentID
	Name  string
	Curve *curve.Curve

	DeadStart                  bool
	DeadEnd                    bool
	IsShortcut                 bool
	CarefulDriving             bool
	AlwaysSelect               bool
	SuitableForMissileGuidance bool
	ContainsPickups            bool
	Kind                       Kind
	BranchProbability          float64

	// Visible marks the segment as currently relevant for re-localization
	Visible bool

	Points       []PointData
	Extended     []ExtendedPoint
	Links        []Link
	RouteChoices []RouteChoice

	// MasterClass is the degree of separation used when master distances were assigned
	MasterClass int

	environmentSampled bool
}

// NewSegment wraps a curve; empty data gets defaults for every control point
func NewSegment(name string, c *curve.Curve, data []PointData) (*Segment, error) {
	if len(data) == 0 {
		data = make([]PointData, c.NumPoints())
		for i := range data {
			data[i] = DefaultPointData()
		}
	}
	if len(data) != c.NumPoints() {
		return nil, fmt.Errorf("segment %q: %w (%d points, %d data)", name, ErrPointDataMismatch, c.NumPoints(), len(data))
	}
	return &Segment{
		ID:                NoSegment,
		Name:              name,
		Curve:             c,
		BranchProbability: 1,
		Visible:           true,
		Points:            data,
		MasterClass:       -1,
	}, nil
}

func (s *Segment) String() string {
	return fmt.Sprintf("%s#%d", s.Name, s.ID)
}

func (s *Segment) Length() float64 { return s.Curve.Length() }

func (s *Segment) IsClosedLoop() bool { return s.Curve.IsClosedLoop() }

// --- Control point lookups ---

// pointKeys returns the bounding control points and the ratio between them
func (s *Segment) pointKeys(distance float64) (int, int, float64) {
	c := s.Curve
	n := c.NumPoints()
	distance = c.ClampDistance(distance)

	i := sort.Search(n, func(i int) bool { return c.DistanceAtPoint(i) > distance }) - 1
	if i < 0 {
		i = 0
	}
	if !c.IsClosedLoop() && i >= n-1 {
		i = n - 2
	}

	j := i + 1
	endDistance := c.DistanceAtPoint(j)
	if j >= n {
		j = 0
		endDistance = c.Length()
	}
	span := endDistance - c.DistanceAtPoint(i)
	if span <= 0 {
		return i, j, 0
	}
	return i, j, vmath.Clamp((distance-c.DistanceAtPoint(i))/span, 0, 1)
}

func effectiveOptimum(kph float64) float64 {
	if kph <= 0 || kph > parameter.MaxOptimumSpeedKph {
		return parameter.MaxOptimumSpeedKph
	}
	return kph
}

// OptimumSpeedAt returns the interpolated optimum speed in km/h; zero means unlimited
func (s *Segment) OptimumSpeedAt(distance float64) float64 {
	i, j, r := s.pointKeys(distance)
	v := vmath.Lerp(effectiveOptimum(s.Points[i].OptimumSpeedKph), effectiveOptimum(s.Points[j].OptimumSpeedKph), r)
	if v >= parameter.MaxOptimumSpeedKph {
		return 0
	}
	return v
}

// MinimumSpeedAt returns the interpolated minimum speed in km/h
func (s *Segment) MinimumSpeedAt(distance float64) float64 {
	i, j, r := s.pointKeys(distance)
	return vmath.Lerp(s.Points[i].MinimumSpeedKph, s.Points[j].MinimumSpeedKph, r)
}

// WidthAt returns the maneuvering width in world units
func (s *Segment) WidthAt(distance float64) float64 {
	i, j, r := s.pointKeys(distance)
	w := vmath.Lerp(widthOrDefault(s.Points[i].ManeuveringWidthMeters), widthOrDefault(s.Points[j].ManeuveringWidthMeters), r)
	return vmath.Meters(w)
}

func widthOrDefault(w float64) float64 {
	if w <= 0 {
		return parameter.DefaultManeuveringWidthMeters
	}
	return w
}

// WeatherAllowedAt returns 0..1; environment sampling refines the authored flag
func (s *Segment) WeatherAllowedAt(distance float64) float64 {
	if s.environmentSampled {
		if k0, k1, r, ok := s.extendedKeys(distance); ok {
			return vmath.Lerp(s.Extended[k0].UseWeatherAllowed, s.Extended[k1].UseWeatherAllowed, r)
		}
	}
	i, _, _ := s.pointKeys(distance)
	if s.Points[i].WeatherAllowed {
		return 1
	}
	return 0
}

func (s *Segment) ProjectilesFollowTerrainAt(distance float64) bool {
	i, _, _ := s.pointKeys(distance)
	return s.Points[i].ProjectilesFollowTerrain
}

func (s *Segment) CarefulDrivingAt(float64) bool {
	return s.CarefulDriving
}

// --- Spatial helpers ---

// ClosestGroundPosition drops the curve position onto the sampled ground
func (s *Segment) ClosestGroundPosition(distance float64) r3.Vector {
	pos := s.Curve.PositionAt(distance)
	if !s.environmentSampled {
		return pos
	}
	k0, k1, r, ok := s.extendedKeys(distance)
	if !ok {
		return pos
	}
	return pos.Add(vmath.V3Lerp(s.Extended[k0].UseGroundOffset, s.Extended[k1].UseGroundOffset, r))
}

// IsWorldLocationWithinRange reports whether location lies inside the sampled
// cross-section at distance, or inside half the width when unsampled
func (s *Segment) IsWorldLocationWithinRange(distance float64, location r3.Vector) bool {
	t := s.Curve.TransformAt(distance)
	local := t.InverseTransformPosition(location)
	radial := math.Hypot(local.Y, local.Z)

	if !s.environmentSampled {
		return radial <= s.WidthAt(distance)*0.5
	}
	k0, k1, r, ok := s.extendedKeys(distance)
	if !ok {
		return radial <= s.WidthAt(distance)*0.5
	}
	nearest := s.Extended[k0]
	if r > 0.5 {
		nearest = s.Extended[k1]
	}
	angle := math.Atan2(local.Y, local.Z)
	index := int(math.Round(angle/(2*math.Pi)*parameter.NumEnvironmentDistances)) % parameter.NumEnvironmentDistances
	if index < 0 {
		index += parameter.NumEnvironmentDistances
	}
	return radial <= nearest.EnvironmentDistances[index]
}
