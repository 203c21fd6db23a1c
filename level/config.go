// Package level loads authored track data into a navigation graph.
//
// Levels are TOML documents measured in meters; the loader converts to world
// units (cm) when it builds curves.
package level

// LevelConfig represents the top-level level document
type LevelConfig struct {
	Name string `toml:"name"`

	// Master names the closed segment that defines lap distance; empty picks the first general loop
	Master string `toml:"master,omitempty"`

	// GroundMeters is the height of a flat ground plane; absent means no ground
	GroundMeters *float64 `toml:"ground_m,omitempty"`

	Segments  []SegmentConfig  `toml:"segments"`
	Links     []LinkConfig     `toml:"links,omitempty"`
	Obstacles []ObstacleConfig `toml:"obstacles,omitempty"`
}

// SegmentConfig represents a single authored segment
type SegmentConfig struct {
	Name   string      `toml:"name"`
	Closed bool        `toml:"closed,omitempty"`
	Kind   string      `toml:"kind,omitempty"` // "general", "military" or "missile"
	Points [][]float64 `toml:"points"`         // [x, y] or [x, y, z] in meters

	DeadStart       bool     `toml:"dead_start,omitempty"`
	DeadEnd         bool     `toml:"dead_end,omitempty"`
	Shortcut        bool     `toml:"shortcut,omitempty"`
	Careful         bool     `toml:"careful,omitempty"`
	AlwaysSelect    bool     `toml:"always_select,omitempty"`
	MissileGuidance bool     `toml:"missile_guidance,omitempty"`
	Pickups         bool     `toml:"pickups,omitempty"`
	Probability     *float64 `toml:"branch_probability,omitempty"`
	Hidden          bool     `toml:"hidden,omitempty"`

	// Per-point defaults; zero widths fall back to the engine default
	WidthMeters     float64 `toml:"width_m,omitempty"`
	OptimumSpeedKph float64 `toml:"speed_kph,omitempty"`
	MinimumSpeedKph float64 `toml:"min_speed_kph,omitempty"`
	NoWeather       bool    `toml:"no_weather,omitempty"`
	FollowTerrain   *bool   `toml:"projectiles_follow_terrain,omitempty"`

	Spans []SpanConfig `toml:"spans,omitempty"`
}

// SpanConfig overrides point data for an inclusive range of control points
type SpanConfig struct {
	From int `toml:"from"`
	To   int `toml:"to"`

	WidthMeters     float64 `toml:"width_m,omitempty"`
	OptimumSpeedKph float64 `toml:"speed_kph,omitempty"`
	MinimumSpeedKph float64 `toml:"min_speed_kph,omitempty"`
	NoWeather       bool    `toml:"no_weather,omitempty"`
	FollowTerrain   *bool   `toml:"projectiles_follow_terrain,omitempty"`
}

// LinkConfig represents an authored forward link
type LinkConfig struct {
	From string `toml:"from"`
	To   string `toml:"to"`

	// At and Onto are meters along From and To; AtEnd uses the end of From instead
	At    float64 `toml:"at,omitempty"`
	AtEnd bool    `toml:"at_end,omitempty"`
	Onto  float64 `toml:"onto,omitempty"`
}

// ObstacleConfig represents a round solid obstacle
type ObstacleConfig struct {
	Center      []float64 `toml:"center"` // meters
	RadiusMeter float64   `toml:"radius_m"`
}
