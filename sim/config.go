package sim

import (
	"bytes"
	"fmt"

	"github.com/pelletier/go-toml/v2"

	"github.com/lixenwraith/pursuit/drive"
	"github.com/lixenwraith/pursuit/navigation"
	"github.com/lixenwraith/pursuit/parameter"
	"github.com/lixenwraith/pursuit/route"
)

// Config is the whole simulation configuration, passed at construction
type Config struct {
	Navigation navigation.Config `toml:"navigation"`
	Route      route.Config      `toml:"route"`
	Drive      drive.Config      `toml:"drive"`

	// GridSeconds holds agents on the grid before the race starts
	GridSeconds float64 `toml:"grid_seconds"`

	// RetainLapPosition keeps re-localization near the agent's master distance
	RetainLapPosition bool    `toml:"retain_lap_position"`
	MasterMatchWindow float64 `toml:"master_match_window"`

	VisibleFallbackDistance float64 `toml:"visible_fallback_distance"`
	VisibleFallbackRatio    float64 `toml:"visible_fallback_ratio"`
	RetainSwitchDistance    float64 `toml:"retain_switch_distance"`

	JumpAnomalyDistance float64 `toml:"jump_anomaly_distance"`
	DeadEndSeconds      float64 `toml:"dead_end_seconds"`

	OffTrackDistance     float64 `toml:"off_track_distance"`
	UnderTrackDistance   float64 `toml:"under_track_distance"`
	TooFarWidthScale     float64 `toml:"too_far_width_scale"`
	TooFarMinimum        float64 `toml:"too_far_minimum"`
	OutsideBudgetSeconds float64 `toml:"outside_budget_seconds"`

	CatchupDistance float64 `toml:"catchup_distance"`
}

func DefaultConfig() Config {
	return Config{
		Navigation:              navigation.DefaultConfig(),
		Route:                   route.DefaultConfig(),
		Drive:                   drive.DefaultConfig(),
		RetainLapPosition:       true,
		MasterMatchWindow:       parameter.MasterMatchWindow,
		VisibleFallbackDistance: parameter.VisibleFallbackDistance,
		VisibleFallbackRatio:    parameter.VisibleFallbackRatio,
		RetainSwitchDistance:    parameter.RetainSwitchDistance,
		JumpAnomalyDistance:     parameter.JumpAnomalyDistance,
		DeadEndSeconds:          parameter.DeadEndSeconds,
		OffTrackDistance:        parameter.OffTrackDistance,
		UnderTrackDistance:      parameter.UnderTrackDistance,
		TooFarWidthScale:        parameter.TooFarWidthScale,
		TooFarMinimum:           parameter.TooFarMinimum,
		OutsideBudgetSeconds:    parameter.OutsideBudgetSeconds,
		CatchupDistance:         parameter.CatchupDistance,
	}
}

// LoadConfig overlays a TOML document onto DefaultConfig; unknown keys are errors
func LoadConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
