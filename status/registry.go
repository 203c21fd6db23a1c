package status

import "sync/atomic"

// Counter names shared by the navigation packages
const (
	Relocalizations        = "relocalizations"
	RelocalizationFailures = "relocalization_failures"
	ExactUpdates           = "exact_updates"
	EstimateUpdates        = "estimate_updates"
	BranchDecisions        = "branch_decisions"
	JumpAnomalies          = "jump_anomalies"
	Assertions             = "assertions"
	StuckDetections        = "stuck_detections"
	ModeChanges            = "mode_changes"
	Recalibrations         = "recalibrations"
)

// Gauge names
const (
	Agents           = "agents"
	Segments         = "segments"
	MasterLength     = "master_length_cm"
	MaxJumpDistance  = "max_jump_cm"
	UnanchoredPoints = "unanchored_points"
)

// Registry is the metrics facade handed to every component
// A nil *Registry is valid and records nothing
type Registry struct {
	Counters *MetricMap[atomic.Int64]
	Gauges   *MetricMap[AtomicFloat]
}

func NewRegistry() *Registry {
	return &Registry{
		Counters: NewMetricMap[atomic.Int64](),
		Gauges:   NewMetricMap[AtomicFloat](),
	}
}

// Counter returns the named counter, or a throwaway one on a nil registry
func (r *Registry) Counter(name string) *atomic.Int64 {
	if r == nil {
		return new(atomic.Int64)
	}
	return r.Counters.Get(name)
}

// Gauge returns the named gauge, or a throwaway one on a nil registry
func (r *Registry) Gauge(name string) *AtomicFloat {
	if r == nil {
		return new(AtomicFloat)
	}
	return r.Gauges.Get(name)
}

func (r *Registry) Inc(name string) {
	r.Counter(name).Add(1)
}

func (r *Registry) TotalCount() int {
	if r == nil {
		return 0
	}
	return r.Counters.Count() + r.Gauges.Count()
}
