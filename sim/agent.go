package sim

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/lixenwraith/pursuit/drive"
	"github.com/lixenwraith/pursuit/navigation"
	"github.com/lixenwraith/pursuit/path"
	"github.com/lixenwraith/pursuit/route"
	"github.com/lixenwraith/pursuit/vmath"
)

// AgentSpec describes an agent at spawn
type AgentSpec struct {
	Name    string
	Kind    path.Kind
	Vehicle drive.Vehicle
	Seed    uint64

	// StayOnSegment never takes optional branches
	StayOnSegment bool
}

// Kinematics is the latest settled physics state of one agent
type Kinematics struct {
	Transform vmath.Transform
	Velocity  r3.Vector
	YawRate   float64

	Grounded bool
	Flipped  bool
	Blockage drive.Blockage

	// Thrust is the throttle the vehicle applied since the last tick
	Thrust     float64
	UsingTurbo bool
}

// Output is what one tick produced for one agent
type Output struct {
	Intent          drive.Intent
	HeadingTo       r3.Vector
	OptimumSpeedKph float64
	MinimumSpeedKph float64
	Mode            drive.Mode
	MasterDistance  float64
	OffTrack        bool
}

// Agent is one vehicle's navigation state
type Agent struct {
	ID   int
	Name string

	spec     AgentSpec
	graph    *navigation.Graph
	follower *route.Follower
	control  *drive.Controller
	rng      *vmath.FastRand

	placed       bool
	lastLocation r3.Vector

	// outside accumulates time spent outside the current segment's corridor
	outside float64

	masterDistance float64
	hasMaster      bool
	raceDistance   float64

	// explained marks a re-localization that may jump the master distance
	explained bool

	headingTo  r3.Vector
	optimumKph float64
	minimumKph float64
	offTrack   bool
}

func (a *Agent) Follower() *route.Follower { return a.follower }

func (a *Agent) Controller() *drive.Controller { return a.control }

// HeadingTo is the world point the agent steers toward
func (a *Agent) HeadingTo() r3.Vector { return a.headingTo }

// OptimumSpeedKph is the shaped target speed, zero when unlimited
func (a *Agent) OptimumSpeedKph() float64 { return a.optimumKph }

func (a *Agent) MinimumSpeedKph() float64 { return a.minimumKph }

func (a *Agent) Mode() drive.Mode { return a.control.Mode() }

func (a *Agent) IsOffTrack() bool { return a.offTrack }

// MasterDistance is the last accepted distance along the master, for ranking
func (a *Agent) MasterDistance() float64 { return a.masterDistance }

// LapDistance is the master distance measured from the start line
func (a *Agent) LapDistance() float64 { return a.graph.LapDistance(a.masterDistance) }

// RaceDistance accumulates wrap-aware master progress since the start line
func (a *Agent) RaceDistance() float64 { return a.raceDistance }

// Laps is the number of completed laps
func (a *Agent) Laps() int {
	l := a.graph.MasterLength()
	if l <= 0 {
		return 0
	}
	return int(math.Floor(a.raceDistance / l))
}

// Localized reports whether the agent is attached to a segment
func (a *Agent) Localized() bool { return a.follower.IsValid(a.graph) }
