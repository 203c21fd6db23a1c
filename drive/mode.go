// Package drive turns route-following state and vehicle kinematics into
// throttle, steering and handbrake intents.
package drive

// Mode is the driving state of one agent
type Mode uint8

const (
	GeneralManeuvering Mode = iota
	RecoveringControl
	ReversingToReorient
	ReversingFromBlockage
	LaunchToReorient
	JTurnToReorient
	numModes
)

func (m Mode) String() string {
	names := [...]string{
		"general",
		"recovering",
		"reversing_to_reorient",
		"reversing_from_blockage",
		"launch_to_reorient",
		"jturn_to_reorient",
	}
	if int(m) < len(names) {
		return names[m]
	}
	return "unknown"
}

// Reversing reports whether the mode drives in reverse
func (m Mode) Reversing() bool {
	return m == ReversingToReorient || m == ReversingFromBlockage || m == LaunchToReorient || m == JTurnToReorient
}

// Blockage flags directions the vehicle is blocked in, as reported by collision
type Blockage uint8

const (
	BlockedFront Blockage = 1 << iota
	BlockedRear
	BlockedLeft
	BlockedRight
)

func (b Blockage) Has(flag Blockage) bool { return b&flag != 0 }
