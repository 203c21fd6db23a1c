package parameter

// Driving modes
const (
	// LostControlYawRate triggers recovery above this angular velocity (deg/s)
	LostControlYawRate = 100.0

	// LostControlHeadingDot triggers recovery when facing this far from the heading
	LostControlHeadingDot = 0.25

	// LostControlMinSpeedKph is the speed above which heading misalignment counts
	LostControlMinSpeedKph = 50.0

	// RecoveryCooldown is the minimum time between recovery entries (s)
	RecoveryCooldown = 5.0

	// RecoveringMaxSpeedKph limits optimum speed while recovering
	RecoveringMaxSpeedKph = 250.0

	// ReverseModeTimeout ends reversing modes (s)
	ReverseModeTimeout = 3.0

	// ReverseFromBlockageDistance ends a blockage reversal after this distance (cm)
	ReverseFromBlockageDistance = 800.0

	// ReverseExitDot ends a reorientation reversal when this aligned with the path
	ReverseExitDot = 0.25

	// JTurnTimeout abandons a J-turn (s)
	JTurnTimeout = 5.0

	// LaunchMinCharge is the minimum charge time before a launch release (s)
	LaunchMinCharge = 1.0

	// ReorientMaxYawRate is the yaw rate below which reorientation maneuvers start (deg/s)
	ReorientMaxYawRate = 50.0

	// LaunchMaxSpeedKph is the speed below which a launch can start
	LaunchMaxSpeedKph = 400.0
)

// Stuck detection
const (
	StuckMinRaceTime       = 5.0
	StuckMinThrustHistory  = 2.0
	StuckThrust            = 0.25
	StuckQuickWindow       = 0.5
	StuckQuickSpeed        = 10.0
	StuckSlowThrustWindow  = 1.0
	StuckSlowSpeedWindow   = 2.0
	StuckSlowSpeed         = 100.0
	StuckSlowReverseGap    = 2.0
	ImmobileThrust         = 0.75
	ImmobileDistance       = 100.0
	ImmobileModeTime       = 3.0
	ProgressHistorySeconds = 21.0
)

// Throttle and speed shaping
const (
	// ThrottleMergeRangeKph is the band over which throttle blends to the feed-forward value
	ThrottleMergeRangeKph = 50.0

	// MakeUpSpeedRangeKph is the deficit over which make-up speed ramps in
	MakeUpSpeedRangeKph = 100.0

	// MakeUpSpeedScale is the make-up speed contribution at full deficit
	MakeUpSpeedScale = 0.25

	// SpeedVariation is the sinusoidal fraction applied to optimum speed
	SpeedVariation = 0.05

	// MinimumSpeedFloorKph is applied after MinimumSpeedFloorTime of race time
	MinimumSpeedFloorKph  = 150.0
	MinimumSpeedFloorTime = 10.0

	// SteeringGain converts heading angle (as a fraction of pi) to steering input
	SteeringGain = 8.0

	// WeavingStartKph and WeavingFullKph ramp weaving in with speed
	WeavingStartKph = 150.0
	WeavingFullKph  = 300.0

	// FishtailRecoveryYawRate is the yaw rate that counts as a fishtail (deg/s)
	FishtailRecoveryYawRate = 45.0

	// FishtailThrottle limits throttle while a fishtail is detected
	FishtailThrottle = 0.5
)

// Weaving
const (
	// WeavingRate is the angular rate of the weave across the path width (rad/s)
	WeavingRate = 0.5

	// WeavingMinHalfWidth keeps at least this much room either side of the path (cm)
	WeavingMinHalfWidth = 100.0

	// WeavingSmoothingSpeed is how fast the weave width follows the path width (cm/s)
	WeavingSmoothingSpeed = 5000.0

	// SpeedVariationPeriod slows the optimum speed variation phase (s)
	SpeedVariationPeriod = 10.0
)
