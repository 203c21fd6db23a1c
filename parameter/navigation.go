package parameter

// Curve evaluation
const (
	// CurveReparamStepsPerSegment is the arc-length table resolution per control-point segment
	CurveReparamStepsPerSegment = 100

	// NearestSearchIterations is the default bracket-refinement iteration count
	NearestSearchIterations = 5

	// NearestSearchSamples is the default sample count per iteration
	NearestSearchSamples = 20

	// NearestSearchEarlyExit is the default early-exit tolerance (cm)
	NearestSearchEarlyExit = 1.0
)

// Path segment data
const (
	// ExtendedPointMeters is the spacing between extended samples
	ExtendedPointMeters = 10.0

	// NumEnvironmentDistances is the size of the ray ring around each extended sample
	NumEnvironmentDistances = 32

	// UnlimitedEnvironmentDistance is recorded for rays that hit nothing (cm)
	UnlimitedEnvironmentDistance = 100000.0

	// LevelSurfaceDistance is the max distance for a surface to count as level ground/ceiling (cm)
	LevelSurfaceDistance = 2500.0

	// NotATunnelDiameter is the diameter reported for open air (cm)
	NotATunnelDiameter = 10000.0

	// DefaultManeuveringWidthMeters applies when a control point carries no width
	DefaultManeuveringWidthMeters = 50.0

	// MaxOptimumSpeedKph caps authored optimum speeds; zero means unlimited
	MaxOptimumSpeedKph = 1000.0

	// LinkMatchDistance treats two links as equal within this tolerance (cm)
	LinkMatchDistance = 100.0

	// RouteChoiceMinRemaining is the minimum length after a branch for it to be a choice (cm)
	RouteChoiceMinRemaining = 5000.0

	// MergeLookahead is how far ahead a merge into another segment is detected (cm)
	MergeLookahead = 5000.0
)

// Path graph and master distances
const (
	// LinkRadius joins open segment ends onto other segments within this radius (cm)
	LinkRadius = 500.0

	// LinkEndEpsilon is the distance from a segment end still counted as that end (cm)
	LinkEndEpsilon = 1.0

	// LinkPropagateDistance only floods master distances across links landing this close to a start (cm)
	LinkPropagateDistance = 100.0

	// RecalibrationDiscrepancy is the endpoint mismatch that triggers recalibration (cm)
	RecalibrationDiscrepancy = 2500.0

	// RecalibrationPasses is the number of repair passes after the initial propagation
	RecalibrationPasses = 2

	// MasterScanSpan multiplies the movement size for the master fallback search window
	MasterScanSpan = 16.0

	// MasterScanAccuracy is the target spacing of the master fallback search (cm)
	MasterScanAccuracy = 1.0

	// MasterWrapFraction of the master length separates a seam wrap from a backwards step
	MasterWrapFraction = 0.25
)

// Re-localization
const (
	// VisibleFallbackDistance triggers an any-segment search beyond this distance (cm)
	VisibleFallbackDistance = 25000.0

	// VisibleFallbackRatio requires the visible candidate to be this much farther before switching
	VisibleFallbackRatio = 2.5

	// RetainSwitchDistance is the minimum move before a retained position switches segment (cm)
	RetainSwitchDistance = 1000.0

	// MasterMatchWindow bounds the master-distance match during retained re-localization (cm)
	MasterMatchWindow = 10000.0

	// OpposingDirectionPenalty scales candidate distance for segments facing away
	OpposingDirectionPenalty = 1.0

	// JumpAnomalyDistance flags master distance jumps above this (cm)
	JumpAnomalyDistance = 25000.0
)
