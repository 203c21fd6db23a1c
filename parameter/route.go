package parameter

// Route following
const (
	// ReconcilePeriod is the number of frames between exact nearest-distance updates
	ReconcilePeriod = 4

	// ReconcileCheckSeconds is the nominal time between validity checks
	ReconcileCheckSeconds = 0.25

	// MinMovementSize floors the per-frame movement used for search windows (cm)
	MinMovementSize = 100.0

	// ReconcileSearchSpan multiplies the movement size for exact update search windows
	ReconcileSearchSpan = 8.0

	// ReconcileMinSearchRange is the minimum exact update search window (cm)
	ReconcileMinSearchRange = 1000.0

	// BranchConnectionRadius limits link-crossing checks around the current distance (cm)
	BranchConnectionRadius = 10000.0

	// DeadEndSeconds relocalizes when the end of a dead-ended segment is this close in time
	DeadEndSeconds = 0.1

	// AimAheadSeconds is the lookahead time at current speed
	AimAheadSeconds = 0.5

	// AimAheadMinimum floors the lookahead distance (cm)
	AimAheadMinimum = 3333.333

	// AimAheadAfterReverse is the lookahead immediately after a blockage reversal (cm)
	AimAheadAfterReverse = 500.0

	// AimAheadRestoreStart and AimAheadRestoreEnd bound the lookahead restore window (s)
	AimAheadRestoreStart = 2.0
	AimAheadRestoreEnd   = 5.0

	// MaxRouteHops bounds link traversals during one lookahead
	MaxRouteHops = 8
)

// Branch choice
const (
	// ShortcutCatchupBias scales shortcut weight by how far behind an agent is
	ShortcutCatchupBias = 1.0

	// TurboCarefulPenalty scales careful-driving branch weights while boosting
	TurboCarefulPenalty = 0.25

	// CatchupDistance is the race distance behind the leader for full catch-up bias (cm)
	CatchupDistance = 50000.0
)

// Off-track / validity
const (
	// OffTrackDistance is the lateral margin beyond half width that counts as off track (cm)
	OffTrackDistance = 1500.0

	// UnderTrackDistance is the depth below the path that counts as off track (cm)
	UnderTrackDistance = 1000.0

	// TooFarWidthScale multiplies path width for the validity check
	TooFarWidthScale = 1.5

	// TooFarMinimum floors the validity check distance (cm)
	TooFarMinimum = 1500.0

	// OutsideBudgetSeconds is the accumulated time outside before re-localization
	OutsideBudgetSeconds = 2.5
)
