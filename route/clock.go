package route

// Clock counts simulation frames and staggers exact updates across agents
type Clock struct {
	Period int
	frame  uint64
}

// NewClock creates a clock; periods below 1 reconcile every frame
func NewClock(period int) *Clock {
	if period < 1 {
		period = 1
	}
	return &Clock{Period: period}
}

// Advance moves to the next frame
func (c *Clock) Advance() {
	c.frame++
}

func (c *Clock) Frame() uint64 { return c.frame }

// Due reports whether the agent with the given phase reconciles this frame
func (c *Clock) Due(phase int) bool {
	if c.Period <= 1 {
		return true
	}
	return (c.frame+uint64(c.wrapPhase(phase)))%uint64(c.Period) == 0
}

// wrapPhase maps any phase, negative included, into [0, Period)
func (c *Clock) wrapPhase(phase int) int {
	phase %= c.Period
	if phase < 0 {
		phase += c.Period
	}
	return phase
}

// Reconciler throttles one agent's exact updates
type Reconciler struct {
	// Phase offsets this agent within the clock period, normally the agent index
	Phase int

	// TicksSinceExact counts frames since the last exact update
	TicksSinceExact int

	// PendingUpdate latches true on MarkDirty, cleared by the next exact update
	PendingUpdate bool
}

// Due reports whether an exact update runs this frame and resets the throttle if so
func (r *Reconciler) Due(c *Clock) bool {
	r.TicksSinceExact++
	if !r.PendingUpdate && !c.Due(r.Phase) {
		return false
	}
	r.TicksSinceExact = 0
	r.PendingUpdate = false
	return true
}

// MarkDirty forces an exact update on the next frame
func (r *Reconciler) MarkDirty() {
	r.PendingUpdate = true
}
