package drive

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/lixenwraith/pursuit/parameter"
	"github.com/lixenwraith/pursuit/vmath"
)

// Config tunes the driving state machine
type Config struct {
	// Difficulty 0-3; 2 flips a coin for pro recovery on each recovery, 3 always uses it
	Difficulty int `toml:"difficulty"`

	LostControlYawRate     float64 `toml:"lost_control_yaw_rate"`
	LostControlHeadingDot  float64 `toml:"lost_control_heading_dot"`
	LostControlMinSpeedKph float64 `toml:"lost_control_min_speed_kph"`
	RecoveryCooldown       float64 `toml:"recovery_cooldown"`

	ReverseModeTimeout          float64 `toml:"reverse_mode_timeout"`
	ReverseFromBlockageDistance float64 `toml:"reverse_from_blockage_distance"`

	StuckThrust           float64 `toml:"stuck_thrust"`
	StuckMinThrustHistory float64 `toml:"stuck_min_thrust_history"`
	StuckMinRaceTime      float64 `toml:"stuck_min_race_time"`

	SteeringGain   float64 `toml:"steering_gain"`
	SpeedVariation float64 `toml:"speed_variation"`
	WeavingRate    float64 `toml:"weaving_rate"`
}

func DefaultConfig() Config {
	return Config{
		Difficulty:                  2,
		LostControlYawRate:          parameter.LostControlYawRate,
		LostControlHeadingDot:       parameter.LostControlHeadingDot,
		LostControlMinSpeedKph:      parameter.LostControlMinSpeedKph,
		RecoveryCooldown:            parameter.RecoveryCooldown,
		ReverseModeTimeout:          parameter.ReverseModeTimeout,
		ReverseFromBlockageDistance: parameter.ReverseFromBlockageDistance,
		StuckThrust:                 parameter.StuckThrust,
		StuckMinThrustHistory:       parameter.StuckMinThrustHistory,
		StuckMinRaceTime:            parameter.StuckMinRaceTime,
		SteeringGain:                parameter.SteeringGain,
		SpeedVariation:              parameter.SpeedVariation,
		WeavingRate:                 parameter.WeavingRate,
	}
}

// Input is one tick of kinematics and navigation state
type Input struct {
	Delta    float64
	RaceTime float64

	// Started is false on the grid; the handbrake stays on
	Started bool

	Transform vmath.Transform
	Velocity  r3.Vector
	Movement  r3.Vector

	// YawRate is the angular velocity around the vehicle's up axis (deg/s)
	YawRate  float64
	Grounded bool
	Flipped  bool
	Blockage Blockage

	// Thrust is the throttle the vehicle actually applied since the last tick
	Thrust float64

	// HeadingTo is the world aim point, PathDirection the path tangent at the agent
	HeadingTo     r3.Vector
	PathDirection r3.Vector

	// OptimumSpeedKph is already shaped; zero means unlimited
	OptimumSpeedKph float64
}

// Intent is the control output for one tick
type Intent struct {
	Throttle  float64
	Steering  float64
	Handbrake bool

	LaunchCharging bool
	Launch         bool

	// Relocalize asks the route follower for a fresh graph search
	Relocalize bool
}

// Controller runs the driving state machine for one agent
type Controller struct {
	cfg     Config
	vehicle Vehicle
	rng     *vmath.FastRand

	clock        float64
	mode         Mode
	modeTime     float64
	modeDistance float64
	modeLast     [numModes]float64

	useProRecovery         bool
	reorientationStage     int
	reorientationDirection float64

	launchCharging bool
	launchTimer    float64

	steering float64
	throttle float64

	Thrust           History
	Speed            History
	ForwardSpeed     History
	BackwardSpeed    History
	ForwardDistance  History
	BackwardDistance History
	YawVsVelocity    History

	fishtailing      bool
	fishtailRecovery float64

	Weave Weave
}

// NewController creates a controller in GeneralManeuvering
func NewController(cfg Config, vehicle Vehicle, seed uint64) *Controller {
	c := &Controller{
		cfg:     cfg,
		vehicle: vehicle,
		rng:     vmath.NewFastRand(seed),
		Weave:   newWeave(cfg.WeavingRate),
	}
	for i := range c.modeLast {
		c.modeLast[i] = math.Inf(-1)
	}
	return c
}

func (c *Controller) Mode() Mode { return c.mode }

func (c *Controller) ModeTime() float64 { return c.modeTime }

func (c *Controller) ModeDistance() float64 { return c.modeDistance }

func (c *Controller) Clock() float64 { return c.clock }

func (c *Controller) Fishtailing() bool { return c.fishtailing }

// SetMode switches mode and resets the per-mode timers
func (c *Controller) SetMode(m Mode) {
	c.mode = m
	c.modeTime = 0
	c.modeDistance = 0

	switch m {
	case JTurnToReorient:
		c.reorientationStage = 0
	case RecoveringControl:
		switch c.cfg.Difficulty {
		case 2:
			c.useProRecovery = c.rng.Bool()
		case 3:
			c.useProRecovery = true
		default:
			c.useProRecovery = false
		}
	}
}

// TimeSince is the time since the agent was last in m, infinite if never
func (c *Controller) TimeSince(m Mode) float64 {
	return c.clock - c.modeLast[m]
}

// SinceBlockageReversal is the time since the last blockage reversal, negative if never
func (c *Controller) SinceBlockageReversal() float64 {
	if math.IsInf(c.modeLast[ReversingFromBlockage], -1) || c.mode != GeneralManeuvering {
		return -1
	}
	return c.TimeSince(ReversingFromBlockage)
}

// LimitOptimumSpeed caps the optimum speed while recovering control; zero is unlimited
func (c *Controller) LimitOptimumSpeed(kph float64) float64 {
	if c.mode == RecoveringControl && (kph == 0 || kph > parameter.RecoveringMaxSpeedKph) {
		return parameter.RecoveringMaxSpeedKph
	}
	return kph
}

// Update advances the state machine and computes control for one tick
func (c *Controller) Update(in Input) Intent {
	c.clock += in.Delta

	location := in.Transform.Location
	direction := in.Transform.ForwardVector()
	heading := vmath.SafeNormal(in.HeadingTo.Sub(location))

	var movementPerSecond r3.Vector
	if in.Delta > 0 {
		movementPerSecond = in.Movement.Mul(1 / in.Delta)
	}

	var intent Intent
	c.updateMode(&intent, in, movementPerSecond, direction, heading)
	c.modeTime += in.Delta

	c.controlInputs(&intent, in, direction)
	if in.Started {
		c.recordProgress(in, direction)
	}
	return intent
}

func (c *Controller) updateMode(intent *Intent, in Input, movementPerSecond, direction, heading r3.Vector) {
	c.modeLast[c.mode] = c.clock

	switch c.mode {
	case GeneralManeuvering:
		c.areWeStuck(intent, in, movementPerSecond, false)
		c.haveWeLostControl(in, direction, heading)
	case RecoveringControl:
		c.updateRecovering(intent, in, direction, heading)
	case ReversingToReorient:
		if c.modeTime > c.cfg.ReverseModeTimeout || !c.MovementPossible(in.RaceTime) ||
			c.areWeStuck(intent, in, movementPerSecond, true) || direction.Dot(heading) > parameter.ReverseExitDot {
			c.SetMode(GeneralManeuvering)
		}
	case ReversingFromBlockage:
		if c.modeTime > c.cfg.ReverseModeTimeout || !c.MovementPossible(in.RaceTime) ||
			c.areWeStuck(intent, in, movementPerSecond, true) || c.modeDistance > c.cfg.ReverseFromBlockageDistance {
			c.SetMode(GeneralManeuvering)
		}
	case LaunchToReorient:
		c.updateLaunch(intent, in, direction, heading)
	case JTurnToReorient:
		c.updateJTurn(in, direction, heading)
	}
}

func (c *Controller) haveWeLostControl(in Input, direction, heading r3.Vector) {
	speedKph := vmath.ToKph(in.Velocity.Norm())
	spinning := math.Abs(in.YawRate) > c.cfg.LostControlYawRate
	misaligned := direction.Dot(heading) < c.cfg.LostControlHeadingDot && speedKph > c.cfg.LostControlMinSpeedKph
	if (spinning || misaligned) && c.TimeSince(RecoveringControl) > c.cfg.RecoveryCooldown {
		c.SetMode(RecoveringControl)
	}
}

// reorientReady checks the shared preconditions of the pro recovery maneuvers
func (c *Controller) reorientReady(in Input, angleAway, pathAngleAway float64) bool {
	upright := vmath.DotToDegrees(in.Transform.UpVector().Dot(vmath.Up)) < 45
	return c.useProRecovery && upright &&
		(angleAway > 135 || pathAngleAway > 135) &&
		in.Grounded && math.Abs(in.YawRate) < parameter.ReorientMaxYawRate
}

func (c *Controller) updateRecovering(intent *Intent, in Input, direction, heading r3.Vector) {
	const maxAngleAway = 45.0

	angleAway := vmath.DotToDegrees(direction.Dot(heading))
	if angleAway < maxAngleAway && math.Abs(in.YawRate) < vmath.Lerp(125, 75, angleAway/maxAngleAway) {
		c.SetMode(GeneralManeuvering)
		return
	}

	pathAngleAway := vmath.DotToDegrees(direction.Dot(vmath.SafeNormal(in.PathDirection)))
	speedKph := vmath.ToKph(in.Velocity.Norm())

	switch {
	case c.reorientReady(in, angleAway, pathAngleAway) && !in.Blockage.Has(BlockedLeft|BlockedRight):
		c.SetMode(JTurnToReorient)
	case c.reorientReady(in, angleAway, pathAngleAway) && speedKph < parameter.LaunchMaxSpeedKph:
		c.launchCharging = true
		c.launchTimer = 0
		intent.LaunchCharging = true
		c.SetMode(LaunchToReorient)
	case math.Abs(in.YawRate) < 75 && speedKph < vmath.Lerp(250, 125, math.Min(1, angleAway/maxAngleAway)):
		if angleAway > 135 {
			c.SetMode(ReversingToReorient)
		} else {
			c.SetMode(GeneralManeuvering)
		}
	}
}

func (c *Controller) updateLaunch(intent *Intent, in Input, direction, heading r3.Vector) {
	angleAway := vmath.DotToDegrees(direction.Dot(heading))
	pathAngleAway := vmath.DotToDegrees(direction.Dot(vmath.SafeNormal(in.PathDirection)))

	if (angleAway > 125 || pathAngleAway > 125) && c.launchCharging {
		c.launchTimer += in.Delta
		intent.LaunchCharging = true
		if c.launchTimer >= parameter.LaunchMinCharge && in.Grounded {
			c.launchCharging = false
			intent.LaunchCharging = false
			intent.Launch = true
			c.SetMode(GeneralManeuvering)
		}
		return
	}

	c.launchCharging = false
	c.SetMode(RecoveringControl)
}

func (c *Controller) updateJTurn(in Input, direction, heading r3.Vector) {
	angleAway := vmath.DotToDegrees(direction.Dot(heading))
	speedKph := vmath.ToKph(in.Velocity.Norm())

	if c.modeTime > parameter.JTurnTimeout {
		if angleAway > 120 {
			c.SetMode(LaunchToReorient)
			c.launchCharging = true
			c.launchTimer = 0
		} else {
			c.SetMode(RecoveringControl)
		}
		return
	}

	gearRange := 0.0
	if c.vehicle != nil {
		gearRange = c.vehicle.GearSpeedRangeKph()
	}
	switch c.reorientationStage {
	case 0:
		// Build up reverse speed to swing the front around
		if speedKph >= gearRange*1.6 || (c.modeTime > 2.5 && speedKph >= gearRange*1.5) {
			c.reorientationStage = 1
		}
	case 1:
		// Full lock, then the handbrake follows it through
		if angleAway < 120 || math.Abs(c.steering) >= 1-vmath.SmallNumber {
			c.reorientationStage = 2
		}
	case 2:
		if angleAway < 45 || speedKph < 50 {
			c.SetMode(GeneralManeuvering)
		}
	}
}

// areWeStuck detects thrust without movement and switches mode
func (c *Controller) areWeStuck(intent *Intent, in Input, movementPerSecond r3.Vector, reversing bool) bool {
	halfSecond := c.clock - parameter.StuckQuickWindow
	oneSecond := c.clock - parameter.StuckSlowThrustWindow
	twoSeconds := c.clock - parameter.StuckSlowSpeedWindow

	raceUnderway := in.RaceTime > c.cfg.StuckMinRaceTime
	enoughHistory := c.Thrust.TimeRange() >= c.cfg.StuckMinThrustHistory

	if reversing {
		if raceUnderway && enoughHistory &&
			c.Thrust.MeanValue(halfSecond) < -c.cfg.StuckThrust &&
			c.BackwardSpeed.MeanValue(halfSecond) < parameter.StuckQuickSpeed &&
			in.Blockage.Has(BlockedRear) {
			intent.Relocalize = true
			c.SetMode(GeneralManeuvering)
			return true
		}
		return false
	}

	if raceUnderway && enoughHistory &&
		c.Thrust.MeanValue(halfSecond) > c.cfg.StuckThrust &&
		c.ForwardSpeed.MeanValue(halfSecond) < parameter.StuckQuickSpeed &&
		in.Blockage.Has(BlockedFront) {
		intent.Relocalize = true
		c.SetMode(ReversingFromBlockage)
		return true
	}

	slow := raceUnderway && enoughHistory &&
		c.Thrust.MeanValue(oneSecond) > c.cfg.StuckThrust &&
		c.ForwardSpeed.MeanValue(twoSeconds) < parameter.StuckSlowSpeed &&
		movementPerSecond.Norm() < parameter.StuckSlowSpeed &&
		c.TimeSince(ReversingFromBlockage) > parameter.StuckSlowReverseGap &&
		c.TimeSince(ReversingToReorient) > parameter.StuckSlowReverseGap
	if slow || !c.MovementPossible(in.RaceTime) {
		intent.Relocalize = true
		c.SetMode(ReversingFromBlockage)
		return true
	}
	return false
}

// MovementPossible is false when sustained heavy thrust has barely moved the vehicle
func (c *Controller) MovementPossible(raceTime float64) bool {
	if raceTime > c.cfg.StuckMinRaceTime && c.modeTime > parameter.ImmobileModeTime &&
		c.Thrust.AbsMeanValue(AllTime) > parameter.ImmobileThrust {
		since := c.clock - parameter.StuckSlowSpeedWindow
		if c.ForwardDistance.SumValue(since)+c.BackwardDistance.SumValue(since) < parameter.ImmobileDistance {
			return false
		}
	}
	return true
}

func (c *Controller) controlInputs(intent *Intent, in Input, direction r3.Vector) {
	throttle := 0.0
	handbrake := false

	switch c.mode {
	case JTurnToReorient:
		throttle = -1
		handbrake = c.reorientationStage == 2
	case ReversingToReorient, ReversingFromBlockage, LaunchToReorient:
		throttle = -1
	default:
		optimum := c.LimitOptimumSpeed(in.OptimumSpeedKph)
		switch {
		case optimum < 0.01:
			throttle = 1
		case c.mode == RecoveringControl:
			handbrake = true
		case c.vehicle != nil:
			throttle = ThrottleForSpeed(c.vehicle, direction, in.Velocity, vmath.Kph(optimum))
		default:
			throttle = 1
		}
		if !in.Started {
			handbrake = true
		}
		if c.fishtailing && c.fishtailRecovery != 0 {
			scale := parameter.FishtailThrottle
			throttle *= (1-c.fishtailRecovery*c.fishtailRecovery)*scale + scale
		}
	}

	local := vmath.SafeNormal(in.Transform.InverseTransformPosition(in.HeadingTo))
	if c.mode == LaunchToReorient || c.mode == JTurnToReorient {
		local = local.Mul(-1)
	}
	steer := math.Atan2(local.Y, local.X) / math.Pi * c.cfg.SteeringGain
	if in.Flipped {
		steer = -steer
	}
	if c.throttle < 0 && direction.Dot(vmath.SafeNormal(in.Velocity)) < 0 {
		steer = -steer
	}

	if c.mode == JTurnToReorient {
		if c.reorientationStage == 0 {
			c.reorientationDirection = vmath.UnitSign(steer)
		} else {
			steer = c.reorientationDirection
		}
	}

	c.steering = vmath.Clamp(steer, -1, 1)
	c.throttle = vmath.Clamp(throttle, -1, 1)

	intent.Throttle = c.throttle
	intent.Steering = c.steering
	intent.Handbrake = handbrake
}

// recordProgress keeps the thrust and movement history used for stuck detection
func (c *Controller) recordProgress(in Input, direction r3.Vector) {
	now := c.clock
	c.Thrust.AddValue(now, in.Thrust)

	speed := in.Velocity.Norm()
	c.Speed.AddValue(now, speed)

	size := in.Movement.Norm()
	dot := direction.Dot(vmath.SafeNormal(in.Movement))
	perSecond := 0.0
	if in.Delta > 0 {
		perSecond = size / in.Delta
	}

	if dot >= 0 {
		if in.Thrust > 0 {
			c.modeDistance += size
		}
		c.ForwardSpeed.AddValue(now, perSecond*dot)
		c.BackwardSpeed.AddValue(now, 0)
		c.ForwardDistance.AddValue(now, size)
		c.BackwardDistance.AddValue(now, 0)
	} else {
		if in.Thrust < 0 {
			c.modeDistance += size
		}
		c.ForwardSpeed.AddValue(now, 0)
		c.BackwardSpeed.AddValue(now, -perSecond*dot)
		c.BackwardDistance.AddValue(now, size)
		c.ForwardDistance.AddValue(now, 0)
	}

	velocityDirection := vmath.SafeNormal(in.Velocity)
	if velocityDirection == vmath.Zero {
		velocityDirection = direction
	}
	localVelocity := in.Transform.InverseTransformVector(velocityDirection)
	c.YawVsVelocity.AddValue(now, math.Atan2(localVelocity.Y, localVelocity.X)*180/math.Pi)

	expired := now - parameter.ProgressHistorySeconds
	for _, h := range []*History{&c.Thrust, &c.Speed, &c.ForwardSpeed, &c.BackwardSpeed, &c.ForwardDistance, &c.BackwardDistance} {
		h.Clear(expired)
	}
	if vmath.ToKph(speed) < 50 {
		c.YawVsVelocity.Reset()
	}

	c.updateFishtailing(in)
}

// updateFishtailing detects the back end swinging side to side
func (c *Controller) updateFishtailing(in Input) {
	fishtailing := false
	speedKph := vmath.ToKph(in.Velocity.Norm())

	if in.Grounded && speedKph > parameter.WeavingStartKph && c.YawVsVelocity.TimeRange() >= 3 {
		last := c.YawVsVelocity.LastTime()
		limit := 3.0
		if c.fishtailing {
			limit = 1
		}

		lastSide, lastSideTime := 0.0, 0.0
		switches := 0
		for i := c.YawVsVelocity.Len() - 1; i >= 0; i-- {
			t, yaw := c.YawVsVelocity.At(i)
			if last-t >= limit {
				break
			}
			if c.fishtailing {
				if math.Abs(yaw) > 5 {
					fishtailing = true
					break
				}
				continue
			}
			if math.Abs(yaw) <= 10 {
				continue
			}
			side := vmath.UnitSign(yaw)
			if side == lastSide {
				continue
			}
			switch {
			case lastSide == 0:
				switches++
			case lastSideTime-t < 2:
				switches++
			default:
				switches = 0
			}
			lastSide, lastSideTime = side, t
		}
		if !c.fishtailing {
			fishtailing = switches >= 2
		}
	}

	if fishtailing {
		c.fishtailRecovery = vmath.GravitateToTarget(c.fishtailRecovery, 1, in.Delta*2)
	} else {
		if c.fishtailing {
			c.YawVsVelocity.Reset()
		}
		c.fishtailRecovery = vmath.GravitateToTarget(c.fishtailRecovery, 0, in.Delta)
	}
	c.fishtailing = fishtailing
}
