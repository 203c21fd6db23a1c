package physics

import "github.com/lixenwraith/pursuit/parameter"

// Profile describes a point-mass vehicle; all forces are per unit mass
type Profile struct {
	EngineAccel       float64 // full throttle acceleration (cm/s²)
	ReverseScale      float64 // engine scale when reversing
	DragCoefficient   float64 // drag = coefficient * speed² (1/cm)
	RollingResistance float64 // (cm/s²)
	Gravity           float64 // (cm/s²)

	MaxYawRate        float64 // full lock (deg/s)
	SteerFullSpeedKph float64 // yaw authority ramps in up to this speed
	Grip              float64 // sideways velocity decay (1/s)
	HandbrakeGrip     float64
	HandbrakeDecel    float64 // (cm/s²)

	GearSpeedRangeKph float64
	Radius            float64 // collision radius (cm)
}

// Stock is the default vehicle
var Stock = Profile{
	EngineAccel:       parameter.VehicleEngineAccel,
	ReverseScale:      parameter.VehicleReverseScale,
	DragCoefficient:   parameter.VehicleDragCoefficient,
	RollingResistance: parameter.VehicleRollingResistance,
	Gravity:           parameter.VehicleGravity,
	MaxYawRate:        parameter.VehicleMaxYawRate,
	SteerFullSpeedKph: parameter.VehicleSteerFullSpeedKph,
	Grip:              parameter.VehicleGrip,
	HandbrakeGrip:     parameter.VehicleHandbrakeGrip,
	HandbrakeDecel:    parameter.VehicleHandbrakeDecel,
	GearSpeedRangeKph: parameter.VehicleGearSpeedRangeKph,
	Radius:            parameter.VehicleRadius,
}

// Heavy accelerates slower with a higher top speed and less grip
var Heavy = Profile{
	EngineAccel:       parameter.VehicleEngineAccel * 0.8,
	ReverseScale:      parameter.VehicleReverseScale,
	DragCoefficient:   parameter.VehicleDragCoefficient * 0.6,
	RollingResistance: parameter.VehicleRollingResistance * 1.5,
	Gravity:           parameter.VehicleGravity,
	MaxYawRate:        parameter.VehicleMaxYawRate * 0.75,
	SteerFullSpeedKph: parameter.VehicleSteerFullSpeedKph,
	Grip:              parameter.VehicleGrip * 0.7,
	HandbrakeGrip:     parameter.VehicleHandbrakeGrip,
	HandbrakeDecel:    parameter.VehicleHandbrakeDecel * 0.8,
	GearSpeedRangeKph: parameter.VehicleGearSpeedRangeKph * 1.2,
	Radius:            parameter.VehicleRadius * 1.25,
}

// Profiles lists the named profiles for command line selection
var Profiles = map[string]Profile{
	"stock": Stock,
	"heavy": Heavy,
}
