package parameter

// Point-mass vehicle
const (
	// VehicleEngineAccel is the forward acceleration at full throttle (cm/s²)
	VehicleEngineAccel = 1200.0

	// VehicleReverseScale scales engine acceleration in reverse
	VehicleReverseScale = 0.6

	// VehicleDragCoefficient gives drag acceleration as coefficient * speed² (1/cm)
	VehicleDragCoefficient = 0.000025

	// VehicleRollingResistance is the deceleration while rolling (cm/s²)
	VehicleRollingResistance = 50.0

	// VehicleGravity (cm/s²)
	VehicleGravity = 980.0

	// VehicleMaxYawRate at full lock (deg/s)
	VehicleMaxYawRate = 120.0

	// VehicleSteerFullSpeedKph is the speed at which full yaw authority is reached
	VehicleSteerFullSpeedKph = 30.0

	// VehicleGrip is the decay rate of sideways velocity (1/s)
	VehicleGrip = 8.0

	// VehicleHandbrakeGrip replaces grip while the handbrake is held (1/s)
	VehicleHandbrakeGrip = 1.5

	// VehicleHandbrakeDecel (cm/s²)
	VehicleHandbrakeDecel = 1500.0

	VehicleGearSpeedRangeKph = 60.0

	// VehicleRadius is the collision radius on the ground plane (cm)
	VehicleRadius = 200.0
)
