package motion

// Actuator drives the robot.
type Actuator interface {
	Forward() error
	Backward() error
	Left() error
	Right() error
	Stop() error
}
