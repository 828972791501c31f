package motion

import "math"

// DirectionFromAxes maps a joystick position to a command. Axis values within
// deadzone of the centre count as zero; the horizontal axis wins when both
// are deflected. Negative y is up.
func DirectionFromAxes(x, y, deadzone float64) Direction {
	if math.Abs(x) <= deadzone {
		x = 0
	}
	if math.Abs(y) <= deadzone {
		y = 0
	}
	switch {
	case x < 0:
		return Left
	case x > 0:
		return Right
	case y < 0:
		return Forward
	case y > 0:
		return Backward
	default:
		return Stop
	}
}
