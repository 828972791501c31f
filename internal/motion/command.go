package motion

import (
	"fmt"
	"strings"
)

// Direction names one motion command.
type Direction string

const (
	Forward  Direction = "forward"
	Backward Direction = "backward"
	Left     Direction = "left"
	Right    Direction = "right"
	Stop     Direction = "stop"
)

// Directions lists every command in the order the control page shows them.
func Directions() []Direction {
	return []Direction{Forward, Backward, Left, Right, Stop}
}

// ParseDirection accepts a direction name in any case.
func ParseDirection(s string) (Direction, error) {
	d := Direction(strings.ToLower(strings.TrimSpace(s)))
	switch d {
	case Forward, Backward, Left, Right, Stop:
		return d, nil
	}
	return "", fmt.Errorf("unknown direction %q", s)
}

// Command is the wire format of a motion command on the websocket and
// WebRTC control channels.
type Command struct {
	Direction Direction `json:"direction"`
}

// Dispatch calls the actuator method matching d.
func Dispatch(a Actuator, d Direction) error {
	switch d {
	case Forward:
		return a.Forward()
	case Backward:
		return a.Backward()
	case Left:
		return a.Left()
	case Right:
		return a.Right()
	case Stop:
		return a.Stop()
	}
	return fmt.Errorf("unknown direction %q", d)
}
