package control

import (
	"github.com/junsooki/RCSumo/internal/motion"
	"github.com/junsooki/RCSumo/internal/stream"
)

// Message types for the motion websocket.
const (
	TypeCommand = "command"
	TypeOK      = "ok"
	TypeStats   = "stats"
	TypePing    = "ping"
	TypePong    = "pong"
	TypeError   = "error"
)

// Message is the envelope for all websocket messages.
type Message struct {
	Type      string           `json:"type"`
	Direction motion.Direction `json:"direction,omitempty"`
	Stats     *stream.Stats    `json:"stats,omitempty"`
	Msg       string           `json:"message,omitempty"`
	Timestamp int64            `json:"timestamp,omitempty"`
}
