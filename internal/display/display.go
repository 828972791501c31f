// Package display shows the rover camera and turns keys and gamepads into
// motion commands.
package display

import (
	"image"

	"github.com/junsooki/RCSumo/internal/motion"
)

// Display renders frames and captures user input.
type Display interface {
	SetFrame(img *image.RGBA)
	Run() error
}

// CommandCallback is called whenever the requested direction changes.
type CommandCallback func(d motion.Direction)
