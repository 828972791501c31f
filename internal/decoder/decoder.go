// Package decoder turns received JPEG frames into RGBA images for display.
package decoder

import (
	"errors"
	"image"
)

// ErrEmpty is returned for a zero-length frame.
var ErrEmpty = errors.New("empty frame")

// Decoder decodes bytes into an image.
type Decoder interface {
	Decode(data []byte) (*image.RGBA, error)
}
