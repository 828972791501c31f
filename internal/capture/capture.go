package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"
)

// PixelFormat tags the encoding of a frame buffer.
type PixelFormat int

const (
	PixelFormatRGBA PixelFormat = iota
	PixelFormatGray
	PixelFormatJPEG
)

func (p PixelFormat) String() string {
	switch p {
	case PixelFormatRGBA:
		return "rgba"
	case PixelFormatGray:
		return "gray"
	case PixelFormatJPEG:
		return "jpeg"
	default:
		return fmt.Sprintf("PixelFormat(%d)", int(p))
	}
}

var (
	// ErrTimeout is returned when no frame became available in time.
	ErrTimeout = errors.New("capture timeout")
	// ErrClosed is returned by Get after the camera has been closed.
	ErrClosed = errors.New("camera closed")
	// ErrDoubleReturn is reported when a frame is returned twice.
	ErrDoubleReturn = errors.New("frame returned twice")
)

// Frame represents one captured camera frame.
type Frame struct {
	Buf       []byte
	Width     int
	Height    int
	Format    PixelFormat
	Timestamp time.Time

	returned bool
}

// Len returns the byte length of the frame buffer.
func (f *Frame) Len() int {
	return len(f.Buf)
}

// Image wraps a raw frame buffer as an image without copying.
func (f *Frame) Image() (image.Image, error) {
	rect := image.Rect(0, 0, f.Width, f.Height)
	switch f.Format {
	case PixelFormatRGBA:
		if len(f.Buf) < 4*f.Width*f.Height {
			return nil, fmt.Errorf("rgba frame: short buffer (%d bytes for %dx%d)", len(f.Buf), f.Width, f.Height)
		}
		return &image.RGBA{Pix: f.Buf, Stride: 4 * f.Width, Rect: rect}, nil
	case PixelFormatGray:
		if len(f.Buf) < f.Width*f.Height {
			return nil, fmt.Errorf("gray frame: short buffer (%d bytes for %dx%d)", len(f.Buf), f.Width, f.Height)
		}
		return &image.Gray{Pix: f.Buf, Stride: f.Width, Rect: rect}, nil
	default:
		return nil, fmt.Errorf("frame format %s is not raw", f.Format)
	}
}

// Camera hands out frames. Every frame returned by Get is owned by the camera
// and must be given back with Return exactly once.
type Camera interface {
	Get(ctx context.Context) (*Frame, error)
	Return(f *Frame)
}
