package encoder

import (
	"bytes"
	"errors"
	"fmt"
	"image/jpeg"
	"sync"

	"github.com/junsooki/RCSumo/internal/capture"
)

// DefaultQuality matches the quality the rover firmware streams at.
const DefaultQuality = 80

// ErrNoFrame is returned when Encode is called without a frame.
var ErrNoFrame = errors.New("encode: nil frame")

// JPEGEncoder encodes raw frames as JPEG into pooled buffers.
type JPEGEncoder struct {
	quality int
	pool    sync.Pool
}

// NewJPEGEncoder creates a JPEG encoder with the given quality (1-100).
func NewJPEGEncoder(quality int) *JPEGEncoder {
	if quality < 1 {
		quality = 1
	}
	if quality > 100 {
		quality = 100
	}
	return &JPEGEncoder{quality: quality}
}

// Quality returns the clamped encode quality.
func (e *JPEGEncoder) Quality() int {
	return e.quality
}

func (e *JPEGEncoder) Encode(f *capture.Frame) ([]byte, error) {
	if f == nil {
		return nil, ErrNoFrame
	}
	img, err := f.Image()
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}

	var dst []byte
	if p, ok := e.pool.Get().(*[]byte); ok {
		dst = (*p)[:0]
	} else {
		dst = make([]byte, 0, 64*1024)
	}
	buf := bytes.NewBuffer(dst)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: e.quality}); err != nil {
		e.Free(dst)
		return nil, fmt.Errorf("encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Free returns a buffer produced by Encode to the pool.
func (e *JPEGEncoder) Free(buf []byte) {
	if cap(buf) == 0 {
		return
	}
	buf = buf[:0]
	e.pool.Put(&buf)
}
