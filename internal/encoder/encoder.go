package encoder

import "github.com/junsooki/RCSumo/internal/capture"

// Encoder transcodes raw camera frames to JPEG.
//
// Buffers returned by Encode belong to the caller until handed back with Free.
type Encoder interface {
	Encode(f *capture.Frame) ([]byte, error)
	Free(buf []byte)
}
