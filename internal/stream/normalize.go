package stream

import (
	"github.com/junsooki/RCSumo/internal/capture"
	"github.com/junsooki/RCSumo/internal/encoder"
)

// Normalize turns a captured frame into a JPEG payload. JPEG frames are passed
// through without copying and stay owned by the camera. Other frames are
// encoded and returned to the camera straight away, whether or not encoding
// worked.
func Normalize(cam capture.Camera, enc encoder.Encoder, f *capture.Frame) (*Payload, error) {
	if f == nil {
		return nil, &Error{State: StateCapture, Kind: ErrCapture}
	}
	if f.Format == capture.PixelFormatJPEG {
		return cameraPayload(cam, f), nil
	}

	data, err := enc.Encode(f)
	cam.Return(f)
	if err != nil {
		return nil, &Error{State: StateNormalize, Kind: ErrEncode, Err: err}
	}
	return encoderPayload(enc, data), nil
}
