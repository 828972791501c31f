package stream

import (
	"github.com/junsooki/RCSumo/internal/capture"
	"github.com/junsooki/RCSumo/internal/encoder"
)

// Owner identifies who must reclaim a payload buffer.
type Owner int

const (
	// OwnerCamera payloads alias a camera frame and go back to the camera.
	OwnerCamera Owner = iota + 1
	// OwnerEncoder payloads were allocated by the encoder and go back to it.
	OwnerEncoder
)

func (o Owner) String() string {
	switch o {
	case OwnerCamera:
		return "camera"
	case OwnerEncoder:
		return "encoder"
	default:
		return "unknown"
	}
}

// Payload is one JPEG image ready to be framed, together with its owner.
type Payload struct {
	Data  []byte
	Owner Owner

	cam      capture.Camera
	frame    *capture.Frame
	enc      encoder.Encoder
	released bool
}

func cameraPayload(cam capture.Camera, f *capture.Frame) *Payload {
	return &Payload{Data: f.Buf, Owner: OwnerCamera, cam: cam, frame: f}
}

func encoderPayload(enc encoder.Encoder, data []byte) *Payload {
	return &Payload{Data: data, Owner: OwnerEncoder, enc: enc}
}

// Release hands the buffer back to its owner. Later calls do nothing.
func (p *Payload) Release() {
	if p == nil || p.released {
		return
	}
	p.released = true
	switch p.Owner {
	case OwnerCamera:
		p.cam.Return(p.frame)
		p.frame = nil
	case OwnerEncoder:
		p.enc.Free(p.Data)
	}
	p.Data = nil
}
