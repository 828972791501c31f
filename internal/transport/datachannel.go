package transport

import (
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"
)

// maxMessageSize keeps data channel messages well under the SCTP limit most
// browsers negotiate.
const maxMessageSize = 16 * 1024

var (
	_ ChunkWriter     = (*DataChannelTransport)(nil)
	_ CommandReceiver = (*DataChannelTransport)(nil)
)

// DataChannelTransport streams chunks over a WebRTC "frames" data channel and
// receives motion commands on a "control" data channel.
type DataChannelTransport struct {
	mu       sync.Mutex
	framesDC *webrtc.DataChannel

	onCommand func(data []byte)
}

// NewDataChannelTransport wraps the frames and control channels. Either may be nil
// and set later.
func NewDataChannelTransport(framesDC, controlDC *webrtc.DataChannel) *DataChannelTransport {
	t := &DataChannelTransport{framesDC: framesDC}
	if controlDC != nil {
		t.SetControlChannel(controlDC)
	}
	return t
}

// SetContentType announces the stream type as a text message so the peer can
// find the multipart boundary.
func (t *DataChannelTransport) SetContentType(contentType string) error {
	dc, err := t.frames()
	if err != nil {
		return err
	}
	if err := dc.SendText(contentType); err != nil {
		return fmt.Errorf("send content type: %w", err)
	}
	return nil
}

// SendChunk sends p as one or more binary messages.
func (t *DataChannelTransport) SendChunk(p []byte) error {
	dc, err := t.frames()
	if err != nil {
		return err
	}
	for len(p) > 0 {
		n := min(len(p), maxMessageSize)
		if err := dc.Send(p[:n]); err != nil {
			return fmt.Errorf("send chunk: %w", err)
		}
		p = p[n:]
	}
	return nil
}

func (t *DataChannelTransport) frames() (*webrtc.DataChannel, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.framesDC == nil {
		return nil, fmt.Errorf("frames data channel not set")
	}
	if t.framesDC.ReadyState() != webrtc.DataChannelStateOpen {
		return nil, ErrClosed
	}
	return t.framesDC, nil
}

// OnCommand registers the handler for control channel messages.
func (t *DataChannelTransport) OnCommand(cb func(data []byte)) {
	t.mu.Lock()
	t.onCommand = cb
	t.mu.Unlock()
}

// SetFramesChannel sets or replaces the frames DataChannel.
func (t *DataChannelTransport) SetFramesChannel(dc *webrtc.DataChannel) {
	t.mu.Lock()
	t.framesDC = dc
	t.mu.Unlock()
}

// SetControlChannel routes messages from dc to the command callback.
func (t *DataChannelTransport) SetControlChannel(dc *webrtc.DataChannel) {
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		t.mu.Lock()
		cb := t.onCommand
		t.mu.Unlock()
		if cb != nil {
			cb(msg.Data)
		}
	})
}
