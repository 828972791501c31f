package peer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/junsooki/RCSumo/internal/transport"
)

// HostConfig configures the rover side of a WebRTC session.
type HostConfig struct {
	ICEServers []webrtc.ICEServer
	Logger     *slog.Logger
}

// Host manages the rover side of one WebRTC connection. It opens the ordered
// frames channel itself and accepts the control channel from the viewer.
type Host struct {
	pc        *webrtc.PeerConnection
	transport *transport.DataChannelTransport
	logger    *slog.Logger

	framesOpen chan struct{}
	done       chan struct{}
	doneOnce   sync.Once
}

// NewHost creates a Host peer manager.
func NewHost(cfg HostConfig) (*Host, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pc, err := NewPeerConnection(cfg.ICEServers)
	if err != nil {
		return nil, fmt.Errorf("new peer connection: %w", err)
	}

	// The multipart stream is a byte stream, so frames must arrive complete
	// and in order.
	ordered := true
	framesDC, err := pc.CreateDataChannel(FramesLabel, &webrtc.DataChannelInit{Ordered: &ordered})
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("create frames channel: %w", err)
	}

	h := &Host{
		pc:         pc,
		transport:  transport.NewDataChannelTransport(framesDC, nil),
		logger:     logger,
		framesOpen: make(chan struct{}),
		done:       make(chan struct{}),
	}

	framesDC.OnOpen(func() {
		logger.Info("frames data channel open")
		close(h.framesOpen)
	})
	framesDC.OnClose(h.markDone)

	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() != ControlLabel {
			logger.Warn("ignoring data channel", "label", dc.Label())
			return
		}
		logger.Info("control data channel received")
		h.transport.SetControlChannel(dc)
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		logger.Info("peer connection state", "state", state.String())
		switch state {
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
			h.markDone()
		}
	})

	return h, nil
}

// Transport returns the DataChannelTransport for sending frames and receiving
// commands.
func (h *Host) Transport() *transport.DataChannelTransport {
	return h.transport
}

// Answer applies the remote offer and returns the local answer once ICE
// gathering has finished, so the answer carries every candidate.
func (h *Host) Answer(ctx context.Context, offer webrtc.SessionDescription) (*webrtc.SessionDescription, error) {
	if err := h.pc.SetRemoteDescription(offer); err != nil {
		return nil, fmt.Errorf("set remote description: %w", err)
	}
	answer, err := h.pc.CreateAnswer(nil)
	if err != nil {
		return nil, fmt.Errorf("create answer: %w", err)
	}
	gathered := webrtc.GatheringCompletePromise(h.pc)
	if err := h.pc.SetLocalDescription(answer); err != nil {
		return nil, fmt.Errorf("set local description: %w", err)
	}
	select {
	case <-gathered:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return h.pc.LocalDescription(), nil
}

// FramesOpen is closed when the frames channel can carry data.
func (h *Host) FramesOpen() <-chan struct{} {
	return h.framesOpen
}

// Done is closed when the connection failed or was closed.
func (h *Host) Done() <-chan struct{} {
	return h.done
}

// Close shuts down the peer connection.
func (h *Host) Close() {
	if err := h.pc.Close(); err != nil {
		h.logger.Debug("close peer connection", "error", err)
	}
	h.markDone()
}

func (h *Host) markDone() {
	h.doneOnce.Do(func() { close(h.done) })
}
