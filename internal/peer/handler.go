package peer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"

	"github.com/junsooki/RCSumo/internal/logging"
	"github.com/junsooki/RCSumo/internal/motion"
	"github.com/junsooki/RCSumo/internal/stream"
	"github.com/junsooki/RCSumo/internal/transport"
)

const (
	maxOfferBytes      = 64 << 10
	defaultOpenTimeout = 15 * time.Second
)

// Streamer runs one stream session at a time over a chunk writer.
type Streamer interface {
	Run(ctx context.Context, w transport.ChunkWriter) error
	Stats() stream.Stats
}

// OfferConfig wires the WebRTC offer endpoint.
type OfferConfig struct {
	Streamer   Streamer
	Actuator   motion.Actuator
	ICEServers []webrtc.ICEServer
	Logger     *slog.Logger
	// OpenTimeout bounds the wait for the frames channel after answering.
	OpenTimeout time.Duration
}

// OfferHandler answers WebRTC offers and streams to the connected peer.
type OfferHandler struct {
	base        context.Context
	streamer    Streamer
	act         motion.Actuator
	iceServers  []webrtc.ICEServer
	openTimeout time.Duration
	logger      *slog.Logger
}

// NewOfferHandler creates the handler. Sessions it starts end when ctx is
// cancelled.
func NewOfferHandler(ctx context.Context, cfg OfferConfig) *OfferHandler {
	timeout := cfg.OpenTimeout
	if timeout <= 0 {
		timeout = defaultOpenTimeout
	}
	return &OfferHandler{
		base:        ctx,
		streamer:    cfg.Streamer,
		act:         cfg.Actuator,
		iceServers:  cfg.ICEServers,
		openTimeout: timeout,
		logger:      logging.WithComponent(cfg.Logger, "webrtc"),
	}
}

func (h *OfferHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var offer webrtc.SessionDescription
	if err := json.NewDecoder(io.LimitReader(r.Body, maxOfferBytes)).Decode(&offer); err != nil {
		http.Error(w, "invalid offer: "+err.Error(), http.StatusBadRequest)
		return
	}
	if offer.Type != webrtc.SDPTypeOffer || offer.SDP == "" {
		http.Error(w, "invalid offer: expected type \"offer\" with sdp", http.StatusBadRequest)
		return
	}
	if h.streamer.Stats().Streaming {
		w.Header().Set("Retry-After", "1")
		http.Error(w, "stream busy", http.StatusServiceUnavailable)
		return
	}

	id := uuid.NewString()
	logger := h.logger.With("stream_id", id)
	host, err := NewHost(HostConfig{ICEServers: h.iceServers, Logger: logger})
	if err != nil {
		logger.Error("create webrtc host", "error", err)
		http.Error(w, "webrtc unavailable", http.StatusInternalServerError)
		return
	}
	host.Transport().OnCommand(h.command(logger))

	answer, err := host.Answer(r.Context(), offer)
	if err != nil {
		host.Close()
		logger.Warn("answer offer", "error", err)
		http.Error(w, "cannot answer offer: "+err.Error(), http.StatusBadRequest)
		return
	}

	go h.serve(host, id, logger)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(answer); err != nil {
		logger.Warn("write answer", "error", err)
	}
}

func (h *OfferHandler) serve(host *Host, id string, logger *slog.Logger) {
	defer host.Close()

	ctx, cancel := context.WithCancel(logging.ContextWithStreamID(h.base, id))
	defer cancel()

	timer := time.NewTimer(h.openTimeout)
	defer timer.Stop()
	select {
	case <-host.FramesOpen():
	case <-host.Done():
		logger.Info("peer left before the frames channel opened")
		return
	case <-ctx.Done():
		return
	case <-timer.C:
		logger.Warn("frames channel did not open", "timeout", h.openTimeout)
		return
	}

	go func() {
		select {
		case <-host.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	err := h.streamer.Run(ctx, host.Transport())
	switch {
	case errors.Is(err, stream.ErrBusy):
		logger.Warn("stream busy, closing peer")
	case err != nil:
		logger.Warn("webrtc stream ended", "error", err)
	}

	// Losing the viewer must not leave the motors running.
	if h.act != nil {
		if err := h.act.Stop(); err != nil {
			logger.Warn("stop after disconnect", "error", err)
		}
	}
}

func (h *OfferHandler) command(logger *slog.Logger) func([]byte) {
	return func(data []byte) {
		if h.act == nil {
			return
		}
		var cmd motion.Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			logger.Warn("invalid control message", "error", err)
			return
		}
		d, err := motion.ParseDirection(string(cmd.Direction))
		if err != nil {
			logger.Warn("invalid control message", "error", err)
			return
		}
		if err := motion.Dispatch(h.act, d); err != nil {
			logger.Warn("motion failed", "direction", string(d), "error", err)
		}
	}
}
