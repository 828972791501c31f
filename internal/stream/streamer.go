// Package stream runs the MJPEG streaming loop: capture, normalize to JPEG,
// frame as multipart parts, write chunks and track the frame time.
package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/junsooki/RCSumo/internal/capture"
	"github.com/junsooki/RCSumo/internal/encoder"
	"github.com/junsooki/RCSumo/internal/filter"
	"github.com/junsooki/RCSumo/internal/logging"
	"github.com/junsooki/RCSumo/internal/mjpeg"
	"github.com/junsooki/RCSumo/internal/transport"
)

// DefaultFilterSize is the number of frame times averaged.
const DefaultFilterSize = 20

// State is a step of the streaming loop.
type State int

const (
	StateInit State = iota
	StateCapture
	StateNormalize
	StateSendHeader
	StateSendPayload
	StateSendBoundary
	StateRelease
	StateMetrics
	StateTerminated
)

var stateNames = [...]string{
	StateInit:         "init",
	StateCapture:      "capture",
	StateNormalize:    "normalize",
	StateSendHeader:   "send_header",
	StateSendPayload:  "send_payload",
	StateSendBoundary: "send_boundary",
	StateRelease:      "release",
	StateMetrics:      "metrics",
	StateTerminated:   "terminated",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

var boundaryMarker = []byte(mjpeg.BoundaryMarker)

// Config wires a Streamer to its collaborators.
type Config struct {
	Camera     capture.Camera
	Encoder    encoder.Encoder
	Timer      Timer
	FilterSize int
	Logger     *slog.Logger

	// OnTransition, when set, observes every state change.
	OnTransition func(from, to State)
}

// Streamer owns the frame-time filter and serves one stream at a time.
type Streamer struct {
	cam          capture.Camera
	enc          encoder.Encoder
	timer        Timer
	logger       *slog.Logger
	onTransition func(from, to State)

	// Only the goroutine holding active touches these.
	filter    *filter.RunningAverage
	lastFrame int64
	hasLast   bool

	active atomic.Bool
	stats  counters
}

// New creates a Streamer. A non-positive FilterSize leaves the frame-time
// filter in pass-through mode.
func New(cfg Config) (*Streamer, error) {
	if cfg.Camera == nil {
		return nil, fmt.Errorf("stream: camera is required")
	}
	if cfg.Encoder == nil {
		return nil, fmt.Errorf("stream: encoder is required")
	}
	timer := cfg.Timer
	if timer == nil {
		timer = NewMonotonicTimer()
	}
	logger := logging.WithComponent(cfg.Logger, "stream")

	avg := filter.New(cfg.FilterSize)
	if avg == nil {
		logger.Warn("frame time filter disabled, reporting raw frame times", "size", cfg.FilterSize)
	}
	return &Streamer{
		cam:          cfg.Camera,
		enc:          cfg.Encoder,
		timer:        timer,
		logger:       logger,
		onTransition: cfg.OnTransition,
		filter:       avg,
	}, nil
}

// Stats returns the current streaming metrics. Safe for concurrent use.
func (s *Streamer) Stats() Stats {
	return s.stats.snapshot(s.active.Load())
}

// Run streams frames to w until ctx is done or a capture, encode or write
// fails. It returns nil when the peer went away, ErrBusy when another stream
// is running, and an *Error otherwise.
func (s *Streamer) Run(ctx context.Context, w transport.ChunkWriter) error {
	if !s.active.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.active.Store(false)
	s.stats.sessions.Add(1)

	sess := &session{
		s:      s,
		ctx:    ctx,
		w:      w,
		logger: logging.WithContext(ctx, s.logger),
	}
	sess.logger.Info("stream started")

	state := StateInit
	for state != StateTerminated {
		next := sess.step(state)
		if s.onTransition != nil {
			s.onTransition(state, next)
		}
		state = next
	}
	s.hasLast = false

	err := sess.err
	if err != nil && errors.Is(err, ErrTransport) && ctx.Err() != nil {
		err = nil
	}
	if err != nil {
		s.stats.failures.Add(1)
		sess.logger.Warn("stream ended", "frames", sess.frames, "error", err)
		return err
	}
	sess.logger.Info("stream ended", "frames", sess.frames)
	return nil
}

type session struct {
	s      *Streamer
	ctx    context.Context
	w      transport.ChunkWriter
	logger *slog.Logger

	frame   *capture.Frame
	payload *Payload
	size    int
	frames  uint64
	err     error
}

func (x *session) fail(state State, kind, cause error) {
	var serr *Error
	if errors.As(cause, &serr) {
		x.err = serr
		return
	}
	x.err = &Error{State: state, Kind: kind, Err: cause}
}

func (x *session) step(state State) State {
	s := x.s
	switch state {
	case StateInit:
		if !s.hasLast {
			s.lastFrame = s.timer.Micros()
			s.hasLast = true
		}
		if err := x.w.SetContentType(mjpeg.StreamContentType); err != nil {
			x.fail(state, ErrTransport, err)
			return StateTerminated
		}
		if err := x.w.SendChunk(boundaryMarker); err != nil {
			x.fail(state, ErrTransport, err)
			return StateTerminated
		}
		return StateCapture

	case StateCapture:
		if x.ctx.Err() != nil {
			return StateTerminated
		}
		f, err := s.cam.Get(x.ctx)
		if err != nil || f == nil {
			if f != nil {
				s.cam.Return(f)
			}
			if x.ctx.Err() != nil {
				return StateTerminated
			}
			x.logger.Error("camera capture failed", "error", err)
			x.fail(state, ErrCapture, err)
			return StateRelease
		}
		x.frame = f
		return StateNormalize

	case StateNormalize:
		f := x.frame
		x.frame = nil
		p, err := Normalize(s.cam, s.enc, f)
		if err != nil {
			x.logger.Error("jpeg compression failed", "format", f.Format.String(), "error", err)
			x.fail(state, ErrEncode, err)
			return StateTerminated
		}
		x.payload = p
		return StateSendHeader

	case StateSendHeader:
		return x.send(state, mjpeg.PartHeader(len(x.payload.Data)), StateSendPayload)

	case StateSendPayload:
		return x.send(state, x.payload.Data, StateSendBoundary)

	case StateSendBoundary:
		return x.send(state, boundaryMarker, StateRelease)

	case StateRelease:
		size := 0
		if x.payload != nil {
			size = len(x.payload.Data)
			x.payload.Release()
			x.payload = nil
		}
		if x.err != nil {
			return StateTerminated
		}
		x.size = size
		return StateMetrics

	case StateMetrics:
		now := s.timer.Micros()
		frameMs := (now - s.lastFrame) / 1000
		s.lastFrame = now
		avgMs := int64(s.filter.Run(int(frameMs)))
		s.stats.recordFrame(x.size, frameMs, avgMs)
		x.frames++
		x.logger.Debug("frame sent", "bytes", x.size, "frame_ms", frameMs, "avg_frame_ms", avgMs)
		return StateCapture
	}
	x.err = fmt.Errorf("stream: unknown state %s", state)
	return StateTerminated
}

func (x *session) send(state State, p []byte, next State) State {
	if err := x.w.SendChunk(p); err != nil {
		x.fail(state, ErrTransport, err)
		return StateRelease
	}
	return next
}
