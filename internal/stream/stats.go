package stream

import "sync/atomic"

// Stats is a snapshot of the streaming metrics.
type Stats struct {
	Streaming   bool    `json:"streaming"`
	Sessions    uint64  `json:"sessions"`
	Frames      uint64  `json:"frames"`
	Bytes       uint64  `json:"bytes"`
	Failures    uint64  `json:"failures"`
	LastFrameMs int64   `json:"last_frame_ms"`
	AvgFrameMs  int64   `json:"avg_frame_ms"`
	FPS         float64 `json:"fps"`
}

// counters are written by the streaming goroutine and read by anyone.
type counters struct {
	sessions    atomic.Uint64
	frames      atomic.Uint64
	bytes       atomic.Uint64
	failures    atomic.Uint64
	lastFrameMs atomic.Int64
	avgFrameMs  atomic.Int64
}

func (c *counters) recordFrame(size int, frameMs, avgMs int64) {
	c.frames.Add(1)
	c.bytes.Add(uint64(size))
	c.lastFrameMs.Store(frameMs)
	c.avgFrameMs.Store(avgMs)
}

func (c *counters) snapshot(streaming bool) Stats {
	st := Stats{
		Streaming:   streaming,
		Sessions:    c.sessions.Load(),
		Frames:      c.frames.Load(),
		Bytes:       c.bytes.Load(),
		Failures:    c.failures.Load(),
		LastFrameMs: c.lastFrameMs.Load(),
		AvgFrameMs:  c.avgFrameMs.Load(),
	}
	if st.AvgFrameMs > 0 {
		st.FPS = 1000 / float64(st.AvgFrameMs)
	}
	return st
}
