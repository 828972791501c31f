package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// PatternConfig configures a PatternCamera.
type PatternConfig struct {
	Width   int
	Height  int
	FPS     int
	Format  PixelFormat
	Timeout time.Duration
	Logger  *slog.Logger
}

// PatternCamera is a synthetic sensor that renders a scrolling test pattern.
// Frames come from a small pool, so a frame that is never returned shows up
// in Outstanding.
type PatternCamera struct {
	cfg    PatternConfig
	logger *slog.Logger

	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once

	mu   sync.Mutex
	pool []*Frame
	seq  uint64

	outstanding atomic.Int64
}

// NewPatternCamera creates a camera producing frames at cfg.FPS.
func NewPatternCamera(cfg PatternConfig) (*PatternCamera, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("pattern camera: invalid size %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.FPS <= 0 {
		cfg.FPS = 20
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	switch cfg.Format {
	case PixelFormatRGBA, PixelFormatGray, PixelFormatJPEG:
	default:
		return nil, fmt.Errorf("pattern camera: unsupported format %s", cfg.Format)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &PatternCamera{
		cfg:    cfg,
		logger: logger,
		ticker: time.NewTicker(time.Second / time.Duration(cfg.FPS)),
		done:   make(chan struct{}),
	}, nil
}

// Get blocks until the next frame tick, the capture timeout, or ctx is done.
func (c *PatternCamera) Get(ctx context.Context) (*Frame, error) {
	timer := time.NewTimer(c.cfg.Timeout)
	defer timer.Stop()

	select {
	case <-c.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, ErrTimeout
	case now := <-c.ticker.C:
		f, err := c.render(now)
		if err != nil {
			return nil, err
		}
		c.outstanding.Add(1)
		return f, nil
	}
}

// Return gives a frame back to the pool.
func (c *PatternCamera) Return(f *Frame) {
	if f == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if f.returned {
		c.logger.Error("camera frame returned twice", "error", ErrDoubleReturn)
		return
	}
	f.returned = true
	c.outstanding.Add(-1)
	c.pool = append(c.pool, f)
}

// Outstanding reports how many frames are currently held by callers.
func (c *PatternCamera) Outstanding() int64 {
	return c.outstanding.Load()
}

// Close stops frame production. Pending and later Get calls fail with ErrClosed.
func (c *PatternCamera) Close() {
	c.once.Do(func() {
		c.ticker.Stop()
		close(c.done)
	})
}

func (c *PatternCamera) render(now time.Time) (*Frame, error) {
	c.mu.Lock()
	var f *Frame
	if n := len(c.pool); n > 0 {
		f = c.pool[n-1]
		c.pool = c.pool[:n-1]
	} else {
		f = &Frame{}
	}
	c.seq++
	seq := c.seq
	c.mu.Unlock()

	w, h := c.cfg.Width, c.cfg.Height
	f.Width, f.Height = w, h
	f.Format = c.cfg.Format
	f.Timestamp = now
	f.returned = false

	offset := int(seq * 4)
	switch c.cfg.Format {
	case PixelFormatGray:
		f.Buf = grow(f.Buf, w*h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				f.Buf[y*w+x] = uint8((x + y + offset) & 0xff)
			}
		}
	case PixelFormatRGBA:
		f.Buf = grow(f.Buf, 4*w*h)
		drawPattern(f.Buf, w, h, offset)
	case PixelFormatJPEG:
		img := image.NewRGBA(image.Rect(0, 0, w, h))
		drawPattern(img.Pix, w, h, offset)
		buf := bytes.NewBuffer(f.Buf[:0])
		if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: 80}); err != nil {
			c.mu.Lock()
			c.pool = append(c.pool, f)
			c.mu.Unlock()
			return nil, fmt.Errorf("pattern camera: sensor jpeg: %w", err)
		}
		f.Buf = buf.Bytes()
	}
	return f, nil
}

func drawPattern(pix []byte, w, h, offset int) {
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := 4 * (y*w + x)
			pix[i] = uint8((x + offset) & 0xff)
			pix[i+1] = uint8((y + offset/2) & 0xff)
			pix[i+2] = uint8(((x ^ y) + offset) & 0xff)
			pix[i+3] = 0xff
		}
	}
}

func grow(b []byte, n int) []byte {
	if cap(b) < n {
		return make([]byte, n)
	}
	return b[:n]
}
