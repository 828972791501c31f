package stream

import (
	"bytes"
	"context"
	"errors"
	"sync"

	"github.com/junsooki/RCSumo/internal/capture"
)

type fakeCamera struct {
	mu      sync.Mutex
	frames  []*capture.Frame
	errs    []error
	gets    int
	returns []*capture.Frame
	// onEmpty is called when the queue runs out; it may cancel the test context.
	onEmpty func()
}

func (c *fakeCamera) Get(ctx context.Context) (*capture.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if len(c.errs) > 0 {
		err := c.errs[0]
		c.errs = c.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	if len(c.frames) == 0 {
		if c.onEmpty != nil {
			c.onEmpty()
			return nil, ctx.Err()
		}
		return nil, nil
	}
	f := c.frames[0]
	c.frames = c.frames[1:]
	return f, nil
}

func (c *fakeCamera) Return(f *capture.Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.returns = append(c.returns, f)
}

func (c *fakeCamera) returned() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.returns)
}

type fakeEncoder struct {
	err   error
	out   []byte
	calls int
	frees [][]byte
}

func (e *fakeEncoder) Encode(f *capture.Frame) ([]byte, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := e.out
	if out == nil {
		out = []byte{0xFF, 0xD8, 0xFF, 0xD9}
	}
	return append([]byte(nil), out...), nil
}

func (e *fakeEncoder) Free(buf []byte) {
	e.frees = append(e.frees, buf)
}

// recordingWriter records every chunk and can fail the nth SendChunk call.
type recordingWriter struct {
	contentType string
	chunks      [][]byte
	failAt      int
	sends       int
	onSend      func(n int)
}

var errBrokenPipe = errors.New("broken pipe")

func (w *recordingWriter) SetContentType(ct string) error {
	w.contentType = ct
	return nil
}

func (w *recordingWriter) SendChunk(p []byte) error {
	w.sends++
	if w.failAt > 0 && w.sends == w.failAt {
		return errBrokenPipe
	}
	w.chunks = append(w.chunks, append([]byte(nil), p...))
	if w.onSend != nil {
		w.onSend(w.sends)
	}
	return nil
}

func (w *recordingWriter) body() []byte {
	return bytes.Join(w.chunks, nil)
}

// stepTimer advances by step microseconds on every call.
type stepTimer struct {
	now  int64
	step int64
}

func (t *stepTimer) Micros() int64 {
	t.now += t.step
	return t.now
}

func jpegFrame(n int) *capture.Frame {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(i % 251)
	}
	return &capture.Frame{Buf: buf, Width: 320, Height: 240, Format: capture.PixelFormatJPEG}
}

func rgbaFrame() *capture.Frame {
	return &capture.Frame{Buf: make([]byte, 4*4*4), Width: 4, Height: 4, Format: capture.PixelFormatRGBA}
}
