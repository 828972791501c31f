package capture

import (
	"bytes"
	"context"
	"errors"
	"image/jpeg"
	"testing"
	"time"
)

func newTestCamera(t *testing.T, format PixelFormat) *PatternCamera {
	t.Helper()
	cam, err := NewPatternCamera(PatternConfig{Width: 16, Height: 8, FPS: 200, Format: format, Timeout: time.Second})
	if err != nil {
		t.Fatalf("NewPatternCamera: %v", err)
	}
	t.Cleanup(cam.Close)
	return cam
}

func TestPatternCameraRawFormats(t *testing.T) {
	tests := []struct {
		format PixelFormat
		size   int
	}{
		{PixelFormatRGBA, 16 * 8 * 4},
		{PixelFormatGray, 16 * 8},
	}
	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			cam := newTestCamera(t, tt.format)
			f, err := cam.Get(context.Background())
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if f.Len() != tt.size {
				t.Fatalf("Len() = %d, want %d", f.Len(), tt.size)
			}
			img, err := f.Image()
			if err != nil {
				t.Fatalf("Image: %v", err)
			}
			if b := img.Bounds(); b.Dx() != 16 || b.Dy() != 8 {
				t.Fatalf("bounds = %v", b)
			}
			cam.Return(f)
		})
	}
}

func TestPatternCameraJPEG(t *testing.T) {
	cam := newTestCamera(t, PixelFormatJPEG)
	f, err := cam.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer cam.Return(f)
	if _, err := f.Image(); err == nil {
		t.Fatal("Image on a jpeg frame should fail")
	}
	img, err := jpeg.Decode(bytes.NewReader(f.Buf))
	if err != nil {
		t.Fatalf("decode sensor jpeg: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 16 || b.Dy() != 8 {
		t.Fatalf("bounds = %v", b)
	}
}

func TestPatternCameraOutstanding(t *testing.T) {
	cam := newTestCamera(t, PixelFormatGray)
	a, err := cam.Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	b, err := cam.Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got := cam.Outstanding(); got != 2 {
		t.Fatalf("Outstanding = %d, want 2", got)
	}
	cam.Return(a)
	cam.Return(a)
	cam.Return(b)
	if got := cam.Outstanding(); got != 0 {
		t.Fatalf("Outstanding = %d after returns, want 0", got)
	}
}

func TestPatternCameraContextAndClose(t *testing.T) {
	cam := newTestCamera(t, PixelFormatGray)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// A tick may already be pending, so drain until the context wins.
	for i := 0; i < 3; i++ {
		f, err := cam.Get(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				t.Fatalf("Get = %v, want context.Canceled", err)
			}
			break
		}
		cam.Return(f)
	}

	cam.Close()
	if _, err := cam.Get(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("Get after Close = %v, want ErrClosed", err)
	}
}

func TestNewPatternCameraRejectsBadConfig(t *testing.T) {
	if _, err := NewPatternCamera(PatternConfig{Width: 0, Height: 4}); err == nil {
		t.Fatal("expected error for zero width")
	}
	if _, err := NewPatternCamera(PatternConfig{Width: 4, Height: 4, Format: PixelFormat(9)}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
