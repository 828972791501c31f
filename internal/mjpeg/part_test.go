package mjpeg

import (
	"bytes"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"
	"testing"
)

func TestPartHeader(t *testing.T) {
	for _, n := range []int{0, 7, 5000, 1 << 20} {
		want := "Content-Type: image/jpeg\r\nContent-Length: " + strconv.Itoa(n) + "\r\n\r\n"
		if got := string(PartHeader(n)); got != want {
			t.Errorf("PartHeader(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestPartHeaderFitsLargestLength(t *testing.T) {
	if got := len(PartHeader(math.MaxInt64)); got > maxPartHeader {
		t.Fatalf("header length %d exceeds %d", got, maxPartHeader)
	}
}

func TestStreamConstants(t *testing.T) {
	if StreamContentType != "multipart/x-mixed-replace;boundary=123456789000000000000987654321" {
		t.Fatalf("StreamContentType = %q", StreamContentType)
	}
	if BoundaryMarker != "\r\n--123456789000000000000987654321\r\n" {
		t.Fatalf("BoundaryMarker = %q", BoundaryMarker)
	}
}

func TestBoundaryFromContentType(t *testing.T) {
	got, err := BoundaryFromContentType(StreamContentType)
	if err != nil {
		t.Fatal(err)
	}
	if got != Boundary {
		t.Fatalf("boundary = %q", got)
	}
	for _, ct := range []string{"image/jpeg", "multipart/x-mixed-replace", ";;"} {
		if _, err := BoundaryFromContentType(ct); err == nil {
			t.Errorf("BoundaryFromContentType(%q) succeeded", ct)
		}
	}
}

func writeStream(frames ...[]byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(BoundaryMarker)
	for _, f := range frames {
		buf.Write(PartHeader(len(f)))
		buf.Write(f)
		buf.WriteString(BoundaryMarker)
	}
	return buf.Bytes()
}

func TestReaderRoundTrip(t *testing.T) {
	frames := [][]byte{
		{0xFF, 0xD8, 0x01, 0xFF, 0xD9},
		bytes.Repeat([]byte{0xAB}, 4096),
		[]byte("\r\n--not-the-boundary\r\n"),
	}
	r := NewReader(bytes.NewReader(writeStream(frames...)), Boundary)
	for i, want := range frames {
		got, err := r.NextFrame()
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("frame %d: got %d bytes, want %d", i, len(got), len(want))
		}
	}
	// The trailing marker opens a part that never completes.
	if _, err := r.NextFrame(); err == nil {
		t.Fatal("expected error at end of truncated stream")
	}
}

func TestReaderRejectsWrongPartType(t *testing.T) {
	body := BoundaryMarker + "Content-Type: text/plain\r\n\r\nhello" + BoundaryMarker
	r := NewReader(strings.NewReader(body), Boundary)
	if _, err := r.NextFrame(); err == nil {
		t.Fatal("expected error for text part")
	}
}

func TestReaderEmptyStream(t *testing.T) {
	r := NewReader(strings.NewReader(""), Boundary)
	if _, err := r.NextFrame(); !errors.Is(err, io.EOF) {
		t.Fatalf("NextFrame = %v, want io.EOF", err)
	}
}
