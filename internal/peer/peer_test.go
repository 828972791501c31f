package peer

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/junsooki/RCSumo/internal/mjpeg"
	"github.com/junsooki/RCSumo/internal/motion"
	"github.com/junsooki/RCSumo/internal/stream"
	"github.com/junsooki/RCSumo/internal/transport"
)

type fakeStreamer struct {
	busy bool
	runs chan struct{}
}

func (f *fakeStreamer) Stats() stream.Stats { return stream.Stats{Streaming: f.busy} }

func (f *fakeStreamer) Run(ctx context.Context, w transport.ChunkWriter) error {
	if f.runs != nil {
		f.runs <- struct{}{}
	}
	if err := w.SetContentType(mjpeg.StreamContentType); err != nil {
		return err
	}
	if err := w.SendChunk([]byte(mjpeg.BoundaryMarker)); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

type recordingActuator struct {
	mu    sync.Mutex
	calls []motion.Direction
	moved chan motion.Direction
}

func newRecordingActuator() *recordingActuator {
	return &recordingActuator{moved: make(chan motion.Direction, 16)}
}

func (a *recordingActuator) record(d motion.Direction) error {
	a.mu.Lock()
	a.calls = append(a.calls, d)
	a.mu.Unlock()
	a.moved <- d
	return nil
}

func (a *recordingActuator) Forward() error  { return a.record(motion.Forward) }
func (a *recordingActuator) Backward() error { return a.record(motion.Backward) }
func (a *recordingActuator) Left() error     { return a.record(motion.Left) }
func (a *recordingActuator) Right() error    { return a.record(motion.Right) }
func (a *recordingActuator) Stop() error     { return a.record(motion.Stop) }

func postOffer(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webrtc/offer", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestOfferRejectsMalformedBodies(t *testing.T) {
	h := NewOfferHandler(context.Background(), OfferConfig{Streamer: &fakeStreamer{}})
	tests := []struct {
		name string
		body string
	}{
		{"not json", "{"},
		{"answer type", `{"type":"answer","sdp":"v=0"}`},
		{"missing sdp", `{"type":"offer"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postOffer(t, h, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestOfferBusyStream(t *testing.T) {
	h := NewOfferHandler(context.Background(), OfferConfig{Streamer: &fakeStreamer{busy: true}})
	rec := postOffer(t, h, `{"type":"offer","sdp":"v=0"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After")
	}
}

func TestCommandDispatch(t *testing.T) {
	act := newRecordingActuator()
	h := NewOfferHandler(context.Background(), OfferConfig{Streamer: &fakeStreamer{}, Actuator: act})
	cmd := h.command(h.logger)
	cmd([]byte(`{"direction":"LEFT"}`))
	cmd([]byte(`{"direction":"sideways"}`))
	cmd([]byte(`nope`))
	if len(act.calls) != 1 || act.calls[0] != motion.Left {
		t.Fatalf("calls = %v, want [left]", act.calls)
	}
}

func TestICEServers(t *testing.T) {
	if got := ICEServers(" , "); got != nil {
		t.Fatalf("ICEServers(empty) = %v", got)
	}
	got := ICEServers("stun:a:3478, stun:b:3478")
	if len(got) != 1 || len(got[0].URLs) != 2 || got[0].URLs[1] != "stun:b:3478" {
		t.Fatalf("ICEServers = %+v", got)
	}
}

// TestOfferLoopback negotiates a real pion connection in process: the viewer
// side opens the control channel, the rover answers and opens frames.
func TestOfferLoopback(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	act := newRecordingActuator()
	streamer := &fakeStreamer{runs: make(chan struct{}, 1)}
	h := NewOfferHandler(ctx, OfferConfig{Streamer: streamer, Actuator: act, OpenTimeout: 10 * time.Second})
	srv := httptest.NewServer(h)
	defer srv.Close()

	viewer, err := NewPeerConnection(nil)
	if err != nil {
		t.Fatalf("viewer peer: %v", err)
	}
	defer viewer.Close()

	control, err := viewer.CreateDataChannel(ControlLabel, nil)
	if err != nil {
		t.Fatal(err)
	}
	controlOpen := make(chan struct{})
	control.OnOpen(func() { close(controlOpen) })

	messages := make(chan webrtc.DataChannelMessage, 8)
	viewer.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() != FramesLabel {
			return
		}
		dc.OnMessage(func(msg webrtc.DataChannelMessage) { messages <- msg })
	})

	offer, err := viewer.CreateOffer(nil)
	if err != nil {
		t.Fatal(err)
	}
	gathered := webrtc.GatheringCompletePromise(viewer)
	if err := viewer.SetLocalDescription(offer); err != nil {
		t.Fatal(err)
	}
	<-gathered

	body, _ := json.Marshal(viewer.LocalDescription())
	resp, err := http.Post(srv.URL, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST offer: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var answer webrtc.SessionDescription
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		t.Fatalf("decode answer: %v", err)
	}
	if answer.Type != webrtc.SDPTypeAnswer {
		t.Fatalf("answer type = %s", answer.Type)
	}
	if err := viewer.SetRemoteDescription(answer); err != nil {
		t.Fatalf("set answer: %v", err)
	}

	select {
	case <-streamer.runs:
	case <-time.After(10 * time.Second):
		t.Skip("peers did not connect; no usable ICE candidates in this environment")
	}

	first := <-messages
	if !first.IsString || string(first.Data) != mjpeg.StreamContentType {
		t.Fatalf("first message = %q (string=%v), want content type", first.Data, first.IsString)
	}
	second := <-messages
	if second.IsString || string(second.Data) != mjpeg.BoundaryMarker {
		t.Fatalf("second message = %q, want opening boundary", second.Data)
	}

	<-controlOpen
	if err := control.SendText(`{"direction":"forward"}`); err != nil {
		t.Fatal(err)
	}
	select {
	case d := <-act.moved:
		if d != motion.Forward {
			t.Fatalf("moved %s, want forward", d)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("command not dispatched")
	}

	viewer.Close()
	select {
	case d := <-act.moved:
		if d != motion.Stop {
			t.Fatalf("after disconnect moved %s, want stop", d)
		}
	case <-time.After(30 * time.Second):
		t.Fatal("rover did not stop after the viewer left")
	}
}
