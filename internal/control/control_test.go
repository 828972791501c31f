package control

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/junsooki/RCSumo/internal/motion"
	"github.com/junsooki/RCSumo/internal/stream"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeActuator struct {
	mu    sync.Mutex
	calls []motion.Direction
	err   error
	moved chan motion.Direction
}

func newFakeActuator() *fakeActuator {
	return &fakeActuator{moved: make(chan motion.Direction, 16)}
}

func (a *fakeActuator) record(d motion.Direction) error {
	a.mu.Lock()
	a.calls = append(a.calls, d)
	a.mu.Unlock()
	a.moved <- d
	return a.err
}

func (a *fakeActuator) Forward() error  { return a.record(motion.Forward) }
func (a *fakeActuator) Backward() error { return a.record(motion.Backward) }
func (a *fakeActuator) Left() error     { return a.record(motion.Left) }
func (a *fakeActuator) Right() error    { return a.record(motion.Right) }
func (a *fakeActuator) Stop() error     { return a.record(motion.Stop) }

func (a *fakeActuator) expect(t *testing.T, want motion.Direction) {
	t.Helper()
	select {
	case got := <-a.moved:
		if got != want {
			t.Fatalf("actuator got %s, want %s", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("actuator never received %s", want)
	}
}

type fixedStats stream.Stats

func (s fixedStats) Stats() stream.Stats { return stream.Stats(s) }

func newTestRouter(act motion.Actuator) http.Handler {
	return NewRouter(Config{
		Actuator:   act,
		Stats:      fixedStats{Streaming: true, Frames: 12, AvgFrameMs: 50, FPS: 20},
		StreamPort: 81,
		Logger:     discard,
	})
}

func TestMotionEndpointsReplyOK(t *testing.T) {
	for _, fail := range []bool{false, true} {
		act := newFakeActuator()
		if fail {
			act.err = errors.New("motor driver fault")
		}
		router := newTestRouter(act)
		for _, d := range motion.Directions() {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/"+string(d), nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("%s: status = %d", d, rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "text/html" {
				t.Fatalf("%s: content type = %q", d, ct)
			}
			if rec.Body.String() != "OK" {
				t.Fatalf("%s: body = %q", d, rec.Body.String())
			}
			act.expect(t, d)
		}
	}
}

func TestMotionEndpointsRejectOtherMethods(t *testing.T) {
	act := newFakeActuator()
	rec := httptest.NewRecorder()
	newTestRouter(act).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/forward", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
	if len(act.calls) != 0 {
		t.Fatal("actuator called for POST")
	}
}

func TestIndexPointsAtStreamServer(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"192.168.4.1", "http://192.168.4.1:81/stream"},
		{"192.168.4.1:80", "http://192.168.4.1:81/stream"},
		{"rover.local:8080", "http://rover.local:81/stream"},
		{"[fe80::1]:80", "http://[fe80::1]:81/stream"},
	}
	router := newTestRouter(newFakeActuator())
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Host = tt.host
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "text/html" {
			t.Fatalf("%s: status %d type %q", tt.host, rec.Code, rec.Header().Get("Content-Type"))
		}
		if !strings.Contains(rec.Body.String(), `src="`+tt.want+`"`) {
			t.Errorf("%s: page does not embed %s", tt.host, tt.want)
		}
	}
}

func TestStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(newFakeActuator()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	var st stream.Stats
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	if !st.Streaming || st.Frames != 12 || st.AvgFrameMs != 50 {
		t.Fatalf("status = %+v", st)
	}
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func TestWebsocketProtocol(t *testing.T) {
	act := newFakeActuator()
	srv := httptest.NewServer(newTestRouter(act))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	exchange := func(req Message) Message {
		t.Helper()
		if err := conn.WriteJSON(req); err != nil {
			t.Fatal(err)
		}
		var reply Message
		if err := conn.ReadJSON(&reply); err != nil {
			t.Fatal(err)
		}
		return reply
	}

	if r := exchange(Message{Type: TypeCommand, Direction: "LEFT"}); r.Type != TypeOK || r.Direction != motion.Left {
		t.Fatalf("command reply = %+v", r)
	}
	act.expect(t, motion.Left)
	if r := exchange(Message{Type: TypeCommand, Direction: "jump"}); r.Type != TypeError {
		t.Fatalf("bad command reply = %+v", r)
	}
	if r := exchange(Message{Type: TypePing}); r.Type != TypePong || r.Timestamp == 0 {
		t.Fatalf("ping reply = %+v", r)
	}
	if r := exchange(Message{Type: TypeStats}); r.Type != TypeStats || r.Stats == nil || r.Stats.Frames != 12 {
		t.Fatalf("stats reply = %+v", r)
	}
	if r := exchange(Message{Type: "dance"}); r.Type != TypeError {
		t.Fatalf("unknown type reply = %+v", r)
	}

	conn.Close()
	act.expect(t, motion.Stop)
}

func TestClientSendsCommandsAndStopsOnClose(t *testing.T) {
	act := newFakeActuator()
	srv := httptest.NewServer(newTestRouter(act))
	defer srv.Close()

	acks := make(chan motion.Direction, 4)
	stats := make(chan stream.Stats, 1)
	c := NewClient(wsURL(srv), Handler{
		OnAck:   func(d motion.Direction) { acks <- d },
		OnStats: func(st stream.Stats) { stats <- st },
	}, discard)
	if err := c.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	if err := c.Send(motion.Forward); err != nil {
		t.Fatal(err)
	}
	act.expect(t, motion.Forward)
	select {
	case d := <-acks:
		if d != motion.Forward {
			t.Fatalf("ack = %s", d)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no ack")
	}

	if err := c.RequestStats(); err != nil {
		t.Fatal(err)
	}
	select {
	case st := <-stats:
		if st.FPS != 20 {
			t.Fatalf("stats = %+v", st)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no stats")
	}

	c.Close()
	act.expect(t, motion.Stop)
	if err := c.Send(motion.Left); err == nil {
		t.Fatal("Send after Close should fail")
	}
}

func TestStreamURLDefaultsHost(t *testing.T) {
	if got := streamURL("", 81); got != "http://localhost:81/stream" {
		t.Fatalf("streamURL = %q", got)
	}
}
