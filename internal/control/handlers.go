// Package control serves the rover control page, the motion endpoints and
// the motion websocket.
package control

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/junsooki/RCSumo/internal/logging"
	"github.com/junsooki/RCSumo/internal/motion"
	"github.com/junsooki/RCSumo/internal/stream"
)

//go:embed page.html
var pageHTML string

var pageTemplate = template.Must(template.New("page").Parse(pageHTML))

// StatsSource reports the streaming metrics.
type StatsSource interface {
	Stats() stream.Stats
}

// Config wires the control server.
type Config struct {
	Actuator   motion.Actuator
	Stats      StatsSource
	StreamPort int
	Logger     *slog.Logger
}

type handlers struct {
	act        motion.Actuator
	stats      StatsSource
	streamPort int
	logger     *slog.Logger
}

// NewRouter registers every control route.
func NewRouter(cfg Config) *mux.Router {
	h := &handlers{
		act:        cfg.Actuator,
		stats:      cfg.Stats,
		streamPort: cfg.StreamPort,
		logger:     logging.WithComponent(cfg.Logger, "control"),
	}

	r := mux.NewRouter()
	r.HandleFunc("/", h.index).Methods(http.MethodGet)
	for _, d := range motion.Directions() {
		r.HandleFunc("/"+string(d), h.move(d)).Methods(http.MethodGet)
	}
	r.HandleFunc("/status", h.status).Methods(http.MethodGet)
	r.Handle("/ws", newWSHandler(h.act, h.stats, h.logger)).Methods(http.MethodGet)
	return r
}

func (h *handlers) index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	data := struct{ StreamURL string }{StreamURL: streamURL(r.Host, h.streamPort)}
	if err := pageTemplate.Execute(w, data); err != nil {
		h.logger.Error("render control page", "error", err)
	}
}

// move answers OK whatever the actuator reports; the page has no use for
// motor errors.
func (h *handlers) move(d motion.Direction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.logger.Info("motion", "direction", string(d))
		if err := motion.Dispatch(h.act, d); err != nil {
			h.logger.Warn("motion failed", "direction", string(d), "error", err)
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("OK"))
	}
}

func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	var st stream.Stats
	if h.stats != nil {
		st = h.stats.Stats()
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(st); err != nil {
		h.logger.Error("encode status", "error", err)
	}
}

// streamURL points at the stream server on the host the page was loaded from.
func streamURL(hostport string, port int) string {
	host, _, err := net.SplitHostPort(hostport)
	if err != nil {
		host = hostport
	}
	host = strings.Trim(host, "[]")
	if host == "" {
		host = "localhost"
	}
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return fmt.Sprintf("http://%s:%d/stream", host, port)
}
