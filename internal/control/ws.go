package control

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/junsooki/RCSumo/internal/motion"
	"github.com/junsooki/RCSumo/internal/stream"
)

const (
	wsReadLimit = 4096
	// A client that goes quiet for this long is treated as gone and the
	// robot is stopped. Clients ping every 25s.
	wsIdleTimeout = 60 * time.Second
	wsWriteWait   = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type wsHandler struct {
	act    motion.Actuator
	stats  StatsSource
	logger *slog.Logger
}

func newWSHandler(act motion.Actuator, stats StatsSource, logger *slog.Logger) *wsHandler {
	return &wsHandler{act: act, stats: stats, logger: logger}
}

func (h *wsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade", "error", err)
		return
	}
	defer conn.Close()

	logger := h.logger.With("remote_addr", r.RemoteAddr)
	logger.Info("websocket connected")
	defer func() {
		// Dead-man stop: a dropped driver must not leave the wheels running.
		if err := h.act.Stop(); err != nil {
			logger.Warn("stop on disconnect", "error", err)
		}
		logger.Info("websocket disconnected")
	}()

	conn.SetReadLimit(wsReadLimit)
	for {
		conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("websocket read", "error", err)
			}
			return
		}
		reply := h.handle(msg, logger)
		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(reply); err != nil {
			logger.Warn("websocket write", "error", err)
			return
		}
	}
}

func (h *wsHandler) handle(msg Message, logger *slog.Logger) Message {
	switch msg.Type {
	case TypeCommand:
		d, err := motion.ParseDirection(string(msg.Direction))
		if err != nil {
			return Message{Type: TypeError, Msg: err.Error()}
		}
		logger.Info("motion", "direction", string(d), "via", "websocket")
		if err := motion.Dispatch(h.act, d); err != nil {
			logger.Warn("motion failed", "direction", string(d), "error", err)
		}
		return Message{Type: TypeOK, Direction: d}
	case TypePing:
		return Message{Type: TypePong, Timestamp: time.Now().UnixMilli()}
	case TypeStats:
		var st stream.Stats
		if h.stats != nil {
			st = h.stats.Stats()
		}
		return Message{Type: TypeStats, Stats: &st}
	default:
		return Message{Type: TypeError, Msg: "unknown message type " + msg.Type}
	}
}
