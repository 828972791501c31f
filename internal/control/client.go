package control

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/junsooki/RCSumo/internal/motion"
	"github.com/junsooki/RCSumo/internal/stream"
)

// Handler callbacks for incoming websocket messages.
type Handler struct {
	OnAck   func(d motion.Direction)
	OnStats func(st stream.Stats)
	OnError func(msg string)
}

// Client drives the rover over the motion websocket.
type Client struct {
	url     string
	handler Handler
	logger  *slog.Logger

	conn   *websocket.Conn
	mu     sync.Mutex
	done   chan struct{}
	closed bool
}

// NewClient creates a client for the websocket at url (ws://host:port/ws).
func NewClient(url string, handler Handler, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		url:     url,
		handler: handler,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Connect dials the rover and starts reading messages.
func (c *Client) Connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	if err != nil {
		return fmt.Errorf("control dial: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.readLoop()
	go c.pingLoop()
	return nil
}

// Close shuts down the connection. The rover stops when it sees the close.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
	if c.conn != nil {
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.conn.Close()
	}
}

// Send sends a motion command.
func (c *Client) Send(d motion.Direction) error {
	return c.send(Message{Type: TypeCommand, Direction: d})
}

// RequestStats asks the rover for its streaming metrics.
func (c *Client) RequestStats() error {
	return c.send(Message{Type: TypeStats})
}

func (c *Client) send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || c.closed {
		return fmt.Errorf("not connected")
	}
	return c.conn.WriteJSON(msg)
}

func (c *Client) readLoop() {
	defer c.Close()
	for {
		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			select {
			case <-c.done:
			default:
				c.logger.Warn("control read error", "error", err)
			}
			return
		}
		c.dispatch(msg)
	}
}

func (c *Client) dispatch(msg Message) {
	switch msg.Type {
	case TypeOK:
		if c.handler.OnAck != nil {
			c.handler.OnAck(msg.Direction)
		}
	case TypeStats:
		if c.handler.OnStats != nil && msg.Stats != nil {
			c.handler.OnStats(*msg.Stats)
		}
	case TypeError:
		if c.handler.OnError != nil {
			c.handler.OnError(msg.Msg)
		}
	case TypePong:
		// heartbeat response, nothing to do
	}
}

func (c *Client) pingLoop() {
	ticker := time.NewTicker(25 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			_ = c.send(Message{Type: TypePing})
		}
	}
}
