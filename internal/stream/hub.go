// Package stream fans simulation frames out to external renderers over
// WebSocket. Each tick row is encoded once and queued to every client; a
// client whose queue is full misses that frame instead of stalling the tick
// loop.
package stream

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cxd309/seekflee-engine/internal/engine"
	"github.com/cxd309/seekflee-engine/internal/logging"
)

const (
	sendQueue  = 64
	writeWait  = 5 * time.Second
	maxMessage = 512

	TypeFrame = "frame"
)

// Envelope wraps every message sent to a renderer.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks connected renderers.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
	dropped uint64
}

// NewHub returns an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger:  logging.OrNop(logger),
		clients: make(map[*client]struct{}),
	}
}

// ServeHTTP upgrades the request and streams frames until the renderer
// disconnects or the hub closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendQueue)}
	if !h.register(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	h.logger.Info("renderer connected", zap.String("remote", conn.RemoteAddr().String()))

	go h.writeLoop(c)
	h.readLoop(c)
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

// unregister removes c and closes its queue; safe to call twice.
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// readLoop discards inbound messages; it exists to notice disconnects.
func (h *Hub) readLoop(c *client) {
	defer func() {
		h.unregister(c)
		h.logger.Info("renderer disconnected", zap.String("remote", c.conn.RemoteAddr().String()))
	}()
	c.conn.SetReadLimit(maxMessage)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.logger.Debug("websocket write failed", zap.Error(err))
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}

// Broadcast queues row for every connected renderer.
func (h *Hub) Broadcast(row engine.SimulationLogRow) error {
	data, err := marshalEnvelope(TypeFrame, row)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.dropped++
		}
	}
	return nil
}

// Clients returns the number of connected renderers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dropped returns how many frames were skipped for slow renderers.
func (h *Hub) Dropped() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

// Close disconnects every renderer and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
