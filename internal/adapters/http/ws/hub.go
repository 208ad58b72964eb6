// Package ws pushes the committed leaderboard to WebSocket clients.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/teamboard/internal/domain/types"
	"github.com/okian/teamboard/pkg/logger"
	"github.com/okian/teamboard/pkg/metrics"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	defaultPingInterval = 30 * time.Second

	// sendBufSize is the per-client outgoing message buffer depth.
	sendBufSize = 16
)

// Event names carried in Message.Event.
const (
	EventLeaderboard = "leaderboard"
)

// Message is the JSON envelope sent to clients.
type Message struct {
	Event string      `json:"event"`
	Data  types.Board `json:"data"`
}

// BoardSource provides the board a new client receives on connect.
type BoardSource interface {
	Board(ctx context.Context) types.Board
}

// Hub manages WebSocket client connections and broadcasts every committed
// leaderboard to all of them.
type Hub struct {
	source       BoardSource
	pingInterval time.Duration
	origins      []string
	upgrader     websocket.Upgrader
	logger       logger.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

// client represents one connected WebSocket client.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Option applies a configuration option to the Hub.
type Option func(*Hub)

// WithPingInterval sets how often clients are pinged. A client that does
// not answer within 10/9 of the interval is dropped.
func WithPingInterval(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.pingInterval = d
		}
	}
}

// WithAllowedOrigins sets the Origin values allowed to connect. "*" allows
// any origin. Without it only same-origin pages may connect.
func WithAllowedOrigins(origins ...string) Option {
	return func(h *Hub) {
		h.origins = append([]string(nil), origins...)
	}
}

// WithLogger sets the hub logger.
func WithLogger(l logger.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

// New creates a Hub that greets clients with the board from src.
func New(src BoardSource, opts ...Option) *Hub {
	h := &Hub{
		source:       src,
		pingInterval: defaultPingInterval,
		logger:       logger.Nop(),
		clients:      make(map[*client]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.Named("ws")
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// checkOrigin accepts requests without an Origin header, origins listed in
// WithAllowedOrigins and, when none are listed, same-host origins.
func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if len(h.origins) == 0 {
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
	for _, o := range h.origins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	h.logger.Warn(r.Context(), "rejected live feed origin", logger.String("origin", origin))
	return false
}

// Run blocks until ctx is cancelled, then closes all active connections.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Publish broadcasts board to every connected client. It never blocks: a
// client whose buffer is full is disconnected.
func (h *Hub) Publish(ctx context.Context, board types.Board) {
	data, err := encode(board)
	if err != nil {
		h.logger.Error(ctx, "encode leaderboard", logger.Error(err))
		return
	}

	var slow []*client
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.unregister(c)
	}
	metrics.RecordWSBroadcast(len(slow))
	if len(slow) > 0 {
		h.logger.Warn(ctx, "dropped slow clients", logger.Int("count", len(slow)))
	}
}

// ServeHTTP upgrades the HTTP connection to WebSocket and serves the client.
// The current board is sent immediately on connect. Blocks until the
// connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBufSize),
	}
	if !h.register(r.Context(), c) {
		_ = conn.Close()
		return
	}
	defer h.unregister(c)

	go c.writePump(h.pingInterval)
	c.readPump(h.pingInterval * 10 / 9) // blocks until connection closes
}

// Count returns the number of currently connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func encode(board types.Board) ([]byte, error) {
	return json.Marshal(Message{Event: EventLeaderboard, Data: board})
}

// register adds c and queues the current board for it. Holding the write
// lock keeps a concurrent Publish from queueing a newer board first.
func (h *Hub) register(ctx context.Context, c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	if data, err := encode(h.source.Board(ctx)); err == nil {
		c.send <- data
	}
	h.clients[c] = struct{}{}
	metrics.UpdateWSClients(len(h.clients))
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		metrics.UpdateWSClients(len(h.clients))
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
	metrics.UpdateWSClients(0)
}

// writePump drains the client's send channel and forwards messages to the
// WebSocket connection. It also sends periodic ping frames.
func (c *client) writePump(pingInterval time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				// Channel was closed (hub is shutting down or client removed).
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads frames to process control messages and detect
// disconnects. Blocks until the connection closes.
func (c *client) readPump(pongWait time.Duration) {
	defer func() { _ = c.conn.Close() }()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
