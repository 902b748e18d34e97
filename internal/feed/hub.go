package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/castscan/internal/discovery"
	"github.com/muurk/castscan/internal/logging"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer; clients only send control frames
	maxMessageSize = 512

	// Per-client outbound queue; a full queue drops events for that client
	sendBuffer = 32
)

// EventReceiver is the only event type currently sent
const EventReceiver = "receiver"

// Event is one websocket message
type Event struct {
	Type      string                 `json:"type"`
	Receiver  discovery.ReceiverView `json:"receiver"`
	Timestamp time.Time              `json:"timestamp"`
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub fans discovery notifications out to websocket clients and serves the
// latest session snapshot over HTTP.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu       sync.RWMutex
	clients  map[string]*client
	snapshot []discovery.ReceiverView
}

// NewHub creates a hub. A nil logger uses the global logger.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger:   logger,
		clients:  make(map[string]*client),
		snapshot: []discovery.ReceiverView{},
	}
}

// Handler returns the HTTP routes: /ws (websocket feed) and /receivers
// (latest snapshot as JSON).
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.ServeWS)
	mux.HandleFunc("/receivers", h.ServeReceivers)
	return mux
}

// Publish sends a receiver event to every connected client without blocking.
// It is safe to use as a discovery subscriber.
func (h *Hub) Publish(r *discovery.Receiver) {
	data, err := json.Marshal(Event{
		Type:      EventReceiver,
		Receiver:  r.View(),
		Timestamp: time.Now(),
	})
	if err != nil {
		h.logger.Error("Failed to marshal feed event", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("Feed client is behind, event dropped",
				zap.String("client_id", c.id),
				zap.String("receiver", r.Name),
			)
		}
	}
}

// SetSnapshot replaces the snapshot served by /receivers
func (h *Hub) SetSnapshot(receivers []*discovery.Receiver) {
	views := discovery.Views(receivers)
	h.mu.Lock()
	h.snapshot = views
	h.mu.Unlock()
}

// Snapshot returns the latest snapshot
func (h *Hub) Snapshot() []discovery.ReceiverView {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]discovery.ReceiverView, len(h.snapshot))
	copy(out, h.snapshot)
	return out
}

// ClientCount returns the number of connected websocket clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeReceivers writes the latest snapshot as JSON
func (h *Hub) ServeReceivers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.Snapshot()); err != nil {
		h.logger.Warn("Failed to write snapshot", zap.Error(err))
	}
}

// ServeWS upgrades the request and streams receiver events until the client
// disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error
		h.logger.Info("WebSocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()

	h.logger.Info("Feed client connected",
		zap.String("client_id", c.id),
		zap.String("remote_addr", r.RemoteAddr),
	)

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		close(c.send)
	}
	h.mu.Unlock()
}

// readPump discards client messages; it exists to process control frames
// and notice disconnects.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
		h.logger.Info("Feed client disconnected", zap.String("client_id", c.id))
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("Feed client read error",
					zap.String("client_id", c.id),
					zap.Error(err),
				)
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.logger.Warn("Feed write failed",
					zap.String("client_id", c.id),
					zap.Error(err),
				)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.unregister(c)
	}
}

// Run repeats discovery sessions on locator until ctx is done, publishing
// every newly discovered receiver and updating the snapshot after each
// session. Sessions start every interval.
func (h *Hub) Run(ctx context.Context, locator *discovery.Locator, interval time.Duration) error {
	unsubscribe := locator.Subscribe(h.Publish)
	defer unsubscribe()

	for {
		sessionCtx, cancel := context.WithTimeout(ctx, locator.Timeout())
		receivers, err := locator.FindReceiversWithContext(sessionCtx)
		cancel()
		if err != nil {
			return err
		}

		// A session cut short by shutdown is not a complete view
		if ctx.Err() != nil {
			return nil
		}
		h.SetSnapshot(receivers)
		h.logger.Debug("Feed snapshot updated", zap.Int("receivers", len(receivers)))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}
