package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// Frame is the JSON payload pushed to WebSocket clients.
type Frame struct {
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// WebSocketObserver streams transcript updates to connected WebSocket clients.
// It is both an Observer and the http.Handler clients connect to.
type WebSocketObserver struct {
	mu           sync.Mutex
	clients      map[*websocket.Conn]struct{}
	writeTimeout time.Duration
	logger       *zap.Logger
}

// NewWebSocketObserver creates an observer with no connected clients.
func NewWebSocketObserver(logger *zap.Logger) *WebSocketObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSocketObserver{
		clients:      make(map[*websocket.Conn]struct{}),
		writeTimeout: 5 * time.Second,
		logger:       logger.With(zap.String("component", "ws_observer")),
	}
}

// ServeHTTP upgrades the request and keeps the client registered until it
// disconnects. Client-sent frames are discarded.
func (w *WebSocketObserver) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(rw, r, nil)
	if err != nil {
		w.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}

	w.mu.Lock()
	w.clients[conn] = struct{}{}
	w.mu.Unlock()
	w.logger.Debug("client connected", zap.String("remote", r.RemoteAddr))

	ctx := conn.CloseRead(r.Context())
	<-ctx.Done()

	w.remove(conn)
	conn.Close(websocket.StatusNormalClosure, "")
}

// Clients returns the number of connected clients.
func (w *WebSocketObserver) Clients() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.clients)
}

// Observe implements Observer by writing a Frame to every client. Clients
// whose write fails are disconnected.
func (w *WebSocketObserver) Observe(ctx context.Context, n Notification) error {
	data, err := json.Marshal(Frame{Sender: n.Sender, Content: n.Content, Timestamp: n.Timestamp})
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	w.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(w.clients))
	for c := range w.clients {
		conns = append(conns, c)
	}
	w.mu.Unlock()

	var failed int
	for _, c := range conns {
		wctx, cancel := context.WithTimeout(ctx, w.writeTimeout)
		err := c.Write(wctx, websocket.MessageText, data)
		cancel()
		if err != nil {
			failed++
			w.remove(c)
			c.Close(websocket.StatusGoingAway, "write failed")
		}
	}
	if failed > 0 {
		return fmt.Errorf("websocket write failed for %d of %d clients", failed, len(conns))
	}
	return nil
}

// Close disconnects all clients.
func (w *WebSocketObserver) Close() {
	w.mu.Lock()
	conns := w.clients
	w.clients = make(map[*websocket.Conn]struct{})
	w.mu.Unlock()

	for c := range conns {
		c.Close(websocket.StatusGoingAway, "shutting down")
	}
}

func (w *WebSocketObserver) remove(c *websocket.Conn) {
	w.mu.Lock()
	delete(w.clients, c)
	w.mu.Unlock()
}
