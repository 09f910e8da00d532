// Package livereload serves the distribution directory over HTTP and tells
// connected browsers over a websocket whenever a watch event has been
// handled.
package livereload

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/conneroisu/htmlc/internal/logging"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Send pings to peer with this period.
	pingPeriod = 54 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// Message is sent to every client after a watch event settles.
type Message struct {
	Type  string `json:"type"`
	Event string `json:"event"`
	Path  string `json:"path,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub keeps the set of connected clients and fans out reload messages.
type Hub struct {
	clients    map[*websocket.Conn]*client
	register   chan *client
	unregister chan *websocket.Conn
	broadcast  chan []byte
	done       chan struct{}
	mutex      sync.RWMutex
	logger     logging.Logger
}

// NewHub creates a hub. Run must be called for it to deliver anything.
func NewHub(logger logging.Logger) *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]*client),
		register:   make(chan *client),
		unregister: make(chan *websocket.Conn),
		broadcast:  make(chan []byte, 16),
		done:       make(chan struct{}),
		logger:     logger.WithComponent("livereload"),
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Reload queues a reload message for every client. It never blocks; when the
// queue is full the message is dropped, since a later one reloads anyway.
func (h *Hub) Reload(label, path string) {
	data, err := json.Marshal(Message{Type: "reload", Event: label, Path: path})
	if err != nil {
		h.logger.Error(context.Background(), err, "Failed to encode reload message")
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.logger.Debug(context.Background(), "Reload queue full, dropping message", "event", label)
	}
}

// Run delivers messages until ctx is done, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for conn, c := range h.clients {
				delete(h.clients, conn)
				close(c.send)
			}
			h.mutex.Unlock()
			return

		case c := <-h.register:
			h.mutex.Lock()
			h.clients[c.conn] = c
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Debug(ctx, "Client connected", "clients", count)

		case conn := <-h.unregister:
			h.mutex.Lock()
			if c, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				close(c.send)
			}
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Debug(ctx, "Client disconnected", "clients", count)

		case message := <-h.broadcast:
			h.mutex.Lock()
			for conn, c := range h.clients {
				select {
				case c.send <- message:
				default:
					// Client's send channel is full, drop it
					delete(h.clients, conn)
					close(c.send)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// ServeHTTP upgrades the request to a websocket and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), err, "WebSocket upgrade failed")
		return
	}
	conn.SetReadLimit(maxMessageSize)

	c := &client{conn: conn, send: make(chan []byte, 16)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close(websocket.StatusGoingAway, "")
		return
	case <-r.Context().Done():
		conn.Close(websocket.StatusGoingAway, "")
		return
	}

	go h.writePump(c)
	h.readPump(r.Context(), c)
}

// readPump discards client messages and notices disconnects.
func (h *Hub) readPump(ctx context.Context, c *client) {
	defer func() {
		select {
		case h.unregister <- c.conn:
		case <-h.done:
		}
	}()

	for {
		if _, _, err := c.conn.Read(ctx); err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && ctx.Err() == nil {
				h.logger.Debug(ctx, "WebSocket read ended", "error", err.Error())
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	ctx := context.Background()
	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				h.logger.Debug(ctx, "WebSocket write failed", "error", err.Error())
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
