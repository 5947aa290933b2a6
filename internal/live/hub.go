// Package live pushes reload hints to open dashboards over websockets.
package live

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	applog "expenses/internal/log"
)

const (
	writeWait       = 5 * time.Second
	broadcastBuffer = 16
)

// Message is what browsers receive. Type is always "reload".
type Message struct {
	Type     string    `json:"type"`
	Revision int       `json:"revision"`
	Time     time.Time `json:"timestamp"`
}

// Hub tracks websocket clients and fans out reload messages.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.Mutex
	upgrader   websocket.Upgrader
	logger     *applog.Logger
	dropped    int64
}

func NewHub(logger *applog.Logger) *Hub {
	if logger == nil {
		logger = applog.Default(applog.ComponentLive)
	}
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger.WithComponent(applog.ComponentLive),
	}
}

// Run serves register, unregister and broadcast requests until ctx is done,
// then closes every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.stopOnce.Do(func() { close(h.done) })
			h.mu.Lock()
			for client := range h.clients {
				_ = client.Close()
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("Websocket client connected", "clients", n)
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				_ = client.Close()
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("Websocket client disconnected", "clients", n)
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				_ = client.SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					h.logger.Warn("Websocket write failed, dropping client", applog.FieldError, err)
					_ = client.Close()
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues a reload hint for every client. It never blocks: when
// the queue is full the hint is dropped, since a later one supersedes it.
func (h *Hub) Broadcast(revision int) {
	data, err := json.Marshal(Message{Type: "reload", Revision: revision, Time: time.Now().UTC()})
	if err != nil {
		h.logger.Error("Failed to marshal reload message", applog.FieldError, err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.mu.Lock()
		h.dropped++
		h.mu.Unlock()
	}
}

// ServeWS upgrades the request and keeps the client registered until it
// disconnects. Incoming frames are discarded.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Websocket upgrade failed", applog.FieldError, err)
		return
	}

	select {
	case h.register <- conn:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				select {
				case h.unregister <- conn:
				case <-h.done:
				}
				return
			}
		}
	}()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dropped returns how many hints were discarded because the queue was full.
func (h *Hub) Dropped() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}
