package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vikasavnish/tradehub/internal/logger"
	"github.com/vikasavnish/tradehub/internal/models"
)

const writeWait = 10 * time.Second

// client owns one connection. send has a single slot: a frame that has not
// been written yet is replaced by a newer one.
type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
	done chan struct{}
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		conn: conn,
		send: make(chan []byte, 1),
		done: make(chan struct{}),
	}
}

// offer puts frame in the slot, dropping any unsent older frame
func (c *client) offer(frame []byte) {
	for {
		select {
		case c.send <- frame:
			return
		default:
		}
		select {
		case <-c.send:
		default:
		}
	}
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	latest  []byte

	// Upgrader for HTTP connections to WebSocket
	upgrader websocket.Upgrader
}

// NewHub creates a new hub for managing WebSocket connections
func NewHub() *Hub {
	upgrader := websocket.Upgrader{
		// Allow all origins for WebSocket connections
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	return &Hub{
		clients:  make(map[*client]struct{}),
		upgrader: upgrader,
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// HandleWebSocket upgrades an HTTP connection to WebSocket. The new client
// gets the latest frame right away.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade", zap.Error(err))
		return
	}

	c := newClient(ws)
	h.register(c)

	go h.writePump(c)

	// Read messages from the client to notice when it goes away
	go func() {
		defer h.unregister(c)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	if h.latest != nil {
		c.offer(h.latest)
	}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

func (h *Hub) writePump(c *client) {
	defer c.conn.Close()
	for {
		select {
		case <-c.done:
			return
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				logger.Debug("websocket write", zap.Error(err))
				h.unregister(c)
				return
			}
		}
	}
}

// Broadcast sends a message to all connected clients without blocking on
// slow ones
func (h *Hub) Broadcast(msg models.Message) {
	frame, err := json.Marshal(msg)
	if err != nil {
		logger.Error("encode websocket message", zap.String("type", msg.Type), zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest = frame
	for c := range h.clients {
		c.offer(frame)
	}
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()
	for c := range clients {
		c.close()
	}
}
