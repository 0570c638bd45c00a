package web

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/JonMunkholm/dryerlog/internal/store"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

// upgrader uses the default same-origin check.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// EventMessage is one store event as sent to websocket clients.
type EventMessage struct {
	Event string      `json:"event"`
	Data  store.Event `json:"data"`
}

// Hub fans store events out to websocket clients. Clients that fall
// behind are disconnected.
type Hub struct {
	events     *store.Dispatcher
	clients    map[*client]struct{}
	broadcast  chan EventMessage
	register   chan *client
	unregister chan *client
	done       chan struct{}
	mu         sync.RWMutex
	log        *slog.Logger
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan EventMessage
}

// NewHub returns a hub for the events of d. Call Run to start it.
func NewHub(d *store.Dispatcher) *Hub {
	return &Hub{
		events:     d,
		clients:    make(map[*client]struct{}),
		broadcast:  make(chan EventMessage, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		log:        slog.Default().With("component", "events"),
	}
}

// Run subscribes to the dispatcher and serves clients until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	unsubscribe := h.events.Subscribe(h.publish)
	defer func() {
		unsubscribe()
		h.mu.Lock()
		for c := range h.clients {
			close(c.send)
			delete(h.clients, c)
		}
		h.mu.Unlock()
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("client connected", "clients", n)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("client disconnected", "clients", n)

		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					close(c.send)
					delete(h.clients, c)
					h.log.Warn("client too slow, disconnected")
				}
			}
			h.mu.Unlock()
		}
	}
}

// publish runs inside the store's dispatcher and must not block.
func (h *Hub) publish(e store.Event) {
	select {
	case h.broadcast <- EventMessage{Event: e.EventName(), Data: e}:
	default:
		h.log.Warn("broadcast channel full, dropping event", "event", e.EventName())
	}
}

// ServeWS upgrades the request and streams events to the client.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan EventMessage, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// readPump only handles control frames; client messages are discarded.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("websocket read failed", "error", err)
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
