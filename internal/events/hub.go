package events

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The feed carries detection results only; origin policy is left to
		// the deployment in front of this service.
		return true
	},
}

// client is one connected subscriber
type client struct {
	id   string
	conn *websocket.Conn
	send chan Event
}

// Hub maintains the set of subscribers and fans events out to them. Events
// are fire-and-forget: a slow or full subscriber is disconnected, and a full
// broadcast queue drops the event rather than block a request stream.
type Hub struct {
	enabled bool
	logger  *zap.Logger

	clients    map[*client]bool
	broadcast  chan Event
	register   chan *client
	unregister chan *client

	mu sync.RWMutex
}

// NewHub creates a new event hub
func NewHub(enabled bool, logger *zap.Logger) *Hub {
	return &Hub{
		enabled:    enabled,
		logger:     logger,
		clients:    make(map[*client]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
	}
}

// Run handles registration and broadcasting; call it in its own goroutine
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.addClient(c)
		case c := <-h.unregister:
			h.removeClient(c)
		case event := <-h.broadcast:
			h.fanOut(event)
		}
	}
}

// Broadcast queues an event for delivery; it never blocks the caller
func (h *Hub) Broadcast(event Event) {
	if !h.enabled {
		return
	}
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("broadcast queue full, dropping event",
			zap.String("event_type", string(event.Type)),
		)
	}
}

// HandleWebSocket upgrades a request into a subscriber connection
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !h.enabled {
		http.Error(w, "event feed disabled", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		id:   fmt.Sprintf("%d", time.Now().UnixNano()),
		conn: conn,
		send: make(chan Event, 256),
	}
	h.register <- c

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) addClient(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c] = true
	h.logger.Info("event subscriber connected",
		zap.String("client_id", c.id),
		zap.Int("subscribers", len(h.clients)),
	)
	go h.Broadcast(Event{
		Type:      EventTypeConnection,
		Timestamp: time.Now(),
		Data:      ConnectionEvent{Action: "connected", ClientID: c.id},
	})
}

func (h *Hub) removeClient(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.logger.Info("event subscriber disconnected",
		zap.String("client_id", c.id),
		zap.Int("subscribers", len(h.clients)),
	)
}

func (h *Hub) fanOut(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- event:
		default:
			h.logger.Warn("subscriber send queue full, closing connection",
				zap.String("client_id", c.id),
			)
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// writePump delivers events and keepalive pings to one subscriber
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				h.logger.Debug("websocket write failed",
					zap.String("client_id", c.id),
					zap.Error(err),
				)
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

// readPump drains subscriber messages; the feed is one-way, so inbound data
// only serves pong handling and disconnect detection
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister <- c
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
			return
		}
	}
}
