package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/pillapp/pillapp-api/models"
)

const (
	clientBuffer = 16
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = pongWait * 9 / 10
)

// ReminderHub fans out every sent reminder to the websocket clients of the
// live feed. A client may subscribe to a single user with ?userId=.
type ReminderHub struct {
	upgrader websocket.Upgrader
	clients  map[string]*feedClient
	mutex    sync.Mutex
	closed   bool
}

type feedClient struct {
	id     string
	userID string
	conn   *websocket.Conn
	send   chan models.ReminderEvent
	done   chan struct{}
	once   sync.Once
}

// NewReminderHub creates a hub accepting websocket upgrades from origins.
// Requests without an Origin header are always accepted, and "*" allows any origin.
func NewReminderHub(origins []string) *ReminderHub {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}

	return &ReminderHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
		clients: make(map[string]*feedClient),
	}
}

// Publish queues event for every matching client. A client whose buffer is
// full misses the event rather than slowing the scheduler down.
func (h *ReminderHub) Publish(event models.ReminderEvent) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	userID := event.UserID.Hex()
	for _, c := range h.clients {
		if c.userID != "" && c.userID != userID {
			continue
		}
		select {
		case c.send <- event:
		default:
			zap.S().Warnw("reminder feed client is too slow, dropping event", "client", c.id)
		}
	}
}

// Clients returns the number of connected feed clients
func (h *ReminderHub) Clients() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones
func (h *ReminderHub) Close() {
	h.mutex.Lock()
	clients := make([]*feedClient, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[string]*feedClient)
	h.closed = true
	h.mutex.Unlock()

	for _, c := range clients {
		c.close()
	}
}

// FeedHandler upgrades the request to a websocket and streams reminder events
func (h *ReminderHub) FeedHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Warnw("websocket upgrade failed", "error", err)
		return
	}

	c := &feedClient{
		id:     uuid.New().String(),
		userID: r.URL.Query().Get("userId"),
		conn:   conn,
		send:   make(chan models.ReminderEvent, clientBuffer),
		done:   make(chan struct{}),
	}

	h.mutex.Lock()
	if h.closed {
		h.mutex.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c.id] = c
	h.mutex.Unlock()
	zap.S().Infow("reminder feed client connected", "client", c.id, "user", c.userID)

	go h.writePump(c)
	h.readPump(c)
}

// readPump drains control frames until the client goes away
func (h *ReminderHub) readPump(c *feedClient) {
	defer func() {
		h.mutex.Lock()
		delete(h.clients, c.id)
		h.mutex.Unlock()
		c.close()
		zap.S().Infow("reminder feed client disconnected", "client", c.id)
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			return
		}
	}
}

func (h *ReminderHub) writePump(c *feedClient) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
			_ = c.conn.Close()
			return
		case event := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(map[string]interface{}{"event": "reminder_sent", "data": event}); err != nil {
				zap.S().Warnw("failed to write to reminder feed client", "client", c.id, "error", err)
				_ = c.conn.Close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				_ = c.conn.Close()
				return
			}
		}
	}
}

func (c *feedClient) close() {
	c.once.Do(func() { close(c.done) })
}
