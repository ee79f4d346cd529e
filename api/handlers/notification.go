package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/linesmerrill/clinic-chat-api/api"
	"github.com/linesmerrill/clinic-chat-api/models"
)

// Chat events pushed over /ws/chat
const (
	EventChatReply        = "chat_reply"
	EventFeedbackRecorded = "feedback_recorded"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	clientSendSize = 16
)

// WebSocket upgrader
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Publisher delivers an event to every connection a user has open
type Publisher interface {
	Publish(userID string, event models.ChatEvent)
}

type hubClient struct {
	userID string
	conn   *websocket.Conn
	send   chan models.ChatEvent
}

// Hub tracks connected users (userId -> connections). A user may have the
// widget open in several tabs, so each user maps to a set of connections.
type Hub struct {
	clients map[string]map[*hubClient]struct{}
	mutex   sync.Mutex
	metrics *api.Metrics
}

// NewHub returns an empty hub
func NewHub(metrics *api.Metrics) *Hub {
	return &Hub{
		clients: make(map[string]map[*hubClient]struct{}),
		metrics: metrics,
	}
}

// HandleChatWebSocket upgrades an authenticated request and registers it
func (h *Hub) HandleChatWebSocket(w http.ResponseWriter, r *http.Request) {
	user, ok := api.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Errorw("websocket upgrade error", "error", err)
		return
	}

	c := &hubClient{userID: user.ID(), conn: conn, send: make(chan models.ChatEvent, clientSendSize)}
	h.register(c)
	zap.S().Infow("user connected to /ws/chat", "userId", c.userID)

	go h.writePump(c)
	h.readPump(c)
}

// Publish sends an event to the user's connections. Slow connections that
// cannot keep up are dropped rather than blocking the caller.
func (h *Hub) Publish(userID string, event models.ChatEvent) {
	if h == nil || userID == "" {
		return
	}
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for c := range h.clients[userID] {
		select {
		case c.send <- event:
		default:
			zap.S().Warnw("websocket client too slow, dropping", "userId", userID)
			h.removeLocked(c)
		}
	}
}

// Connections returns how many connections the user has open
func (h *Hub) Connections(userID string) int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients[userID])
}

// Close disconnects everybody
func (h *Hub) Close() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for _, set := range h.clients {
		for c := range set {
			h.removeLocked(c)
		}
	}
}

func (h *Hub) register(c *hubClient) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*hubClient]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
	h.metrics.WebsocketOpened()
}

func (h *Hub) unregister(c *hubClient) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *hubClient) {
	set, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
	close(c.send)
	h.metrics.WebsocketClosed()
}

// readPump discards client frames; it exists to process pongs and notice
// disconnects
func (h *Hub) readPump(c *hubClient) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
		zap.S().Infow("user disconnected from /ws/chat", "userId", c.userID)
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *hubClient) {
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
				zap.S().Errorw("error sending chat event", "userId", c.userID, "error", err)
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
