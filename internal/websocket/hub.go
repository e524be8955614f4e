package eventws

import (
	"encoding/json"
	"log"
	"strconv"
	"time"

	"github.com/IkeLongo/collenback-strength-sub000/internal/models"
	websocket "github.com/gofiber/contrib/websocket"
)

// Hub fans session lifecycle events out to the connected client and coach.
// The push direction is server to browser only; inbound frames are ignored
// apart from connection keepalive.
type Hub struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Event
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string
	send   chan []byte
}

type Event struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	ClientID  string `json:"client_id"`
	CoachID   string `json:"coach_id"`
	Start     string `json:"start"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Event, 64),
	}
}

func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, 32),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			set, ok := h.clients[client.userID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.userID] = set
			}
			set[client] = struct{}{}
		case client := <-h.unregister:
			set, ok := h.clients[client.userID]
			if !ok {
				continue
			}
			if _, exists := set[client]; exists {
				delete(set, client)
				close(client.send)
			}
			if len(set) == 0 {
				delete(h.clients, client.userID)
			}
		case event := <-h.broadcast:
			h.deliver(event)
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// BroadcastSessionEvent queues an event for the session's client and coach.
// Non-blocking; events are dropped if the hub queue is full.
func (h *Hub) BroadcastSessionEvent(kind string, session *models.Session) {
	event := &Event{
		Type:      kind,
		SessionID: strconv.FormatInt(session.ID, 10),
		ClientID:  strconv.FormatInt(session.ClientID, 10),
		CoachID:   strconv.FormatInt(session.CoachID, 10),
		Start:     session.ScheduledStart.UTC().Format(time.RFC3339),
		Status:    session.Status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	select {
	case h.broadcast <- event:
	default:
		log.Printf("event hub queue full, dropping %s for session %s", kind, event.SessionID)
	}
}

func (h *Hub) deliver(event *Event) {
	encoded, err := json.Marshal(event)
	if err != nil {
		log.Printf("event hub encode: %v", err)
		return
	}

	h.sendToUser(event.ClientID, encoded)
	if event.CoachID != event.ClientID {
		h.sendToUser(event.CoachID, encoded)
	}
}

func (h *Hub) sendToUser(userID string, payload []byte) {
	set, ok := h.clients[userID]
	if !ok {
		return
	}

	for client := range set {
		select {
		case client.send <- payload:
		default:
			delete(set, client)
			close(client.send)
		}
	}
	if len(set) == 0 {
		delete(h.clients, userID)
	}
}

// ReadPump drains inbound frames until the connection drops. Clients have
// nothing to send; reading is only needed to notice disconnects.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}
