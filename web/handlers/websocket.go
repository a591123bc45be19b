package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"

	"github.com/casefolio/chronicle/pkg/types"
)

// ActivityMessage is pushed to websocket subscribers after each chronology
// mutation.
type ActivityMessage struct {
	Type        string    `json:"type"`
	Action      string    `json:"action"` // created, updated, deleted
	EventID     int       `json:"event_id"`
	Date        string    `json:"date"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// WebSocketHub fans chronology activity out to connected browser clients.
// All client bookkeeping happens on the Run goroutine; handlers and
// observers only touch the channels.
type WebSocketHub struct {
	clients    map[string]*wsClient
	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan []byte
	done       chan struct{}
	logger     *log.Logger
}

// NewWebSocketHub creates a hub; call Run to start it.
func NewWebSocketHub(logger *log.Logger) *WebSocketHub {
	if logger == nil {
		logger = log.Default()
	}
	return &WebSocketHub{
		clients:    make(map[string]*wsClient),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run owns the client set until the context is cancelled.
func (h *WebSocketHub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, c := range h.clients {
				close(c.send)
			}
			return
		case c := <-h.register:
			h.clients[c.id] = c
		case c := <-h.unregister:
			if _, ok := h.clients[c.id]; ok {
				delete(h.clients, c.id)
				close(c.send)
			}
		case msg := <-h.broadcast:
			for id, c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Slow consumer; drop it rather than stall the hub.
					delete(h.clients, id)
					close(c.send)
				}
			}
		}
	}
}

// BroadcastActivity queues an activity message for all clients. Safe to
// call from any goroutine; drops the message if the hub is saturated or
// stopped.
func (h *WebSocketHub) BroadcastActivity(action string, e types.Event) {
	msg := ActivityMessage{
		Type:        "chronology_activity",
		Action:      action,
		EventID:     e.ID,
		Date:        e.Date.String(),
		Description: e.Description,
		Timestamp:   time.Now().UTC(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Printf("encode activity message: %v", err)
		return
	}
	select {
	case h.broadcast <- data:
	case <-h.done:
	default:
		h.logger.Printf("activity feed saturated, dropping %s for event %d", action, e.ID)
	}
}

// HandleWebSocket upgrades GET /ws and streams activity until the client
// disconnects.
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Printf("websocket accept: %v", err)
		return
	}

	client := &wsClient{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan []byte, 16),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Drain reads so pings and client closes are processed.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			h.deregister(client)
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case msg, ok := <-client.send:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			writeCtx, writeCancel := context.WithTimeout(ctx, 5*time.Second)
			err := conn.Write(writeCtx, websocket.MessageText, msg)
			writeCancel()
			if err != nil {
				h.deregister(client)
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
		}
	}
}

func (h *WebSocketHub) deregister(c *wsClient) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
