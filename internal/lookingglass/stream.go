package lookingglass

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 512
	sendBuffer     = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Subscribers are diagnostic tools on arbitrary origins.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client represents a WebSocket client connection
type Client struct {
	conn    *websocket.Conn
	send    chan []byte
	session *Session
	logger  *slog.Logger
}

// Message represents a WebSocket message
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// HandleWebSocket upgrades the connection and streams the session's history
// followed by live events.
func (e *Engine) HandleWebSocket(w http.ResponseWriter, r *http.Request, session *Session, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "session", session.ID, "error", err)
		return
	}

	client := &Client{
		conn:    conn,
		session: session,
		logger:  logger.With("session", session.ID),
	}

	// Registration and history are enqueued under the session lock so no live
	// event can overtake the history.
	session.subscribe(client)

	go client.writePump()
	go client.readPump()
}

func (s *Session) subscribe(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	client.send = make(chan []byte, max(sendBuffer, len(s.Events)+1))

	info, _ := json.Marshal(Message{
		Type: "session.info",
		Payload: map[string]interface{}{
			"id":         s.ID,
			"label":      s.Label,
			"state":      s.State,
			"created_at": s.CreatedAt,
		},
	})
	client.send <- info

	for _, event := range s.Events {
		data, err := json.Marshal(Message{Type: string(event.Type), Payload: event})
		if err != nil {
			continue
		}
		client.send <- data
	}

	s.clients[client] = true
}

func (s *Session) unregisterClient(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[client]; ok {
		delete(s.clients, client)
		close(client.send)
	}
}

func (s *Session) closeClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for client := range s.clients {
		delete(s.clients, client)
		close(client.send)
	}
}

// SubscriberCount returns the number of connected WebSocket clients
func (s *Session) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *Session) broadcast(event Event) {
	msg := Message{
		Type:    string(event.Type),
		Payload: event,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for client := range s.clients {
		select {
		case client.send <- data:
		default:
			// Client buffer full, skip
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.session.unregisterClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket read failed", "error", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

// handleMessage applies session commands sent by the subscriber
func (c *Client) handleMessage(message []byte) {
	var msg Message
	if err := json.Unmarshal(message, &msg); err != nil {
		return
	}

	switch msg.Type {
	case "session.pause":
		c.session.SetState(SessionStatePaused)
	case "session.resume":
		c.session.SetState(SessionStateActive)
	case "session.complete":
		c.session.SetState(SessionStateComplete)
	}
}

// EventBroadcaster emits events into one session
type EventBroadcaster struct {
	engine    *Engine
	sessionID string
}

// NewEventBroadcaster creates a broadcaster for a specific session
func (e *Engine) NewEventBroadcaster(sessionID string) *EventBroadcaster {
	return &EventBroadcaster{
		engine:    e,
		sessionID: sessionID,
	}
}

// Emit sends an event to the session
func (b *EventBroadcaster) Emit(eventType EventType, title string, data map[string]interface{}) bool {
	return b.engine.AddEvent(b.sessionID, Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Title:     title,
		Data:      data,
	})
}

// EmitHTTPExchange emits a captured HTTP request/response pair
func (b *EventBroadcaster) EmitHTTPExchange(title string, exchange CapturedExchange) bool {
	return b.Emit(EventTypeHTTPExchange, title, map[string]interface{}{
		"exchange": exchange,
	})
}
