// Package lookingglass records HTTP exchanges into in-memory inspection
// sessions and streams them to WebSocket subscribers.
package lookingglass

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultMaxSessions = 100
	defaultMaxEvents   = 200
)

// Engine is the main looking glass inspection engine
type Engine struct {
	sessions    map[string]*Session
	maxSessions int
	maxEvents   int
	mu          sync.RWMutex
}

// NewEngine creates a new looking glass engine
func NewEngine() *Engine {
	return NewEngineWithLimits(defaultMaxSessions, defaultMaxEvents)
}

// NewEngineWithLimits creates an engine that keeps at most maxSessions
// sessions and maxEvents events per session. Older entries are dropped first.
func NewEngineWithLimits(maxSessions, maxEvents int) *Engine {
	if maxSessions <= 0 {
		maxSessions = defaultMaxSessions
	}
	if maxEvents <= 0 {
		maxEvents = defaultMaxEvents
	}
	return &Engine{
		sessions:    make(map[string]*Session),
		maxSessions: maxSessions,
		maxEvents:   maxEvents,
	}
}

// Session represents an active looking glass session
type Session struct {
	ID        string       `json:"id"`
	Label     string       `json:"label,omitempty"`
	Events    []Event      `json:"events"`
	State     SessionState `json:"state"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`

	// WebSocket connections for this session
	clients map[*Client]bool
	mu      sync.RWMutex
}

// SessionState represents the state of a looking glass session
type SessionState string

const (
	SessionStateActive   SessionState = "active"
	SessionStatePaused   SessionState = "paused"
	SessionStateComplete SessionState = "complete"
)

// Event represents something captured by looking glass
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Title     string                 `json:"title"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// EventType categorizes looking glass events
type EventType string

const (
	EventTypeHTTPExchange EventType = "http.exchange"
	EventTypeNote         EventType = "session.note"
)

// SessionSummary is the listing view of a session
type SessionSummary struct {
	ID         string       `json:"id"`
	Label      string       `json:"label,omitempty"`
	State      SessionState `json:"state"`
	EventCount int          `json:"event_count"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// CreateSession creates a new looking glass session, evicting the oldest
// session when the engine is full.
func (e *Engine) CreateSession(label string) *Session {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.sessions) >= e.maxSessions {
		e.evictOldestLocked()
	}

	now := time.Now()
	session := &Session{
		ID:        uuid.New().String(),
		Label:     label,
		Events:    make([]Event, 0),
		State:     SessionStateActive,
		CreatedAt: now,
		UpdatedAt: now,
		clients:   make(map[*Client]bool),
	}

	e.sessions[session.ID] = session
	return session
}

func (e *Engine) evictOldestLocked() {
	var oldest *Session
	for _, s := range e.sessions {
		if oldest == nil || s.CreatedAt.Before(oldest.CreatedAt) {
			oldest = s
		}
	}
	if oldest != nil {
		delete(e.sessions, oldest.ID)
		oldest.closeClients()
	}
}

// GetSession retrieves a session by ID
func (e *Engine) GetSession(id string) (*Session, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	session, exists := e.sessions[id]
	return session, exists
}

// ListSessions returns summaries of all sessions, newest first
func (e *Engine) ListSessions() []SessionSummary {
	e.mu.RLock()
	sessions := make([]*Session, 0, len(e.sessions))
	for _, s := range e.sessions {
		sessions = append(sessions, s)
	}
	e.mu.RUnlock()

	summaries := make([]SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		summaries = append(summaries, s.Summary())
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	return summaries
}

// DeleteSession removes a session and disconnects its subscribers
func (e *Engine) DeleteSession(id string) bool {
	e.mu.Lock()
	session, exists := e.sessions[id]
	delete(e.sessions, id)
	e.mu.Unlock()

	if exists {
		session.closeClients()
	}
	return exists
}

// AddEvent adds an event to a session and broadcasts to clients. Events for
// unknown, paused or completed sessions are dropped.
func (e *Engine) AddEvent(sessionID string, event Event) bool {
	e.mu.RLock()
	session, exists := e.sessions[sessionID]
	e.mu.RUnlock()

	if !exists {
		return false
	}

	event.ID = uuid.New().String()
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	session.mu.Lock()
	if session.State != SessionStateActive {
		session.mu.Unlock()
		return false
	}
	session.Events = append(session.Events, event)
	if overflow := len(session.Events) - e.maxEvents; overflow > 0 {
		session.Events = append([]Event(nil), session.Events[overflow:]...)
	}
	session.UpdatedAt = time.Now()
	session.mu.Unlock()

	// Broadcast to connected clients
	session.broadcast(event)
	return true
}

// Summary returns a consistent listing view of the session
func (s *Session) Summary() SessionSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SessionSummary{
		ID:         s.ID,
		Label:      s.Label,
		State:      s.State,
		EventCount: len(s.Events),
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}
}

// Snapshot returns a copy of the session that is safe to serialize
func (s *Session) Snapshot() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := make([]Event, len(s.Events))
	copy(events, s.Events)
	return &Session{
		ID:        s.ID,
		Label:     s.Label,
		Events:    events,
		State:     s.State,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// SetState changes the session state
func (s *Session) SetState(state SessionState) {
	s.mu.Lock()
	s.State = state
	s.UpdatedAt = time.Now()
	s.mu.Unlock()
}

// CapturedExchange is one request/response pair seen by the capture
// middleware, together with whatever the handler reported about it.
type CapturedExchange struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	Route     string          `json:"route,omitempty"`
	Request   CapturedMessage `json:"request"`
	Response  CapturedMessage `json:"response"`
	Duration  time.Duration   `json:"duration_ns"`
	Outcome   Outcome         `json:"outcome,omitempty"`
}

// CapturedMessage is one side of an exchange
type CapturedMessage struct {
	Method     string              `json:"method,omitempty"`
	URL        string              `json:"url,omitempty"`
	RemoteAddr string              `json:"remote_addr,omitempty"`
	Status     int                 `json:"status,omitempty"`
	Headers    map[string][]string `json:"headers"`
	Body       *CapturedPayload    `json:"body,omitempty"`
}

// CapturedPayload holds a possibly truncated body. Data is base64 when
// Encoding is "base64".
type CapturedPayload struct {
	Encoding  string `json:"encoding"`
	Data      string `json:"data"`
	Size      int64  `json:"size"`
	Truncated bool   `json:"truncated"`
}
