package lookingglass

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialSession(t *testing.T, e *Engine, s *Session) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e.HandleWebSocket(w, r, s, nil)
	}))
	t.Cleanup(server.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWebSocketStreamsHistoryThenLiveEvents(t *testing.T) {
	e := NewEngine()
	s := e.CreateSession("stream")
	require.True(t, e.AddEvent(s.ID, Event{Type: EventTypeNote, Title: "before"}))

	conn := dialSession(t, e, s)

	info := readMessage(t, conn)
	assert.Equal(t, "session.info", info.Type)

	history := readMessage(t, conn)
	assert.Equal(t, string(EventTypeNote), history.Type)
	assert.Equal(t, "before", history.Payload.(map[string]interface{})["title"])

	require.Eventually(t, func() bool { return s.SubscriberCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.True(t, e.AddEvent(s.ID, Event{Type: EventTypeNote, Title: "after"}))

	live := readMessage(t, conn)
	assert.Equal(t, "after", live.Payload.(map[string]interface{})["title"])
}

func TestWebSocketCommandsChangeState(t *testing.T) {
	e := NewEngine()
	s := e.CreateSession("")
	conn := dialSession(t, e, s)
	readMessage(t, conn)

	data, err := json.Marshal(Message{Type: "session.pause"})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))

	require.Eventually(t, func() bool {
		return s.Summary().State == SessionStatePaused
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDeleteSessionClosesSubscribers(t *testing.T) {
	e := NewEngine()
	s := e.CreateSession("")
	conn := dialSession(t, e, s)
	readMessage(t, conn)
	require.Eventually(t, func() bool { return s.SubscriberCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.True(t, e.DeleteSession(s.ID))
	assert.Equal(t, 0, s.SubscriberCount())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}
