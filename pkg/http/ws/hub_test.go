package ws

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hubServer(t *testing.T, hub *Hub, sessionID uuid.UUID) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn := NewConnection(c, zerolog.New(io.Discard))
		hub.RegisterConnection(sessionID, conn)
		go conn.WritePump()
		conn.ReadPump(func(msg Message) error {
			if msg.Type == TypePing {
				pong, _ := NewMessage(TypePong, nil)
				pong.RequestID = msg.RequestID
				return conn.Send(pong)
			}
			return nil
		})
		hub.UnregisterConnection(sessionID, conn)
	}))
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestHub_BroadcastAndSend(t *testing.T) {
	hub := NewHub(zerolog.New(io.Discard))
	sessionID := uuid.New()
	srv := hubServer(t, hub, sessionID)
	defer srv.Close()

	client := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 5*time.Millisecond)

	msg, err := NewMessage(TypeMute, MutePayload{Muted: true})
	require.NoError(t, err)
	require.NoError(t, hub.BroadcastAll(msg))

	var got Message
	require.NoError(t, client.ReadJSON(&got))
	assert.Equal(t, TypeMute, got.Type)
	assert.JSONEq(t, `{"muted":true}`, string(got.Payload))

	require.NoError(t, client.WriteJSON(Message{Type: TypePing, RequestID: "r1"}))
	require.NoError(t, client.ReadJSON(&got))
	assert.Equal(t, TypePong, got.Type)
	assert.Equal(t, "r1", got.RequestID)

	assert.ErrorIs(t, hub.SendToSession(uuid.New(), msg), ErrConnectionNotFound)
}

func TestHub_UnregisterOnDisconnect(t *testing.T) {
	hub := NewHub(zerolog.New(io.Discard))
	sessionID := uuid.New()
	srv := hubServer(t, hub, sessionID)
	defer srv.Close()

	client := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 5*time.Millisecond)
	client.Close()
	require.Eventually(t, func() bool { return hub.Count() == 0 }, time.Second, 5*time.Millisecond)
}

func TestHub_ReplacedConnectionStaysRegistered(t *testing.T) {
	hub := NewHub(zerolog.New(io.Discard))
	sessionID := uuid.New()
	srv := hubServer(t, hub, sessionID)
	defer srv.Close()

	first := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 5*time.Millisecond)
	oldConn, _ := hub.GetConnection(sessionID)

	dial(t, srv)
	require.Eventually(t, func() bool {
		conn, ok := hub.GetConnection(sessionID)
		return ok && conn != oldConn
	}, time.Second, 5*time.Millisecond)

	// the replaced socket is closed by the server
	first.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := first.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, 1, hub.Count())
}

func TestNewMessage(t *testing.T) {
	msg, err := NewMessage(TypePong, nil)
	require.NoError(t, err)
	assert.Nil(t, msg.Payload)

	msg, err = NewMessage(TypeError, ErrorPayload{Code: "invalid_intent", Message: "nope"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":"invalid_intent","message":"nope"}`, string(msg.Payload))
}
