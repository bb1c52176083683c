package play

import (
	"context"
	"encoding/json"
	"fmt"
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

	"github.com/gokatarajesh/ladder-quiz/internal/auth/jwt"
	"github.com/gokatarajesh/ladder-quiz/internal/game"
	httperrors "github.com/gokatarajesh/ladder-quiz/pkg/http/errors"
	ws "github.com/gokatarajesh/ladder-quiz/pkg/http/ws"
)

type fixedSource struct{}

func (fixedSource) FetchQuestions(_ context.Context, tier game.Tier) ([]game.Question, error) {
	profile, err := game.ProfileFor(tier)
	if err != nil {
		return nil, err
	}
	out := make([]game.Question, profile.QuestionCount)
	for i := range out {
		out[i] = game.Question{
			Text:         fmt.Sprintf("Question %d?", i+1),
			Options:      [game.OptionCount]string{"Alpha", "Bravo", "Charlie", "Delta"},
			CorrectIndex: 1,
			Difficulty:   game.DifficultyEasy,
		}
	}
	return out, nil
}

type countingTracker struct {
	opened, closed chan struct{}
}

func (t *countingTracker) SessionOpened() { t.opened <- struct{}{} }
func (t *countingTracker) SessionClosed() { t.closed <- struct{}{} }

type testEnv struct {
	registry *Registry
	hub      *ws.Hub
	server   *httptest.Server
}

func newTestEnv(t *testing.T, opts RegistryOptions) *testEnv {
	t.Helper()
	logger := zerolog.New(io.Discard)
	hub := ws.NewHub(logger)
	if opts.Controller.IntroDelay == 0 {
		opts.Controller.IntroDelay = 10 * time.Millisecond
	}
	registry := NewRegistry(fixedSource{}, hub, jwt.NewManager(jwt.TokenConfig{Secret: []byte("test-secret")}), opts, logger)
	handler := NewHandler(registry, websocket.Upgrader{}, logger)
	srv := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	t.Cleanup(func() {
		srv.Close()
		registry.Shutdown()
	})
	return &testEnv{registry: registry, hub: hub, server: srv}
}

func (e *testEnv) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.server.URL, "http")
	if token != "" {
		url += "?token=" + token
	}
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func readMessage(t *testing.T, c *websocket.Conn) ws.Message {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg ws.Message
	require.NoError(t, c.ReadJSON(&msg))
	return msg
}

// readUntil skips messages until one of msgType arrives and accepts it.
func readUntil(t *testing.T, c *websocket.Conn, msgType string, accept func(ws.Message) bool) ws.Message {
	t.Helper()
	for i := 0; i < 100; i++ {
		msg := readMessage(t, c)
		if msg.Type == msgType && (accept == nil || accept(msg)) {
			return msg
		}
	}
	t.Fatalf("no %s message", msgType)
	return ws.Message{}
}

func screenIs(screen game.Screen) func(ws.Message) bool {
	return func(msg ws.Message) bool {
		var snap game.Snapshot
		return json.Unmarshal(msg.Payload, &snap) == nil && snap.Screen == screen
	}
}

func send(t *testing.T, c *websocket.Conn, msgType string, payload interface{}) {
	t.Helper()
	msg, err := ws.NewMessage(msgType, payload)
	require.NoError(t, err)
	msg.RequestID = "req-" + msgType
	require.NoError(t, c.WriteJSON(msg))
}

func decodeSession(t *testing.T, msg ws.Message) ws.SessionPayload {
	t.Helper()
	require.Equal(t, ws.TypeSession, msg.Type)
	var p ws.SessionPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &p))
	return p
}

func decodeError(t *testing.T, msg ws.Message) ws.ErrorPayload {
	t.Helper()
	require.Equal(t, ws.TypeError, msg.Type)
	var p ws.ErrorPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &p))
	return p
}

func TestHandler_PlaysAGame(t *testing.T) {
	env := newTestEnv(t, RegistryOptions{})
	c := env.dial(t, "")

	session := decodeSession(t, readMessage(t, c))
	assert.NotEmpty(t, session.SessionID)
	assert.NotEmpty(t, session.Token)
	assert.False(t, session.Resumed)

	readUntil(t, c, ws.TypeState, screenIs(game.ScreenSplash))

	send(t, c, ws.TypeEnterStudio, nil)
	readUntil(t, c, ws.TypeState, screenIs(game.ScreenDifficultySelect))

	send(t, c, ws.TypeChooseDifficulty, ws.ChooseDifficultyPayload{Tier: "easy"})
	msg := readUntil(t, c, ws.TypeState, screenIs(game.ScreenPlaying))

	var snap game.Snapshot
	require.NoError(t, json.Unmarshal(msg.Payload, &snap))
	require.NotNil(t, snap.Round)
	assert.Equal(t, "Question 1?", snap.Round.Text)
	assert.Equal(t, 8, snap.QuestionCount)

	send(t, c, ws.TypeUseLifeline, ws.UseLifelinePayload{Lifeline: "ask_audience"})
	readUntil(t, c, ws.TypeCue, func(m ws.Message) bool {
		var p ws.CuePayload
		return json.Unmarshal(m.Payload, &p) == nil && p.Cue == string(game.CueAudience)
	})

	// a spent lifeline is dropped without an error
	send(t, c, ws.TypeUseLifeline, ws.UseLifelinePayload{Lifeline: "ask_audience"})
	send(t, c, ws.TypePing, nil)
	readUntilNoError(t, c, ws.TypePong)
}

// readUntilNoError reads up to msgType and fails on any error message on the way.
func readUntilNoError(t *testing.T, c *websocket.Conn, msgType string) ws.Message {
	t.Helper()
	for i := 0; i < 100; i++ {
		msg := readMessage(t, c)
		require.NotEqual(t, ws.TypeError, msg.Type, string(msg.Payload))
		if msg.Type == msgType {
			return msg
		}
	}
	t.Fatalf("no %s message", msgType)
	return ws.Message{}
}

func TestHandler_DropsRacingClicksSilently(t *testing.T) {
	env := newTestEnv(t, RegistryOptions{})
	c := env.dial(t, "")
	decodeSession(t, readMessage(t, c))
	send(t, c, ws.TypeEnterStudio, nil)
	readUntil(t, c, ws.TypeState, screenIs(game.ScreenDifficultySelect))
	send(t, c, ws.TypeChooseDifficulty, ws.ChooseDifficultyPayload{Tier: "easy"})
	readUntil(t, c, ws.TypeState, screenIs(game.ScreenPlaying))

	// the second click lands while the first answer is resolving
	send(t, c, ws.TypeSelectOption, map[string]int{"index": 0})
	send(t, c, ws.TypeSelectOption, map[string]int{"index": 1})
	send(t, c, ws.TypePing, nil)
	readUntilNoError(t, c, ws.TypePong)

	// a session-level misuse still reports back
	send(t, c, ws.TypeEnterStudio, nil)
	errMsg := readUntil(t, c, ws.TypeError, nil)
	assert.Equal(t, httperrors.ErrCodeInvalidIntent, decodeError(t, errMsg).Code)
	assert.Equal(t, "req-"+ws.TypeEnterStudio, errMsg.RequestID)
}

func TestIgnorable(t *testing.T) {
	assert.True(t, ignorable(game.ErrLifelineUsed))
	assert.True(t, ignorable(fmt.Errorf("use lifeline: %w", game.ErrAnswerLocked)))
	assert.False(t, ignorable(game.ErrInvalidTransition))
	assert.False(t, ignorable(game.ErrUnknownLifeline))
	assert.False(t, ignorable(game.ErrSessionClosed))
}

func TestHandler_RejectsBadMessages(t *testing.T) {
	env := newTestEnv(t, RegistryOptions{})
	c := env.dial(t, "")
	decodeSession(t, readMessage(t, c))

	cases := []struct {
		msgType string
		payload interface{}
		code    string
	}{
		{ws.TypeBack, nil, httperrors.ErrCodeInvalidIntent},
		{ws.TypeChooseDifficulty, nil, httperrors.ErrCodeInvalidPayload},
		{ws.TypeChooseDifficulty, ws.ChooseDifficultyPayload{Tier: "nightmare"}, httperrors.ErrCodeInvalidIntent},
		{ws.TypeSelectOption, map[string]string{}, httperrors.ErrCodeInvalidPayload},
		{ws.TypeSelectOption, map[string]int{"index": 2}, httperrors.ErrCodeInvalidIntent},
		{ws.TypeUseLifeline, ws.UseLifelinePayload{Lifeline: "teleport"}, httperrors.ErrCodeInvalidIntent},
		{"dance", nil, httperrors.ErrCodeUnknownMessageType},
	}
	for _, tc := range cases {
		send(t, c, tc.msgType, tc.payload)
		got := decodeError(t, readUntil(t, c, ws.TypeError, nil))
		assert.Equal(t, tc.code, got.Code, tc.msgType)
	}

	// rejected intents never end the session
	send(t, c, ws.TypeEnterStudio, nil)
	readUntil(t, c, ws.TypeState, screenIs(game.ScreenDifficultySelect))
}

func TestHandler_PingAndMute(t *testing.T) {
	env := newTestEnv(t, RegistryOptions{})
	c := env.dial(t, "")
	decodeSession(t, readMessage(t, c))

	send(t, c, ws.TypePing, nil)
	pong := readUntil(t, c, ws.TypePong, nil)
	assert.Equal(t, "req-"+ws.TypePing, pong.RequestID)

	send(t, c, ws.TypeSetMuted, ws.SetMutedPayload{Muted: true})
	mute := readUntil(t, c, ws.TypeMute, nil)
	assert.JSONEq(t, `{"muted":true}`, string(mute.Payload))
}

func TestHandler_ResumesSession(t *testing.T) {
	env := newTestEnv(t, RegistryOptions{})
	first := env.dial(t, "")
	session := decodeSession(t, readMessage(t, first))
	send(t, first, ws.TypeEnterStudio, nil)
	readUntil(t, first, ws.TypeState, screenIs(game.ScreenDifficultySelect))
	first.Close()

	second := env.dial(t, session.Token)
	resumed := decodeSession(t, readMessage(t, second))
	assert.True(t, resumed.Resumed)
	assert.Equal(t, session.SessionID, resumed.SessionID)
	readUntil(t, second, ws.TypeState, screenIs(game.ScreenDifficultySelect))

	// the looping background cue is replayed to the new connection
	readUntil(t, second, ws.TypeCue, func(m ws.Message) bool {
		var p ws.CuePayload
		return json.Unmarshal(m.Payload, &p) == nil && p.Cue == string(game.CueBackground) && p.Loop
	})
	assert.Equal(t, 1, env.registry.Len())
}

func TestHandler_ResumeSeesStateChangedDuringAttach(t *testing.T) {
	env := newTestEnv(t, RegistryOptions{})
	first := env.dial(t, "")
	session := decodeSession(t, readMessage(t, first))
	send(t, first, ws.TypeEnterStudio, nil)
	readUntil(t, first, ws.TypeState, screenIs(game.ScreenDifficultySelect))
	first.Close()
	require.Eventually(t, func() bool { return env.hub.Count() == 0 }, time.Second, 5*time.Millisecond)

	env.registry.mu.RLock()
	live := env.registry.sessions[uuid.MustParse(session.SessionID)]
	env.registry.mu.RUnlock()
	require.NotNil(t, live)

	// hold the session loop so the resume and the intent queue up behind it
	release := make(chan struct{})
	held := make(chan struct{})
	go func() {
		_ = live.session.Do(context.Background(), func(*game.Controller) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	second := env.dial(t, session.Token)
	time.Sleep(50 * time.Millisecond)
	go func() {
		_ = live.session.Do(context.Background(), func(c *game.Controller) error { return c.Back() })
	}()
	time.Sleep(20 * time.Millisecond)
	close(release)

	assert.True(t, decodeSession(t, readMessage(t, second)).Resumed)
	readUntil(t, second, ws.TypeState, screenIs(game.ScreenSplash))
}

func TestHandler_InvalidTokenStartsNewSession(t *testing.T) {
	env := newTestEnv(t, RegistryOptions{})
	c := env.dial(t, "garbage")
	session := decodeSession(t, readMessage(t, c))
	assert.False(t, session.Resumed)
	assert.Equal(t, 1, env.registry.Len())
}

func TestRegistry_ReapsIdleDetachedSessions(t *testing.T) {
	tracker := &countingTracker{opened: make(chan struct{}, 4), closed: make(chan struct{}, 4)}
	env := newTestEnv(t, RegistryOptions{IdleTTL: time.Minute, Tracker: tracker})

	attached := env.dial(t, "")
	decodeSession(t, readMessage(t, attached))
	detached := env.dial(t, "")
	decodeSession(t, readMessage(t, detached))
	detached.Close()
	<-tracker.opened
	<-tracker.opened

	require.Eventually(t, func() bool { return env.hub.Count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, env.registry.reap(), "nothing is idle yet")

	env.registry.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	assert.Equal(t, 1, env.registry.reap())

	select {
	case <-tracker.closed:
	case <-time.After(time.Second):
		t.Fatal("reaped session was not closed")
	}
	require.Eventually(t, func() bool { return env.registry.Len() == 1 }, time.Second, 5*time.Millisecond)
}

func TestRegistry_ShutdownClosesAttach(t *testing.T) {
	env := newTestEnv(t, RegistryOptions{})
	c := env.dial(t, "")
	decodeSession(t, readMessage(t, c))

	env.registry.Shutdown()
	assert.Equal(t, 0, env.registry.Len())

	late := env.dial(t, "")
	errMsg := decodeError(t, readMessage(t, late))
	assert.Equal(t, httperrors.ErrCodeServiceUnavailable, errMsg.Code)
}
