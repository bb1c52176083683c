package play

import (
	"encoding/json"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/ladder-quiz/internal/game"
	ws "github.com/gokatarajesh/ladder-quiz/pkg/http/ws"
)

type captureSender struct {
	msgs []ws.Message
}

func (c *captureSender) SendToSession(_ uuid.UUID, msg ws.Message) error {
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *captureSender) reset() { c.msgs = nil }

func TestSocketAudio_Messages(t *testing.T) {
	out := &captureSender{}
	a := newSocketAudio(uuid.New(), out, zerolog.New(io.Discard))

	a.Play(game.CueTension, true)
	a.Stop(game.CueTension)
	a.StopAll()
	a.SetMuted(true)

	require.Len(t, out.msgs, 4)
	assert.Equal(t, ws.TypeCue, out.msgs[0].Type)
	assert.JSONEq(t, `{"cue":"tension","loop":true}`, string(out.msgs[0].Payload))
	assert.JSONEq(t, `{"cue":"tension"}`, string(out.msgs[1].Payload))
	assert.JSONEq(t, `{"all":true}`, string(out.msgs[2].Payload))
	assert.Equal(t, ws.TypeMute, out.msgs[3].Type)
}

func TestSocketAudio_ReplayOnlyLoops(t *testing.T) {
	out := &captureSender{}
	a := newSocketAudio(uuid.New(), out, zerolog.New(io.Discard))

	a.Play(game.CueBackground, true)
	a.Play(game.CueClick, false)
	a.StopAll()
	a.Play(game.CueTension, true)
	a.SetMuted(true)
	out.reset()

	a.replay()
	require.Len(t, out.msgs, 2)
	assert.JSONEq(t, `{"muted":true}`, string(out.msgs[0].Payload))
	var cue ws.CuePayload
	require.NoError(t, json.Unmarshal(out.msgs[1].Payload, &cue))
	assert.Equal(t, ws.CuePayload{Cue: "tension", Loop: true}, cue)
}

func TestStateForwarder(t *testing.T) {
	out := &captureSender{}
	f := &stateForwarder{sessionID: uuid.New(), out: out, logger: zerolog.New(io.Discard)}
	f.StateChanged(game.Snapshot{Screen: game.ScreenVictory, Winnings: 10000000})

	require.Len(t, out.msgs, 1)
	var snap game.Snapshot
	require.NoError(t, json.Unmarshal(out.msgs[0].Payload, &snap))
	assert.Equal(t, game.ScreenVictory, snap.Screen)
	assert.Equal(t, 10000000, snap.Winnings)
}
