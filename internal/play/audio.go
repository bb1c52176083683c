package play

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/ladder-quiz/internal/game"
	ws "github.com/gokatarajesh/ladder-quiz/pkg/http/ws"
)

type sessionSender interface {
	SendToSession(sessionID uuid.UUID, msg ws.Message) error
}

// socketAudio is the game.Audio port of one session. Cues become messages on
// the session's current connection; looping cues and the mute flag are
// remembered so a reattached client can be brought up to date.
type socketAudio struct {
	sessionID uuid.UUID
	out       sessionSender
	logger    zerolog.Logger

	mu    sync.Mutex
	loops map[game.Cue]bool
	muted bool
}

var _ game.Audio = (*socketAudio)(nil)

func newSocketAudio(sessionID uuid.UUID, out sessionSender, logger zerolog.Logger) *socketAudio {
	return &socketAudio{
		sessionID: sessionID,
		out:       out,
		logger:    logger,
		loops:     make(map[game.Cue]bool),
	}
}

func (a *socketAudio) Play(cue game.Cue, loop bool) {
	if loop {
		a.mu.Lock()
		a.loops[cue] = true
		a.mu.Unlock()
	}
	a.send(ws.TypeCue, ws.CuePayload{Cue: string(cue), Loop: loop})
}

func (a *socketAudio) Stop(cue game.Cue) {
	a.mu.Lock()
	delete(a.loops, cue)
	a.mu.Unlock()
	a.send(ws.TypeCueStop, ws.CueStopPayload{Cue: string(cue)})
}

func (a *socketAudio) StopAll() {
	a.mu.Lock()
	a.loops = make(map[game.Cue]bool)
	a.mu.Unlock()
	a.send(ws.TypeCueStop, ws.CueStopPayload{All: true})
}

func (a *socketAudio) SetMuted(muted bool) {
	a.mu.Lock()
	a.muted = muted
	a.mu.Unlock()
	a.send(ws.TypeMute, ws.MutePayload{Muted: muted})
}

// replay resends the mute flag and every looping cue.
func (a *socketAudio) replay() {
	a.mu.Lock()
	muted := a.muted
	loops := make([]game.Cue, 0, len(a.loops))
	for cue := range a.loops {
		loops = append(loops, cue)
	}
	a.mu.Unlock()

	a.send(ws.TypeMute, ws.MutePayload{Muted: muted})
	for _, cue := range loops {
		a.send(ws.TypeCue, ws.CuePayload{Cue: string(cue), Loop: true})
	}
}

func (a *socketAudio) send(msgType string, payload interface{}) {
	msg, err := ws.NewMessage(msgType, payload)
	if err != nil {
		a.logger.Warn().Err(err).Str("type", msgType).Msg("encode audio message failed")
		return
	}
	if err := a.out.SendToSession(a.sessionID, msg); err != nil && !errors.Is(err, ws.ErrConnectionNotFound) {
		a.logger.Debug().Err(err).Str("type", msgType).Msg("audio message dropped")
	}
}

// stateForwarder pushes every snapshot to the session's connection.
type stateForwarder struct {
	game.NopListener

	sessionID uuid.UUID
	out       sessionSender
	logger    zerolog.Logger
}

func (f *stateForwarder) StateChanged(s game.Snapshot) {
	msg, err := ws.NewMessage(ws.TypeState, s)
	if err != nil {
		f.logger.Warn().Err(err).Msg("encode snapshot failed")
		return
	}
	if err := f.out.SendToSession(f.sessionID, msg); err != nil && !errors.Is(err, ws.ErrConnectionNotFound) {
		f.logger.Debug().Err(err).Msg("state message dropped")
	}
}
