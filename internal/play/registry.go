package play

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/ladder-quiz/internal/auth/jwt"
	"github.com/gokatarajesh/ladder-quiz/internal/game"
	ws "github.com/gokatarajesh/ladder-quiz/pkg/http/ws"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrRegistryClosed  = errors.New("session registry closed")
)

// SessionTracker is told when sessions are created and discarded.
type SessionTracker interface {
	SessionOpened()
	SessionClosed()
}

// RegistryOptions configures session creation and reaping.
type RegistryOptions struct {
	// Controller is applied to every session. Its Audio and Listener fields are
	// replaced per session and Rand must be nil.
	Controller   game.ControllerOptions
	Listeners    []game.Listener
	IdleTTL      time.Duration
	ReapInterval time.Duration
	Tracker      SessionTracker
}

// Attachment is the result of binding a connection to a session.
type Attachment struct {
	Session *game.Session
	Token   string
	Resumed bool
}

type liveSession struct {
	session *game.Session
	audio   *socketAudio
}

// Registry owns the in-memory game sessions and attaches WebSocket
// connections to them.
type Registry struct {
	source game.QuestionSource
	hub    *ws.Hub
	tokens *jwt.Manager
	opts   RegistryOptions
	base   zerolog.Logger
	logger zerolog.Logger
	now    func() time.Time

	mu       sync.RWMutex
	sessions map[uuid.UUID]*liveSession
	closed   bool
	wg       sync.WaitGroup
}

func NewRegistry(source game.QuestionSource, hub *ws.Hub, tokens *jwt.Manager, opts RegistryOptions, logger zerolog.Logger) *Registry {
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 30 * time.Minute
	}
	if opts.ReapInterval <= 0 {
		opts.ReapInterval = time.Minute
	}
	opts.Controller.Rand = nil
	return &Registry{
		source:   source,
		hub:      hub,
		tokens:   tokens,
		opts:     opts,
		base:     logger,
		logger:   logger.With().Str("component", "session_registry").Logger(),
		now:      time.Now,
		sessions: make(map[uuid.UUID]*liveSession),
	}
}

// Attach binds conn to the session named by token. An empty, invalid or
// expired token, or one whose session is gone, starts a new session instead.
// The session message is queued on conn before any state or cue.
func (r *Registry) Attach(ctx context.Context, token string, conn *ws.Connection) (Attachment, error) {
	if token != "" {
		att, err := r.resume(ctx, token, conn)
		if err == nil {
			return att, nil
		}
		if errors.Is(err, ErrRegistryClosed) {
			return Attachment{}, err
		}
		r.logger.Debug().Err(err).Msg("resume failed, starting new session")
	}
	return r.create(conn)
}

// Detach releases conn; the session keeps running until it is reaped.
func (r *Registry) Detach(sessionID uuid.UUID, conn *ws.Connection) {
	r.hub.UnregisterConnection(sessionID, conn)
}

func (r *Registry) create(conn *ws.Connection) (Attachment, error) {
	id := uuid.New()
	token, err := r.tokens.GenerateSessionToken(id)
	if err != nil {
		return Attachment{}, err
	}

	audio := newSocketAudio(id, r.hub, r.logger)
	listeners := game.Listeners{&stateForwarder{sessionID: id, out: r.hub, logger: r.logger}}
	listeners = append(listeners, r.opts.Listeners...)

	copts := r.opts.Controller
	copts.Audio = audio
	copts.Listener = listeners
	session := game.NewSession(id, r.source, copts, r.base)
	live := &liveSession{session: session, audio: audio}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return Attachment{}, ErrRegistryClosed
	}
	r.sessions[id] = live
	r.wg.Add(1)
	r.mu.Unlock()

	if r.opts.Tracker != nil {
		r.opts.Tracker.SessionOpened()
	}

	if err := sendSession(conn, id, token, false); err != nil {
		r.logger.Warn().Err(err).Msg("send session message failed")
	}
	r.hub.RegisterConnection(id, conn)

	go func() {
		defer r.wg.Done()
		session.Run(context.Background())
		r.remove(id)
	}()

	r.logger.Info().Str("session_id", id.String()).Msg("session created")
	return Attachment{Session: session, Token: token}, nil
}

func (r *Registry) resume(ctx context.Context, token string, conn *ws.Connection) (Attachment, error) {
	claims, err := r.tokens.ValidateSessionToken(token)
	if err != nil {
		return Attachment{}, err
	}

	r.mu.RLock()
	closed := r.closed
	live, ok := r.sessions[claims.SessionID]
	r.mu.RUnlock()
	if closed {
		return Attachment{}, ErrRegistryClosed
	}
	if !ok {
		return Attachment{}, ErrSessionNotFound
	}

	fresh, err := r.tokens.GenerateSessionToken(claims.SessionID)
	if err != nil {
		return Attachment{}, err
	}

	// Registration and the snapshot share one loop turn so no state change
	// can fall between them.
	err = live.session.Do(context.WithoutCancel(ctx), func(c *game.Controller) error {
		if err := sendSession(conn, claims.SessionID, fresh, true); err != nil {
			r.logger.Warn().Err(err).Msg("send session message failed")
		}
		r.hub.RegisterConnection(claims.SessionID, conn)
		if msg, err := ws.NewMessage(ws.TypeState, c.Snapshot()); err == nil {
			_ = conn.Send(msg)
		}
		live.audio.replay()
		return nil
	})
	if err != nil {
		return Attachment{}, err
	}

	r.logger.Info().Str("session_id", claims.SessionID.String()).Msg("session resumed")
	return Attachment{Session: live.session, Token: fresh, Resumed: true}, nil
}

func (r *Registry) remove(id uuid.UUID) {
	r.mu.Lock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok && r.opts.Tracker != nil {
		r.opts.Tracker.SessionClosed()
	}
	if conn, attached := r.hub.GetConnection(id); attached {
		r.hub.UnregisterConnection(id, conn)
	}
	r.logger.Debug().Str("session_id", id.String()).Msg("session removed")
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Run reaps idle sessions until ctx is cancelled, then stops every session.
func (r *Registry) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.opts.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.Shutdown()
			return ctx.Err()
		case <-ticker.C:
			r.reap()
		}
	}
}

// reap stops sessions with no connection and no intent for IdleTTL.
func (r *Registry) reap() int {
	cutoff := r.now().Add(-r.opts.IdleTTL)

	r.mu.RLock()
	var idle []*game.Session
	for id, live := range r.sessions {
		if _, attached := r.hub.GetConnection(id); attached {
			continue
		}
		if live.session.LastActive().Before(cutoff) {
			idle = append(idle, live.session)
		}
	}
	r.mu.RUnlock()

	for _, s := range idle {
		s.Stop()
	}
	if len(idle) > 0 {
		r.logger.Info().Int("reaped", len(idle)).Msg("idle sessions stopped")
	}
	return len(idle)
}

// Shutdown stops every session and waits for them to finish.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	r.closed = true
	sessions := make([]*game.Session, 0, len(r.sessions))
	for _, live := range r.sessions {
		sessions = append(sessions, live.session)
	}
	r.mu.Unlock()

	for _, s := range sessions {
		s.Stop()
	}
	r.wg.Wait()
}

func sendSession(conn *ws.Connection, id uuid.UUID, token string, resumed bool) error {
	msg, err := ws.NewMessage(ws.TypeSession, ws.SessionPayload{
		SessionID: id.String(),
		Token:     token,
		Resumed:   resumed,
	})
	if err != nil {
		return err
	}
	return conn.Send(msg)
}
