package game

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultInboxSize = 64

// Session runs one Controller on its own goroutine. Intents, timer callbacks
// and fetch results are all posted to the inbox and handled one at a time.
type Session struct {
	id     uuid.UUID
	ctrl   *Controller
	inbox  chan func()
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	logger zerolog.Logger

	lastActive atomic.Int64
}

// NewSession creates a session; call Run to start processing.
func NewSession(id uuid.UUID, source QuestionSource, opts ControllerOptions, logger zerolog.Logger) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:     id,
		inbox:  make(chan func(), defaultInboxSize),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
		logger: logger.With().Str("component", "game_session").Str("session_id", id.String()).Logger(),
	}
	s.ctrl = NewController(s, source, opts, s.logger)
	s.touch()
	return s
}

func (s *Session) ID() uuid.UUID {
	return s.id
}

// Done is closed once Run has returned.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// LastActive is the time of the last intent.
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

// Run processes the inbox until ctx is canceled or Stop is called.
func (s *Session) Run(ctx context.Context) {
	defer close(s.done)
	defer s.cancel()

	s.logger.Debug().Msg("session started")
	s.ctrl.Open()
	for {
		select {
		case <-ctx.Done():
			s.ctrl.Close()
			s.logger.Debug().Msg("session stopped")
			return
		case <-s.ctx.Done():
			s.ctrl.Close()
			s.logger.Debug().Msg("session stopped")
			return
		case fn := <-s.inbox:
			fn()
		}
	}
}

// Stop ends Run and cancels in-flight work.
func (s *Session) Stop() {
	s.cancel()
}

// Now implements Loop.
func (s *Session) Now() time.Time {
	return time.Now()
}

// After implements Loop with a wall-clock timer whose callback is posted to the inbox.
func (s *Session) After(d time.Duration, fn func()) func() {
	cancelled := false
	t := time.AfterFunc(d, func() {
		s.post(func() {
			if !cancelled {
				fn()
			}
		})
	})
	return func() {
		cancelled = true
		t.Stop()
	}
}

// Go implements Loop.
func (s *Session) Go(work func(ctx context.Context) func()) {
	go func() {
		if cont := work(s.ctx); cont != nil {
			s.post(cont)
		}
	}()
}

func (s *Session) post(fn func()) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.inbox <- fn:
		return true
	case <-s.done:
		return false
	}
}

// Do runs fn against the controller on the session goroutine and waits for it.
func (s *Session) Do(ctx context.Context, fn func(c *Controller) error) error {
	s.touch()
	reply := make(chan error, 1)
	if !s.post(func() { reply <- fn(s.ctrl) }) {
		return ErrSessionClosed
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrSessionClosed
	}
}

func (s *Session) EnterStudio(ctx context.Context) error {
	return s.Do(ctx, func(c *Controller) error { return c.EnterStudio() })
}

func (s *Session) Back(ctx context.Context) error {
	return s.Do(ctx, func(c *Controller) error { return c.Back() })
}

func (s *Session) ChooseDifficulty(ctx context.Context, tier Tier) error {
	return s.Do(ctx, func(c *Controller) error { return c.ChooseDifficulty(tier) })
}

func (s *Session) SelectOption(ctx context.Context, index int) error {
	return s.Do(ctx, func(c *Controller) error { return c.SelectOption(index) })
}

func (s *Session) UseLifeline(ctx context.Context, kind LifelineKind) error {
	return s.Do(ctx, func(c *Controller) error { return c.UseLifeline(kind) })
}

func (s *Session) DismissLifeline(ctx context.Context) error {
	return s.Do(ctx, func(c *Controller) error { return c.DismissLifeline() })
}

func (s *Session) Restart(ctx context.Context) error {
	return s.Do(ctx, func(c *Controller) error { return c.Restart() })
}

func (s *Session) SetMuted(ctx context.Context, muted bool) error {
	return s.Do(ctx, func(c *Controller) error {
		c.SetMuted(muted)
		return nil
	})
}

// Snapshot returns the current render state.
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := s.Do(ctx, func(c *Controller) error {
		snap = c.Snapshot()
		return nil
	})
	return snap, err
}

func (s *Session) touch() {
	s.lastActive.Store(time.Now().UnixNano())
}
