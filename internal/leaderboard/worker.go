package leaderboard

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/ladder-quiz/internal/game"
)

type resultRecorder interface {
	Record(ctx context.Context, r game.Result) (Entry, error)
}

// Recorder is a game.Listener that writes finished games to the leaderboard
// off the session loop. Results that arrive while the queue is full are dropped.
type Recorder struct {
	game.NopListener

	svc     resultRecorder
	queue   chan game.Result
	timeout time.Duration
	logger  zerolog.Logger
}

func NewRecorder(svc resultRecorder, queueSize int, timeout time.Duration, logger zerolog.Logger) *Recorder {
	if queueSize <= 0 {
		queueSize = 128
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Recorder{
		svc:     svc,
		queue:   make(chan game.Result, queueSize),
		timeout: timeout,
		logger:  logger.With().Str("component", "leaderboard_recorder").Logger(),
	}
}

// GameFinished enqueues r without blocking the caller.
func (w *Recorder) GameFinished(r game.Result) {
	select {
	case w.queue <- r:
	default:
		w.logger.Warn().Str("tier", string(r.Tier)).Int("winnings", r.Winnings).Msg("leaderboard queue full, result dropped")
	}
}

// Run blocks until context cancellation, draining queued results first.
func (w *Recorder) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return ctx.Err()
		case r := <-w.queue:
			w.record(r)
		}
	}
}

func (w *Recorder) drain() {
	for {
		select {
		case r := <-w.queue:
			w.record(r)
		default:
			return
		}
	}
}

func (w *Recorder) record(r game.Result) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	entry, err := w.svc.Record(ctx, r)
	if err != nil {
		w.logger.Warn().Err(err).Str("tier", string(r.Tier)).Msg("record failed")
		return
	}
	w.logger.Info().
		Str("game_id", entry.GameID.String()).
		Str("tier", string(entry.Tier)).
		Int("winnings", entry.Winnings).
		Bool("victory", entry.Victory).
		Msg("leaderboard entry recorded")
}
