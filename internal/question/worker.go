package question

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/ladder-quiz/internal/game"
)

type prewarmer interface {
	Prewarm(ctx context.Context, tier game.Tier) error
}

// PrewarmWorker keeps an AI pack cached for every tier so a game rarely waits
// on the model. It refills a tier when the service reports its pack was used
// and sweeps all tiers on every interval.
type PrewarmWorker struct {
	service   prewarmer
	queue     <-chan game.Tier
	interval  time.Duration
	timeout   time.Duration
	logger    zerolog.Logger
	shutdownC chan struct{}
	doneC     chan struct{}
}

func NewPrewarmWorker(service prewarmer, queue <-chan game.Tier, interval, timeout time.Duration, logger zerolog.Logger) *PrewarmWorker {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PrewarmWorker{
		service:   service,
		queue:     queue,
		interval:  interval,
		timeout:   timeout,
		logger:    logger.With().Str("component", "question_prewarm").Logger(),
		shutdownC: make(chan struct{}),
		doneC:     make(chan struct{}),
	}
}

// Run blocks until Stop is called. A non-positive interval disables the sweep.
func (w *PrewarmWorker) Run() {
	defer close(w.doneC)

	var tick <-chan time.Time
	if w.interval > 0 {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		tick = ticker.C
		w.sweep()
	}
	for {
		select {
		case <-w.shutdownC:
			w.logger.Info().Msg("question prewarm stopping")
			return
		case tier := <-w.queue:
			w.handle(tier)
		case <-tick:
			w.sweep()
		}
	}
}

func (w *PrewarmWorker) sweep() {
	for _, p := range game.Profiles() {
		select {
		case <-w.shutdownC:
			return
		default:
		}
		w.handle(p.Tier)
	}
}

func (w *PrewarmWorker) handle(tier game.Tier) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if err := w.service.Prewarm(ctx, tier); err != nil {
		w.logger.Warn().Err(err).Str("tier", string(tier)).Msg("prewarm failed")
		return
	}
	w.logger.Debug().Str("tier", string(tier)).Msg("pack prewarmed")
}

// Stop ends Run and waits for it to return.
func (w *PrewarmWorker) Stop() {
	close(w.shutdownC)
	<-w.doneC
}
