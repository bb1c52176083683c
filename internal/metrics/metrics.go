package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gokatarajesh/ladder-quiz/internal/game"
	"github.com/gokatarajesh/ladder-quiz/internal/game/scoring"
)

const namespace = "ladder_quiz"

// Outcome label values of finished games.
const (
	OutcomeVictory = "victory"
	OutcomeWrong   = "wrong"
	OutcomeTimeout = "timeout"
)

// Metrics holds the game counters. It is a game.Listener and a
// question.Observer, so one value serves every session.
type Metrics struct {
	game.NopListener

	gamesStarted    *prometheus.CounterVec
	gamesFinished   *prometheus.CounterVec
	winnings        *prometheus.HistogramVec
	lifelinesUsed   *prometheus.CounterVec
	questionsServed *prometheus.CounterVec
	fetchDuration   *prometheus.HistogramVec
	fetchFailures   *prometheus.CounterVec
	activeSessions  prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	payouts := scoring.DefaultLadder().Payouts()
	buckets := make([]float64, len(payouts))
	for i, p := range payouts {
		buckets[i] = float64(p)
	}

	m := &Metrics{
		gamesStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_started_total",
			Help:      "Games whose questions were fetched and play began.",
		}, []string{"tier"}),
		gamesFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_finished_total",
			Help:      "Games that reached game over or victory.",
		}, []string{"tier", "outcome"}),
		winnings: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "game_winnings",
			Help:      "Final winnings of finished games.",
			Buckets:   buckets,
		}, []string{"tier"}),
		lifelinesUsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifelines_used_total",
			Help:      "Lifelines invoked.",
		}, []string{"tier", "lifeline"}),
		questionsServed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questions_served_total",
			Help:      "Questions handed to games, by source.",
		}, []string{"tier", "source"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "question_fetch_duration_seconds",
			Help:      "Time to assemble the questions of a game.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tier"}),
		fetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "question_fetch_failures_total",
			Help:      "Question fetches that failed.",
		}, []string{"tier"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Game sessions currently held in memory.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.gamesStarted, m.gamesFinished, m.winnings, m.lifelinesUsed,
		m.questionsServed, m.fetchDuration, m.fetchFailures, m.activeSessions,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) GameStarted(tier game.Tier) {
	m.gamesStarted.WithLabelValues(string(tier)).Inc()
}

func (m *Metrics) LifelineUsed(tier game.Tier, kind game.LifelineKind) {
	m.lifelinesUsed.WithLabelValues(string(tier), string(kind)).Inc()
}

func (m *Metrics) GameFinished(r game.Result) {
	m.gamesFinished.WithLabelValues(string(r.Tier), Outcome(r)).Inc()
	m.winnings.WithLabelValues(string(r.Tier)).Observe(float64(r.Winnings))
}

// QuestionsServed implements question.Observer.
func (m *Metrics) QuestionsServed(tier game.Tier, source string, n int) {
	m.questionsServed.WithLabelValues(string(tier), source).Add(float64(n))
}

// SessionOpened and SessionClosed track the session registry size.
func (m *Metrics) SessionOpened() { m.activeSessions.Inc() }
func (m *Metrics) SessionClosed() { m.activeSessions.Dec() }

// Outcome names how a game ended.
func Outcome(r game.Result) string {
	switch {
	case r.Victory:
		return OutcomeVictory
	case r.TimedOut:
		return OutcomeTimeout
	default:
		return OutcomeWrong
	}
}

// InstrumentSource times every fetch of src and counts failures.
func (m *Metrics) InstrumentSource(src game.QuestionSource) game.QuestionSource {
	return instrumentedSource{src: src, m: m}
}

type instrumentedSource struct {
	src game.QuestionSource
	m   *Metrics
}

func (s instrumentedSource) FetchQuestions(ctx context.Context, tier game.Tier) ([]game.Question, error) {
	start := time.Now()
	qs, err := s.src.FetchQuestions(ctx, tier)
	s.m.fetchDuration.WithLabelValues(string(tier)).Observe(time.Since(start).Seconds())
	if err != nil && !errors.Is(err, context.Canceled) {
		s.m.fetchFailures.WithLabelValues(string(tier)).Inc()
	}
	return qs, err
}
