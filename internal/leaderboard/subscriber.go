package leaderboard

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	ws "github.com/gokatarajesh/ladder-quiz/pkg/http/ws"
)

const (
	minResubscribeDelay = 500 * time.Millisecond
	maxResubscribeDelay = 30 * time.Second
)

type broadcaster interface {
	BroadcastAll(msg ws.Message) error
}

// Broadcaster relays leaderboard updates published on Redis to every
// connected game session. An update identical to the previous one is not
// relayed again.
type Broadcaster struct {
	redis   *redis.Client
	hub     broadcaster
	channel string
	logger  zerolog.Logger

	last string
}

func NewBroadcaster(redis *redis.Client, hub broadcaster, channel string, logger zerolog.Logger) *Broadcaster {
	if channel == "" {
		channel = "lb:updates"
	}
	return &Broadcaster{
		redis:   redis,
		hub:     hub,
		channel: channel,
		logger:  logger.With().Str("component", "leaderboard_broadcaster").Logger(),
	}
}

// Run blocks until ctx is cancelled, resubscribing with backoff whenever the
// subscription fails or its channel closes.
func (b *Broadcaster) Run(ctx context.Context) error {
	if b.redis == nil || b.hub == nil {
		return nil
	}

	delay := minResubscribeDelay
	for {
		relayed, err := b.subscribe(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if relayed {
			delay = minResubscribeDelay
		}
		b.logger.Warn().Err(err).Dur("retry_in", delay).Msg("leaderboard subscription lost")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = min(delay*2, maxResubscribeDelay)
	}
}

// subscribe consumes one subscription until it ends. relayed reports whether
// the subscription got far enough to receive messages.
func (b *Broadcaster) subscribe(ctx context.Context) (relayed bool, err error) {
	sub := b.redis.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return false, err
	}
	b.logger.Debug().Str("channel", b.channel).Msg("subscribed to leaderboard updates")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return true, ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return true, nil
			}
			b.relay(msg.Payload)
		}
	}
}

func (b *Broadcaster) relay(payload string) {
	if payload == b.last {
		return
	}

	var update ws.LeaderboardUpdatePayload
	if err := json.Unmarshal([]byte(payload), &update); err != nil {
		b.logger.Warn().Err(err).Msg("dropping undecodable leaderboard update")
		return
	}
	msg, err := ws.NewMessage(ws.TypeLeaderboardUpdate, update)
	if err != nil {
		b.logger.Warn().Err(err).Msg("encode leaderboard update")
		return
	}
	if err := b.hub.BroadcastAll(msg); err != nil {
		b.logger.Warn().Err(err).Msg("broadcast leaderboard update")
		return
	}
	b.last = payload
}
