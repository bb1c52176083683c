package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/ladder-quiz/internal/game"
	ws "github.com/gokatarajesh/ladder-quiz/pkg/http/ws"
)

// Supported leaderboard windows.
const (
	WindowDaily   = "daily"
	WindowWeekly  = "weekly"
	WindowAllTime = "all_time"
)

var defaultWindows = []string{WindowDaily, WindowWeekly, WindowAllTime}

// ErrUnknownWindow is returned for a window name outside the supported set.
var ErrUnknownWindow = errors.New("unknown leaderboard window")

// Entry is one finished game on a board.
type Entry struct {
	GameID     uuid.UUID `json:"game_id"`
	Tier       game.Tier `json:"tier"`
	Winnings   int       `json:"winnings"`
	Answered   int       `json:"answered"`
	Victory    bool      `json:"victory"`
	TimedOut   bool      `json:"timed_out"`
	FinishedAt time.Time `json:"finished_at"`
}

// ServiceOptions configures leaderboard service behavior.
type ServiceOptions struct {
	TopN           int
	MaxEntries     int
	PubSubChannel  string
	EntryTTL       time.Duration
	RedisKeyPrefix string
	Now            func() time.Time
}

// Service ranks finished games by winnings in Redis sorted sets. Every game is
// written to each window, once across all tiers and once for its own tier.
type Service struct {
	redis         *redis.Client
	logger        zerolog.Logger
	topN          int
	maxEntries    int
	pubsubChannel string
	entryTTL      time.Duration
	prefix        string
	now           func() time.Time
}

// NewService constructs a leaderboard service instance.
func NewService(redis *redis.Client, logger zerolog.Logger, opts ServiceOptions) *Service {
	topN := opts.TopN
	if topN <= 0 {
		topN = 50
	}
	maxEntries := opts.MaxEntries
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	channel := opts.PubSubChannel
	if channel == "" {
		channel = "lb:updates"
	}
	prefix := opts.RedisKeyPrefix
	if prefix == "" {
		prefix = "lb"
	}
	entryTTL := opts.EntryTTL
	if entryTTL <= 0 {
		entryTTL = 30 * 24 * time.Hour
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		redis:         redis,
		logger:        logger.With().Str("component", "leaderboard").Logger(),
		topN:          topN,
		maxEntries:    maxEntries,
		pubsubChannel: channel,
		entryTTL:      entryTTL,
		prefix:        prefix,
		now:           now,
	}
}

// Record stores a finished game and publishes the refreshed all-time board.
func (s *Service) Record(ctx context.Context, r game.Result) (Entry, error) {
	entry := Entry{
		GameID:     uuid.New(),
		Tier:       r.Tier,
		Winnings:   r.Winnings,
		Answered:   r.Answered,
		Victory:    r.Victory,
		TimedOut:   r.TimedOut,
		FinishedAt: s.now().UTC(),
	}

	metaKey := s.metaKey(entry.GameID)
	member := entry.GameID.String()

	pipe := s.redis.TxPipeline()
	pipe.HSet(ctx, metaKey, map[string]interface{}{
		"tier":        string(entry.Tier),
		"answered":    entry.Answered,
		"victory":     boolToInt(entry.Victory),
		"timed_out":   boolToInt(entry.TimedOut),
		"finished_at": entry.FinishedAt.UnixMilli(),
	})
	pipe.Expire(ctx, metaKey, s.entryTTL)
	for _, window := range defaultWindows {
		for _, key := range []string{s.boardKey(window, "", entry.FinishedAt), s.boardKey(window, entry.Tier, entry.FinishedAt)} {
			pipe.ZAdd(ctx, key, redis.Z{Score: float64(entry.Winnings), Member: member})
			pipe.ZRemRangeByRank(ctx, key, 0, int64(-s.maxEntries-1))
			if ttl := windowTTL(window); ttl > 0 {
				pipe.Expire(ctx, key, ttl)
			}
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return Entry{}, fmt.Errorf("record game result: %w", err)
	}

	s.logger.Debug().
		Str("game_id", member).
		Str("tier", string(entry.Tier)).
		Int("winnings", entry.Winnings).
		Msg("game recorded")

	s.publishUpdate(ctx, WindowAllTime)
	return entry, nil
}

// Top retrieves the best games of a window. An empty tier spans all tiers.
func (s *Service) Top(ctx context.Context, window string, tier game.Tier, limit int) ([]Entry, error) {
	if !isValidWindow(window) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownWindow, window)
	}
	if limit <= 0 || limit > s.topN {
		limit = s.topN
	}

	zKey := s.boardKey(window, tier, s.now().UTC())
	results, err := s.redis.ZRevRangeWithScores(ctx, zKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch leaderboard: %w", err)
	}

	entries := make([]Entry, 0, len(results))
	for _, z := range results {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		entry, err := s.readMeta(ctx, member)
		if err != nil {
			s.logger.Warn().Err(err).Str("game_id", member).Msg("failed to read leaderboard metadata")
			continue
		}
		entry.Winnings = int(z.Score)
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *Service) publishUpdate(ctx context.Context, window string) {
	entries, err := s.Top(ctx, window, "", 10)
	if err != nil {
		s.logger.Warn().Err(err).Str("window", window).Msg("failed to collect leaderboard update")
		return
	}
	data, err := json.Marshal(ws.LeaderboardUpdatePayload{
		Window: window,
		Top:    toWSEntries(entries),
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to marshal leaderboard update")
		return
	}
	if err := s.redis.Publish(ctx, s.pubsubChannel, data).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish leaderboard update")
	}
}

func (s *Service) readMeta(ctx context.Context, member string) (Entry, error) {
	id, err := uuid.Parse(member)
	if err != nil {
		return Entry{}, fmt.Errorf("parse game id: %w", err)
	}
	data, err := s.redis.HGetAll(ctx, s.metaKey(id)).Result()
	if err != nil {
		return Entry{}, err
	}

	entry := Entry{GameID: id}
	if len(data) == 0 {
		// metadata expired before the board entry
		return entry, nil
	}
	entry.Tier = game.Tier(data["tier"])
	entry.Answered = parseInt(data["answered"])
	entry.Victory = data["victory"] == "1"
	entry.TimedOut = data["timed_out"] == "1"
	if ms := parseInt(data["finished_at"]); ms > 0 {
		entry.FinishedAt = time.UnixMilli(int64(ms)).UTC()
	}
	return entry, nil
}

// boardKey buckets the daily and weekly windows by calendar period.
func (s *Service) boardKey(window string, tier game.Tier, at time.Time) string {
	key := fmt.Sprintf("%s:%s", s.prefix, window)
	switch window {
	case WindowDaily:
		key += ":" + at.Format("2006-01-02")
	case WindowWeekly:
		year, week := at.ISOWeek()
		key += fmt.Sprintf(":%d-W%02d", year, week)
	}
	if tier != "" {
		key += ":" + string(tier)
	}
	return key
}

func (s *Service) metaKey(gameID uuid.UUID) string {
	return fmt.Sprintf("%s:game:%s", s.prefix, gameID.String())
}

func windowTTL(window string) time.Duration {
	switch window {
	case WindowDaily:
		return 48 * time.Hour
	case WindowWeekly:
		return 14 * 24 * time.Hour
	default:
		return 0
	}
}

func isValidWindow(window string) bool {
	switch window {
	case WindowDaily, WindowWeekly, WindowAllTime:
		return true
	default:
		return false
	}
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func parseInt(val string) int {
	if val == "" {
		return 0
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return i
}
