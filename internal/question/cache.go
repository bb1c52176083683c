package question

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gokatarajesh/ladder-quiz/internal/game"
)

const (
	defaultCacheTTL    = 30 * time.Minute
	defaultCachePrefix = "questionpack:ai"
)

// Cache keeps one pre-generated AI pack per tier in Redis. A pack is handed
// out once: Take removes it so consecutive games never replay the same set.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

var _ PackCache = (*Cache)(nil)

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{client: client, ttl: ttl, prefix: defaultCachePrefix}
}

func (c *Cache) key(tier game.Tier) string {
	return c.prefix + ":" + string(tier)
}

// Take removes and returns the cached pack of tier, or nil when there is none.
func (c *Cache) Take(ctx context.Context, tier game.Tier) ([]game.Question, error) {
	data, err := c.client.GetDel(ctx, c.key(tier)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var qs []game.Question
	if err := json.Unmarshal(data, &qs); err != nil {
		return nil, err
	}
	return qs, nil
}

// Put stores the pack of tier, replacing any previous one.
func (c *Cache) Put(ctx context.Context, tier game.Tier, qs []game.Question) error {
	data, err := json.Marshal(qs)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(tier), data, c.ttl).Err()
}

// Has reports whether tier currently has a pack waiting.
func (c *Cache) Has(ctx context.Context, tier game.Tier) (bool, error) {
	n, err := c.client.Exists(ctx, c.key(tier)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
