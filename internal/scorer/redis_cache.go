package scorer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisCachePrefix = "eikensim:score:"

// RedisCache shares scoring responses between instances.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) (Entry, bool) {
	data, err := c.client.Get(ctx, redisCachePrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false
	}
	if err != nil {
		slog.WarnContext(ctx, "reading score cache failed", "error", err)
		return Entry{}, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		slog.WarnContext(ctx, "decoding score cache entry failed", "error", err)
		return Entry{}, false
	}
	return entry, true
}

func (c *RedisCache) Set(ctx context.Context, key string, entry Entry, ttl time.Duration) {
	data, err := json.Marshal(entry)
	if err != nil {
		slog.WarnContext(ctx, "encoding score cache entry failed", "error", err)
		return
	}
	if err := c.client.Set(ctx, redisCachePrefix+key, data, ttl).Err(); err != nil {
		slog.WarnContext(ctx, "writing score cache failed", "error", err)
	}
}

func (c *RedisCache) Len(ctx context.Context) int {
	n := 0
	iter := c.client.Scan(ctx, 0, redisCachePrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		slog.WarnContext(ctx, "counting score cache entries failed", "error", err)
	}
	return n
}
