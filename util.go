package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/CodeAndHammer/eikensim/internal/config"
	"github.com/CodeAndHammer/eikensim/internal/ratelimit"
	"github.com/CodeAndHammer/eikensim/internal/scorer"
)

var jst = time.FixedZone("JST", 9*60*60)

// loadLocation resolves the quota timezone, falling back to a fixed JST
// offset on hosts without tzdata or for unknown names.
func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		slog.Warn("timezone unavailable, using fixed JST offset", "timezone", name, "error", err)
		return jst
	}
	return loc
}

// connectRedis returns nil, nil when no REDIS_URL is configured.
func connectRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return client, nil
}

func newQuotaStore(client *redis.Client, cfg config.RateLimitConfig) ratelimit.Store {
	if client != nil {
		return ratelimit.NewRedisStore(client)
	}
	return ratelimit.NewMemoryStore(cfg.MemoryMaxItems)
}

func newScoreCache(client *redis.Client, cfg config.ScorerConfig) scorer.Cache {
	if client != nil {
		return scorer.NewRedisCache(client)
	}
	return scorer.NewMemoryCache(cfg.CacheMax, cfg.CacheTTL)
}
