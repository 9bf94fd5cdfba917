package scorer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Entry is a cached scoring response. Entries are replaced wholesale, never
// mutated.
type Entry struct {
	Value     Result    `json:"value"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Cache stores scoring responses by CacheKey. Get reports misses for absent
// entries and for backend failures alike.
type Cache interface {
	Get(ctx context.Context, key string) (Entry, bool)
	Set(ctx context.Context, key string, entry Entry, ttl time.Duration)
	Len(ctx context.Context) int
}

// CacheKey hashes the mode and the whitespace-normalised text.
func CacheKey(text string, serious bool) string {
	mode := "0"
	if serious {
		mode = "1"
	}
	normalized := strings.Join(strings.Fields(text), " ")
	sum := sha256.Sum256([]byte(mode + ":" + normalized))
	return hex.EncodeToString(sum[:])
}

// MemoryCache is a size-bounded LRU whose entries also expire after ttl.
type MemoryCache struct {
	lru *expirable.LRU[string, Entry]
}

func NewMemoryCache(maxEntries int, ttl time.Duration) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = 300
	}
	return &MemoryCache{lru: expirable.NewLRU[string, Entry](maxEntries, nil, ttl)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (Entry, bool) {
	return c.lru.Get(key)
}

func (c *MemoryCache) Set(_ context.Context, key string, entry Entry, _ time.Duration) {
	c.lru.Add(key, entry)
}

func (c *MemoryCache) Len(context.Context) int {
	return c.lru.Len()
}
