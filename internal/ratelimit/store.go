package ratelimit

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Record is a client's submission count for one calendar day.
type Record struct {
	Count       int    `json:"count"`
	Date        string `json:"date"`
	Fingerprint string `json:"fingerprint"`
}

// Store keeps records keyed by "date:fingerprint". Implementations need not
// make Get followed by Set atomic; a lost update costs one extra submission.
type Store interface {
	Get(ctx context.Context, key string) (Record, bool, error)
	Set(ctx context.Context, key string, rec Record, ttl time.Duration) error
	// Prune drops records whose date is not today.
	Prune(ctx context.Context, today string) error
	Len(ctx context.Context) (int, error)
}

type memoryEntry struct {
	rec       Record
	updatedAt time.Time
}

// MemoryStore is the in-process Store. When it grows past maxEntries the
// oldest half is dropped.
type MemoryStore struct {
	mu         sync.RWMutex
	entries    map[string]*memoryEntry
	maxEntries int
	prunedDay  string
}

func NewMemoryStore(maxEntries int) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = 50000
	}
	return &MemoryStore{
		entries:    make(map[string]*memoryEntry),
		maxEntries: maxEntries,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (Record, bool, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return Record{}, false, nil
	}
	return e.rec, true, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, rec Record, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = &memoryEntry{rec: rec, updatedAt: time.Now()}
	if len(s.entries) > s.maxEntries {
		s.evictOldestLocked(ctx)
	}
	return nil
}

// Prune is a no-op when it already ran for today.
func (s *MemoryStore) Prune(ctx context.Context, today string) error {
	s.mu.RLock()
	done := s.prunedDay == today
	s.mu.RUnlock()
	if done {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, e := range s.entries {
		if e.rec.Date != today {
			delete(s.entries, key)
			removed++
		}
	}
	s.prunedDay = today

	if removed > 0 {
		slog.InfoContext(ctx, "pruned stale rate limit records", "removed", removed, "today", today)
	}
	return nil
}

func (s *MemoryStore) Len(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func (s *MemoryStore) evictOldestLocked(ctx context.Context) {
	type keyAge struct {
		key       string
		updatedAt time.Time
	}

	ages := make([]keyAge, 0, len(s.entries))
	for key, e := range s.entries {
		ages = append(ages, keyAge{key: key, updatedAt: e.updatedAt})
	}
	sort.Slice(ages, func(i, j int) bool {
		return ages[i].updatedAt.Before(ages[j].updatedAt)
	})

	toRemove := len(ages) / 2
	for i := 0; i < toRemove; i++ {
		delete(s.entries, ages[i].key)
	}
	slog.WarnContext(ctx, "rate limit store too large, removed oldest records", "removed", toRemove)
}
