package kv

import (
	"context"
	"errors"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// Unbounded disables LRU eviction in NewMemoryStore. Entries then leave
// only when their own deadline or maxTTL passes.
const Unbounded = -1

// MemoryStore is a process-local Store for single-instance deployments and
// development. Entries carry their own deadline; the LRU bounds memory.
type MemoryStore struct {
	mu    sync.Mutex
	cache *lru.LRU[string, memoryEntry]
	now   func() time.Time
}

// NewMemoryStore keeps at most maxEntries keys (10000 when zero, no limit
// when Unbounded). A positive maxTTL makes a background sweep drop entries
// older than it.
func NewMemoryStore(maxEntries int, maxTTL time.Duration) *MemoryStore {
	switch {
	case maxEntries == Unbounded:
		maxEntries = 0
	case maxEntries <= 0:
		maxEntries = 10000
	}
	return &MemoryStore{
		cache: lru.NewLRU[string, memoryEntry](maxEntries, nil, maxTTL),
		now:   time.Now,
	}
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("get", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.cache.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	if !s.now().Before(e.expiresAt) {
		s.cache.Remove(key)
		return nil, ErrNotFound
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

func (s *MemoryStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return unavailable("set", err)
	}
	if ttl <= 0 {
		return nil
	}
	buf := make([]byte, len(value))
	copy(buf, value)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Add(key, memoryEntry{value: buf, expiresAt: s.now().Add(ttl)})
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		s.cache.Remove(k)
	}
	return nil
}

func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Purge()
	return nil
}
