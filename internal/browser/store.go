package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Entry is a cached response body and the time it was fetched.
type Entry struct {
	Payload   []byte
	FetchedAt time.Time
}

// Fresh reports whether e is younger than ttl at now. A non-positive ttl
// never expires.
func (e Entry) Fresh(now time.Time, ttl time.Duration) bool {
	return ttl <= 0 || now.Sub(e.FetchedAt) < ttl
}

// Store caches response bodies keyed by request URL. Implementations must be
// safe for concurrent use; concurrent Sets of one key are last-write-wins.
type Store interface {
	// Get returns the entry for key when it is younger than ttl. Stale
	// entries are reported as a miss but left in place.
	Get(ctx context.Context, key string, ttl time.Duration) (Entry, bool)

	// Set inserts or overwrites key, stamping it with the current time.
	Set(ctx context.Context, key string, payload []byte) error

	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes every key starting with prefix and returns how
	// many were removed.
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// LRUStore is an in-process Store bounded to a fixed number of entries. The
// least recently used entry is evicted once the capacity is reached.
type LRUStore struct {
	cache *lru.Cache[string, Entry]
	now   func() time.Time
}

// NewLRUStore creates a store holding at most capacity entries. now may be
// nil, in which case time.Now is used.
func NewLRUStore(capacity int, now func() time.Time) (*LRUStore, error) {
	cache, err := lru.New[string, Entry](capacity)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	if now == nil {
		now = time.Now
	}
	return &LRUStore{cache: cache, now: now}, nil
}

// Get implements Store. Only fresh hits count as a use for eviction order.
func (s *LRUStore) Get(_ context.Context, key string, ttl time.Duration) (Entry, bool) {
	e, ok := s.cache.Peek(key)
	if !ok {
		cacheLookups.WithLabelValues("lru", "miss").Inc()
		return Entry{}, false
	}
	if !e.Fresh(s.now(), ttl) {
		cacheLookups.WithLabelValues("lru", "stale").Inc()
		return Entry{}, false
	}
	s.cache.Get(key)
	cacheLookups.WithLabelValues("lru", "hit").Inc()
	return e, true
}

// Set implements Store.
func (s *LRUStore) Set(_ context.Context, key string, payload []byte) error {
	s.cache.Add(key, Entry{
		Payload:   append([]byte(nil), payload...),
		FetchedAt: s.now(),
	})
	return nil
}

// Delete implements Store.
func (s *LRUStore) Delete(_ context.Context, key string) error {
	s.cache.Remove(key)
	return nil
}

// DeletePrefix implements Store.
func (s *LRUStore) DeletePrefix(_ context.Context, prefix string) (int, error) {
	n := 0
	for _, k := range s.cache.Keys() {
		if strings.HasPrefix(k, prefix) && s.cache.Remove(k) {
			n++
		}
	}
	return n, nil
}

// Len returns the number of entries, fresh or stale.
func (s *LRUStore) Len() int {
	return s.cache.Len()
}
