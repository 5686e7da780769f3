package browser

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced time source.
type fakeClock struct{ t time.Time }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// =============================================================================
// LRUStore
// =============================================================================

func TestLRUStore_GetRespectsTTL(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	s, err := NewLRUStore(8, clock.Now)
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, "k", []byte("v1")))
	hits := counterValue(cacheLookups, "lru", "hit")
	stale := counterValue(cacheLookups, "lru", "stale")
	misses := counterValue(cacheLookups, "lru", "miss")

	e, ok := s.Get(ctx, "k", time.Minute)
	require.True(t, ok)
	assert.Equal(t, []byte("v1"), e.Payload)
	assert.Equal(t, clock.Now(), e.FetchedAt)

	clock.Advance(59 * time.Second)
	_, ok = s.Get(ctx, "k", time.Minute)
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok = s.Get(ctx, "k", time.Minute)
	assert.False(t, ok, "entry aged exactly ttl is stale")
	assert.Equal(t, hits+2, counterValue(cacheLookups, "lru", "hit"))
	assert.Equal(t, stale+1, counterValue(cacheLookups, "lru", "stale"))

	_, ok = s.Get(ctx, "absent", time.Minute)
	assert.False(t, ok)
	assert.Equal(t, misses+1, counterValue(cacheLookups, "lru", "miss"))

	// Stale entries are not evicted by reads.
	assert.Equal(t, 1, s.Len())

	// A longer ttl on the same entry still sees it.
	_, ok = s.Get(ctx, "k", time.Hour)
	assert.True(t, ok)

	// Zero ttl never expires.
	clock.Advance(24 * time.Hour)
	_, ok = s.Get(ctx, "k", 0)
	assert.True(t, ok)
}

func TestLRUStore_SetOverwritesAndRestamps(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	s, err := NewLRUStore(8, clock.Now)
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, "k", []byte("old")))
	clock.Advance(2 * time.Minute)
	require.NoError(t, s.Set(ctx, "k", []byte("new")))

	e, ok := s.Get(ctx, "k", time.Minute)
	require.True(t, ok)
	assert.Equal(t, []byte("new"), e.Payload)
}

func TestLRUStore_CopiesPayload(t *testing.T) {
	ctx := context.Background()
	s, err := NewLRUStore(8, nil)
	require.NoError(t, err)

	buf := []byte("abc")
	require.NoError(t, s.Set(ctx, "k", buf))
	buf[0] = 'x'

	e, ok := s.Get(ctx, "k", time.Minute)
	require.True(t, ok)
	assert.Equal(t, []byte("abc"), e.Payload)
}

func TestLRUStore_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	s, err := NewLRUStore(2, nil)
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, "a", []byte("1")))
	require.NoError(t, s.Set(ctx, "b", []byte("2")))

	// Touch a so b becomes the eviction candidate.
	_, ok := s.Get(ctx, "a", time.Minute)
	require.True(t, ok)

	require.NoError(t, s.Set(ctx, "c", []byte("3")))
	assert.Equal(t, 2, s.Len())

	_, ok = s.Get(ctx, "b", time.Minute)
	assert.False(t, ok)
	_, ok = s.Get(ctx, "a", time.Minute)
	assert.True(t, ok)
	_, ok = s.Get(ctx, "c", time.Minute)
	assert.True(t, ok)
}

func TestLRUStore_DeleteAndDeletePrefix(t *testing.T) {
	ctx := context.Background()
	s, err := NewLRUStore(8, nil)
	require.NoError(t, err)

	for _, k := range []string{"search?a", "search?b", "detail/1", "detail/2"} {
		require.NoError(t, s.Set(ctx, k, []byte(k)))
	}

	require.NoError(t, s.Delete(ctx, "detail/1"))
	require.NoError(t, s.Delete(ctx, "missing"))

	n, err := s.DeletePrefix(ctx, "search?")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, s.Len())

	_, ok := s.Get(ctx, "detail/2", time.Minute)
	assert.True(t, ok)
}

func TestNewLRUStore_RejectsZeroCapacity(t *testing.T) {
	_, err := NewLRUStore(0, nil)
	assert.Error(t, err)
}

// =============================================================================
// RedisStore
// =============================================================================

func newRedisStore(t *testing.T, clock *fakeClock, retention time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client, "test:", retention, clock.Now, discardLogger()), mr
}

func TestRedisStore_GetRespectsTTL(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	s, mr := newRedisStore(t, clock, 0)

	require.NoError(t, s.Set(ctx, "k", []byte(`{"items":[]}`)))
	assert.True(t, mr.Exists("test:k"))
	assert.Equal(t, `{"items":[]}`, mr.HGet("test:k", "payload"))

	e, ok := s.Get(ctx, "k", time.Minute)
	require.True(t, ok)
	assert.Equal(t, []byte(`{"items":[]}`), e.Payload)
	assert.True(t, clock.Now().Equal(e.FetchedAt))

	clock.Advance(time.Minute)
	_, ok = s.Get(ctx, "k", time.Minute)
	assert.False(t, ok)
	assert.True(t, mr.Exists("test:k"), "stale entries are left in place")

	_, ok = s.Get(ctx, "missing", time.Minute)
	assert.False(t, ok)
}

func TestRedisStore_RetentionSetsExpiry(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, newFakeClock(), 10*time.Minute)

	require.NoError(t, s.Set(ctx, "k", []byte("v")))
	assert.Equal(t, 10*time.Minute, mr.TTL("test:k"))

	mr.FastForward(11 * time.Minute)
	_, ok := s.Get(ctx, "k", 0)
	assert.False(t, ok)
}

func TestRedisStore_DeletePrefixEscapesGlob(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, newFakeClock(), 0)

	keys := []string{
		"http://api/api/bakugan?page=1",
		"http://api/api/bakugan?page=2",
		"http://api/api/bakuganXpage=3",
		"http://api/api/bakugan/abc",
	}
	for _, k := range keys {
		require.NoError(t, s.Set(ctx, k, []byte(k)))
	}

	// "?" must match literally, not as a single-character wildcard.
	n, err := s.DeletePrefix(ctx, "http://api/api/bakugan?")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.False(t, mr.Exists("test:http://api/api/bakugan?page=1"))
	assert.True(t, mr.Exists("test:http://api/api/bakuganXpage=3"))
	assert.True(t, mr.Exists("test:http://api/api/bakugan/abc"))

	require.NoError(t, s.Delete(ctx, "http://api/api/bakugan/abc"))
	assert.False(t, mr.Exists("test:http://api/api/bakugan/abc"))
}

func TestRedisStore_ServerDownIsAMiss(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, newFakeClock(), 0)

	require.NoError(t, s.Set(ctx, "k", []byte("v")))
	mr.Close()

	_, ok := s.Get(ctx, "k", time.Minute)
	assert.False(t, ok)
	assert.Error(t, s.Set(ctx, "k", []byte("v")))
}

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, `a\*b\?c\[d\]e\\f`, escapeGlob(`a*b?c[d]e\f`))
	assert.Equal(t, "plain:key", escapeGlob("plain:key"))
}
