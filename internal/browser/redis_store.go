package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fieldPayload   = "payload"
	fieldFetchedAt = "fetched_at"
	scanBatch      = 100
)

// RedisStore is a Store shared between processes. Each entry is a hash under
// prefix+key holding the payload and the fetch time in unix nanoseconds.
type RedisStore struct {
	client    redis.UniversalClient
	prefix    string
	retention time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// NewRedisStore creates a store over client. Keys are namespaced by prefix.
// A positive retention sets a Redis expiry on each entry as an upper bound
// on storage; freshness is still decided per read by the caller's ttl.
func NewRedisStore(client redis.UniversalClient, prefix string, retention time.Duration, now func() time.Time, logger *slog.Logger) *RedisStore {
	if now == nil {
		now = time.Now
	}
	return &RedisStore{
		client:    client,
		prefix:    prefix,
		retention: retention,
		now:       now,
		logger:    logger,
	}
}

// Get implements Store. Redis errors are logged and reported as a miss.
func (s *RedisStore) Get(ctx context.Context, key string, ttl time.Duration) (Entry, bool) {
	vals, err := s.client.HGetAll(ctx, s.prefix+key).Result()
	if err != nil {
		s.logger.WarnContext(ctx, "redis cache read failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		cacheLookups.WithLabelValues("redis", "miss").Inc()
		return Entry{}, false
	}

	payload, hasPayload := vals[fieldPayload]
	nanos, err := strconv.ParseInt(vals[fieldFetchedAt], 10, 64)
	if !hasPayload || err != nil {
		cacheLookups.WithLabelValues("redis", "miss").Inc()
		return Entry{}, false
	}

	e := Entry{Payload: []byte(payload), FetchedAt: time.Unix(0, nanos)}
	if !e.Fresh(s.now(), ttl) {
		cacheLookups.WithLabelValues("redis", "stale").Inc()
		return Entry{}, false
	}
	cacheLookups.WithLabelValues("redis", "hit").Inc()
	return e, true
}

// Set implements Store.
func (s *RedisStore) Set(ctx context.Context, key string, payload []byte) error {
	k := s.prefix + key
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, k,
			fieldPayload, payload,
			fieldFetchedAt, strconv.FormatInt(s.now().UnixNano(), 10),
		)
		if s.retention > 0 {
			pipe.Expire(ctx, k, s.retention)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis cache write %s: %w", key, err)
	}
	return nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis cache delete %s: %w", key, err)
	}
	return nil
}

// DeletePrefix implements Store with SCAN, so it does not block the server
// on large keyspaces.
func (s *RedisStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	pattern := escapeGlob(s.prefix+prefix) + "*"

	removed := 0
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return removed, fmt.Errorf("redis cache scan: %w", err)
		}
		if len(keys) > 0 {
			n, err := s.client.Del(ctx, keys...).Result()
			if err != nil {
				return removed, fmt.Errorf("redis cache delete: %w", err)
			}
			removed += int(n)
		}
		if next == 0 {
			return removed, nil
		}
		cursor = next
	}
}

// escapeGlob quotes the characters SCAN MATCH treats as wildcards.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
