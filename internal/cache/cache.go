// Package cache provides the read-through cache used for aggregate views and
// binary assets, with an in-process and a Redis backend.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"gacha-bot/internal/config"
	"gacha-bot/internal/metrics"
)

// TTL sentinels.
const (
	// NoExpiry stores a value until it is deleted.
	NoExpiry time.Duration = 0
	// NoCache skips the write entirely. Only meaningful for Fetch's negative TTL.
	NoCache time.Duration = -1
)

// Backend names.
const (
	TypeMemory = "memory"
	TypeRedis  = "redis"
)

// ErrUnknownType is returned by New for an unsupported cache.type.
var ErrUnknownType = errors.New("unknown cache type")

// Cache is a key-value store for JSON-encodable values. Keys are plain strings;
// patterns use glob syntax (*, ?, [...]).
type Cache interface {
	// Get decodes the value stored at key into dest and reports whether it was present.
	Get(ctx context.Context, key string, dest any) (bool, error)
	// Set stores value at key. A ttl of NoExpiry keeps it until deleted.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// DeletePattern removes every key matching the glob and returns how many were removed.
	DeletePattern(ctx context.Context, pattern string) (int64, error)
}

// New creates the backend selected by cfg.Type. It is called once at startup.
func New(ctx context.Context, cfg *config.CacheConfig, redisCfg *config.RedisConfig, m *metrics.Metrics) (Cache, error) {
	switch strings.ToLower(cfg.Type) {
	case "", TypeMemory:
		log.Info().Msg("Using in-process cache")
		return NewMemoryCache(WithMetrics(m)), nil
	case TypeRedis:
		c, err := NewRedisCache(ctx, redisCfg, m)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, cfg.Type)
	}
}

// envelope distinguishes a cached "definitively absent" result from a miss.
type envelope[T any] struct {
	Found bool `json:"found"`
	Value T    `json:"value"`
}

// Fetch is the read-through helper. On a hit it returns the cached value and
// whether it was found. On a miss it calls load and stores the result: found
// values with ttl, absent results with negativeTTL (NoCache skips the write).
// Cache failures degrade to a miss; load errors are returned and not cached.
// A nil cache always loads.
func Fetch[T any](ctx context.Context, c Cache, key string, ttl, negativeTTL time.Duration,
	load func(ctx context.Context) (T, bool, error)) (T, bool, error) {
	if c != nil {
		var env envelope[T]
		hit, err := c.Get(ctx, key, &env)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Cache read failed, loading from source")
		} else if hit {
			return env.Value, env.Found, nil
		}
	}

	value, found, err := load(ctx)
	if err != nil {
		var zero T
		return zero, false, err
	}
	if c == nil {
		return value, found, nil
	}

	expiry := ttl
	if !found {
		if negativeTTL == NoCache {
			return value, found, nil
		}
		expiry = negativeTTL
	}
	if err := c.Set(ctx, key, envelope[T]{Found: found, Value: value}, expiry); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
	return value, found, nil
}

// Put stores a found value under key in the form Fetch reads back. Write
// failures are logged and ignored.
func Put[T any](ctx context.Context, c Cache, key string, value T, ttl time.Duration) {
	if c == nil {
		return
	}
	if err := c.Set(ctx, key, envelope[T]{Found: true, Value: value}, ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
}

// Invalidate deletes every key matching pattern, logging instead of failing.
func Invalidate(ctx context.Context, c Cache, pattern string) int64 {
	if c == nil {
		return 0
	}
	n, err := c.DeletePattern(ctx, pattern)
	if err != nil {
		log.Warn().Err(err).Str("pattern", pattern).Msg("Cache invalidation failed")
		return 0
	}
	log.Debug().Str("pattern", pattern).Int64("deleted", n).Msg("Cache invalidated")
	return n
}
