package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"

	"github.com/zheng/archscan/internal/suggest"
)

const (
	cacheKeyPrefix  = "archscan:ai:" // archscan:ai:{hash of instructions+summary}
	defaultCacheTTL = 24 * time.Hour
)

// CachedGenerator memoizes generator responses in Redis keyed by a hash of the request.
// Cache failures are logged and bypassed.
type CachedGenerator struct {
	next   suggest.Generator
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedGenerator wraps next with a Redis cache; ttl <= 0 uses 24h
func NewCachedGenerator(next suggest.Generator, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedGenerator {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedGenerator{next: next, client: client, ttl: ttl, logger: logger}
}

// NewRedisClient parses a redis:// URL
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// CacheKey returns the Redis key for a request
func CacheKey(instructions string, summary []byte) string {
	d := xxhash.New()
	d.WriteString(instructions)
	d.Write([]byte{0})
	d.Write(summary)
	return fmt.Sprintf("%s%016x", cacheKeyPrefix, d.Sum64())
}

// Generate returns a cached response when present, otherwise calls the wrapped generator
func (c *CachedGenerator) Generate(ctx context.Context, instructions string, summary []byte) (string, error) {
	key := CacheKey(instructions, summary)

	cached, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		c.logger.Debug("ai cache hit", "key", key)
		return cached, nil
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("ai cache read failed", "err", err)
	}

	text, err := c.next.Generate(ctx, instructions, summary)
	if err != nil {
		return "", err
	}
	if err := c.client.Set(ctx, key, text, c.ttl).Err(); err != nil {
		c.logger.Warn("ai cache write failed", "err", err)
	}
	return text, nil
}
