package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "defect_lens:redaction:"

// RedactionCache implements domain.RedactionCache on Redis string keys with a TTL.
// While Redis is unreachable every lookup is a miss and writes are dropped.
type RedactionCache struct {
	client      *redis.Client
	ttl         time.Duration
	logger      *slog.Logger
	isAvailable atomic.Bool
}

// NewRedactionCache creates a Redis-backed redaction cache.
func NewRedactionCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedactionCache {
	c := &RedactionCache{
		client: client,
		ttl:    ttl,
		logger: logger.With("component", "redis_redaction_cache"),
	}
	c.isAvailable.Store(true) // Assume available initially
	return c
}

// Get returns the cached redaction for key.
func (c *RedactionCache) Get(ctx context.Context, key string) (string, bool, error) {
	if !c.isAvailable.Load() {
		return "", false, nil
	}

	val, err := c.client.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		c.markUnavailable(err)
		return "", false, fmt.Errorf("failed to read redaction cache: %w", err)
	}
	return val, true, nil
}

// Set stores value under key for the configured TTL.
func (c *RedactionCache) Set(ctx context.Context, key, value string) error {
	if !c.isAvailable.Load() {
		return nil
	}

	if err := c.client.Set(ctx, keyPrefix+key, value, c.ttl).Err(); err != nil {
		c.markUnavailable(err)
		return fmt.Errorf("failed to write redaction cache: %w", err)
	}
	return nil
}

// Available reports whether the cache currently talks to Redis.
func (c *RedactionCache) Available() bool {
	return c.isAvailable.Load()
}

// Disable turns the cache off until the health check sees Redis answer again.
func (c *RedactionCache) Disable(reason error) {
	if c.isAvailable.CompareAndSwap(true, false) {
		c.logger.Warn("redaction cache disabled", "reason", reason)
	}
}

// StartHealthCheck pings Redis every interval and re-enables the cache once it answers.
func (c *RedactionCache) StartHealthCheck(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Stopping Redis health check")
			return
		case <-ticker.C:
			if err := c.client.Ping(ctx).Err(); err != nil {
				c.markUnavailable(err)
				continue
			}
			if c.isAvailable.CompareAndSwap(false, true) {
				c.logger.Info("Redis connection recovered, redaction cache enabled")
			}
		}
	}
}

func (c *RedactionCache) markUnavailable(err error) {
	if !isNetworkError(err) {
		return
	}
	if c.isAvailable.CompareAndSwap(true, false) {
		c.logger.Error("Redis connection lost, redaction cache disabled", "error", err)
	}
}

func isNetworkError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, redis.ErrClosed)
}
