// FilePath: internal/ratelimit/ratelimit.go
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/greenmind-iot/hub/internal/config"
	"github.com/redis/go-redis/v9"
	nuts "github.com/vaudience/go-nuts"
)

const keyPrefix = "failed_attempts:"

// Client is the subset of redis.Client the limiter needs. Narrowed so
// tests can substitute an in-memory fake.
type Client interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Limiter tracks repeated authentication failures per client address in
// Redis so the count is shared across hub instances. All operations fail
// open: a Redis outage degrades the limiter to "not blocked" rather than
// blocking authentication outright.
type Limiter struct {
	client    Client
	threshold int
	window    time.Duration
}

// New creates a Limiter with the given threshold and reset window.
func New(client Client, cfg config.RateLimitConfig) *Limiter {
	return &Limiter{
		client:    client,
		threshold: cfg.Threshold,
		window:    cfg.Window,
	}
}

// NewRedisClient builds the redis connection the limiter runs on.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func key(clientAddr string) string {
	return keyPrefix + clientAddr
}

// IsBlocked reports whether the address has reached the failure
// threshold within the current window.
func (l *Limiter) IsBlocked(ctx context.Context, clientAddr string) bool {
	count, err := l.client.Get(ctx, key(clientAddr)).Int()
	if err != nil {
		if err != redis.Nil {
			nuts.L.Warnf("[RateLimit] Failed to read counter for %s, failing open: %v", clientAddr, err)
		}
		return false
	}
	return count >= l.threshold
}

// RecordFailure increments the failure counter for the address and
// refreshes its expiry to the full window.
func (l *Limiter) RecordFailure(ctx context.Context, clientAddr string) {
	k := key(clientAddr)
	if err := l.client.Incr(ctx, k).Err(); err != nil {
		nuts.L.Warnf("[RateLimit] Failed to record failure for %s: %v", clientAddr, err)
		return
	}
	if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
		nuts.L.Warnf("[RateLimit] Failed to set counter expiry for %s: %v", clientAddr, err)
	}
}

// Reset clears the failure counter entirely. Called on any successful
// authentication.
func (l *Limiter) Reset(ctx context.Context, clientAddr string) {
	if err := l.client.Del(ctx, key(clientAddr)).Err(); err != nil {
		nuts.L.Warnf("[RateLimit] Failed to reset counter for %s: %v", clientAddr, err)
	}
}
