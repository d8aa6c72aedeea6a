// Package redis guards against ingesting the same channel post twice.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long a claim is remembered.
const DefaultTTL = 72 * time.Hour

// Config controls the Redis connection.
type Config struct {
	URL          string
	KeyPrefix    string
	TTL          time.Duration
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type commander interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// Guard claims message keys with SET NX so concurrent or redelivered updates are written once.
type Guard struct {
	client commander
	prefix string
	ttl    time.Duration
}

// New connects to Redis. It returns nil, nil when no URL is configured.
func New(ctx context.Context, cfg Config) (*Guard, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return newGuard(client, cfg), nil
}

func newGuard(client commander, cfg Config) *Guard {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Guard{client: client, prefix: cfg.KeyPrefix, ttl: ttl}
}

// Claim marks key as taken. It reports false when the key was already claimed.
func (g *Guard) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := g.client.SetNX(ctx, g.prefix+key, "1", g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	return ok, nil
}

// Release drops a claim so the message can be retried.
func (g *Guard) Release(ctx context.Context, key string) error {
	if err := g.client.Del(ctx, g.prefix+key).Err(); err != nil {
		return fmt.Errorf("release %s: %w", key, err)
	}
	return nil
}

// Health pings the server.
func (g *Guard) Health(ctx context.Context) error {
	return g.client.Ping(ctx).Err()
}

// Close closes the connection.
func (g *Guard) Close() error {
	return g.client.Close()
}
