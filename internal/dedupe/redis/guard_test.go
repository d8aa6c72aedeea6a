package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	mu      sync.Mutex
	keys    map[string]time.Duration
	failSet error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{keys: make(map[string]time.Duration)}
}

func (f *fakeRedis) SetNX(_ context.Context, key string, _ any, ttl time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSet != nil {
		return redis.NewBoolResult(false, f.failSet)
	}
	if _, ok := f.keys[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.keys[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.keys[k]; ok {
			delete(f.keys, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeRedis) Close() error { return nil }

func TestClaimOnce(t *testing.T) {
	t.Parallel()

	fake := newFakeRedis()
	g := newGuard(fake, Config{KeyPrefix: "autoved:"})
	ctx := context.Background()

	ok, err := g.Claim(ctx, "tg:-100:7")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, DefaultTTL, fake.keys["autoved:tg:-100:7"])

	ok, err = g.Claim(ctx, "tg:-100:7")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, g.Release(ctx, "tg:-100:7"))
	ok, err = g.Claim(ctx, "tg:-100:7")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, g.Health(ctx))
	require.NoError(t, g.Close())
}

func TestClaimError(t *testing.T) {
	t.Parallel()

	fake := newFakeRedis()
	fake.failSet = errors.New("connection refused")
	g := newGuard(fake, Config{TTL: time.Minute})

	_, err := g.Claim(context.Background(), "k")
	require.ErrorContains(t, err, "connection refused")
}

func TestNewWithoutURL(t *testing.T) {
	t.Parallel()

	g, err := New(context.Background(), Config{})
	require.NoError(t, err)
	require.Nil(t, g)

	_, err = New(context.Background(), Config{URL: "://bad"})
	require.Error(t, err)
}
