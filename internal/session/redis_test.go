package session

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hermes/internal/adapters/config"
	redisclient "hermes/internal/adapters/redis"
	"hermes/pkg/errors"
)

// newTestRedisStore connects to a local Redis and flushes the test
// database around the test. Skipped when no Redis is reachable.
func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()

	cfg := config.RedisConfig{Host: "localhost", Port: 6379, DB: 15}
	if host := os.Getenv("REDIS_HOST"); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv("REDIS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}

	client, err := redisclient.NewClient(cfg)
	if err != nil {
		t.Skipf("redis not reachable at %s: %v", cfg.Addr(), err)
	}

	flush := func() {
		_ = client.Client().FlushDB(context.Background()).Err()
	}
	flush()
	t.Cleanup(func() {
		flush()
		_ = client.Close()
	})

	return NewRedisStore(client, time.Minute)
}

func TestRedisStore_SingleUseConsume(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()
	key := testKey()

	menu, err := store.Present(ctx, key, "https://example.com/v", testOptions)
	require.NoError(t, err)
	assert.Contains(t, menu, "1. 144p")

	sel, err := store.Resolve(ctx, key, "2")
	require.NoError(t, err)
	assert.Equal(t, "best", sel.Label)
	assert.Equal(t, "f6", sel.Selector)
	assert.Equal(t, "https://example.com/v", sel.Ref)

	// The session is gone after a successful resolve
	_, err = store.Resolve(ctx, key, "2")
	assert.True(t, errors.Is(err, errors.ErrNoSession))

	exists, err := store.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRedisStore_ResolveWithoutSession(t *testing.T) {
	store := newTestRedisStore(t)

	_, err := store.Resolve(context.Background(), testKey(), "1")
	assert.True(t, errors.Is(err, errors.ErrNoSession))
}

func TestRedisStore_InvalidChoicePreservesSession(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()
	key := testKey()

	_, err := store.Present(ctx, key, "ref", testOptions)
	require.NoError(t, err)

	for _, raw := range []string{"0", "4", "abc", "02", "+2"} {
		_, err := store.Resolve(ctx, key, raw)
		assert.True(t, errors.Is(err, errors.ErrInvalidChoice), "input %q should be invalid", raw)
	}

	sel, err := store.Resolve(ctx, key, "1")
	require.NoError(t, err)
	assert.Equal(t, "144p", sel.Label)
}

func TestRedisStore_PresentOverwrites(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()
	key := testKey()

	_, err := store.Present(ctx, key, "refA", testOptions)
	require.NoError(t, err)
	_, err = store.Present(ctx, key, "refB", testOptions[:1])
	require.NoError(t, err)

	sel, err := store.Resolve(ctx, key, "1")
	require.NoError(t, err)
	assert.Equal(t, "refB", sel.Ref, "Later menu replaces the earlier one")
}

func TestRedisStore_KeysAreIsolated(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()

	alice := Key{ChatID: "grp1", Sender: "alice"}
	bob := Key{ChatID: "grp1", Sender: "bob"}

	_, err := store.Present(ctx, alice, "refA", testOptions)
	require.NoError(t, err)

	_, err = store.Resolve(ctx, bob, "1")
	assert.True(t, errors.Is(err, errors.ErrNoSession))

	exists, err := store.Exists(ctx, alice)
	require.NoError(t, err)
	assert.True(t, exists)
}
