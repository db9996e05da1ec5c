//go:build integration

package store_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/shortlink/internal/shortener"
	"github.com/serroba/shortlink/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func getRedisAddr() string {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return addr
	}

	return "localhost:6379"
}

func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()

	client, err := store.NewRedisClient(context.Background(), getRedisAddr())
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	t.Cleanup(func() { _ = client.Close() })

	return client
}

func TestRedisCacheRepositoryIntegration(t *testing.T) {
	client := newRedisClient(t)
	ctx := context.Background()

	backing := store.NewMemoryStore()
	cache := store.NewRedisCacheRepository(backing, client, time.Minute, zap.NewNop())

	link := newLink("cache-id-1", "rcache1", "")
	require.NoError(t, cache.Create(ctx, link))

	t.Cleanup(func() { client.Del(ctx, "link:rcache1") })

	t.Run("populates on miss", func(t *testing.T) {
		got, err := cache.GetByCode(ctx, "rcache1")
		require.NoError(t, err)
		assert.Equal(t, "cache-id-1", got.ID)

		exists, err := client.Exists(ctx, "link:rcache1").Result()
		require.NoError(t, err)
		assert.Equal(t, int64(1), exists)
	})

	t.Run("mutation invalidates", func(t *testing.T) {
		_, err := cache.GetByCode(ctx, "rcache1")
		require.NoError(t, err)

		require.NoError(t, cache.SetActive(ctx, "cache-id-1", false))

		got, err := cache.GetByCode(ctx, "rcache1")
		require.NoError(t, err)
		assert.False(t, got.Active)
	})

	t.Run("missing code is not cached", func(t *testing.T) {
		_, err := cache.GetByCode(ctx, "rcache-missing")

		assert.ErrorIs(t, err, shortener.ErrNotFound)
	})
}

func TestRateLimitRedisStoreIntegration(t *testing.T) {
	client := newRedisClient(t)
	ctx := context.Background()

	s := store.NewRateLimitRedisStore(client)
	key := "it:" + time.Now().Format(time.RFC3339Nano)

	t.Cleanup(func() { client.Del(ctx, "ratelimit:"+key) })

	for i := 1; i <= 3; i++ {
		count, err := s.Record(ctx, key, time.Minute)

		require.NoError(t, err)
		assert.Equal(t, int64(i), count)
	}
}
