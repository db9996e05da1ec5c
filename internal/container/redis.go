package container

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/shortlink/internal/store"
	"go.uber.org/zap"
)

// RedisClient owns the shared Redis connection pool.
type RedisClient struct {
	*redis.Client
}

// Shutdown closes the pool.
func (c *RedisClient) Shutdown() error {
	return c.Close()
}

// RedisPackage provides a Redis client. It is only resolved by components configured
// to use Redis, so deployments without Redis never dial it.
func RedisPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*RedisClient, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		client, err := store.NewRedisClient(ctx, opts.RedisAddr)
		if err != nil {
			return nil, err
		}

		logger.Info("connected to redis", zap.String("addr", opts.RedisAddr))

		return &RedisClient{Client: client}, nil
	})
}
