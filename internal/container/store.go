package container

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/do"
	"github.com/serroba/shortlink/internal/analytics"
	"github.com/serroba/shortlink/internal/health"
	"github.com/serroba/shortlink/internal/shortener"
	"github.com/serroba/shortlink/internal/store"
	"go.uber.org/zap"
)

// Storage bundles the views of the configured backend.
type Storage struct {
	Links   shortener.Repository
	Clicks  analytics.Store
	Counter analytics.ClickCounter
	// Checker is nil for the in-memory backend.
	Checker health.Checker

	close func() error
}

// Shutdown releases the backend's connections.
func (s *Storage) Shutdown() error {
	if s.close == nil {
		return nil
	}

	return s.close()
}

// StorePackage provides Storage for Options.Store. Links are read through a Redis cache
// when CacheTTLSeconds is positive.
func StorePackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*Storage, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		storage, err := openStorage(ctx, opts)
		if err != nil {
			return nil, err
		}

		logger.Info("link store ready", zap.String("backend", opts.Store))

		if ttl := opts.cacheTTL(); ttl > 0 {
			redisClient := do.MustInvoke[*RedisClient](i)
			storage.Links = store.NewRedisCacheRepository(storage.Links, redisClient.Client, ttl, logger)

			logger.Info("link read cache enabled", zap.Duration("ttl", ttl))
		}

		return storage, nil
	})
}

func openStorage(ctx context.Context, opts *Options) (*Storage, error) {
	switch opts.Store {
	case "", "memory":
		mem := store.NewMemoryStore()

		return &Storage{Links: mem, Clicks: mem, Counter: mem}, nil

	case "postgres":
		pool, err := pgxpool.New(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}

		pg := store.NewPostgresStore(pool)
		if err := pg.Migrate(ctx); err != nil {
			pool.Close()

			return nil, err
		}

		return &Storage{
			Links:   pg,
			Clicks:  pg,
			Counter: pg,
			Checker: health.CheckerFunc(pg.Ping),
			close: func() error {
				pool.Close()

				return nil
			},
		}, nil

	case "sqlite":
		lite, err := store.NewSQLiteStore(ctx, opts.SQLitePath)
		if err != nil {
			return nil, err
		}

		return &Storage{
			Links:   lite,
			Clicks:  lite,
			Counter: lite,
			Checker: health.CheckerFunc(lite.Ping),
			close:   lite.Shutdown,
		}, nil

	default:
		return nil, fmt.Errorf("unknown store %q", opts.Store)
	}
}
