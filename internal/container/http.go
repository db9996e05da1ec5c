package container

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/do"
	"github.com/serroba/shortlink/internal/analytics"
	"github.com/serroba/shortlink/internal/handlers"
	"github.com/serroba/shortlink/internal/health"
	"github.com/serroba/shortlink/internal/middleware"
	"github.com/serroba/shortlink/internal/qr"
	"github.com/serroba/shortlink/internal/ratelimit"
	"github.com/serroba/shortlink/internal/redirect"
	"github.com/serroba/shortlink/internal/shortener"
	"go.uber.org/zap"
)

// HTTPPackage provides the router and the huma API with every route registered.
func HTTPPackage(i *do.Injector) {
	do.Provide(i, func(_ *do.Injector) (*chi.Mux, error) {
		router := chi.NewMux()
		router.Use(chimiddleware.Recoverer)
		router.Handle("/metrics", promhttp.Handler())

		return router, nil
	})

	do.Provide(i, func(i *do.Injector) (huma.API, error) {
		opts := do.MustInvoke[*Options](i)
		router := do.MustInvoke[*chi.Mux](i)
		logger := do.MustInvoke[*zap.Logger](i)

		api := humachi.New(router, huma.DefaultConfig("Shortlink", "1.0.0"))

		api.UseMiddleware(
			middleware.Metrics(api),
			middleware.RequestMeta(api),
			middleware.PolicyRateLimiter(
				api,
				do.MustInvoke[*ratelimit.PolicyLimiter](i),
				do.MustInvoke[ratelimit.ScopeResolver](i),
				logger.Named("ratelimit"),
			),
		)

		registry := do.MustInvoke[*shortener.Registry](i)
		storage := do.MustInvoke[*Storage](i)
		manager := do.MustInvoke[*qr.Manager](i)
		baseURL := opts.PublicBaseURL()

		handlers.RegisterRoutes(api,
			handlers.NewPublicHandler(
				do.MustInvoke[*redirect.Resolver](i),
				registry,
				manager,
				baseURL,
				logger.Named("public"),
			),
			handlers.NewLinkHandler(
				registry,
				do.MustInvoke[*analytics.Aggregator](i),
				storage.Clicks,
				baseURL,
				logger.Named("links"),
			),
		)

		health.RegisterRoutes(api, health.NewHandler(healthCheckers(i, opts, storage)))

		return api, nil
	})
}

func healthCheckers(i *do.Injector, opts *Options, storage *Storage) map[string]health.Checker {
	checkers := make(map[string]health.Checker)

	if storage.Checker != nil {
		checkers["database"] = storage.Checker
	}

	if opts.usesRedis() {
		client := do.MustInvoke[*RedisClient](i)
		checkers["redis"] = health.NewRedisChecker(client.Client)
	}

	return checkers
}

func (o *Options) usesRedis() bool {
	return o.CacheTTLSeconds > 0 || o.Broker == "redis" || o.RateLimitStore == "redis"
}
