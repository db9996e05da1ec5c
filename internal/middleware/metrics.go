package middleware

import (
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortlink/internal/metrics"
)

// Metrics records request count, latency and in-flight requests per route template.
func Metrics(_ huma.API) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		metrics.HTTPInFlight.Inc()
		defer metrics.HTTPInFlight.Dec()

		start := time.Now()

		next(ctx)

		route := operationPath(ctx)
		if route == "" {
			route = "unknown"
		}

		status := ctx.Status()
		if status == 0 {
			status = 200
		}

		labels := []string{ctx.Method(), route, strconv.Itoa(status)}

		metrics.HTTPRequestsTotal.WithLabelValues(labels...).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
	}
}
