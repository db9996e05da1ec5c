package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortlink/internal/metrics"
	"github.com/serroba/shortlink/internal/ratelimit"
	"go.uber.org/zap"
)

var errNoOperation = errors.New("no operation in context")

// scopeCustom labels rejections coming from per-endpoint limits.
const scopeCustom ratelimit.Scope = "custom"

// clientKey identifies a client by a digest of its address and User-Agent.
func clientKey(ctx huma.Context) string {
	hash := sha256.Sum256([]byte(ClientIP(ctx) + "|" + ctx.Header("User-Agent")))

	return hex.EncodeToString(hash[:])
}

// PolicyRateLimiter returns a Huma middleware that checks every scope the resolver assigns
// to a request against the limiter's policy.
//
// Operations may override this through ratelimit.MetadataKey: Disabled skips limiting,
// Limits replaces the policy with route-local windows.
func PolicyRateLimiter(
	api huma.API,
	limiter *ratelimit.PolicyLimiter,
	resolver ratelimit.ScopeResolver,
	logger *zap.Logger,
) func(ctx huma.Context, next func(huma.Context)) {
	rl := &rateLimiter{api: api, limiter: limiter, logger: logger}

	return func(ctx huma.Context, next func(huma.Context)) {
		cfg := ratelimit.GetEndpointConfig(ctx)

		switch {
		case cfg != nil && cfg.Disabled:
			next(ctx)
		case cfg != nil && len(cfg.Limits) > 0:
			if rl.allowCustom(ctx, cfg.Limits) {
				next(ctx)
			}
		default:
			if rl.allowPolicy(ctx, resolver.Resolve(ctx)) {
				next(ctx)
			}
		}
	}
}

type rateLimiter struct {
	api     huma.API
	limiter *ratelimit.PolicyLimiter
	logger  *zap.Logger
}

func (rl *rateLimiter) allowPolicy(ctx huma.Context, scopes []ratelimit.Scope) bool {
	allowed, exceeded, err := rl.limiter.Allow(ctx.Context(), clientKey(ctx), scopes)
	if err != nil {
		rl.fail(ctx, err)

		return false
	}

	if !allowed {
		rl.reject(ctx, exceeded)

		return false
	}

	return true
}

// allowCustom counts the request against each route-local window. Counters are keyed by
// the route template, so "/r/{code}" shares one budget per client across all codes.
func (rl *rateLimiter) allowCustom(ctx huma.Context, limits []ratelimit.LimitConfig) bool {
	route := operationPath(ctx)
	if route == "" {
		rl.fail(ctx, errNoOperation)

		return false
	}

	client := clientKey(ctx)

	for _, limit := range limits {
		key := fmt.Sprintf("%s:%s:%s:%d", client, scopeCustom, route, limit.Window.Milliseconds())

		count, err := rl.limiter.Store().Record(ctx.Context(), key, limit.Window)
		if err != nil {
			rl.fail(ctx, err)

			return false
		}

		if count > limit.Max {
			rl.reject(ctx, &ratelimit.LimitExceeded{Scope: scopeCustom, Config: limit, Count: count})

			return false
		}
	}

	return true
}

// fail answers 500 without exposing the store error to the client.
func (rl *rateLimiter) fail(ctx huma.Context, err error) {
	rl.logger.Error("rate limit check failed",
		zap.String("path", operationPath(ctx)),
		zap.Error(err),
	)

	_ = huma.WriteErr(rl.api, ctx, http.StatusInternalServerError, "internal server error")
}

func (rl *rateLimiter) reject(ctx huma.Context, exceeded *ratelimit.LimitExceeded) {
	if exceeded == nil {
		metrics.RateLimited.WithLabelValues("unknown").Inc()
		_ = huma.WriteErr(rl.api, ctx, http.StatusTooManyRequests, "rate limit exceeded")

		return
	}

	rl.logger.Warn("rate limit exceeded",
		zap.String("path", operationPath(ctx)),
		zap.String("method", ctx.Method()),
		zap.String("scope", string(exceeded.Scope)),
		zap.Int64("count", exceeded.Count),
		zap.Int64("max", exceeded.Config.Max),
		zap.Duration("window", exceeded.Config.Window),
		zap.String("client_ip", ClientIP(ctx)),
	)

	metrics.RateLimited.WithLabelValues(string(exceeded.Scope)).Inc()
	setRetryAfter(ctx, exceeded.Config.Window)

	_ = huma.WriteErr(rl.api, ctx, http.StatusTooManyRequests, fmt.Sprintf(
		"rate limit exceeded: %s scope, %d/%d requests in %s",
		exceeded.Scope, exceeded.Count, exceeded.Config.Max, exceeded.Config.Window,
	))
}

func operationPath(ctx huma.Context) string {
	if op := ctx.Operation(); op != nil {
		return op.Path
	}

	return ""
}

// setRetryAfter advertises the full window, in whole seconds, as the wait.
func setRetryAfter(ctx huma.Context, window time.Duration) {
	seconds := int(window.Round(time.Second) / time.Second)
	if seconds < 1 {
		seconds = 1
	}

	ctx.SetHeader("Retry-After", strconv.Itoa(seconds))
}
