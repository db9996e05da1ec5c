package ratelimit

import (
	"context"
	"time"
)

// Store counts requests per key over a sliding window. PolicyLimiter keys are
// "<client>:<scope>:<window ms>".
type Store interface {
	// Record adds one request for key and returns how many requests fall inside the
	// trailing window, this one included. Entries older than window are pruned.
	Record(ctx context.Context, key string, window time.Duration) (count int64, err error)
}
