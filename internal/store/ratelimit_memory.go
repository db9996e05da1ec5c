package store

import (
	"context"
	"sync"
	"time"
)

// RateLimitMemoryStore is a process-local sliding window log implementing ratelimit.Store.
type RateLimitMemoryStore struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	now      func() time.Time
}

func NewRateLimitMemoryStore() *RateLimitMemoryStore {
	return &RateLimitMemoryStore{
		requests: make(map[string][]time.Time),
		now:      time.Now,
	}
}

func (s *RateLimitMemoryStore) Record(_ context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cutoff := now.Add(-window)

	timestamps := s.requests[key]

	// Timestamps are appended in order, so everything before the first live entry has expired.
	live := 0
	for live < len(timestamps) && !timestamps[live].After(cutoff) {
		live++
	}

	timestamps = append(timestamps[live:], now)
	s.requests[key] = timestamps

	return int64(len(timestamps)), nil
}
