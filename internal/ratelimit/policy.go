package ratelimit

import "time"

// LimitConfig allows at most Max requests per sliding Window.
type LimitConfig struct {
	Max    int64
	Window time.Duration
}

// Policy maps scopes to the limits enforced for them. A scope may carry several windows,
// for example a burst limit and an hourly cap.
type Policy struct {
	Limits map[Scope][]LimitConfig
}

// DefaultPolicy keeps redirects cheap and write endpoints strict.
func DefaultPolicy() *Policy {
	return &Policy{
		Limits: map[Scope][]LimitConfig{
			ScopeGlobal: {
				{Max: 1000, Window: time.Minute},
			},
			ScopeRedirect: {
				{Max: 600, Window: time.Minute},
			},
			ScopeRead: {
				{Max: 300, Window: time.Minute},
			},
			ScopeWrite: {
				{Max: 30, Window: time.Minute},
				{Max: 500, Window: time.Hour},
			},
		},
	}
}
