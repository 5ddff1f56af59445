package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Strategy selects the counting algorithm a rule uses.
type Strategy string

const (
	// StrategyFixedWindow counts requests in aligned windows. Cheap, but
	// bursty around window boundaries.
	StrategyFixedWindow Strategy = "fixed_window"

	// StrategySlidingWindow tracks individual request timestamps in a
	// moving window. More accurate, more storage.
	StrategySlidingWindow Strategy = "sliding_window"

	// StrategyTokenBucket refills tokens continuously and allows bursts up
	// to the bucket capacity.
	StrategyTokenBucket Strategy = "token_bucket"
)

// ParseStrategy converts a configuration string into a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyFixedWindow, StrategySlidingWindow, StrategyTokenBucket:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("%w: unknown strategy %q", ErrInvalidRule, s)
}

// Rule is a named rate-limit policy. For the token bucket strategy, Limit
// is the bucket capacity and the bucket refills fully over one Window.
type Rule struct {
	// Limit is the maximum number of requests per window (or the bucket
	// capacity for token buckets).
	Limit int

	// Window is the measurement window.
	Window time.Duration

	// Strategy selects the counting algorithm.
	Strategy Strategy

	// Cooldown, when positive, blocks the subject for this long after a
	// violation, independent of the window.
	Cooldown time.Duration

	// FailClosed denies requests when the store is unreachable. Rules
	// protecting authentication endpoints set this.
	FailClosed bool
}

// Validate checks the rule parameters.
func (r Rule) Validate() error {
	if r.Limit <= 0 {
		return fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidRule, r.Limit)
	}
	if r.Window <= 0 {
		return fmt.Errorf("%w: window must be positive, got %v", ErrInvalidRule, r.Window)
	}
	if r.Cooldown < 0 {
		return fmt.Errorf("%w: cooldown must not be negative, got %v", ErrInvalidRule, r.Cooldown)
	}
	if _, err := ParseStrategy(string(r.Strategy)); err != nil {
		return err
	}
	return nil
}

// Result is the outcome of a rate-limit check.
type Result struct {
	// Allowed indicates whether the request may proceed.
	Allowed bool

	// Limit is the rule's request ceiling.
	Limit int

	// Remaining is the number of requests left before the subject is denied.
	Remaining int

	// ResetAt is when capacity next becomes available.
	ResetAt time.Time

	// Blocked indicates the denial came from a cooldown block rather than
	// an exhausted window.
	Blocked bool
}

// RetryAfter returns how long to wait before the next attempt.
// Returns 0 if the request was allowed.
func (r *Result) RetryAfter() time.Duration {
	if r.Allowed {
		return 0
	}
	return max(0, time.Until(r.ResetAt))
}

// Limiter is a single-rule rate limiter keyed by subject.
type Limiter interface {
	// Allow checks whether one request is allowed for the key and consumes
	// capacity if so.
	Allow(ctx context.Context, key string) (*Result, error)

	// Status reports the current state without consuming capacity.
	Status(ctx context.Context, key string) (*Result, error)

	// Reset clears counters and any cooldown block for the key.
	Reset(ctx context.Context, key string) error
}

// DefaultRules returns the standard rule set for the dashboard. Rules
// guarding credential endpoints fail closed.
func DefaultRules() map[string]Rule {
	return map[string]Rule{
		"auth_login": {
			Limit:      5,
			Window:     5 * time.Minute,
			Strategy:   StrategySlidingWindow,
			Cooldown:   15 * time.Minute,
			FailClosed: true,
		},
		"auth_register": {
			Limit:      3,
			Window:     time.Hour,
			Strategy:   StrategyFixedWindow,
			FailClosed: true,
		},
		"password_reset": {
			Limit:      3,
			Window:     time.Hour,
			Strategy:   StrategySlidingWindow,
			FailClosed: true,
		},
		"api_call": {
			Limit:    100,
			Window:   time.Minute,
			Strategy: StrategyTokenBucket,
		},
		"session_create": {
			Limit:    10,
			Window:   5 * time.Minute,
			Strategy: StrategySlidingWindow,
		},
	}
}
