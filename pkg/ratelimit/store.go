package ratelimit

import (
	"context"
	"time"
)

// Outcome is the raw store-side result of an atomic check. The limiter
// layer turns it into a Result.
type Outcome struct {
	Allowed    bool
	Blocked    bool
	Remaining  int64
	RetryAfter time.Duration
}

// Store is the storage backend for rate-limit state. Every check method
// executes as a single atomic store-side operation: the cooldown-block
// test, the counter mutation and the block-on-violation all happen in one
// step so concurrent workers never interleave partial updates.
type Store interface {
	// FixedWindowAllow increments the counter at key, stamping ttl on
	// first touch, and denies once the count exceeds limit. A violation
	// with a positive cooldown sets a block at blockKey.
	FixedWindowAllow(ctx context.Context, key, blockKey string, limit int, ttl, cooldown time.Duration) (Outcome, error)

	// SlidingWindowAllow prunes timestamps older than the window from the
	// log at key, then records member at now if fewer than limit remain.
	SlidingWindowAllow(ctx context.Context, key, blockKey, member string, limit int, now time.Time, window, cooldown time.Duration) (Outcome, error)

	// TokenBucketTake refills the bucket at key for the elapsed time and
	// consumes cost milli-tokens if available. Rate is in milli-tokens
	// per second. A zero cost reports state without consuming.
	TokenBucketTake(ctx context.Context, key, blockKey string, capacity, rate, cost int64, now time.Time, cooldown, ttl time.Duration) (Outcome, error)

	// WindowCount returns the current fixed-window counter value.
	WindowCount(ctx context.Context, key string) (int64, error)

	// TimestampCount returns how many recorded timestamps are at or after
	// from.
	TimestampCount(ctx context.Context, key string, from time.Time) (int64, error)

	// BlockTTL returns the remaining cooldown at blockKey, or 0 when no
	// block is active.
	BlockTTL(ctx context.Context, blockKey string) (time.Duration, error)

	// Remove deletes the given keys.
	Remove(ctx context.Context, keys ...string) error
}
