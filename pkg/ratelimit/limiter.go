package ratelimit

import (
	"context"
	"time"
)

const (
	counterPrefix = "ratelimit:"
	blockPrefix   = "blocked:"
)

func outcomeResult(out Outcome, limit int, now time.Time) *Result {
	return &Result{
		Allowed:   out.Allowed,
		Limit:     limit,
		Remaining: max(0, int(out.Remaining)),
		ResetAt:   now.Add(out.RetryAfter),
		Blocked:   out.Blocked,
	}
}

// blockedStatus short-circuits status reads while a cooldown block is
// active. Returns (result, true, nil) when blocked.
func blockedStatus(ctx context.Context, store Store, key string, limit int, now time.Time) (*Result, bool, error) {
	ttl, err := store.BlockTTL(ctx, blockPrefix+key)
	if err != nil {
		return nil, false, err
	}
	if ttl <= 0 {
		return nil, false, nil
	}
	return &Result{
		Allowed:   false,
		Limit:     limit,
		Remaining: 0,
		ResetAt:   now.Add(ttl),
		Blocked:   true,
	}, true, nil
}
