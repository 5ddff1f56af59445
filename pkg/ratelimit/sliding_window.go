package ratelimit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SlidingWindow tracks individual request timestamps in a moving window.
// More accurate than fixed windows around boundaries, at the cost of one
// log entry per request.
type SlidingWindow struct {
	store    Store
	limit    int
	window   time.Duration
	cooldown time.Duration
	now      func() time.Time
}

// NewSlidingWindow creates a sliding-window limiter.
func NewSlidingWindow(store Store, limit int, window, cooldown time.Duration) (*SlidingWindow, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if err := (Rule{Limit: limit, Window: window, Cooldown: cooldown, Strategy: StrategySlidingWindow}).Validate(); err != nil {
		return nil, err
	}
	return &SlidingWindow{store: store, limit: limit, window: window, cooldown: cooldown, now: time.Now}, nil
}

// Allow records one request timestamp if the window has room.
func (sw *SlidingWindow) Allow(ctx context.Context, key string) (*Result, error) {
	if key == "" {
		return nil, ErrKeyRequired
	}

	now := sw.now()
	// Members must be unique so simultaneous requests with equal
	// timestamps each count.
	member := uuid.NewString()

	out, err := sw.store.SlidingWindowAllow(ctx, counterPrefix+key, blockPrefix+key, member, sw.limit, now, sw.window, sw.cooldown)
	if err != nil {
		return nil, err
	}
	return outcomeResult(out, sw.limit, now), nil
}

// Status reports the current window occupancy without recording anything.
func (sw *SlidingWindow) Status(ctx context.Context, key string) (*Result, error) {
	if key == "" {
		return nil, ErrKeyRequired
	}

	now := sw.now()
	if res, blocked, err := blockedStatus(ctx, sw.store, key, sw.limit, now); err != nil || blocked {
		return res, err
	}

	count, err := sw.store.TimestampCount(ctx, counterPrefix+key, now.Add(-sw.window))
	if err != nil {
		return nil, err
	}

	remaining := max(0, sw.limit-int(count))
	return &Result{
		Allowed:   remaining > 0,
		Limit:     sw.limit,
		Remaining: remaining,
		ResetAt:   now.Add(sw.window),
	}, nil
}

// Reset clears the timestamp log and any cooldown block.
func (sw *SlidingWindow) Reset(ctx context.Context, key string) error {
	if key == "" {
		return ErrKeyRequired
	}
	return sw.store.Remove(ctx, counterPrefix+key, blockPrefix+key)
}
