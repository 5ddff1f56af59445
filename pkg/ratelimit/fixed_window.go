package ratelimit

import (
	"context"
	"strconv"
	"time"
)

// FixedWindow counts requests in aligned windows of fixed length. All
// requests sharing floor(now/window) share one counter.
type FixedWindow struct {
	store    Store
	limit    int
	window   time.Duration
	cooldown time.Duration
	now      func() time.Time
}

// NewFixedWindow creates a fixed-window limiter.
func NewFixedWindow(store Store, limit int, window, cooldown time.Duration) (*FixedWindow, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if err := (Rule{Limit: limit, Window: window, Cooldown: cooldown, Strategy: StrategyFixedWindow}).Validate(); err != nil {
		return nil, err
	}
	return &FixedWindow{store: store, limit: limit, window: window, cooldown: cooldown, now: time.Now}, nil
}

func (fw *FixedWindow) windowKey(key string, now time.Time) (string, time.Duration) {
	windowMs := fw.window.Milliseconds()
	idx := now.UnixMilli() / windowMs
	ttl := time.Duration(windowMs-now.UnixMilli()%windowMs) * time.Millisecond
	return counterPrefix + key + ":" + strconv.FormatInt(idx, 10), ttl
}

// Allow consumes one slot in the current window.
func (fw *FixedWindow) Allow(ctx context.Context, key string) (*Result, error) {
	if key == "" {
		return nil, ErrKeyRequired
	}

	now := fw.now()
	counterKey, ttl := fw.windowKey(key, now)

	out, err := fw.store.FixedWindowAllow(ctx, counterKey, blockPrefix+key, fw.limit, ttl, fw.cooldown)
	if err != nil {
		return nil, err
	}
	return outcomeResult(out, fw.limit, now), nil
}

// Status reports the current window state without consuming a slot.
func (fw *FixedWindow) Status(ctx context.Context, key string) (*Result, error) {
	if key == "" {
		return nil, ErrKeyRequired
	}

	now := fw.now()
	if res, blocked, err := blockedStatus(ctx, fw.store, key, fw.limit, now); err != nil || blocked {
		return res, err
	}

	counterKey, ttl := fw.windowKey(key, now)
	count, err := fw.store.WindowCount(ctx, counterKey)
	if err != nil {
		return nil, err
	}

	remaining := max(0, fw.limit-int(count))
	return &Result{
		Allowed:   remaining > 0,
		Limit:     fw.limit,
		Remaining: remaining,
		ResetAt:   now.Add(ttl),
	}, nil
}

// Reset clears the current window counter and any cooldown block.
func (fw *FixedWindow) Reset(ctx context.Context, key string) error {
	if key == "" {
		return ErrKeyRequired
	}
	counterKey, _ := fw.windowKey(key, fw.now())
	return fw.store.Remove(ctx, counterKey, blockPrefix+key)
}
