package ratelimit

import (
	"context"
	"time"
)

// tokenScale converts whole tokens to the milli-token units the store
// works in, keeping refill arithmetic integral.
const tokenScale = 1000

// TokenBucket refills tokens continuously and allows bursts up to the
// bucket capacity. The bucket holds capacity tokens and refills fully
// over one window.
type TokenBucket struct {
	store    Store
	capacity int
	window   time.Duration
	cooldown time.Duration
	rate     int64 // milli-tokens per second
	now      func() time.Time
}

// NewTokenBucket creates a token-bucket limiter with the given capacity,
// refilling at capacity tokens per window.
func NewTokenBucket(store Store, capacity int, window, cooldown time.Duration) (*TokenBucket, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if err := (Rule{Limit: capacity, Window: window, Cooldown: cooldown, Strategy: StrategyTokenBucket}).Validate(); err != nil {
		return nil, err
	}
	rate := int64(float64(capacity) * tokenScale / window.Seconds())
	if rate <= 0 {
		rate = 1
	}
	return &TokenBucket{
		store:    store,
		capacity: capacity,
		window:   window,
		cooldown: cooldown,
		rate:     rate,
		now:      time.Now,
	}, nil
}

// ttl keeps an idle bucket around long enough to refill completely before
// it is forgotten.
func (tb *TokenBucket) ttl() time.Duration {
	return 2 * tb.window
}

// Allow consumes one token if available.
func (tb *TokenBucket) Allow(ctx context.Context, key string) (*Result, error) {
	return tb.take(ctx, key, tokenScale)
}

// Status reports the current fill level without consuming tokens.
func (tb *TokenBucket) Status(ctx context.Context, key string) (*Result, error) {
	return tb.take(ctx, key, 0)
}

func (tb *TokenBucket) take(ctx context.Context, key string, cost int64) (*Result, error) {
	if key == "" {
		return nil, ErrKeyRequired
	}

	now := tb.now()
	out, err := tb.store.TokenBucketTake(ctx, counterPrefix+key, blockPrefix+key,
		int64(tb.capacity)*tokenScale, tb.rate, cost, now, tb.cooldown, tb.ttl())
	if err != nil {
		return nil, err
	}

	res := outcomeResult(out, tb.capacity, now)
	res.Remaining = max(0, int(out.Remaining/tokenScale))
	return res, nil
}

// Reset refills the bucket by discarding its state and clears any block.
func (tb *TokenBucket) Reset(ctx context.Context, key string) error {
	if key == "" {
		return ErrKeyRequired
	}
	return tb.store.Remove(ctx, counterPrefix+key, blockPrefix+key)
}
