package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/salesdash/authkit/pkg/kvstore"
)

// fixedWindowScript increments the window counter and applies the limit.
// KEYS[1] counter key, KEYS[2] block key.
// ARGV: limit, window TTL ms, cooldown ms.
// Returns {allowed, remaining, retry ms, blocked}.
const fixedWindowScript = `
local blocked = redis.call("PTTL", KEYS[2])
if blocked > 0 then
  return {0, 0, blocked, 1}
end
local limit = tonumber(ARGV[1])
local count = redis.call("INCR", KEYS[1])
if redis.call("PTTL", KEYS[1]) < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
local reset = redis.call("PTTL", KEYS[1])
if count > limit then
  local cooldown = tonumber(ARGV[3])
  if cooldown > 0 then
    redis.call("SET", KEYS[2], "1", "PX", cooldown)
    return {0, 0, cooldown, 1}
  end
  return {0, 0, reset, 0}
end
return {1, limit - count, reset, 0}
`

// slidingWindowScript prunes the timestamp log, then records the new
// timestamp only when the window has room.
// KEYS[1] log key, KEYS[2] block key.
// ARGV: now ms, window ms, limit, member, cooldown ms.
// Returns {allowed, remaining, retry ms, blocked}.
const slidingWindowScript = `
local blocked = redis.call("PTTL", KEYS[2])
if blocked > 0 then
  return {0, 0, blocked, 1}
end
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call("ZREMRANGEBYSCORE", KEYS[1], 0, now - window)
local count = redis.call("ZCARD", KEYS[1])
if count >= limit then
  local cooldown = tonumber(ARGV[5])
  if cooldown > 0 then
    redis.call("SET", KEYS[2], "1", "PX", cooldown)
    return {0, 0, cooldown, 1}
  end
  local reset = window
  local oldest = redis.call("ZRANGE", KEYS[1], 0, 0, "WITHSCORES")
  if oldest[2] then
    reset = tonumber(oldest[2]) + window - now
  end
  if reset < 0 then
    reset = 0
  end
  return {0, 0, reset, 0}
end
redis.call("ZADD", KEYS[1], now, ARGV[4])
redis.call("PEXPIRE", KEYS[1], window)
return {1, limit - count - 1, window, 0}
`

// tokenBucketScript refills for the elapsed time and consumes the cost.
// Token counts are milli-tokens so refill math stays in integers.
// KEYS[1] bucket hash, KEYS[2] block key.
// ARGV: capacity, rate (milli-tokens/s), now ms, cost, cooldown ms, ttl ms.
// Returns {allowed, remaining milli-tokens, retry ms, blocked}.
const tokenBucketScript = `
local blocked = redis.call("PTTL", KEYS[2])
if blocked > 0 then
  return {0, 0, blocked, 1}
end
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local cost = tonumber(ARGV[4])
local cooldown = tonumber(ARGV[5])
local ttl = tonumber(ARGV[6])
local state = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(state[1])
local ts = tonumber(state[2])
if tokens == nil or ts == nil then
  tokens = capacity
  ts = now
else
  if now > ts then
    local accrued = math.floor((now - ts) * rate / 1000)
    if accrued > 0 then
      tokens = math.min(capacity, tokens + accrued)
      ts = now
    end
  end
end
local allowed = 0
if tokens >= cost then
  tokens = tokens - cost
  allowed = 1
end
redis.call("HSET", KEYS[1], "tokens", tokens, "ts", ts)
redis.call("PEXPIRE", KEYS[1], ttl)
if allowed == 1 then
  local refill = 0
  if tokens < capacity then
    refill = math.ceil((capacity - tokens) * 1000 / rate)
  end
  return {1, tokens, refill, 0}
end
if cooldown > 0 then
  redis.call("SET", KEYS[2], "1", "PX", cooldown)
  return {0, tokens, cooldown, 1}
end
return {0, tokens, math.ceil((cost - tokens) * 1000 / rate), 0}
`

const windowCountScript = `
local v = redis.call("GET", KEYS[1])
if not v then
  return 0
end
return tonumber(v)
`

const timestampCountScript = `
return redis.call("ZCOUNT", KEYS[1], ARGV[1], "+inf")
`

const blockTTLScript = `
local t = redis.call("PTTL", KEYS[1])
if t < 0 then
  return 0
end
return t
`

var (
	fixedWindowLua    = redis.NewScript(fixedWindowScript)
	slidingWindowLua  = redis.NewScript(slidingWindowScript)
	tokenBucketLua    = redis.NewScript(tokenBucketScript)
	windowCountLua    = redis.NewScript(windowCountScript)
	timestampCountLua = redis.NewScript(timestampCountScript)
	blockTTLLua       = redis.NewScript(blockTTLScript)
)

// RedisStore implements Store on the shared key-value store. Each check is
// one script round-trip, so concurrent workers serialize on the store and
// never lose updates.
type RedisStore struct {
	client *kvstore.Client
}

// NewRedisStore creates a rate-limit store backed by the shared client.
func NewRedisStore(client *kvstore.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) FixedWindowAllow(ctx context.Context, key, blockKey string, limit int, ttl, cooldown time.Duration) (Outcome, error) {
	res, err := s.client.RunScript(ctx, fixedWindowLua, []string{key, blockKey},
		limit, ttl.Milliseconds(), cooldown.Milliseconds())
	if err != nil {
		return Outcome{}, err
	}
	return parseOutcome(res)
}

func (s *RedisStore) SlidingWindowAllow(ctx context.Context, key, blockKey, member string, limit int, now time.Time, window, cooldown time.Duration) (Outcome, error) {
	res, err := s.client.RunScript(ctx, slidingWindowLua, []string{key, blockKey},
		now.UnixMilli(), window.Milliseconds(), limit, member, cooldown.Milliseconds())
	if err != nil {
		return Outcome{}, err
	}
	return parseOutcome(res)
}

func (s *RedisStore) TokenBucketTake(ctx context.Context, key, blockKey string, capacity, rate, cost int64, now time.Time, cooldown, ttl time.Duration) (Outcome, error) {
	res, err := s.client.RunScript(ctx, tokenBucketLua, []string{key, blockKey},
		capacity, rate, now.UnixMilli(), cost, cooldown.Milliseconds(), ttl.Milliseconds())
	if err != nil {
		return Outcome{}, err
	}
	return parseOutcome(res)
}

func (s *RedisStore) WindowCount(ctx context.Context, key string) (int64, error) {
	res, err := s.client.RunScript(ctx, windowCountLua, []string{key})
	if err != nil {
		return 0, err
	}
	n, _ := res.(int64)
	return n, nil
}

func (s *RedisStore) TimestampCount(ctx context.Context, key string, from time.Time) (int64, error) {
	res, err := s.client.RunScript(ctx, timestampCountLua, []string{key}, from.UnixMilli())
	if err != nil {
		return 0, err
	}
	n, _ := res.(int64)
	return n, nil
}

func (s *RedisStore) BlockTTL(ctx context.Context, blockKey string) (time.Duration, error) {
	res, err := s.client.RunScript(ctx, blockTTLLua, []string{blockKey})
	if err != nil {
		return 0, err
	}
	ms, _ := res.(int64)
	return time.Duration(ms) * time.Millisecond, nil
}

func (s *RedisStore) Remove(ctx context.Context, keys ...string) error {
	return s.client.Delete(ctx, keys...)
}

func parseOutcome(res any) (Outcome, error) {
	vals, ok := res.([]any)
	if !ok || len(vals) != 4 {
		return Outcome{}, fmt.Errorf("ratelimit: unexpected script result %T", res)
	}
	nums := make([]int64, 4)
	for i, v := range vals {
		n, ok := v.(int64)
		if !ok {
			return Outcome{}, fmt.Errorf("ratelimit: unexpected script element %T", v)
		}
		nums[i] = n
	}
	return Outcome{
		Allowed:    nums[0] == 1,
		Remaining:  nums[1],
		RetryAfter: time.Duration(nums[2]) * time.Millisecond,
		Blocked:    nums[3] == 1,
	}, nil
}
