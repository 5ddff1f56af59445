package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrScript increments a counter and stamps its TTL on first touch in a
// single store-side step, so the increment and the expiry never race under
// concurrent workers.
const incrScript = `
local value = redis.call("INCRBY", KEYS[1], ARGV[1])
if redis.call("PTTL", KEYS[1]) < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return value
`

var incrLua = redis.NewScript(incrScript)

// Client wraps a Redis connection with the small set of operations the
// session, CSRF and rate-limit layers build on. Every operation is bounded
// by the configured per-op timeout and every transport failure surfaces as
// ErrStoreUnavailable.
type Client struct {
	rdb       redis.UniversalClient
	opTimeout time.Duration
}

// New wraps an existing Redis client. A non-positive opTimeout disables the
// per-operation deadline, leaving only the caller's context.
func New(rdb redis.UniversalClient, opTimeout time.Duration) *Client {
	return &Client{rdb: rdb, opTimeout: opTimeout}
}

func (c *Client) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.opTimeout)
}

// Put stores value under key with the given TTL.
func (c *Client) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return wrap(err)
	}
	return nil
}

// Get returns the value stored under key, or ErrKeyNotFound if the key is
// absent or expired.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	val, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrKeyNotFound
		}
		return nil, wrap(err)
	}
	return val, nil
}

// Delete removes key. Deleting an absent key is not an error.
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return wrap(err)
	}
	return nil
}

// AtomicIncrement adds amount to the counter at key and returns the new
// value. The increment and its TTL stamp execute as one store-side script.
func (c *Client) AtomicIncrement(ctx context.Context, key string, amount int64, ttl time.Duration) (int64, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	res, err := incrLua.Run(ctx, c.rdb, []string{key}, amount, ttl.Milliseconds()).Int64()
	if err != nil {
		return 0, wrap(err)
	}
	return res, nil
}

// SetAdd adds member to the ordered set at setKey with the given score and
// refreshes the set's TTL. Both steps run in one MULTI/EXEC transaction.
func (c *Client) SetAdd(ctx context.Context, setKey, member string, score float64, ttl time.Duration) error {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, setKey, redis.Z{Score: score, Member: member})
		pipe.PExpire(ctx, setKey, ttl)
		return nil
	})
	if err != nil {
		return wrap(err)
	}
	return nil
}

// SetRemove removes member from the ordered set at setKey.
func (c *Client) SetRemove(ctx context.Context, setKey, member string) error {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	if err := c.rdb.ZRem(ctx, setKey, member).Err(); err != nil {
		return wrap(err)
	}
	return nil
}

// SetMembers returns all members of the ordered set at setKey in score order
// (oldest score first).
func (c *Client) SetMembers(ctx context.Context, setKey string) ([]string, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	members, err := c.rdb.ZRange(ctx, setKey, 0, -1).Result()
	if err != nil {
		return nil, wrap(err)
	}
	return members, nil
}

// RunScript executes a component-owned Lua script. Components use this for
// compound mutations that must be a single atomic step against the store,
// such as bounded index inserts and rate-limit counter checks.
func (c *Client) RunScript(ctx context.Context, script *redis.Script, keys []string, args ...any) (any, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	res, err := script.Run(ctx, c.rdb, keys, args...).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrKeyNotFound
		}
		return nil, wrap(err)
	}
	return res, nil
}

func wrap(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
