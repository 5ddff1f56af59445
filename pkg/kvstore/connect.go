package kvstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Connect establishes a connection to the shared store and returns a Client
// ready for use. It retries up to cfg.RetryAttempts times with
// cfg.RetryInterval between attempts, bounded by cfg.ConnectTimeout.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	opt, err := redis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseConnString, err)
	}

	for range cfg.RetryAttempts {
		rdb := redis.NewClient(opt)

		if err := rdb.Ping(ctx).Err(); err == nil {
			return New(rdb, cfg.OpTimeout), nil
		}

		_ = rdb.Close()

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrStoreNotReady, ctx.Err())
		default:
			time.Sleep(cfg.RetryInterval)
		}
	}

	return nil, ErrStoreNotReady
}

// Healthcheck returns a probe suitable for readiness endpoints.
func Healthcheck(c *Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if _, err := c.rdb.Ping(ctx).Result(); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}
