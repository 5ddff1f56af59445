package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesdash/authkit/pkg/kvstore"
	"github.com/salesdash/authkit/pkg/ratelimit"
)

func setupRegistry(t *testing.T, rules map[string]ratelimit.Rule) (*ratelimit.Registry, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	reg, err := ratelimit.NewRegistry(ratelimit.NewRedisStore(kvstore.New(rdb, time.Second)), rules, nil)
	require.NoError(t, err)

	return reg, mr
}

func TestRegistry_Check(t *testing.T) {
	t.Parallel()

	reg, _ := setupRegistry(t, map[string]ratelimit.Rule{
		"login": {Limit: 2, Window: time.Minute, Strategy: ratelimit.StrategySlidingWindow},
	})
	ctx := context.Background()

	for range 2 {
		res, err := reg.Check(ctx, "login", "198.51.100.9")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}

	res, err := reg.Check(ctx, "login", "198.51.100.9")
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	t.Run("subjects are independent", func(t *testing.T) {
		res, err := reg.Check(ctx, "login", "203.0.113.1")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	})

	t.Run("rules are independent", func(t *testing.T) {
		res, err := reg.Check(ctx, "other", "198.51.100.9")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "unconfigured rule must not deny")
	})
}

func TestRegistry_SubjectsHashedInStore(t *testing.T) {
	t.Parallel()

	reg, mr := setupRegistry(t, map[string]ratelimit.Rule{
		"login": {Limit: 5, Window: time.Minute, Strategy: ratelimit.StrategyFixedWindow},
	})
	ctx := context.Background()

	_, err := reg.Check(ctx, "login", "alice@example.com")
	require.NoError(t, err)

	for _, key := range mr.Keys() {
		assert.NotContains(t, key, "alice", "raw subject must not appear in storage keys")
	}
}

func TestRegistry_Reset(t *testing.T) {
	t.Parallel()

	reg, _ := setupRegistry(t, map[string]ratelimit.Rule{
		"login": {Limit: 1, Window: time.Minute, Strategy: ratelimit.StrategySlidingWindow, Cooldown: 15 * time.Minute},
	})
	ctx := context.Background()

	res, err := reg.Check(ctx, "login", "198.51.100.9")
	require.NoError(t, err)
	require.True(t, res.Allowed)

	res, err = reg.Check(ctx, "login", "198.51.100.9")
	require.NoError(t, err)
	require.False(t, res.Allowed)

	require.NoError(t, reg.Reset(ctx, "login", "198.51.100.9"))

	res, err = reg.Check(ctx, "login", "198.51.100.9")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestRegistry_Status(t *testing.T) {
	t.Parallel()

	reg, _ := setupRegistry(t, map[string]ratelimit.Rule{
		"login": {Limit: 3, Window: time.Minute, Strategy: ratelimit.StrategyFixedWindow},
	})
	ctx := context.Background()

	_, err := reg.Check(ctx, "login", "198.51.100.9")
	require.NoError(t, err)

	status, err := reg.Status(ctx, "login", "198.51.100.9")
	require.NoError(t, err)
	assert.Equal(t, 2, status.Remaining)

	again, err := reg.Status(ctx, "login", "198.51.100.9")
	require.NoError(t, err)
	assert.Equal(t, 2, again.Remaining, "status must not consume capacity")
}

func TestDefaultRules(t *testing.T) {
	t.Parallel()

	rules := ratelimit.DefaultRules()

	for name, rule := range rules {
		assert.NoError(t, rule.Validate(), "rule %q", name)
	}

	assert.True(t, rules["auth_login"].FailClosed)
	assert.True(t, rules["password_reset"].FailClosed)
	assert.False(t, rules["api_call"].FailClosed)
	assert.Equal(t, ratelimit.StrategyTokenBucket, rules["api_call"].Strategy)
	assert.Equal(t, 15*time.Minute, rules["auth_login"].Cooldown)
}
