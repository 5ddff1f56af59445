package ratelimit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/salesdash/authkit/pkg/logger"
)

// Registry maps rule names to configured limiters. Callers check a named
// rule against a subject; the registry hashes the subject into the storage
// key so raw identifiers never reach the store.
type Registry struct {
	rules    map[string]Rule
	limiters map[string]Limiter
	log      *slog.Logger
}

// NewRegistry builds limiters for the given rules on the shared store.
// Pass DefaultRules() for the standard dashboard set.
func NewRegistry(store Store, rules map[string]Rule, log *slog.Logger) (*Registry, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if log == nil {
		log = slog.Default()
	}

	limiters := make(map[string]Limiter, len(rules))
	kept := make(map[string]Rule, len(rules))
	for name, rule := range rules {
		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("rule %q: %w", name, err)
		}

		var (
			lim Limiter
			err error
		)
		switch rule.Strategy {
		case StrategyFixedWindow:
			lim, err = NewFixedWindow(store, rule.Limit, rule.Window, rule.Cooldown)
		case StrategySlidingWindow:
			lim, err = NewSlidingWindow(store, rule.Limit, rule.Window, rule.Cooldown)
		case StrategyTokenBucket:
			lim, err = NewTokenBucket(store, rule.Limit, rule.Window, rule.Cooldown)
		}
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", name, err)
		}
		limiters[name] = lim
		kept[name] = rule
	}

	return &Registry{rules: kept, limiters: limiters, log: log}, nil
}

// Rule returns the named rule's configuration.
func (reg *Registry) Rule(name string) (Rule, bool) {
	rule, ok := reg.rules[name]
	return rule, ok
}

// Check evaluates the named rule against the subject, consuming capacity
// if allowed. A rule name with no configuration allows the request and
// logs the miss, so a missing rule entry never locks users out.
func (reg *Registry) Check(ctx context.Context, ruleName, subject string) (*Result, error) {
	lim, ok := reg.limiters[ruleName]
	if !ok {
		reg.log.WarnContext(ctx, "rate limit check for unconfigured rule",
			logger.Rule(ruleName),
		)
		return &Result{Allowed: true}, nil
	}
	if subject == "" {
		return nil, ErrKeyRequired
	}

	res, err := lim.Allow(ctx, subjectKey(ruleName, subject))
	if err != nil {
		return nil, err
	}
	if !res.Allowed {
		reg.log.WarnContext(ctx, "rate limit exceeded",
			logger.Event("rate_limit_exceeded"),
			logger.Rule(ruleName),
			slog.Bool("blocked", res.Blocked),
			slog.Duration("retry_after", res.RetryAfter()),
		)
	}
	return res, nil
}

// Status reports the subject's standing against the named rule without
// consuming capacity.
func (reg *Registry) Status(ctx context.Context, ruleName, subject string) (*Result, error) {
	lim, ok := reg.limiters[ruleName]
	if !ok {
		return &Result{Allowed: true}, nil
	}
	if subject == "" {
		return nil, ErrKeyRequired
	}
	return lim.Status(ctx, subjectKey(ruleName, subject))
}

// Reset clears the subject's counters and cooldown block for the named
// rule. Resetting an unconfigured rule is a no-op.
func (reg *Registry) Reset(ctx context.Context, ruleName, subject string) error {
	lim, ok := reg.limiters[ruleName]
	if !ok {
		return nil
	}
	if subject == "" {
		return ErrKeyRequired
	}
	return lim.Reset(ctx, subjectKey(ruleName, subject))
}

func subjectKey(ruleName, subject string) string {
	return ruleName + ":" + HashSubject(subject)
}
