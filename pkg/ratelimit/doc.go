// Package ratelimit provides distributed request rate limiting on the
// shared key-value store.
//
// Three strategies are available: fixed window, sliding window and token
// bucket. Every check executes as a single store-side script, so counters
// stay exact when many dashboard workers check the same subject at once.
// A rule may attach a cooldown: once a subject violates the limit, all of
// its checks are denied until the cooldown lapses.
//
// Rules are registered by name in a Registry:
//
//	reg, err := ratelimit.NewRegistry(store, ratelimit.DefaultRules(), log)
//	res, err := reg.Check(ctx, "auth_login", clientIP)
//	if !res.Allowed {
//		// deny, res.RetryAfter() tells the client when to come back
//	}
//
// Subjects are hashed before they become storage keys, so IPs and
// usernames never appear verbatim in the store.
package ratelimit
