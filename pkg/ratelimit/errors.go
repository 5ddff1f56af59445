package ratelimit

import "errors"

var (
	// ErrRateLimitExceeded is returned by callers that convert a denied
	// Result into an error.
	ErrRateLimitExceeded = errors.New("ratelimit: limit exceeded")

	// ErrInvalidRule is returned when a rule's parameters are invalid.
	ErrInvalidRule = errors.New("ratelimit: invalid rule")

	// ErrStoreRequired is returned when a limiter is built without a store.
	ErrStoreRequired = errors.New("ratelimit: store is required")

	// ErrKeyRequired is returned when a check is attempted with an empty key.
	ErrKeyRequired = errors.New("ratelimit: key is required")
)
