package kvstore

import "errors"

var (
	// ErrStoreUnavailable wraps any transport-level failure talking to the
	// shared store. It is an infrastructure fault, not a security signal;
	// call sites decide whether to fail open or closed.
	ErrStoreUnavailable = errors.New("kvstore: store unavailable")

	// ErrKeyNotFound is returned by Get when the key is absent or expired.
	ErrKeyNotFound = errors.New("kvstore: key not found")

	// ErrFailedToParseConnString is returned when the connection URL is invalid.
	ErrFailedToParseConnString = errors.New("kvstore: failed to parse connection string")

	// ErrStoreNotReady is returned when the store did not become reachable
	// within the configured retry budget.
	ErrStoreNotReady = errors.New("kvstore: store did not become ready within the given time period")

	// ErrHealthcheckFailed is returned by the healthcheck probe.
	ErrHealthcheckFailed = errors.New("kvstore: healthcheck failed")
)
