package csrf

import "errors"

var (
	// ErrTokenMismatch is returned when a presented token does not match
	// the one bound to the session, or no token is bound at all.
	ErrTokenMismatch = errors.New("csrf: token mismatch")

	// ErrTokenGeneration is returned when random token generation fails.
	ErrTokenGeneration = errors.New("csrf: failed to generate token")

	// ErrInvalidConfig is returned when the manager configuration is invalid.
	ErrInvalidConfig = errors.New("csrf: invalid configuration")
)
