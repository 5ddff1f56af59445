package session

import "errors"

var (
	// ErrSessionInvalid is the single outward signal for every validation
	// failure: expired, malformed, missing, or undecryptable records all
	// collapse into it so a caller cannot probe why a session was rejected.
	ErrSessionInvalid = errors.New("session.invalid")

	// ErrSessionLimit is returned when the concurrent-session ceiling could
	// not be enforced because the store transaction failed. Normal eviction
	// is silent and only logged.
	ErrSessionLimit = errors.New("session.limit_enforcement_failed")

	// ErrTokenGeneration indicates session ID generation failed.
	ErrTokenGeneration = errors.New("session.token_generation_failed")

	// ErrUnknownRole is returned when parsing an unrecognized role name.
	ErrUnknownRole = errors.New("session.unknown_role")

	// ErrInvalidConfig is returned for out-of-range configuration values.
	ErrInvalidConfig = errors.New("session.invalid_config")
)
