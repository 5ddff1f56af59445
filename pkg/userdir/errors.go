package userdir

import "errors"

var (
	// ErrUnknownUser is returned when the user does not exist in the
	// directory. Callers treat this as a revoked privilege.
	ErrUnknownUser = errors.New("userdir: unknown user")

	// ErrDirectoryUnavailable is returned when the directory database
	// cannot be reached.
	ErrDirectoryUnavailable = errors.New("userdir: directory unavailable")

	// ErrFailedToParseConfig is returned when the connection string cannot
	// be parsed.
	ErrFailedToParseConfig = errors.New("userdir: failed to parse db config")

	// ErrFailedToConnect is returned when no connection could be
	// established within the configured retries.
	ErrFailedToConnect = errors.New("userdir: failed to open db connection")
)
