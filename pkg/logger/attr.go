package logger

import (
	"log/slog"
)

// sessionIDPrefixLen bounds how much of a session ID may ever reach a log
// record. Full session IDs are bearer credentials and must not be logged.
const sessionIDPrefixLen = 8

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// UserID records the user identifier under the key "user_id".
func UserID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("user_id", id)
}

// Role records a role name under the key "role".
func Role(role any) slog.Attr {
	if role == nil {
		return slog.Attr{}
	}
	return slog.Any("role", role)
}

// SessionID records a truncated session identifier under the key
// "session_id". Only the first 8 characters are kept; the rest is elided so
// a leaked log stream can never be replayed as a credential.
func SessionID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	if len(id) > sessionIDPrefixLen {
		id = id[:sessionIDPrefixLen] + "..."
	}
	return slog.String("session_id", id)
}

// Rule records a rate-limit rule name under the key "rule".
func Rule(name string) slog.Attr {
	if name == "" {
		return slog.Attr{}
	}
	return slog.String("rule", name)
}

// Event records a security event name under the key "event".
func Event(name string) slog.Attr {
	return slog.String("event", name)
}

// Operation records the operation name under the key "operation".
func Operation(name string) slog.Attr {
	return slog.String("operation", name)
}
