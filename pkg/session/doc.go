// Package session manages the server-side session lifecycle for the
// dashboard's authentication layer: creation, validation, opportunistic
// renewal and revocation.
//
// Sessions are shared across independent worker processes through the
// kvstore client. The session ID handed to the client is an opaque,
// unguessable lookup key with at least 256 bits of entropy; the record
// behind it is encrypted before storage, so neither a stolen cookie nor a
// compromised store dump exposes session contents.
//
// A per-user session index enforces the concurrent-session ceiling: when a
// new session would exceed the configured maximum, the oldest session (by
// creation time) is evicted in the same store transaction that admits the
// new one.
//
// Validation fails closed and collapses every failure mode into
// ErrSessionInvalid. Renewal is best-effort bookkeeping amortized into
// normal traffic and never extends a revoked session.
package session
