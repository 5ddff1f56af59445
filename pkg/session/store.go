package session

import (
	"context"
	"time"
)

// Store persists encrypted session payloads and the per-user session index.
// Payloads cross this interface already sealed; the store never sees
// plaintext session state.
//
// Implementations must make every compound mutation (save + index insert +
// eviction, delete + index removal) a single atomic step against the shared
// store, because independent worker processes mutate the same keys
// concurrently.
type Store interface {
	// Save stores payload under id, admits id into the user's index ordered
	// by creation time, and evicts the oldest sessions past maxSessions.
	// Returns the evicted session IDs.
	Save(ctx context.Context, id, userID string, payload []byte, createdAt time.Time, ttl time.Duration, maxSessions int) ([]string, error)

	// Load returns the sealed payload for id, or kvstore.ErrKeyNotFound.
	Load(ctx context.Context, id string) ([]byte, error)

	// Extend rewrites payload and TTL only while the session still exists,
	// so a renewal can never resurrect a revoked session.
	Extend(ctx context.Context, id string, payload []byte, ttl time.Duration) error

	// Delete removes the record and its index entry. Deleting a missing
	// session is a no-op. An empty userID skips the index cleanup.
	Delete(ctx context.Context, id, userID string) error

	// UserSessions lists the session IDs for a user, oldest first.
	UserSessions(ctx context.Context, userID string) ([]string, error)

	// DeleteAllForUser removes every session in the user's index and clears
	// the index itself, returning the number of records deleted.
	DeleteAllForUser(ctx context.Context, userID string) (int, error)
}
