// Package kvstore is a thin client for the shared key-value store that
// coordinates session, CSRF and rate-limit state across worker processes.
//
// The store is the only coordination point between workers, so every
// compound mutation offered here (atomic increments, bounded set inserts via
// RunScript) executes as a single store-side step. Plain read-then-write
// sequences across two round-trips are deliberately not part of the API.
//
// All operations carry a bounded timeout and report transport failures as
// ErrStoreUnavailable, leaving the fail-open/fail-closed decision to the
// caller.
package kvstore
