package session

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Record is the server-side session state. It never leaves the store
// unencrypted; the client only ever holds the opaque session ID.
type Record struct {
	UserID        uuid.UUID         `json:"user_id"`
	Role          Role              `json:"role"`
	CreatedAt     time.Time         `json:"created_at"`
	LastSeenAt    time.Time         `json:"last_seen_at"`
	ExpiresAt     time.Time         `json:"expires_at"`
	ClientIP      string            `json:"client_ip,omitempty"`
	UserAgentHash string            `json:"user_agent_hash,omitempty"`
	Attributes    map[string]string `json:"attributes,omitempty"`
}

// IsExpired reports whether the record's expiry has passed.
func (r *Record) IsExpired() bool {
	return r != nil && time.Now().After(r.ExpiresAt)
}

// Get returns a session attribute.
func (r *Record) Get(key string) (string, bool) {
	if r == nil || r.Attributes == nil {
		return "", false
	}
	val, ok := r.Attributes[key]
	return val, ok
}

// Set stores a session attribute. The caller must persist the change by
// renewing the session.
func (r *Record) Set(key, value string) {
	if r == nil {
		return
	}
	if r.Attributes == nil {
		r.Attributes = make(map[string]string)
	}
	r.Attributes[key] = value
}

// HashUserAgent reduces a User-Agent header to a stable hash. The raw header
// is not stored: it is only ever compared, and the hash keeps the record
// small and free of quasi-identifying text.
func HashUserAgent(userAgent string) string {
	if userAgent == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(userAgent))
	return hex.EncodeToString(sum[:])
}
