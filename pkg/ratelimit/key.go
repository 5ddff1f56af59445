package ratelimit

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/salesdash/authkit/pkg/clientip"
)

// maxKeyLength caps composed keys so storage keys stay short.
const maxKeyLength = 64

// KeyFunc extracts a rate-limit subject from an HTTP request.
type KeyFunc func(*http.Request) string

// ByClientIP keys requests by the resolved client address, honoring
// reverse-proxy headers.
func ByClientIP(r *http.Request) string {
	return clientip.GetIP(r)
}

// ByPath keys requests by the request path, for composing with an
// identity key.
func ByPath(r *http.Request) string {
	return r.URL.Path
}

// Composite combines multiple key extraction functions into a single key.
// Keys longer than 64 chars are hashed to 32 hex chars.
func Composite(keyFuncs ...KeyFunc) KeyFunc {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(keyFuncs))
		for _, fn := range keyFuncs {
			if key := fn(r); key != "" {
				parts = append(parts, key)
			}
		}

		if len(parts) == 0 {
			return ""
		}

		if len(parts) == 1 && len(parts[0]) <= maxKeyLength {
			return parts[0]
		}

		combined := strings.Join(parts, ":")

		if len(combined) > maxKeyLength {
			hash := sha256.Sum256([]byte(combined))
			return hex.EncodeToString(hash[:16])
		}

		return combined
	}
}

// HashSubject maps a raw subject (an IP, a username, a user ID) to the
// short digest used in storage keys, so raw identifiers never appear in
// the store.
func HashSubject(subject string) string {
	sum := sha256.Sum256([]byte(subject))
	return hex.EncodeToString(sum[:8])
}
