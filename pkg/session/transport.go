package session

import (
	"net/http"
	"time"

	"github.com/salesdash/authkit/pkg/cookie"
)

// Transport carries the opaque session ID between client and server.
type Transport interface {
	GetToken(r *http.Request) (string, error)
	SetToken(w http.ResponseWriter, token string, ttl time.Duration)
	ClearToken(w http.ResponseWriter)
}

// CookieTransport carries the session ID in a signed, HTTP-only,
// SameSite=Strict cookie whose lifetime tracks the session TTL.
type CookieTransport struct {
	cookies    *cookie.Manager
	cookieName string
	domain     string
	secure     bool
}

// NewCookieTransport creates the default cookie transport for the given
// session configuration.
func NewCookieTransport(cookies *cookie.Manager, cfg Config) *CookieTransport {
	return &CookieTransport{
		cookies:    cookies,
		cookieName: cfg.CookieName,
		domain:     cfg.CookieDomain,
		secure:     cfg.SecureCookies,
	}
}

// GetToken extracts and verifies the session ID from the request cookie.
func (t *CookieTransport) GetToken(r *http.Request) (string, error) {
	return t.cookies.GetSigned(r, t.cookieName)
}

// SetToken writes the session cookie with the security attributes required
// by the cookie contract.
func (t *CookieTransport) SetToken(w http.ResponseWriter, token string, ttl time.Duration) {
	opts := []cookie.Option{
		cookie.WithMaxAge(int(ttl.Seconds())),
		cookie.WithHTTPOnly(true),
		cookie.WithSameSite(http.SameSiteStrictMode),
		cookie.WithSecure(t.secure),
	}
	if t.domain != "" {
		opts = append(opts, cookie.WithDomain(t.domain))
	}

	t.cookies.SetSigned(w, t.cookieName, token, opts...)
}

// ClearToken removes the session cookie.
func (t *CookieTransport) ClearToken(w http.ResponseWriter) {
	t.cookies.Delete(w, t.cookieName)
}
