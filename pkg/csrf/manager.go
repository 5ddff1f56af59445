package csrf

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/salesdash/authkit/pkg/kvstore"
	"github.com/salesdash/authkit/pkg/logger"
)

const bindingKeyPrefix = "csrf:"

// binding is the stored association between a session and its token.
type binding struct {
	Token    string    `json:"token"`
	IssuedAt time.Time `json:"issued_at"`
}

// Manager issues and validates CSRF tokens bound one-to-one to sessions.
// Each session carries a single current token; rotating or revoking the
// binding invalidates the previous token immediately across all workers.
type Manager struct {
	store  *kvstore.Client
	config Config
	log    *slog.Logger
}

// NewManager creates a CSRF token manager backed by the shared store.
func NewManager(store *kvstore.Client, config Config, log *slog.Logger) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidConfig)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &Manager{store: store, config: config, log: log}, nil
}

// Issue returns the token currently bound to the session, minting and
// storing a fresh one when no binding exists. Re-issuing for a session
// that already holds a live token never invalidates it, so concurrent
// tabs keep working.
func (m *Manager) Issue(ctx context.Context, sessionID string) (string, error) {
	raw, err := m.store.Get(ctx, bindingKeyPrefix+sessionID)
	if err == nil {
		var b binding
		if jsonErr := json.Unmarshal(raw, &b); jsonErr == nil && b.Token != "" {
			return b.Token, nil
		}
		// Corrupt binding, fall through and mint a replacement.
	} else if !errors.Is(err, kvstore.ErrKeyNotFound) {
		return "", err
	}
	return m.Rotate(ctx, sessionID)
}

// Rotate mints a fresh token for the session, replacing any existing
// binding. The previous token stops validating as soon as the new
// binding is stored.
func (m *Manager) Rotate(ctx context.Context, sessionID string) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(binding{Token: token, IssuedAt: time.Now().UTC()})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}
	if err := m.store.Put(ctx, bindingKeyPrefix+sessionID, raw, m.config.Timeout); err != nil {
		return "", err
	}
	m.log.DebugContext(ctx, "csrf token rotated",
		logger.Event("csrf_rotated"),
		logger.SessionID(sessionID),
	)
	return token, nil
}

// Validate checks a presented token against the session's current binding
// using a constant-time comparison. A missing binding, a stale token from
// before a rotation, or a token bound to a different session all fail the
// same way.
func (m *Manager) Validate(ctx context.Context, sessionID, token string) error {
	if sessionID == "" || token == "" {
		return ErrTokenMismatch
	}
	raw, err := m.store.Get(ctx, bindingKeyPrefix+sessionID)
	if err != nil {
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			return ErrTokenMismatch
		}
		return err
	}
	var b binding
	if err := json.Unmarshal(raw, &b); err != nil {
		return ErrTokenMismatch
	}
	if subtle.ConstantTimeCompare([]byte(b.Token), []byte(token)) != 1 {
		return ErrTokenMismatch
	}
	return nil
}

// ShouldRotate reports whether the session's current token is older than
// the configured rotation threshold. Store failures and missing bindings
// report false; the next issue path repairs the binding.
func (m *Manager) ShouldRotate(ctx context.Context, sessionID string) bool {
	raw, err := m.store.Get(ctx, bindingKeyPrefix+sessionID)
	if err != nil {
		return false
	}
	var b binding
	if err := json.Unmarshal(raw, &b); err != nil {
		return true
	}
	return time.Since(b.IssuedAt) >= m.config.RotateAfter
}

// Invalidate removes the session's token binding. Invalidating a session
// with no binding is not an error.
func (m *Manager) Invalidate(ctx context.Context, sessionID string) error {
	return m.store.Delete(ctx, bindingKeyPrefix+sessionID)
}

// TokenFromRequest extracts the presented token, preferring the request
// header and falling back to the form field of the same name.
func (m *Manager) TokenFromRequest(r *http.Request) string {
	if token := r.Header.Get(m.config.HeaderName); token != "" {
		return token
	}
	return r.PostFormValue("csrf_token")
}

// WriteToken delivers the token to the client. The cookie is deliberately
// readable by page scripts so they can echo it back in the request header;
// SameSite=Strict keeps cross-origin pages from ever sending it.
func (m *Manager) WriteToken(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.config.CookieName,
		Value:    token,
		Path:     "/",
		Domain:   m.config.CookieDomain,
		MaxAge:   int(m.config.Timeout.Seconds()),
		Secure:   m.config.SecureCookies,
		HttpOnly: false,
		SameSite: http.SameSiteStrictMode,
	})
	w.Header().Set(m.config.HeaderName, token)
}

// ClearToken expires the token cookie on the client.
func (m *Manager) ClearToken(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.config.CookieName,
		Value:    "",
		Path:     "/",
		Domain:   m.config.CookieDomain,
		MaxAge:   -1,
		Secure:   m.config.SecureCookies,
		HttpOnly: false,
		SameSite: http.SameSiteStrictMode,
	})
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
