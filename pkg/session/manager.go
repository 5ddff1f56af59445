package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/salesdash/authkit/pkg/logger"
	"github.com/salesdash/authkit/pkg/secrets"
)

// tokenBytes is the entropy of a session ID: 256 bits, URL-safe encoded.
const tokenBytes = 32

// Manager owns the session lifecycle: creation, validation, renewal and
// revocation. Records are sealed before they reach the store and the client
// only ever sees the opaque session ID, so neither the store operator nor
// the cookie holder can read session contents.
type Manager struct {
	store  Store
	sealer *secrets.Sealer
	config Config
	log    *slog.Logger
}

// Option is a functional option for configuring the Manager.
type Option func(*Manager)

// WithConfig sets custom configuration.
func WithConfig(config Config) Option {
	return func(m *Manager) {
		m.config = config
	}
}

// WithLogger sets the security-event logger.
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) {
		m.log = log
	}
}

// NewManager creates a session manager. The store and sealer are required;
// configuration defaults to DefaultConfig.
func NewManager(store Store, sealer *secrets.Sealer, opts ...Option) (*Manager, error) {
	m := &Manager{
		store:  store,
		sealer: sealer,
		config: DefaultConfig(),
		log:    slog.Default(),
	}

	for _, opt := range opts {
		opt(m)
	}

	if err := m.config.Validate(); err != nil {
		return nil, err
	}

	return m, nil
}

// Config returns the manager's configuration.
func (m *Manager) Config() Config {
	return m.config
}

// Create issues a new session for an authenticated user. The concurrent
// session ceiling is enforced in the same store transaction that admits the
// new session; eviction of the oldest session is silent apart from a log
// record.
func (m *Manager) Create(ctx context.Context, userID uuid.UUID, role Role, clientIP, userAgent string, attrs map[string]string) (string, *Record, error) {
	id, err := generateID()
	if err != nil {
		return "", nil, err
	}

	now := time.Now()
	rec := &Record{
		UserID:        userID,
		Role:          role,
		CreatedAt:     now,
		LastSeenAt:    now,
		ExpiresAt:     now.Add(m.config.Timeout),
		ClientIP:      clientIP,
		UserAgentHash: HashUserAgent(userAgent),
		Attributes:    attrs,
	}

	payload, err := m.seal(rec)
	if err != nil {
		return "", nil, err
	}

	evicted, err := m.store.Save(ctx, id, userID.String(), payload, now, m.config.Timeout, m.config.MaxSessionsPerUser)
	if err != nil {
		return "", nil, errors.Join(ErrSessionLimit, err)
	}

	m.log.InfoContext(ctx, "session created",
		logger.Event("session_created"),
		logger.UserID(userID),
		logger.Role(role.String()),
		logger.SessionID(id),
	)

	for _, old := range evicted {
		m.log.InfoContext(ctx, "oldest session evicted by concurrency ceiling",
			logger.Event("session_evicted"),
			logger.UserID(userID),
			logger.SessionID(old),
		)
	}

	return id, rec, nil
}

// Validate resolves a session ID to its record. Every failure mode -
// missing key, decryption failure, malformed payload, expiry, store outage -
// collapses into ErrSessionInvalid so the outcome carries no oracle about
// why validation failed. Store outages fail closed.
func (m *Manager) Validate(ctx context.Context, id string) (*Record, error) {
	if id == "" {
		return nil, ErrSessionInvalid
	}

	payload, err := m.store.Load(ctx, id)
	if err != nil {
		m.log.DebugContext(ctx, "session lookup failed",
			logger.Operation("validate"),
			logger.SessionID(id),
			logger.Error(err),
		)
		return nil, ErrSessionInvalid
	}

	rec, err := m.open(payload)
	if err != nil {
		m.log.WarnContext(ctx, "session payload rejected",
			logger.Event("session_payload_rejected"),
			logger.SessionID(id),
		)
		return nil, ErrSessionInvalid
	}

	if rec.IsExpired() {
		return nil, ErrSessionInvalid
	}

	return rec, nil
}

// ShouldRenew reports whether a validated record is due for an opportunistic
// renewal write.
func (m *Manager) ShouldRenew(rec *Record) bool {
	return time.Since(rec.LastSeenAt) >= m.config.RenewalThreshold
}

// Renew extends the session expiry and updates last_seen. Renewal is
// best-effort bookkeeping: a store failure is logged and swallowed, and a
// session revoked mid-flight stays revoked. Safe to call concurrently for
// the same session; last writer wins and only ever extends validity.
func (m *Manager) Renew(ctx context.Context, id string, rec *Record) {
	now := time.Now()
	rec.LastSeenAt = now
	rec.ExpiresAt = now.Add(m.config.Timeout)

	payload, err := m.seal(rec)
	if err != nil {
		m.log.WarnContext(ctx, "session renewal skipped",
			logger.Operation("renew"),
			logger.SessionID(id),
			logger.Error(err),
		)
		return
	}

	if err := m.store.Extend(ctx, id, payload, m.config.Timeout); err != nil {
		m.log.WarnContext(ctx, "session renewal failed",
			logger.Operation("renew"),
			logger.SessionID(id),
			logger.Error(err),
		)
	}
}

// Revoke deletes a session and removes it from the owner's index. Revoking
// a missing or already-revoked session is a no-op.
func (m *Manager) Revoke(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}

	// Resolve the owner so the index entry goes away with the record. If
	// the record is already gone or unreadable, the bare delete still runs
	// and the orphaned index entry ages out with the index TTL.
	var userID string
	if payload, err := m.store.Load(ctx, id); err == nil {
		if rec, err := m.open(payload); err == nil {
			userID = rec.UserID.String()
		}
	}

	if err := m.store.Delete(ctx, id, userID); err != nil {
		return err
	}

	m.log.InfoContext(ctx, "session revoked",
		logger.Event("session_revoked"),
		logger.SessionID(id),
	)
	return nil
}

// RevokeAllForUser revokes every session belonging to a user. Used on
// password change or suspected compromise.
func (m *Manager) RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int, error) {
	count, err := m.store.DeleteAllForUser(ctx, userID.String())
	if err != nil {
		return 0, err
	}

	m.log.InfoContext(ctx, "all user sessions revoked",
		logger.Event("sessions_revoked_all"),
		logger.UserID(userID),
		slog.Int("count", count),
	)
	return count, nil
}

// ActiveSessions lists the IDs of a user's current sessions, oldest first.
func (m *Manager) ActiveSessions(ctx context.Context, userID uuid.UUID) ([]string, error) {
	return m.store.UserSessions(ctx, userID.String())
}

func (m *Manager) seal(rec *Record) ([]byte, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	return m.sealer.Seal(raw)
}

func (m *Manager) open(payload []byte) (*Record, error) {
	raw, err := m.sealer.Open(payload)
	if err != nil {
		return nil, err
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// generateID creates a cryptographically unguessable session ID. The ID is
// an opaque lookup key: it carries no decodable information and is never
// derived from the user identity.
func generateID() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Join(ErrTokenGeneration, err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
