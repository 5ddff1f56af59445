// Package guard assembles the per-request security pipeline: rate limit,
// session validation, CSRF enforcement and role authorization, in that
// order. It is the single middleware dashboard handlers mount.
package guard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/salesdash/authkit/pkg/clientip"
	"github.com/salesdash/authkit/pkg/csrf"
	"github.com/salesdash/authkit/pkg/logger"
	"github.com/salesdash/authkit/pkg/ratelimit"
	"github.com/salesdash/authkit/pkg/session"
)

// RoleResolver looks up a user's current role in the business database.
type RoleResolver interface {
	Resolve(ctx context.Context, userID uuid.UUID) (session.Role, error)
}

// Guard composes the session manager, CSRF manager and rate-limit
// registry into route middleware.
type Guard struct {
	sessions  *session.Manager
	transport session.Transport
	csrf      *csrf.Manager
	limits    *ratelimit.Registry
	resolver  RoleResolver
	log       *slog.Logger
}

// New creates a Guard. The rate-limit registry is optional; routes
// without WithRateLimit skip that stage entirely.
func New(sessions *session.Manager, transport session.Transport, csrfMgr *csrf.Manager, limits *ratelimit.Registry, opts ...Option) (*Guard, error) {
	if sessions == nil {
		return nil, errors.New("guard: session manager is required")
	}
	if transport == nil {
		return nil, errors.New("guard: session transport is required")
	}
	if csrfMgr == nil {
		return nil, errors.New("guard: csrf manager is required")
	}

	g := &Guard{
		sessions:  sessions,
		transport: transport,
		csrf:      csrfMgr,
		limits:    limits,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Protect returns middleware enforcing the given route policy. Stages run
// in a fixed order: rate limit, session, CSRF, role. A denial at any
// stage short-circuits the rest.
func (g *Guard) Protect(opts ...RouteOption) func(http.Handler) http.Handler {
	rt := route{}
	for _, opt := range opts {
		opt(&rt)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rt.ruleName != "" && g.limits != nil {
				if !g.checkRateLimit(w, r, rt) {
					return
				}
			}

			id, authenticated := g.resolveSession(w, r)
			if authenticated {
				r = r.WithContext(session.WithIdentity(r.Context(), id))
			}

			if stateChanging(r.Method) && !rt.skipCSRF && authenticated {
				if !g.checkCSRF(w, r, id) {
					return
				}
			}

			if rt.hasRole {
				if !g.checkRole(w, r, rt, id, authenticated) {
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// checkRateLimit runs the route's rule. Returns false when the request
// was already answered.
func (g *Guard) checkRateLimit(w http.ResponseWriter, r *http.Request, rt route) bool {
	subject := rt.keyFn(r)
	if subject == "" {
		return true
	}

	res, err := g.limits.Check(r.Context(), rt.ruleName, subject)
	if err != nil {
		rule, _ := g.limits.Rule(rt.ruleName)
		g.log.ErrorContext(r.Context(), "rate limit stage failed",
			logger.Rule(rt.ruleName),
			slog.Bool("fail_closed", rule.FailClosed),
			logger.Error(err),
		)
		if rule.FailClosed {
			http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
			return false
		}
		return true
	}

	ratelimit.WriteHeaders(w, res)
	if !res.Allowed {
		http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
		return false
	}
	return true
}

// resolveSession validates the request's session cookie. Invalid or
// absent tokens yield an anonymous request; a stale cookie is cleared on
// the way out.
func (g *Guard) resolveSession(w http.ResponseWriter, r *http.Request) (session.Identity, bool) {
	token, err := g.transport.GetToken(r)
	if err != nil || token == "" {
		return session.Identity{}, false
	}

	ctx := r.Context()
	rec, err := g.sessions.Validate(ctx, token)
	if err != nil {
		g.transport.ClearToken(w)
		g.csrf.ClearToken(w)
		return session.Identity{}, false
	}

	if g.sessions.ShouldRenew(rec) {
		g.sessions.Renew(ctx, token, rec)
		g.transport.SetToken(w, token, g.sessions.Config().Timeout)
	}

	g.refreshCSRF(ctx, w, token)

	return session.Identity{
		SessionID: token,
		UserID:    rec.UserID,
		Role:      rec.Role,
		Record:    rec,
	}, true
}

// refreshCSRF keeps the client supplied with a current token: rotates
// past the staleness threshold, otherwise re-delivers the existing one.
// Delivery failures are logged and tolerated; enforcement stays strict.
func (g *Guard) refreshCSRF(ctx context.Context, w http.ResponseWriter, sessionID string) {
	var (
		token string
		err   error
	)
	if g.csrf.ShouldRotate(ctx, sessionID) {
		token, err = g.csrf.Rotate(ctx, sessionID)
	} else {
		token, err = g.csrf.Issue(ctx, sessionID)
	}
	if err != nil {
		g.log.WarnContext(ctx, "csrf token delivery failed",
			logger.SessionID(sessionID),
			logger.Error(err),
		)
		return
	}
	g.csrf.WriteToken(w, token)
}

// checkCSRF enforces the token on state-changing methods. A store outage
// during validation denies the request rather than waving it through.
func (g *Guard) checkCSRF(w http.ResponseWriter, r *http.Request, id session.Identity) bool {
	presented := g.csrf.TokenFromRequest(r)
	err := g.csrf.Validate(r.Context(), id.SessionID, presented)
	if err == nil {
		return true
	}

	if errors.Is(err, csrf.ErrTokenMismatch) {
		g.log.WarnContext(r.Context(), "csrf token mismatch",
			logger.Event("csrf_mismatch"),
			logger.SessionID(id.SessionID),
			logger.UserID(id.UserID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return false
	}

	g.log.ErrorContext(r.Context(), "csrf validation failed",
		logger.SessionID(id.SessionID),
		logger.Error(err),
	)
	http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
	return false
}

// checkRole authorizes the caller against the route's minimum role.
// Anonymous callers fail authentication (401); authenticated callers
// below the minimum fail authorization (403).
func (g *Guard) checkRole(w http.ResponseWriter, r *http.Request, rt route, id session.Identity, authenticated bool) bool {
	if !authenticated {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return false
	}

	role := id.Role
	if rt.privCheck && g.resolver != nil {
		current, err := g.resolver.Resolve(r.Context(), id.UserID)
		if err != nil {
			g.log.WarnContext(r.Context(), "role re-resolution failed",
				logger.Event("privilege_check_failed"),
				logger.UserID(id.UserID),
				logger.Error(err),
			)
			http.Error(w, "Forbidden", http.StatusForbidden)
			return false
		}
		role = current
	}

	if !role.AtLeast(rt.minRole) {
		g.log.WarnContext(r.Context(), "insufficient role",
			logger.Event("authorization_denied"),
			logger.UserID(id.UserID),
			logger.Role(role),
			slog.String("required", rt.minRole.String()),
			slog.String("path", r.URL.Path),
		)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return false
	}
	return true
}

// EstablishSession creates a session for a freshly authenticated user and
// installs the session cookie and initial CSRF token on the response.
func (g *Guard) EstablishSession(ctx context.Context, w http.ResponseWriter, r *http.Request, userID uuid.UUID, role session.Role, attrs map[string]string) (string, error) {
	id, _, err := g.sessions.Create(ctx, userID, role, clientip.GetIP(r), r.UserAgent(), attrs)
	if err != nil {
		return "", err
	}

	g.transport.SetToken(w, id, g.sessions.Config().Timeout)

	token, err := g.csrf.Issue(ctx, id)
	if err != nil {
		// The session exists; the first guarded page load retries delivery.
		g.log.WarnContext(ctx, "initial csrf issue failed",
			logger.SessionID(id),
			logger.Error(err),
		)
		return id, nil
	}
	g.csrf.WriteToken(w, token)
	return id, nil
}

// TerminateSession revokes the caller's session and clears both cookies.
func (g *Guard) TerminateSession(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	token, err := g.transport.GetToken(r)
	if err != nil || token == "" {
		return nil
	}

	revokeErr := g.sessions.Revoke(ctx, token)
	if err := g.csrf.Invalidate(ctx, token); err != nil {
		g.log.WarnContext(ctx, "csrf invalidation on logout failed",
			logger.SessionID(token),
			logger.Error(err),
		)
	}

	g.transport.ClearToken(w)
	g.csrf.ClearToken(w)

	if revokeErr != nil {
		return fmt.Errorf("guard: revoke session: %w", revokeErr)
	}
	return nil
}

func stateChanging(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
