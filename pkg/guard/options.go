package guard

import (
	"log/slog"

	"github.com/salesdash/authkit/pkg/ratelimit"
	"github.com/salesdash/authkit/pkg/session"
)

// Option configures the Guard.
type Option func(*Guard)

// WithRoleResolver installs a directory lookup used by privilege-sensitive
// routes to re-resolve the caller's role instead of trusting the
// session-cached copy.
func WithRoleResolver(r RoleResolver) Option {
	return func(g *Guard) {
		g.resolver = r
	}
}

// WithLogger sets the logger for guard decisions.
func WithLogger(log *slog.Logger) Option {
	return func(g *Guard) {
		g.log = log
	}
}

// route holds the per-route policy assembled by RouteOptions.
type route struct {
	ruleName  string
	keyFn     ratelimit.KeyFunc
	minRole   session.Role
	hasRole   bool
	privCheck bool
	skipCSRF  bool
}

// RouteOption configures policy for a single protected route.
type RouteOption func(*route)

// WithRateLimit binds a named rate-limit rule to the route, keyed by
// keyFn. The check runs before any session work.
func WithRateLimit(ruleName string, keyFn ratelimit.KeyFunc) RouteOption {
	return func(rt *route) {
		rt.ruleName = ruleName
		rt.keyFn = keyFn
	}
}

// WithMinRole requires an authenticated caller holding at least min.
// Anonymous callers get 401, under-privileged callers 403.
func WithMinRole(min session.Role) RouteOption {
	return func(rt *route) {
		rt.minRole = min
		rt.hasRole = true
	}
}

// WithPrivilegeCheck makes the route re-resolve the caller's role through
// the configured RoleResolver, so a demotion applies before the cached
// session expires.
func WithPrivilegeCheck() RouteOption {
	return func(rt *route) {
		rt.privCheck = true
	}
}

// WithoutCSRF disables the CSRF check for the route. Intended for
// API endpoints authenticated by other means.
func WithoutCSRF() RouteOption {
	return func(rt *route) {
		rt.skipCSRF = true
	}
}
