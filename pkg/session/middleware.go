package session

import (
	"net/http"
)

// Middleware validates the session carried by the request and, when valid,
// attaches the caller's identity to the context and opportunistically renews
// the session. Requests without a valid session simply proceed as anonymous.
func (m *Manager) Middleware(transport Transport) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := transport.GetToken(r)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			rec, err := m.Validate(r.Context(), token)
			if err != nil {
				transport.ClearToken(w)
				next.ServeHTTP(w, r)
				return
			}

			if m.ShouldRenew(rec) {
				m.Renew(r.Context(), token, rec)
				transport.SetToken(w, token, m.config.Timeout)
			}

			ctx := WithIdentity(r.Context(), Identity{
				SessionID: token,
				UserID:    rec.UserID,
				Role:      rec.Role,
				Record:    rec,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects anonymous requests with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFromContext(r.Context()); !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects requests below the minimum role. The authorization
// failure (403) is deliberately distinct from the authentication failure
// (401) issued for anonymous callers.
func RequireRole(min Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			if !id.Role.AtLeast(min) {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
