package guard_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesdash/authkit/pkg/cookie"
	"github.com/salesdash/authkit/pkg/csrf"
	"github.com/salesdash/authkit/pkg/guard"
	"github.com/salesdash/authkit/pkg/kvstore"
	"github.com/salesdash/authkit/pkg/ratelimit"
	"github.com/salesdash/authkit/pkg/secrets"
	"github.com/salesdash/authkit/pkg/session"
)

const cookieSecret = "0123456789abcdef0123456789abcdef"

type testHarness struct {
	guard    *guard.Guard
	sessions *session.Manager
	csrf     *csrf.Manager
	mr       *miniredis.Miniredis
}

type staticResolver struct {
	roles map[uuid.UUID]session.Role
}

func (r staticResolver) Resolve(_ context.Context, userID uuid.UUID) (session.Role, error) {
	role, ok := r.roles[userID]
	if !ok {
		return session.RoleUnknown, assert.AnError
	}
	return role, nil
}

func setupGuard(t *testing.T, opts ...guard.Option) *testHarness {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	kv := kvstore.New(rdb, time.Second)

	sealer, err := secrets.NewSealer(bytes.Repeat([]byte{9}, secrets.KeySize))
	require.NoError(t, err)

	sessCfg := session.DefaultConfig()
	sessCfg.SecureCookies = false
	sessions, err := session.NewManager(session.NewRedisStore(kv), sealer, session.WithConfig(sessCfg))
	require.NoError(t, err)

	cookies, err := cookie.New([]string{cookieSecret})
	require.NoError(t, err)
	transport := session.NewCookieTransport(cookies, sessCfg)

	csrfCfg := csrf.DefaultConfig()
	csrfCfg.SecureCookies = false
	csrfMgr, err := csrf.NewManager(kv, csrfCfg, nil)
	require.NoError(t, err)

	limits, err := ratelimit.NewRegistry(ratelimit.NewRedisStore(kv), map[string]ratelimit.Rule{
		"auth_login": {Limit: 2, Window: 5 * time.Minute, Strategy: ratelimit.StrategySlidingWindow, Cooldown: 15 * time.Minute, FailClosed: true},
	}, nil)
	require.NoError(t, err)

	g, err := guard.New(sessions, transport, csrfMgr, limits, opts...)
	require.NoError(t, err)

	return &testHarness{guard: g, sessions: sessions, csrf: csrfMgr, mr: mr}
}

// login establishes a session and returns the cookies plus CSRF token the
// client would hold.
func (h *testHarness) login(t *testing.T, userID uuid.UUID, role session.Role) ([]*http.Cookie, string) {
	t.Helper()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/login", nil)
	r.RemoteAddr = "203.0.113.7:1234"

	_, err := h.guard.EstablishSession(context.Background(), w, r, userID, role, nil)
	require.NoError(t, err)

	res := w.Result()
	require.NotEmpty(t, res.Cookies())
	return res.Cookies(), res.Header.Get("X-CSRF-Token")
}

func addCookies(r *http.Request, cookies []*http.Cookie) {
	for _, c := range cookies {
		r.AddCookie(c)
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := session.IdentityFromContext(r.Context()); ok {
			w.Header().Set("X-Test-User", id.UserID.String())
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestGuard_SessionAttachment(t *testing.T) {
	t.Parallel()

	h := setupGuard(t)
	userID := uuid.New()
	cookies, _ := h.login(t, userID, session.RoleAnalyst)

	router := chi.NewRouter()
	router.With(h.guard.Protect()).Get("/dashboard", okHandler().ServeHTTP)

	t.Run("valid session is identified", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		addCookies(r, cookies)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, userID.String(), w.Header().Get("X-Test-User"))
		assert.NotEmpty(t, w.Header().Get("X-CSRF-Token"), "guarded pages re-deliver the token")
	})

	t.Run("no cookie is anonymous", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-Test-User"))
	})

	t.Run("revoked session is anonymous", func(t *testing.T) {
		revokedUser := uuid.New()
		revokedCookies, _ := h.login(t, revokedUser, session.RoleViewer)

		n, err := h.sessions.RevokeAllForUser(context.Background(), revokedUser)
		require.NoError(t, err)
		require.Equal(t, 1, n)

		r := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		addCookies(r, revokedCookies)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-Test-User"))
	})
}

func TestGuard_CSRFEnforcement(t *testing.T) {
	t.Parallel()

	h := setupGuard(t)
	cookies, token := h.login(t, uuid.New(), session.RoleAnalyst)
	require.NotEmpty(t, token)

	router := chi.NewRouter()
	router.With(h.guard.Protect()).Post("/reports", okHandler().ServeHTTP)
	router.With(h.guard.Protect()).Get("/reports", okHandler().ServeHTTP)

	t.Run("post with token passes", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/reports", nil)
		addCookies(r, cookies)
		r.Header.Set("X-CSRF-Token", token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("post without token rejected", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/reports", nil)
		addCookies(r, cookies)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("post with wrong token rejected", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/reports", nil)
		addCookies(r, cookies)
		r.Header.Set("X-CSRF-Token", "forged")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("token from another session rejected", func(t *testing.T) {
		_, otherToken := h.login(t, uuid.New(), session.RoleAnalyst)
		require.NotEqual(t, token, otherToken)

		r := httptest.NewRequest(http.MethodPost, "/reports", nil)
		addCookies(r, cookies)
		r.Header.Set("X-CSRF-Token", otherToken)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("get never requires a token", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/reports", nil)
		addCookies(r, cookies)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("anonymous post skips csrf", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/reports", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestGuard_RoleAuthorization(t *testing.T) {
	t.Parallel()

	h := setupGuard(t)

	router := chi.NewRouter()
	router.With(h.guard.Protect(guard.WithMinRole(session.RoleManager))).
		Get("/admin/users", okHandler().ServeHTTP)

	t.Run("anonymous gets 401", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("under-privileged gets 403", func(t *testing.T) {
		cookies, _ := h.login(t, uuid.New(), session.RoleAnalyst)
		r := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
		addCookies(r, cookies)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("sufficient role passes", func(t *testing.T) {
		cookies, _ := h.login(t, uuid.New(), session.RoleAdmin)
		r := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
		addCookies(r, cookies)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestGuard_PrivilegeCheckReResolvesRole(t *testing.T) {
	t.Parallel()

	demoted := uuid.New()
	missing := uuid.New()
	resolver := staticResolver{roles: map[uuid.UUID]session.Role{
		demoted: session.RoleViewer,
	}}

	h := setupGuard(t, guard.WithRoleResolver(resolver))

	router := chi.NewRouter()
	router.With(h.guard.Protect(guard.WithMinRole(session.RoleManager), guard.WithPrivilegeCheck())).
		Get("/admin/settings", okHandler().ServeHTTP)

	t.Run("demoted user denied despite cached role", func(t *testing.T) {
		// Session still says manager; the directory says viewer.
		cookies, _ := h.login(t, demoted, session.RoleManager)
		r := httptest.NewRequest(http.MethodGet, "/admin/settings", nil)
		addCookies(r, cookies)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("resolver failure denies", func(t *testing.T) {
		cookies, _ := h.login(t, missing, session.RoleAdmin)
		r := httptest.NewRequest(http.MethodGet, "/admin/settings", nil)
		addCookies(r, cookies)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestGuard_RateLimitRunsBeforeAuth(t *testing.T) {
	t.Parallel()

	h := setupGuard(t)

	router := chi.NewRouter()
	router.With(h.guard.Protect(guard.WithRateLimit("auth_login", ratelimit.ByClientIP))).
		Post("/login", okHandler().ServeHTTP)

	do := func() *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/login", nil)
		r.RemoteAddr = "198.51.100.9:9999"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)
		return w
	}

	assert.Equal(t, http.StatusOK, do().Code)
	assert.Equal(t, http.StatusOK, do().Code)

	third := do()
	assert.Equal(t, http.StatusTooManyRequests, third.Code)
	assert.NotEmpty(t, third.Header().Get("Retry-After"))

	t.Run("fail closed on store outage", func(t *testing.T) {
		h.mr.Close()
		w := do()
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestGuard_TerminateSession(t *testing.T) {
	t.Parallel()

	h := setupGuard(t)
	cookies, _ := h.login(t, uuid.New(), session.RoleAnalyst)

	router := chi.NewRouter()
	router.With(h.guard.Protect()).Get("/dashboard", okHandler().ServeHTTP)
	router.Post("/logout", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, h.guard.TerminateSession(r.Context(), w, r))
		w.WriteHeader(http.StatusNoContent)
	})

	// Log out.
	r := httptest.NewRequest(http.MethodPost, "/logout", nil)
	addCookies(r, cookies)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	require.Equal(t, http.StatusNoContent, w.Code)

	for _, c := range w.Result().Cookies() {
		assert.Equal(t, -1, c.MaxAge, "cookie %s must be expired", c.Name)
	}

	// The old cookie no longer authenticates.
	r = httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	addCookies(r, cookies)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-Test-User"))
}
