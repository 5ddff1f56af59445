package ratelimit_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesdash/authkit/pkg/ratelimit"
)

func TestMiddleware_Enforces(t *testing.T) {
	t.Parallel()

	reg, _ := setupRegistry(t, map[string]ratelimit.Rule{
		"api": {Limit: 2, Window: time.Minute, Strategy: ratelimit.StrategyFixedWindow},
	})

	handler := ratelimit.Middleware(reg, "api", ratelimit.ByClientIP)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)

	do := func() *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/data", nil)
		r.RemoteAddr = "198.51.100.9:4432"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		return w
	}

	first := do()
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, first.Header().Get("X-RateLimit-Reset"))

	do()

	third := do()
	assert.Equal(t, http.StatusTooManyRequests, third.Code)
	assert.Equal(t, "0", third.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, third.Header().Get("Retry-After"))
}

func TestMiddleware_FailModes(t *testing.T) {
	t.Parallel()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("fail closed denies on outage", func(t *testing.T) {
		t.Parallel()

		reg, mr := setupRegistry(t, map[string]ratelimit.Rule{
			"login": {Limit: 5, Window: time.Minute, Strategy: ratelimit.StrategySlidingWindow, FailClosed: true},
		})
		mr.Close()

		r := httptest.NewRequest(http.MethodPost, "/login", nil)
		r.RemoteAddr = "198.51.100.9:4432"
		w := httptest.NewRecorder()
		ratelimit.Middleware(reg, "login", ratelimit.ByClientIP)(next).ServeHTTP(w, r)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("fail open admits on outage", func(t *testing.T) {
		t.Parallel()

		reg, mr := setupRegistry(t, map[string]ratelimit.Rule{
			"api": {Limit: 5, Window: time.Minute, Strategy: ratelimit.StrategyFixedWindow},
		})
		mr.Close()

		r := httptest.NewRequest(http.MethodGet, "/data", nil)
		r.RemoteAddr = "198.51.100.9:4432"
		w := httptest.NewRecorder()
		ratelimit.Middleware(reg, "api", ratelimit.ByClientIP)(next).ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestComposite(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/reports/weekly", nil)
	r.RemoteAddr = "198.51.100.9:4432"

	t.Run("joins parts", func(t *testing.T) {
		key := ratelimit.Composite(ratelimit.ByClientIP, ratelimit.ByPath)(r)
		assert.Equal(t, "198.51.100.9:/reports/weekly", key)
	})

	t.Run("skips empty parts", func(t *testing.T) {
		empty := func(*http.Request) string { return "" }
		key := ratelimit.Composite(empty, ratelimit.ByClientIP)(r)
		assert.Equal(t, "198.51.100.9", key)
	})

	t.Run("hashes long keys", func(t *testing.T) {
		long := func(*http.Request) string { return string(make([]byte, 100)) }
		key := ratelimit.Composite(long, ratelimit.ByClientIP)(r)
		assert.Len(t, key, 32)
	})

	t.Run("all empty yields empty", func(t *testing.T) {
		empty := func(*http.Request) string { return "" }
		assert.Empty(t, ratelimit.Composite(empty)(r))
	})
}

func TestHashSubject(t *testing.T) {
	t.Parallel()

	a := ratelimit.HashSubject("alice@example.com")
	b := ratelimit.HashSubject("bob@example.com")

	require.NotEqual(t, a, b)
	assert.Len(t, a, 16)
	assert.Equal(t, a, ratelimit.HashSubject("alice@example.com"))
}
