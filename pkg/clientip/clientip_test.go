package clientip_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/salesdash/authkit/pkg/clientip"
)

func TestGetIP(t *testing.T) {
	t.Parallel()

	t.Run("x-forwarded-for single", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("X-Forwarded-For", "203.0.113.7")

		assert.Equal(t, "203.0.113.7", clientip.GetIP(r))
	})

	t.Run("x-forwarded-for chain takes first valid", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("X-Forwarded-For", "garbage, 203.0.113.7, 10.0.0.1")

		assert.Equal(t, "203.0.113.7", clientip.GetIP(r))
	})

	t.Run("x-real-ip fallback", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("X-Real-IP", "198.51.100.4")

		assert.Equal(t, "198.51.100.4", clientip.GetIP(r))
	})

	t.Run("remote addr fallback", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.RemoteAddr = "192.0.2.10:54321"

		assert.Equal(t, "192.0.2.10", clientip.GetIP(r))
	})

	t.Run("ipv6 normalized", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("X-Forwarded-For", "2001:DB8::1")

		assert.Equal(t, "2001:db8::1", clientip.GetIP(r))
	})

	t.Run("invalid header ignored", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("X-Forwarded-For", "not-an-ip")
		r.RemoteAddr = "192.0.2.10:1234"

		assert.Equal(t, "192.0.2.10", clientip.GetIP(r))
	})
}
