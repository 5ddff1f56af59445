package session

import (
	"fmt"
	"time"
)

// Config holds session configuration.
type Config struct {
	// CookieName is the name of the session cookie.
	CookieName string `env:"SESSION_COOKIE_NAME" envDefault:"dash_session"`

	// Timeout is the session TTL; renewal extends expiry by this amount.
	Timeout time.Duration `env:"SESSION_TIMEOUT" envDefault:"1h"`

	// MaxSessionsPerUser caps concurrent sessions; the oldest session is
	// evicted when a new one would exceed the ceiling.
	MaxSessionsPerUser int `env:"SESSION_MAX_PER_USER" envDefault:"5"`

	// RenewalThreshold is the minimum time since last_seen before a request
	// triggers a renewal write, amortizing renewal cost into normal traffic.
	// Zero renews on every validated request.
	RenewalThreshold time.Duration `env:"SESSION_RENEWAL_THRESHOLD" envDefault:"1m"`

	// CookieDomain scopes the session cookie.
	CookieDomain string `env:"SESSION_COOKIE_DOMAIN" envDefault:""`

	// SecureCookies enables the Secure flag; required outside local development.
	SecureCookies bool `env:"SESSION_SECURE_COOKIES" envDefault:"false"`
}

// DefaultConfig returns default session configuration.
func DefaultConfig() Config {
	return Config{
		CookieName:         "dash_session",
		Timeout:            time.Hour,
		MaxSessionsPerUser: 5,
		RenewalThreshold:   time.Minute,
	}
}

// Validate checks the configuration once at startup.
func (c Config) Validate() error {
	if c.CookieName == "" {
		return fmt.Errorf("%w: cookie name is required", ErrInvalidConfig)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive, got %v", ErrInvalidConfig, c.Timeout)
	}
	if c.MaxSessionsPerUser <= 0 {
		return fmt.Errorf("%w: max sessions per user must be positive, got %d", ErrInvalidConfig, c.MaxSessionsPerUser)
	}
	if c.RenewalThreshold < 0 {
		return fmt.Errorf("%w: renewal threshold must not be negative, got %v", ErrInvalidConfig, c.RenewalThreshold)
	}
	return nil
}
