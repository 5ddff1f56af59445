package csrf

import (
	"fmt"
	"time"
)

// Config controls CSRF token lifetime and delivery.
type Config struct {
	// CookieName is the JS-readable cookie the token is delivered in.
	CookieName string `env:"CSRF_COOKIE_NAME" envDefault:"csrf_token"`

	// HeaderName is the request header the token is expected back in.
	HeaderName string `env:"CSRF_HEADER_NAME" envDefault:"X-CSRF-Token"`

	// Timeout is how long a token stays valid without rotation.
	Timeout time.Duration `env:"CSRF_TIMEOUT" envDefault:"30m"`

	// RotateAfter is the token age past which the guard rotates it
	// during an authenticated request.
	RotateAfter time.Duration `env:"CSRF_ROTATE_AFTER" envDefault:"15m"`

	// CookieDomain optionally scopes the token cookie.
	CookieDomain string `env:"CSRF_COOKIE_DOMAIN"`

	// SecureCookies marks the token cookie Secure.
	SecureCookies bool `env:"CSRF_SECURE_COOKIES" envDefault:"true"`
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() Config {
	return Config{
		CookieName:    "csrf_token",
		HeaderName:    "X-CSRF-Token",
		Timeout:       30 * time.Minute,
		RotateAfter:   15 * time.Minute,
		SecureCookies: true,
	}
}

// Validate checks the configuration for invalid values.
func (c Config) Validate() error {
	if c.CookieName == "" {
		return fmt.Errorf("%w: cookie name is required", ErrInvalidConfig)
	}
	if c.HeaderName == "" {
		return fmt.Errorf("%w: header name is required", ErrInvalidConfig)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	if c.RotateAfter <= 0 || c.RotateAfter > c.Timeout {
		return fmt.Errorf("%w: rotate-after must be positive and not exceed timeout", ErrInvalidConfig)
	}
	return nil
}
