package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var defaultEnvLoaded sync.Once

// Validator is implemented by config structs that carry cross-field
// constraints. Load calls it once after parsing, so every recognized option
// is checked at startup rather than read ad hoc.
type Validator interface {
	Validate() error
}

// Load parses environment variables into the provided configuration struct
// based on `env` field tags. The default .env file is loaded once per
// process; a missing file is not an error.
//
// Example:
//
//	type StoreConfig struct {
//		URL     string        `env:"KVSTORE_URL,required"`
//		Timeout time.Duration `env:"KVSTORE_OP_TIMEOUT" envDefault:"2s"`
//	}
//
//	var cfg StoreConfig
//	if err := config.Load(&cfg); err != nil {
//		// Handle error
//	}
func Load[T any](v *T) error {
	defaultEnvLoaded.Do(func() {
		// The .env file is optional
		_ = godotenv.Load()
	})

	if v == nil {
		return ErrNilPointer
	}

	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	if validator, ok := any(v).(Validator); ok {
		if err := validator.Validate(); err != nil {
			return errors.Join(ErrInvalidConfig, err)
		}
	}

	return nil
}

// MustLoad works like Load but panics on failure. Intended for configuration
// the application cannot start without.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}
