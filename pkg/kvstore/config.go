package kvstore

import "time"

// Config holds the shared store connection settings.
type Config struct {
	ConnectionURL  string        `env:"KVSTORE_URL,required" envDefault:"redis://localhost:6379/0"` // Format: "redis://:password@localhost:6379/0"
	RetryAttempts  int           `env:"KVSTORE_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"KVSTORE_RETRY_INTERVAL" envDefault:"5s"`
	ConnectTimeout time.Duration `env:"KVSTORE_CONNECT_TIMEOUT" envDefault:"30s"`

	// OpTimeout bounds every single store operation. Authentication-critical
	// callers treat a timeout as a denial; bookkeeping callers log and move on.
	OpTimeout time.Duration `env:"KVSTORE_OP_TIMEOUT" envDefault:"2s"`
}
