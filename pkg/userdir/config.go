package userdir

import "time"

// Config holds the directory database connection settings.
type Config struct {
	// ConnectionString is the Postgres connection URL of the business
	// database holding the users table.
	ConnectionString string `env:"USERDIR_CONN_URL,required"`

	MaxOpenConns      int32         `env:"USERDIR_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns      int32         `env:"USERDIR_MAX_IDLE_CONNS" envDefault:"5"`
	HealthCheckPeriod time.Duration `env:"USERDIR_HEALTHCHECK_PERIOD" envDefault:"1m"`

	RetryAttempts int           `env:"USERDIR_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval time.Duration `env:"USERDIR_RETRY_INTERVAL" envDefault:"5s"`
}
