package bcycle

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
)

// Config configures the engine.
type Config struct {
	// ServerTimeout bounds the time between receiving a request and replying. Zero disables it.
	ServerTimeout time.Duration `env:"BCYCLE_SERVER_TIMEOUT"`
	// SocketTimeout sets a read deadline on the connection. Zero disables it.
	SocketTimeout time.Duration `env:"BCYCLE_SOCKET_TIMEOUT"`
	// NormalizeRequestPath canonicalizes percent-encoding in request paths.
	NormalizeRequestPath bool `env:"BCYCLE_NORMALIZE_REQUEST_PATH" envDefault:"true"`
	// DebugTags selects the request log entries that are forwarded to the Logger.
	DebugTags []string `env:"BCYCLE_DEBUG_TAGS" envDefault:"implementation" envSeparator:","`
	// Protocol, Host and Port describe the public address of the server.
	Protocol string `env:"BCYCLE_PROTOCOL" envDefault:"http"`
	Host     string `env:"BCYCLE_HOST" envDefault:"localhost"`
	Port     int    `env:"BCYCLE_PORT" envDefault:"8080"`
}

// DefaultConfig returns the configuration that [ParseConfig] produces on an empty environment.
func DefaultConfig() Config {
	return Config{
		NormalizeRequestPath: true,
		DebugTags:            []string{"implementation"},
		Protocol:             "http",
		Host:                 "localhost",
		Port:                 8080,
	}
}

// ParseConfig reads the configuration from the environment.
func ParseConfig() (cfg Config, err error) {
	if err := env.Parse(&cfg); err != nil {
		return cfg, errors.Wrap(err, "failed to parse environment")
	}

	return cfg, nil
}
