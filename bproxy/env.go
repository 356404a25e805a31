package bproxy

import (
	"time"

	"github.com/advdv/bcycle"
	"github.com/advdv/bcycle/proxy"
	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap/zapcore"
)

// Environment holds the configuration of the proxy server. The embedded [bcycle.Config] is
// read from the BCYCLE_* variables.
type Environment struct {
	bcycle.Config

	Port         int           `env:"BPROXY_PORT" envDefault:"8080"`
	ServiceName  string        `env:"BPROXY_SERVICE_NAME" envDefault:"bproxy"`
	LogLevel     zapcore.Level `env:"BPROXY_LOG_LEVEL" envDefault:"info"`
	OtelExporter string        `env:"BPROXY_OTEL_EXPORTER" envDefault:"stdout"`
	HealthPath   string        `env:"BPROXY_HEALTH_PATH" envDefault:"/health"`
	MetricsPath  string        `env:"BPROXY_METRICS_PATH" envDefault:"/metrics"`

	// The upstream is either addressed by a uri template or by protocol, host and port.
	UpstreamURI      string        `env:"BPROXY_UPSTREAM_URI"`
	UpstreamProtocol string        `env:"BPROXY_UPSTREAM_PROTOCOL" envDefault:"http"`
	UpstreamHost     string        `env:"BPROXY_UPSTREAM_HOST"`
	UpstreamPort     int           `env:"BPROXY_UPSTREAM_PORT"`
	UpstreamTimeout  time.Duration `env:"BPROXY_UPSTREAM_TIMEOUT" envDefault:"3m"`
	Redirects        int           `env:"BPROXY_REDIRECTS"`
	PassThrough      bool          `env:"BPROXY_PASS_THROUGH"`
	XForward         bool          `env:"BPROXY_XFORWARD" envDefault:"true"`
	TTL              string        `env:"BPROXY_TTL"`

	// CacheExpiresIn enables server caching of upstream responses when set.
	CacheExpiresIn time.Duration `env:"BPROXY_CACHE_EXPIRES_IN"`
	ClientCache    bool          `env:"BPROXY_CLIENT_CACHE"`
	RedisAddr      string        `env:"BPROXY_REDIS_ADDR"`
}

// ParseEnv parses the environment variables.
func ParseEnv() (e Environment, err error) {
	if err := env.Parse(&e); err != nil {
		return e, errors.Wrap(err, "failed to parse environment")
	}

	return e, nil
}

// ProxyOptions returns the proxy handler options described by the environment.
func (e Environment) ProxyOptions() proxy.Options {
	return proxy.Options{
		Protocol:    e.UpstreamProtocol,
		Host:        e.UpstreamHost,
		Port:        e.UpstreamPort,
		URI:         e.UpstreamURI,
		PassThrough: e.PassThrough,
		XForward:    e.XForward,
		TTL:         e.TTL,
		Redirects:   e.Redirects,
		Timeout:     e.UpstreamTimeout,
	}
}

// CacheSettings returns the route cache settings described by the environment.
func (e Environment) CacheSettings() bcycle.CacheSettings {
	return bcycle.CacheSettings{
		Server:    e.CacheExpiresIn > 0,
		Client:    e.ClientCache,
		ExpiresIn: e.CacheExpiresIn,
	}
}
