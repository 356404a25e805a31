package bproxytest

import (
	"strconv"
	"testing"
	"time"
)

// Env provides a chainable builder for setting [bproxy.Environment] env vars
// via t.Setenv. Create one with [SetBaseEnv].
type Env struct {
	t testing.TB
}

// SetBaseEnv sets the bproxy env vars to test defaults.
// Port is required because each test must use a unique port to avoid collisions.
//
// Defaults:
//   - BPROXY_SERVICE_NAME: "test"
//   - BPROXY_OTEL_EXPORTER: "none"
//   - BPROXY_LOG_LEVEL: "warn"
//   - BPROXY_HEALTH_PATH: "/health"
//   - BPROXY_METRICS_PATH: "/metrics"
//   - BPROXY_REDIS_ADDR: ""
func SetBaseEnv(t testing.TB, port int) *Env {
	t.Helper()
	t.Setenv("BPROXY_PORT", strconv.Itoa(port))
	t.Setenv("BPROXY_SERVICE_NAME", "test")
	t.Setenv("BPROXY_OTEL_EXPORTER", "none")
	t.Setenv("BPROXY_LOG_LEVEL", "warn")
	t.Setenv("BPROXY_HEALTH_PATH", "/health")
	t.Setenv("BPROXY_METRICS_PATH", "/metrics")
	t.Setenv("BPROXY_REDIS_ADDR", "")
	return &Env{t: t}
}

// Upstream sets BPROXY_UPSTREAM_URI.
func (e *Env) Upstream(uri string) *Env {
	e.t.Helper()
	e.t.Setenv("BPROXY_UPSTREAM_URI", uri)
	return e
}

// PassThrough sets BPROXY_PASS_THROUGH.
func (e *Env) PassThrough(v bool) *Env {
	e.t.Helper()
	e.t.Setenv("BPROXY_PASS_THROUGH", strconv.FormatBool(v))
	return e
}

// CacheExpiresIn sets BPROXY_CACHE_EXPIRES_IN, enabling the server cache.
func (e *Env) CacheExpiresIn(d time.Duration) *Env {
	e.t.Helper()
	e.t.Setenv("BPROXY_CACHE_EXPIRES_IN", d.String())
	return e
}

// TTL sets BPROXY_TTL.
func (e *Env) TTL(policy string) *Env {
	e.t.Helper()
	e.t.Setenv("BPROXY_TTL", policy)
	return e
}

// RedisAddr sets BPROXY_REDIS_ADDR.
func (e *Env) RedisAddr(addr string) *Env {
	e.t.Helper()
	e.t.Setenv("BPROXY_REDIS_ADDR", addr)
	return e
}

// ServerTimeout sets BCYCLE_SERVER_TIMEOUT.
func (e *Env) ServerTimeout(d time.Duration) *Env {
	e.t.Helper()
	e.t.Setenv("BCYCLE_SERVER_TIMEOUT", d.String())
	return e
}
