// Package bproxy assembles a runnable reverse proxy around the bcycle engine.
//
// # Overview
//
// The app is an fx dependency graph that provides:
//
//   - [Environment], parsed from BPROXY_* and BCYCLE_* variables
//   - a zap production logger, adapted for the engine with [NewBcycleLogger]
//   - an OpenTelemetry tracer provider and propagator, used for inbound and upstream requests
//   - a Prometheus registry with the engine's [metrics.Observer], served at BPROXY_METRICS_PATH
//   - a response cache, Redis when BPROXY_REDIS_ADDR is reachable and in-memory otherwise
//   - the [bcycle.Engine] behind an http.Server that is started and stopped with the app
//
// # Routing
//
// The routing function passed to [NewApp] is invoked with any provided types. [ProxyRoutes]
// forwards every request to the configured upstream:
//
//	bproxy.NewApp(bproxy.ProxyRoutes).Run()
//
// Custom routing can combine proxy routes with regular handlers:
//
//	bproxy.NewApp(func(m *bcycle.Mux, c proxy.Client) error {
//	    m.HandleFunc("GET /status", status)
//	    return m.Build("/api/*", proxy.Builder(proxy.Options{Host: "api.internal"}, c))
//	}).Run()
//
// # Health
//
// BPROXY_HEALTH_PATH answers 200 OK and is not traced, see [WithHealthHandler] to customize it.
package bproxy
