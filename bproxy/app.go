package bproxy

import (
	"context"
	"net/http"

	"github.com/advdv/bcycle"
	"github.com/advdv/bcycle/metrics"
	"github.com/advdv/bcycle/proxy"
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// App wraps an fx.App for lifecycle management.
type App struct {
	app *fx.App
}

// AppConfig holds configuration for the app.
type AppConfig struct {
	ServerConfig
	FxOptions []fx.Option
}

// Option configures the App.
type Option func(*AppConfig)

// WithFx adds fx options for dependency injection.
func WithFx(fxOpts ...fx.Option) Option {
	return func(c *AppConfig) {
		c.FxOptions = append(c.FxOptions, fxOpts...)
	}
}

// WithHealthHandler sets a custom health check handler.
// If not set, a default handler returning 200 OK is used.
func WithHealthHandler(h func(http.ResponseWriter, *http.Request)) Option {
	return func(c *AppConfig) {
		c.HealthHandler = h
	}
}

// EngineParams holds the dependencies for creating the engine.
type EngineParams struct {
	fx.In

	Env        Environment
	Mux        *bcycle.Mux
	Extensions *bcycle.Extensions
	Logger     *zap.Logger
	Metrics    *metrics.Observer
}

// NewEngine creates the lifecycle engine with zap logging and metrics.
func NewEngine(p EngineParams) *bcycle.Engine {
	return bcycle.New(p.Env.Config, p.Mux,
		bcycle.WithExtensions(p.Extensions),
		bcycle.WithLogger(NewBcycleLogger(p.Logger)),
		bcycle.WithObservers(p.Metrics, NewEventLogger(p.Logger)))
}

// NewMux creates the router, routes with server caching store responses in c.
func NewMux(c bcycle.Cache) *bcycle.Mux {
	return bcycle.NewMuxWith(c, bcycle.NewReverser())
}

// NewRegistry creates the metrics registry with the process and go collectors.
func NewRegistry() (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, errors.Wrap(err, "failed to register go collector")
	}

	if err := reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, errors.Wrap(err, "failed to register process collector")
	}

	return reg, nil
}

// NewProxyClient creates the upstream client with traced transports.
func NewProxyClient(tp trace.TracerProvider, prop propagation.TextMapPropagator) proxy.Client {
	return proxy.NewHTTPClient(tp, prop)
}

// ProxyRoutes forwards every request upstream as configured by the environment.
func ProxyRoutes(m *bcycle.Mux, env Environment, client proxy.Client) error {
	return m.Build("/*", proxy.Builder(env.ProxyOptions(), client),
		bcycle.WithCache(env.CacheSettings()),
		bcycle.Named("proxy"))
}

// FxOptions returns the options that make up the app's dependency graph. The routing function
// can request any types that are provided, at minimum it should accept *bcycle.Mux.
func FxOptions(routing any, opts ...Option) []fx.Option {
	var cfg AppConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	baseOpts := make([]fx.Option, 0, 16+len(cfg.FxOptions))
	baseOpts = append(baseOpts, []fx.Option{
		fx.NopLogger,
		fx.Provide(ParseEnv),
		fx.Provide(NewLogger),
		fx.Provide(NewTracerProvider),
		fx.Provide(NewPropagator),
		fx.Provide(NewRegistry),
		fx.Provide(func(r *prometheus.Registry) prometheus.Registerer { return r }),
		fx.Provide(func(r *prometheus.Registry) prometheus.Gatherer { return r }),
		fx.Provide(metrics.NewObserver),
		fx.Provide(NewCache),
		fx.Provide(NewMux),
		fx.Provide(bcycle.NewExtensions),
		fx.Provide(NewProxyClient),
		fx.Provide(NewEngine),
		fx.Supply(cfg.ServerConfig),
		fx.Provide(NewServer),
		fx.Invoke(routing),
		fx.Invoke(startServerHook),
	}...)

	return append(baseOpts, cfg.FxOptions...)
}

// NewApp creates the proxy server app.
//
// Example:
//
//	bproxy.NewApp(bproxy.ProxyRoutes,
//	    bproxy.WithFx(fx.Invoke(func(x *bcycle.Extensions) {
//	        x.Ext(bcycle.OnPreAuth, authenticate)
//	    })),
//	).Run()
func NewApp(routing any, opts ...Option) *App {
	return &App{
		app: fx.New(FxOptions(routing, opts...)...),
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() {
	a.app.Run()
}

// Start starts the application with the given context.
func (a *App) Start(ctx context.Context) error {
	if err := a.app.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.app.StopTimeout())
	defer cancel()

	return a.app.Stop(stopCtx)
}
