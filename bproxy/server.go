package bproxy

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/advdv/bcycle"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const readHeaderTimeout = 10 * time.Second

// ServerConfig holds optional configuration for the HTTP server.
type ServerConfig struct {
	HealthHandler func(http.ResponseWriter, *http.Request)
}

// ServerParams holds the dependencies for creating an HTTP server.
type ServerParams struct {
	fx.In

	Env        Environment
	Engine     *bcycle.Engine
	Gatherer   prometheus.Gatherer
	Logger     *zap.Logger
	TracerProv trace.TracerProvider
	Propagator propagation.TextMapPropagator
}

// NewServer creates the HTTP server. The health and metrics endpoints are served next to the
// engine and are not traced.
func NewServer(params ServerParams, cfg ServerConfig) *http.Server {
	healthHandler := cfg.HealthHandler
	if healthHandler == nil {
		healthHandler = defaultHealthHandler
	}

	mux := http.NewServeMux()
	mux.HandleFunc(params.Env.HealthPath, healthHandler)
	mux.Handle(params.Env.MetricsPath, promhttp.HandlerFor(params.Gatherer, promhttp.HandlerOpts{
		ErrorLog: zap.NewStdLog(params.Logger.Named("promhttp")),
	}))
	mux.Handle("/", withTracing(params.TracerProv, params.Propagator, params.Env.ServiceName)(params.Engine))

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", params.Env.Port),
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          zap.NewStdLog(params.Logger.Named("http")),
	}
}

// startServerHook registers lifecycle hooks for the HTTP server. The listener is opened on
// start so that a taken port fails the app.
func startServerHook(lc fx.Lifecycle, server *http.Server, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", server.Addr)
			if err != nil {
				return err
			}

			logger.Info("starting server", zap.String("addr", ln.Addr().String()))
			go func() {
				if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
					logger.Error("server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping server")
			return server.Shutdown(ctx)
		},
	})
}

func defaultHealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}
