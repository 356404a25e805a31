package bproxy

import (
	"net/http"
	"time"

	"github.com/advdv/bcycle"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a zap logger configured from the environment.
func NewLogger(env Environment) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(env.LogLevel)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

type zapLogger struct{ *zap.Logger }

func (l zapLogger) LogDebugEvent(entry bcycle.LogEntry) {
	l.Logger.Debug("debug event",
		zap.String("request_id", entry.Request),
		zap.Strings("tags", entry.Tags),
		zap.Any("data", entry.Data))
}

func (l zapLogger) LogRespondError(err error) {
	l.Logger.Error("error while responding", zap.Error(err))
}

func (l zapLogger) LogCacheError(err error) {
	l.Logger.Warn("cache error", zap.Error(err))
}

// NewBcycleLogger adapts l to the engine's [bcycle.Logger].
func NewBcycleLogger(l *zap.Logger) bcycle.Logger {
	return zapLogger{l.Named("bcycle")}
}

// NewEventLogger returns an observer that writes a line per response and per internal error.
func NewEventLogger(l *zap.Logger) bcycle.Observer {
	l = l.Named("bcycle")

	return bcycle.ObserverFunc(func(ev bcycle.Event) {
		r := ev.Request()

		switch ev := ev.(type) {
		case bcycle.ResponseSent:
			if ev.Response == nil {
				return
			}

			fields := []zap.Field{
				zap.String("request_id", r.ID),
				zap.String("method", r.Method),
				zap.String("path", r.Path),
				zap.String("route", r.Route().Settings.Path),
				zap.Int("status", ev.Response.StatusCode()),
				zap.Duration("duration", time.Since(r.Info.Received)),
			}

			if up, ok := ev.Response.Source().(*http.Response); ok {
				fields = append(fields, zap.Int("upstream_status", up.StatusCode))
				if up.Request != nil {
					fields = append(fields, zap.String("upstream_url", up.Request.URL.String()))
				}
			}

			l.Info("response sent", fields...)
		case bcycle.InternalError:
			l.Error("internal error",
				zap.String("request_id", r.ID),
				zap.String("path", r.Path),
				zap.Error(ev.Err))
		}
	})
}
