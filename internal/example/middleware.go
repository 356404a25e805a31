// Package example implements example middleware and extensions in an outside package.
package example

import (
	"context"

	"github.com/advdv/bcycle"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// ctxKey type scopes middlware values.
type ctxKey string

// Middleware provides an example for middleware that adds a logger to the context.
func Middleware(logs *zap.Logger) bcycle.Middleware {
	return func(n bcycle.Handler) bcycle.Handler {
		return bcycle.HandlerFunc(func(c context.Context, r *bcycle.Request) error {
			logs := logs.With(zap.String("method", r.Method), zap.String("request_id", r.ID))

			c = context.WithValue(c, ctxKey("zap"), logs)
			r.Plugins["example"] = logs

			return n.ServeCycle(c, r)
		})
	}
}

// Log returns the logger that [Middleware] added to ctx, or a no-op logger.
func Log(ctx context.Context) *zap.Logger {
	v, ok := ctx.Value(ctxKey("zap")).(*zap.Logger)
	if !ok {
		return zap.NewNop()
	}

	return v
}

// RequireHeader returns an extension that rejects requests without the named header.
func RequireHeader(name string) bcycle.Extension {
	return func(_ context.Context, r *bcycle.Request) error {
		if r.Headers.Get(name) == "" {
			return bcycle.NewError(bcycle.CodeUnauthorized, errors.Newf("missing %s header", name))
		}

		return nil
	}
}
