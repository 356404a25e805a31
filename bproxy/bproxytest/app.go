// Package bproxytest provides test helpers for bproxy applications.
//
// It constructs the identical DI graph as [bproxy.NewApp] but uses
// [fxtest.App] which fails the test immediately on DI errors.
//
// Example:
//
//	bproxytest.SetBaseEnv(t, 18081).Upstream(upstream.URL + "{path}")
//	app := bproxytest.New(t, bproxy.ProxyRoutes)
//	app.RequireStart()
//	t.Cleanup(app.RequireStop)
package bproxytest

import (
	"testing"

	"github.com/advdv/bcycle/bproxy"
	"go.uber.org/fx/fxtest"
)

// App embeds *fxtest.App for testing bproxy applications.
type App struct {
	*fxtest.App
}

// New creates a test app with the same DI graph as [bproxy.NewApp].
func New(t testing.TB, routing any, opts ...bproxy.Option) *App {
	return &App{App: fxtest.New(t, bproxy.FxOptions(routing, opts...)...)}
}
