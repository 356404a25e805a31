package bcycle_test

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/advdv/bcycle"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMuxRouting(t *testing.T) {
	mux := bcycle.NewMux()
	echo := func(_ context.Context, r *bcycle.Request) error {
		r.Reply(r.Route().Settings.Method + " " + r.Route().Settings.Path + " " + r.Params["id"])
		return nil
	}

	mux.HandleFunc("GET /items/{id}", echo, bcycle.Named("item"))
	mux.HandleFunc("/items/{id}", echo)
	mux.HandleFunc("GET /files/*", func(_ context.Context, r *bcycle.Request) error {
		r.Reply(r.Params["*"])
		return nil
	})

	rec, _ := serveOne(t, mux, http.MethodGet, "/items/1")
	assert.Equal(t, "get /items/{id} 1", rec.Body.String())

	rec, _ = serveOne(t, mux, http.MethodDelete, "/items/2")
	assert.Equal(t, " /items/{id} 2", rec.Body.String())

	rec, _ = serveOne(t, mux, http.MethodGet, "/files/a/b.txt")
	assert.Equal(t, "a/b.txt", rec.Body.String())

	rec, _ = serveOne(t, mux, http.MethodPost, "/files/a")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, req := serveOne(t, mux, http.MethodHead, "/files/a/b.txt")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, "get", req.Route().Settings.Method)
	assert.Equal(t, "a/b.txt", string(req.Response().Payload()))

	u, err := mux.Reverse("item", "42")
	require.NoError(t, err)
	assert.Equal(t, "/items/42", u)
}

func TestMuxInvalidRoutes(t *testing.T) {
	mux := bcycle.NewMux()
	mux.HandleFunc("GET /a", func(context.Context, *bcycle.Request) error { return nil }, bcycle.Named("a"))

	t.Run("duplicate", func(t *testing.T) {
		assert.Panics(t, func() {
			mux.HandleFunc("GET /a", func(context.Context, *bcycle.Request) error { return nil })
		})
	})

	t.Run("duplicate name", func(t *testing.T) {
		err := mux.Build("GET /b", func(*bcycle.Route) (bcycle.Handler, error) {
			return bcycle.HandlerFunc(func(context.Context, *bcycle.Request) error { return nil }), nil
		}, bcycle.Named("a"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already exists")
	})

	t.Run("relative", func(t *testing.T) {
		err := mux.Build("GET relative", func(*bcycle.Route) (bcycle.Handler, error) {
			return bcycle.HandlerFunc(func(context.Context, *bcycle.Request) error { return nil }), nil
		})
		require.Error(t, err)
	})

	t.Run("builder rejects", func(t *testing.T) {
		err := mux.Build("GET /c", func(rt *bcycle.Route) (bcycle.Handler, error) {
			if !rt.Settings.Cache.Server {
				return nil, errors.New("needs server cache")
			}
			return nil, nil
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "needs server cache")
	})
}

func TestMuxMiddleware(t *testing.T) {
	var order []string
	mw := func(name string) bcycle.Middleware {
		return func(next bcycle.Handler) bcycle.Handler {
			return bcycle.HandlerFunc(func(ctx context.Context, r *bcycle.Request) error {
				order = append(order, name)
				return next.ServeCycle(ctx, r)
			})
		}
	}

	mux := bcycle.NewMux()
	mux.HandleFunc("/", func(_ context.Context, r *bcycle.Request) error {
		order = append(order, "handler")
		r.Reply("ok")
		return nil
	}, bcycle.WithMiddleware(mw("outer"), mw("inner")))

	_, _ = serveOne(t, mux, http.MethodGet, "/")
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestJSONP(t *testing.T) {
	mux := bcycle.NewMux()
	mux.HandleFunc("GET /data", func(_ context.Context, r *bcycle.Request) error {
		r.Reply(map[string]any{"callback": r.Query.Has("cb")})
		return nil
	}, bcycle.WithJSONP("cb"))

	t.Run("wraps json", func(t *testing.T) {
		rec, _ := serveOne(t, mux, http.MethodGet, "/data?cb=window.handle")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, `window.handle({"callback":false});`, rec.Body.String())
		assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/javascript"))
	})

	t.Run("plain without callback", func(t *testing.T) {
		rec, _ := serveOne(t, mux, http.MethodGet, "/data")
		assert.JSONEq(t, `{"callback":false}`, rec.Body.String())
	})

	t.Run("invalid callback", func(t *testing.T) {
		rec, _ := serveOne(t, mux, http.MethodGet, "/data?cb=alert(1)")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid JSONP parameter value")
	})

	for _, tt := range []struct {
		callback string
		code     int
		body     string
	}{
		{callback: "foo.bar[0]", code: http.StatusOK, body: `foo.bar[0]({"callback":false});`},
		{callback: "$cb_1", code: http.StatusOK, body: `$cb_1({"callback":false});`},
		{callback: "foo; DROP", code: http.StatusBadRequest},
	} {
		t.Run("callback "+tt.callback, func(t *testing.T) {
			rec, req := serveOne(t, mux, http.MethodGet, "/data?cb="+url.QueryEscape(tt.callback))
			require.Equal(t, tt.code, rec.Code)
			if tt.code != http.StatusOK {
				assert.Empty(t, req.JSONP)
				return
			}

			assert.Equal(t, tt.body, rec.Body.String())
			assert.Equal(t, tt.callback, req.JSONP)
			assert.False(t, req.Query.Has("cb"))
		})
	}
}
