package bcycle_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/advdv/bcycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePath(t *testing.T) {
	for _, tt := range []struct {
		in, out string
	}{
		{"/a%2fb", "/a%2Fb"},
		{"/%7euser", "/~user"},
		{"/%41%42c", "/ABc"},
		{"/%2D%2E%5F", "/-._"},
		{"/a%20b", "/a%20b"},
		{"/plain", "/plain"},
	} {
		assert.Equal(t, tt.out, bcycle.NormalizePath(tt.in), tt.in)
	}
}

func TestRequestPath(t *testing.T) {
	mux := bcycle.NewMux()
	mux.HandleFunc("/~user", func(_ context.Context, r *bcycle.Request) error {
		r.Reply(r.Path)
		return nil
	})

	rec, _ := serveOne(t, mux, http.MethodGet, "/%7euser")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/~user", rec.Body.String())

	t.Run("without normalization", func(t *testing.T) {
		cfg := bcycle.DefaultConfig()
		cfg.NormalizeRequestPath = false

		eng := bcycle.New(cfg, mux, bcycle.WithLogger(bcycle.NewTestLogger(t)))
		rec := httptest.NewRecorder()
		req := eng.Serve(rec, httptest.NewRequest(http.MethodGet, "/%7euser", nil), bcycle.RequestOptions{})
		assert.Equal(t, "/%7euser", req.Path)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestRequestInfo(t *testing.T) {
	mux := bcycle.NewMux()
	mux.HandleFunc("/", func(_ context.Context, r *bcycle.Request) error {
		r.Reply("ok")
		return nil
	})

	eng := bcycle.New(bcycle.DefaultConfig(), mux, bcycle.WithLogger(bcycle.NewTestLogger(t)))

	hreq := httptest.NewRequest(http.MethodGet, "/?a=1&a=2", nil)
	hreq.RemoteAddr = "10.0.0.1:4321"
	hreq.Header.Set("Referer", "http://example.com/")
	req := eng.Serve(httptest.NewRecorder(), hreq, bcycle.RequestOptions{Credentials: "pre"})

	assert.Equal(t, "10.0.0.1", req.Info.RemoteAddress)
	assert.Equal(t, "4321", req.Info.RemotePort)
	assert.Equal(t, "http://example.com/", req.Info.Referrer)
	assert.Equal(t, "example.com", req.Info.Host)
	assert.Equal(t, []string{"1", "2"}, req.Query["a"])
	assert.Equal(t, "get", req.Method)
	assert.Equal(t, "pre", req.Auth.Credentials)
	assert.False(t, req.Auth.IsAuthenticated)
	assert.Regexp(t, `^\d+-\d+-\d+$`, req.ID)
	assert.Equal(t, bcycle.ServerInfo{Protocol: "http", Host: "localhost", Port: 8080}, req.Server())
}
