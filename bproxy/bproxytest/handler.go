package bproxytest

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/advdv/bcycle"
)

// CallHandler serves req through a fresh engine with a single route for pattern and returns
// the recorded response.
func CallHandler(t testing.TB, pattern string, handler bcycle.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()

	mux := bcycle.NewMux()
	mux.HandleFunc(pattern, handler)

	rec := httptest.NewRecorder()
	bcycle.New(bcycle.DefaultConfig(), mux, bcycle.WithLogger(bcycle.NewTestLogger(t))).ServeHTTP(rec, req)

	return rec
}
