package bcycle_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/advdv/bcycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMount(t *testing.T) {
	sub := bcycle.NewMux()
	sub.HandleFunc("GET /users/{id}", func(_ context.Context, r *bcycle.Request) error {
		r.Reply(r.Route().Settings.Path + " " + r.Params["id"])
		return nil
	}, bcycle.Named("user"))

	mux := bcycle.NewMux()
	require.NoError(t, mux.Mount("/api/", sub))

	rec, _ := serveOne(t, mux, http.MethodGet, "/api/users/7")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/api/users/{id} 7", rec.Body.String())

	rec, _ = serveOne(t, mux, http.MethodGet, "/users/7")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	u, err := mux.Reverse("user", "8")
	require.NoError(t, err)
	assert.Equal(t, "/api/users/8", u)

	t.Run("conflicts", func(t *testing.T) {
		require.Error(t, mux.Mount("/api", sub))
	})

	t.Run("relative prefix", func(t *testing.T) {
		require.Error(t, bcycle.NewMux().Mount("api", sub))
	})
}
