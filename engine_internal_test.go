package bcycle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRequest(t *testing.T, obs ...Observer) (*Engine, *Request, *httptest.ResponseRecorder) {
	t.Helper()

	eng := New(DefaultConfig(), NewMux(), WithLogger(NewTestLogger(t)), WithObservers(obs...))
	rec := httptest.NewRecorder()
	return eng, newRequest(eng, rec, httptest.NewRequest(http.MethodGet, "/", nil), RequestOptions{}), rec
}

func TestReplyOnce(t *testing.T) {
	var sent atomic.Int64
	eng, req, rec := newTestRequest(t, ObserverFunc(func(ev Event) {
		if _, ok := ev.(ResponseSent); ok {
			sent.Add(1)
		}
	}))

	req.Reply("first")
	eng.reply(context.Background(), req, nil)
	eng.reply(context.Background(), req, errors.New("second"))

	assert.Equal(t, int64(1), sent.Load())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "first", rec.Body.String())

	late := req.Reply("late")
	assert.NotSame(t, late, req.Response())
}

func TestPhases(t *testing.T) {
	_, req, _ := newTestRequest(t)
	require.NoError(t, req.SetURL("/ok"))

	req.endMutations()
	assert.Panics(t, func() { req.SetMethod("put") })
	assert.True(t, req.markReplied())
	assert.False(t, req.markReplied())
	assert.Equal(t, 0, req.startWagging())
	assert.True(t, req.markDrained())
	assert.False(t, req.markDrained())
}

func TestProtect(t *testing.T) {
	err := protect(func() error { panic(errors.New("inner")) })
	require.Error(t, err)
	assert.True(t, IsImplementationError(err))
	assert.Contains(t, err.Error(), "inner")

	err = protect(func() error { panic(42) })
	assert.True(t, IsImplementationError(err))

	assert.NoError(t, protect(func() error { return nil }))
}

func TestPrepareNilResponse(t *testing.T) {
	_, req, _ := newTestRequest(t)

	res := NewResponder().Prepare(context.Background(), nil, req)
	require.True(t, res.IsError())
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode())
	assert.True(t, IsImplementationError(res.Err()))
}

func TestGenerateUnencodable(t *testing.T) {
	_, req, _ := newTestRequest(t)

	res := NewResponder().Generate(make(chan int), req)
	require.True(t, res.IsError())
	assert.True(t, IsImplementationError(res.Err()))
}
