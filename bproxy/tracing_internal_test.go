package bproxy

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/fx/fxtest"
)

func TestNewTracerProvider(t *testing.T) {
	t.Run("stdout", func(t *testing.T) {
		lc := fxtest.NewLifecycle(t)
		tp, err := NewTracerProvider(lc, Environment{OtelExporter: "stdout", ServiceName: "test"})
		require.NoError(t, err)
		assert.IsType(t, &sdktrace.TracerProvider{}, tp)

		lc.RequireStart()
		lc.RequireStop()
	})

	t.Run("none", func(t *testing.T) {
		tp, err := NewTracerProvider(fxtest.NewLifecycle(t), Environment{OtelExporter: "none"})
		require.NoError(t, err)
		assert.IsType(t, noop.TracerProvider{}, tp)
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := NewTracerProvider(fxtest.NewLifecycle(t), Environment{OtelExporter: "xrayudp"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported BPROXY_OTEL_EXPORTER")
	})
}

func TestWithTracing(t *testing.T) {
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))

	var traced bool
	h := withTracing(tp, NewPropagator(), "test")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traced = trace.SpanContextFromContext(r.Context()).IsValid()
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/items/1", nil)
	req.Header.Set("Traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.True(t, traced)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	ended := spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "GET /items/1", ended[0].Name())
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", ended[0].SpanContext().TraceID().String())
}
