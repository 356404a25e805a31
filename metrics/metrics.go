// Package metrics exposes engine lifecycle events as Prometheus metrics.
package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/advdv/bcycle"
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultBuckets are the response duration buckets, in seconds.
var DefaultBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// Observer is a [bcycle.Observer] that records:
//   - bcycle_requests_received_total
//   - bcycle_responses_total by method, route, code and variety
//   - bcycle_response_duration_seconds by method and route
//   - bcycle_internal_errors_total by route
//   - bcycle_tails_drained_total
//   - bcycle_requests_in_flight, requests that were received but did not drain yet
type Observer struct {
	received  prometheus.Counter
	responses *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	internal  *prometheus.CounterVec
	drained   prometheus.Counter
	inFlight  prometheus.Gauge
}

// NewObserver creates the metrics and registers them with reg.
func NewObserver(reg prometheus.Registerer) (*Observer, error) {
	obs := &Observer{
		received: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bcycle",
			Name:      "requests_received_total",
			Help:      "Total number of requests that entered the lifecycle.",
		}),
		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bcycle",
			Name:      "responses_total",
			Help:      "Total number of responses that were sent.",
		}, []string{"method", "route", "code", "variety"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bcycle",
			Name:      "response_duration_seconds",
			Help:      "Time between receiving a request and sending its response.",
			Buckets:   DefaultBuckets,
		}, []string{"method", "route"}),
		internal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bcycle",
			Name:      "internal_errors_total",
			Help:      "Total number of requests that replied with an internal server error.",
		}, []string{"route"}),
		drained: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bcycle",
			Name:      "tails_drained_total",
			Help:      "Total number of requests that replied and completed all their tails.",
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bcycle",
			Name:      "requests_in_flight",
			Help:      "Number of requests that were received but did not drain yet.",
		}),
	}

	for _, c := range []prometheus.Collector{
		obs.received, obs.responses, obs.duration, obs.internal, obs.drained, obs.inFlight,
	} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "failed to register collector")
		}
	}

	return obs, nil
}

// Observe implements [bcycle.Observer].
func (o *Observer) Observe(ev bcycle.Event) {
	r := ev.Request()

	switch ev := ev.(type) {
	case bcycle.RequestReceived:
		o.received.Inc()
		o.inFlight.Inc()
	case bcycle.ResponseSent:
		if ev.Response == nil {
			return
		}

		method, route := strings.ToUpper(r.Method), r.Route().Settings.Path
		o.responses.WithLabelValues(
			method, route, strconv.Itoa(ev.Response.StatusCode()), string(ev.Response.Variety()),
		).Inc()
		o.duration.WithLabelValues(method, route).Observe(time.Since(r.Info.Received).Seconds())
	case bcycle.InternalError:
		o.internal.WithLabelValues(r.Route().Settings.Path).Inc()
	case bcycle.TailDrained:
		o.drained.Inc()
		o.inFlight.Dec()
	}
}

var _ bcycle.Observer = &Observer{}
