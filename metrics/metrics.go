// Package metrics counts auth outcomes with Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	gk "github.com/panyam/grovekeep"
)

// Recorder implements grovekeep.Recorder
type Recorder struct {
	outcomes *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewRecorder registers the grovekeep collectors with reg
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		outcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "grovekeep",
				Name:      "auth_outcomes_total",
				Help:      "Auth operations by outcome",
			},
			[]string{"outcome"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "grovekeep",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "code"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "grovekeep",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"method", "code"},
		),
	}
}

func (r *Recorder) Observe(outcome gk.Outcome) {
	r.outcomes.WithLabelValues(string(outcome)).Inc()
}

// InstrumentHandler counts requests and their latency by method and status code
func (r *Recorder) InstrumentHandler(next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerCounter(r.httpRequests,
		promhttp.InstrumentHandlerDuration(r.httpDuration, next))
}

// Handler serves the metrics gathered by g
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{Timeout: 10 * time.Second})
}
