// Package metrics exposes Prometheus collectors for calculation traffic.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "apheresis"

// Calculation kinds used as label values.
const (
	KindBloodVolume = "blood_volume"
	KindCollection  = "collection"
	KindDoseVials   = "dose_vials"
	KindPlan        = "cryopreservation_plan"
)

// Calculation outcomes used as label values.
const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

// Recorder owns a dedicated registry so tests and multiple app instances do
// not collide on the global one.
type Recorder struct {
	registry     *prometheus.Registry
	calculations *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	rateLimited  prometheus.Counter
}

// New registers the collectors on a fresh registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		calculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calculations_total",
			Help:      "Calculations served, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "calculation_duration_seconds",
			Help:      "Time spent computing a calculation.",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01},
		}, []string{"kind"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_requests_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
	}

	r.registry.MustRegister(
		r.calculations,
		r.duration,
		r.rateLimited,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveCalculation records one calculation. A nil Recorder is a no-op.
func (r *Recorder) ObserveCalculation(kind, outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.calculations.WithLabelValues(kind, outcome).Inc()
	r.duration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// RateLimited counts a rejected request. A nil Recorder is a no-op.
func (r *Recorder) RateLimited() {
	if r == nil {
		return
	}
	r.rateLimited.Inc()
}

// Calculations returns the counter for kind and outcome.
func (r *Recorder) Calculations(kind, outcome string) prometheus.Counter {
	return r.calculations.WithLabelValues(kind, outcome)
}

// RateLimitedRequests returns the rejected request counter.
func (r *Recorder) RateLimitedRequests() prometheus.Counter {
	return r.rateLimited
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
