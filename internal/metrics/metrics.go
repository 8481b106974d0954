// Package metrics exposes Prometheus collectors for generation and health
// probe telemetry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels successful generation attempts.
	OutcomeSuccess = "success"
	// OutcomeError labels failed generation attempts.
	OutcomeError = "error"
)

var (
	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "parlaygen",
			Name:      "generations_total",
			Help:      "Total generation attempts, partitioned by backend and outcome.",
		},
		[]string{"backend", "outcome"},
	)

	generationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "parlaygen",
			Name:      "generation_seconds",
			Help:      "Generation attempt latency in seconds.",
			Buckets:   []float64{0.5, 1, 2, 4, 8, 15, 30, 60, 120},
		},
		[]string{"backend"},
	)

	fallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "parlaygen",
			Name:      "fallbacks_total",
			Help:      "Requests served by a fallback backend, partitioned by the backend that answered.",
		},
		[]string{"backend"},
	)

	rateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "parlaygen",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		},
	)

	probeFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "parlaygen",
			Name:      "probe_failures_total",
			Help:      "Failed health probes, partitioned by backend.",
		},
		[]string{"backend"},
	)
)

// Register attaches parlaygen collectors to the supplied registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		generationsTotal,
		generationSeconds,
		fallbacksTotal,
		rateLimitedTotal,
		probeFailuresTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveGeneration records one generation attempt.
func ObserveGeneration(backend string, duration time.Duration, outcome string) {
	if outcome != OutcomeError {
		outcome = OutcomeSuccess
	}
	generationsTotal.WithLabelValues(backend, outcome).Inc()
	generationSeconds.WithLabelValues(backend).Observe(duration.Seconds())
}

// IncFallback records a request answered by a fallback backend.
func IncFallback(backend string) {
	fallbacksTotal.WithLabelValues(backend).Inc()
}

// IncRateLimited records a request rejected by the rate limiter.
func IncRateLimited() {
	rateLimitedTotal.Inc()
}

// IncProbeFailure records a failed health probe.
func IncProbeFailure(backend string) {
	probeFailuresTotal.WithLabelValues(backend).Inc()
}
