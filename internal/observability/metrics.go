// Package observability wires the Prometheus instruments the service
// exports on /metrics.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	processed *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payments_processed_total",
			Help: "Purchase requests reaching a terminal decision, by status.",
		}, []string{"status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "payments_processing_duration_seconds",
			Help:    "Time spent settling a purchase request.",
			Buckets: prometheus.DefBuckets,
		}, []string{"status"}),
	}

	reg.MustRegister(m.processed, m.duration)
	return m
}

// ObserveProcessed records one processed purchase. Status is the
// terminal settlement status, "recalled" for idempotent replays, or
// "error" for infrastructure faults.
func (m *Metrics) ObserveProcessed(status string, elapsed time.Duration) {
	m.processed.WithLabelValues(status).Inc()
	m.duration.WithLabelValues(status).Observe(elapsed.Seconds())
}
