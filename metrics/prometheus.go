package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder exports wallet session counters and latencies.
type PrometheusRecorder struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

// NewPrometheusRecorder registers the collectors on the given registerer
// (prometheus.DefaultRegisterer when nil).
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	operations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "walletsession",
			Name:      "operations_total",
			Help:      "Wallet session operations by outcome",
		},
		[]string{"operation", "provider", "status"},
	)

	latency := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "walletsession",
			Name:      "operation_latency_seconds",
			Help:      "Wallet session operation latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation", "provider"},
	)

	reg.MustRegister(operations, latency)

	return &PrometheusRecorder{operations: operations, latency: latency}
}

func (p *PrometheusRecorder) IncOperation(operation, provider, status string) {
	p.operations.WithLabelValues(operation, provider, status).Inc()
}

func (p *PrometheusRecorder) ObserveLatency(operation, provider string, d time.Duration) {
	p.latency.WithLabelValues(operation, provider).Observe(d.Seconds())
}
