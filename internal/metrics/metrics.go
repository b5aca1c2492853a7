// Package metrics exposes Prometheus collectors for workflow progress and
// engine activity.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	global *Metrics
	once   sync.Once
)

// Metrics holds the process-wide collectors.
//
//   - phasegate_workflow_phase_progress{phase_type} - last computed workflow metric
//   - phasegate_operations_total{operation,outcome} - engine mutations
//   - phasegate_webhook_deliveries_total{outcome} - notifier POSTs
//   - phasegate_http_requests_total{method,status} - API requests
type Metrics struct {
	PhaseProgress      *prometheus.GaugeVec
	Operations         *prometheus.CounterVec
	WebhookDeliveries  *prometheus.CounterVec
	HTTPRequests       *prometheus.CounterVec
	HTTPRequestSeconds *prometheus.HistogramVec
}

// Default registers the collectors once on the default registry.
func Default() *Metrics {
	once.Do(func() {
		global = &Metrics{
			PhaseProgress: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "phasegate_workflow_phase_progress",
					Help: "Mean three-point progress per phase type across all projects",
				},
				[]string{"phase_type"},
			),
			Operations: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "phasegate_operations_total",
					Help: "Engine operations by name and outcome",
				},
				[]string{"operation", "outcome"},
			),
			WebhookDeliveries: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "phasegate_webhook_deliveries_total",
					Help: "Webhook deliveries by outcome",
				},
				[]string{"outcome"},
			),
			HTTPRequests: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "phasegate_http_requests_total",
					Help: "HTTP requests by method and status code",
				},
				[]string{"method", "status"},
			),
			HTTPRequestSeconds: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "phasegate_http_request_duration_seconds",
					Help:    "HTTP request latency",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"method"},
			),
		}
	})
	return global
}

// Observe records the outcome of an engine operation.
func (m *Metrics) Observe(operation string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Operations.WithLabelValues(operation, outcome).Inc()
}

// SetPhaseProgress publishes one workflow-metrics bucket.
func (m *Metrics) SetPhaseProgress(phaseType string, value int) {
	if m == nil {
		return
	}
	m.PhaseProgress.WithLabelValues(phaseType).Set(float64(value))
}
