// Package monitoring exposes Prometheus metrics for the virtual filesystem
// core: operation throughput and latency per backend, plus eviction volume.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors.
type Metrics struct {
	OpsTotal    *prometheus.CounterVec
	OpDuration  *prometheus.HistogramVec
	OpErrors    *prometheus.CounterVec
	Evictions   prometheus.Counter
	EvictedSize prometheus.Counter
}

// NewMetrics creates and registers the collectors on the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		OpsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentfs_operations_total",
				Help: "Total file operations by backend and operation",
			},
			[]string{"backend", "op"},
		),
		OpDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agentfs_operation_duration_seconds",
				Help:    "File operation latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"backend", "op"},
		),
		OpErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentfs_operation_errors_total",
				Help: "Operations that returned an agent-facing error",
			},
			[]string{"backend", "op"},
		),
		Evictions: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "agentfs_evictions_total",
				Help: "Tool results relocated to /large_tool_results/",
			},
		),
		EvictedSize: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "agentfs_evicted_bytes_total",
				Help: "Bytes of tool output relocated by eviction",
			},
		),
	}
}

// ObserveOp records one completed operation.
func (m *Metrics) ObserveOp(backend, op string, start time.Time, failed bool) {
	m.OpsTotal.WithLabelValues(backend, op).Inc()
	m.OpDuration.WithLabelValues(backend, op).Observe(time.Since(start).Seconds())
	if failed {
		m.OpErrors.WithLabelValues(backend, op).Inc()
	}
}

// ObserveEviction records one relocated tool result.
func (m *Metrics) ObserveEviction(bytes int) {
	m.Evictions.Inc()
	m.EvictedSize.Add(float64(bytes))
}
