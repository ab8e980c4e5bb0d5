// Package metrics exposes service measurements in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"coconut-erp/internal/core"
)

// Collector implements core.MetricsCollector on its own registry.
type Collector struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	errors     *prometheus.CounterVec
}

var _ core.MetricsCollector = (*Collector)(nil)

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "erp_operations_total",
				Help: "Service operations by outcome",
			},
			[]string{"service", "operation", "outcome"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "erp_operation_duration_seconds",
				Help:    "Service operation duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
			},
			[]string{"service", "operation"},
		),
		errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "erp_errors_total",
				Help: "Errors by application error code",
			},
			[]string{"code"},
		),
	}
}

func (c *Collector) RecordOperation(service, operation, outcome string, seconds float64) {
	c.operations.WithLabelValues(service, operation, outcome).Inc()
	c.latency.WithLabelValues(service, operation).Observe(seconds)
}

func (c *Collector) IncrementErrorCounter(code string) {
	c.errors.WithLabelValues(code).Inc()
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry at /metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
