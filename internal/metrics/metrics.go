// Package metrics holds the Prometheus collectors of the journal service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Journal metrics
	Captures           *prometheus.CounterVec
	EnrichmentCalls    *prometheus.CounterVec
	ExternalCalls      *prometheus.CounterVec
	TagReconciliations *prometheus.CounterVec
}

// NewCollector creates a collector with its own registry.
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		Captures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "captures_total",
				Help:      "Page visits captured, by outcome",
			},
			[]string{"result"},
		),
		EnrichmentCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "enrichment_calls_total",
				Help:      "Language model tasks, by kind and outcome",
			},
			[]string{"kind", "result"},
		),
		ExternalCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "external_calls_total",
				Help:      "Guarded external service calls, by service and outcome",
			},
			[]string{"service", "result"},
		),
		TagReconciliations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tag_reconciliations_total",
				Help:      "Tag ledger deltas applied, by direction",
			},
			[]string{"direction"},
		),
	}

	c.registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.Captures,
		c.EnrichmentCalls,
		c.ExternalCalls,
		c.TagReconciliations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records one finished request.
func (c *Collector) ObserveHTTP(method, route string, status int, d time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, statusText(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveCapture records a capture outcome: created, updated or skipped.
func (c *Collector) ObserveCapture(result string) {
	c.Captures.WithLabelValues(result).Inc()
}

// ObserveEnrichment records one language model task.
func (c *Collector) ObserveEnrichment(kind string, ok bool) {
	result := "success"
	if !ok {
		result = "fallback"
	}
	c.EnrichmentCalls.WithLabelValues(kind, result).Inc()
}

// ObserveExternal implements breaker.Recorder.
func (c *Collector) ObserveExternal(service, result string) {
	c.ExternalCalls.WithLabelValues(service, result).Inc()
}

// ObserveReconcile records ledger deltas.
func (c *Collector) ObserveReconcile(removed, added int) {
	if removed > 0 {
		c.TagReconciliations.WithLabelValues("decrement").Add(float64(removed))
	}
	if added > 0 {
		c.TagReconciliations.WithLabelValues("increment").Add(float64(added))
	}
}

func statusText(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
