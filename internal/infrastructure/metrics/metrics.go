// Package metrics exposes Prometheus counters scraped from /metrics: HTTP
// requests and outbox deliveries.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricPrefix = "coridor_"

// Delivery results.
const (
	ResultDelivered = "delivered"
	ResultRetry     = "retry"
	ResultDead      = "dead"
)

// Registry owns a Prometheus registry and the service collectors.
type Registry struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
	deliveries   *prometheus.CounterVec
}

// New creates a registry with the Go and process collectors plus the
// service counters.
func New() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		httpLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		deliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "outbox_deliveries_total",
				Help: "Outbox delivery attempts by event type and result",
			},
			[]string{"event_type", "result"},
		),
	}
	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.httpRequests,
		r.httpLatency,
		r.deliveries,
	)
	return r
}

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Gatherer exposes the registry for tests and custom exporters.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// ObserveHTTP records one served request. route is the matched route
// template, or "unmatched".
func (r *Registry) ObserveHTTP(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpLatency.WithLabelValues(method, route).Observe(d.Seconds())
}

// EventDelivered counts a successful outbox delivery.
func (r *Registry) EventDelivered(_ context.Context, eventType string) {
	r.deliveries.WithLabelValues(eventType, ResultDelivered).Inc()
}

// EventFailed counts a failed outbox delivery. dead reports that the entry
// exhausted its retries.
func (r *Registry) EventFailed(_ context.Context, eventType string, dead bool) {
	result := ResultRetry
	if dead {
		result = ResultDead
	}
	r.deliveries.WithLabelValues(eventType, result).Inc()
}
