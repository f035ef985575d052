package middleware

import (
	"time"

	"github.com/coridor/backend/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	attrHTTPMethod     = attribute.Key("http.method")
	attrHTTPRoute      = attribute.Key("http.route")
	attrHTTPStatusCode = attribute.Key("http.status_code")
)

// HTTPObserver receives one observation per served request. The
// Prometheus registry implements it.
type HTTPObserver interface {
	ObserveHTTP(method, route string, status int, d time.Duration)
}

type httpMetrics struct {
	requests *telemetry.Counter
	duration *telemetry.Histogram
	active   metric.Int64UpDownCounter
}

func newHTTPMetrics(meter metric.Meter) (*httpMetrics, error) {
	requests, err := telemetry.NewCounter(meter, "http_server_request_total", "Total number of HTTP requests", "{request}")
	if err != nil {
		return nil, err
	}
	duration, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_request_duration_seconds",
		Description: "HTTP request latency distribution in seconds",
		Unit:        "s",
		Boundaries:  telemetry.HTTPDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	active, err := meter.Int64UpDownCounter("http_server_active_requests",
		metric.WithDescription("Number of in-flight HTTP requests"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}
	return &httpMetrics{requests: requests, duration: duration, active: active}, nil
}

// HTTPMetrics records request counts and latency by route template. meter
// feeds the OTLP pipeline and observer the /metrics scrape; either may be
// nil. Instrument creation errors disable the OTLP side only.
func HTTPMetrics(meter metric.Meter, observer HTTPObserver) gin.HandlerFunc {
	var m *httpMetrics
	if meter != nil {
		m, _ = newHTTPMetrics(meter)
	}
	if m == nil && observer == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		if m != nil {
			m.active.Add(ctx, 1)
		}

		c.Next()

		elapsed := time.Since(start)
		route := c.FullPath()
		method := c.Request.Method
		status := c.Writer.Status()

		if m != nil {
			m.active.Add(ctx, -1)
			m.requests.Inc(ctx,
				attrHTTPMethod.String(method),
				attrHTTPRoute.String(routeOrUnmatched(route)),
				attrHTTPStatusCode.Int(status),
			)
			m.duration.RecordDuration(ctx, elapsed,
				attrHTTPMethod.String(method),
				attrHTTPRoute.String(routeOrUnmatched(route)),
			)
		}
		if observer != nil {
			observer.ObserveHTTP(method, route, status, elapsed)
		}
	}
}

func routeOrUnmatched(route string) string {
	if route == "" {
		return "unmatched"
	}
	return route
}
