package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/grocerycompare/price-service/internal/metrics"
)

// Metrics records request counts and latencies by route template, both
// on the Prometheus recorder and on the global OpenTelemetry meter
// provider.
func Metrics(m *metrics.Recorder) gin.HandlerFunc {
	meter := otel.Meter(tracerName)
	requests, err := meter.Int64Counter("http.server.request.count",
		metric.WithDescription("Number of HTTP requests served"),
		metric.WithUnit("{request}"))
	if err != nil {
		otel.Handle(err)
	}
	latency, err := meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("Duration of HTTP requests"),
		metric.WithUnit("s"))
	if err != nil {
		otel.Handle(err)
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		m.RecordHTTPRequest(c.Request.Method, route, strconv.Itoa(status), elapsed)

		attrs := metric.WithAttributes(
			attribute.String("http.request.method", c.Request.Method),
			attribute.String("http.route", route),
			attribute.Int("http.response.status_code", status),
		)
		ctx := c.Request.Context()
		requests.Add(ctx, 1, attrs)
		latency.Record(ctx, elapsed.Seconds(), attrs)
	}
}
