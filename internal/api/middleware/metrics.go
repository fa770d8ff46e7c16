package middleware

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// Metrics records HTTP server instruments, labelled by route pattern.
type Metrics struct {
	duration metric.Float64Histogram
	requests metric.Int64Counter
	inFlight metric.Int64UpDownCounter
	size     metric.Int64Histogram
}

// NewMetrics registers the HTTP server instruments on the global meter.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(instrumentationName)
	m := &Metrics{}
	var err error

	if m.duration, err = meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("Duration of HTTP server requests"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.requests, err = meter.Int64Counter("http.server.request.total",
		metric.WithDescription("HTTP server requests handled"),
		metric.WithUnit("{request}")); err != nil {
		return nil, err
	}
	if m.inFlight, err = meter.Int64UpDownCounter("http.server.active_requests",
		metric.WithDescription("HTTP server requests in progress"),
		metric.WithUnit("{request}")); err != nil {
		return nil, err
	}
	if m.size, err = meter.Int64Histogram("http.server.response.body.size",
		metric.WithDescription("Size of HTTP server response bodies"),
		metric.WithUnit("By")); err != nil {
		return nil, err
	}
	return m, nil
}

// Middleware records one observation per request.
func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			start := time.Now()

			active := metric.WithAttributes(semconv.HTTPRequestMethodKey.String(r.Method))
			m.inFlight.Add(ctx, 1, active)
			defer m.inFlight.Add(ctx, -1, active)

			rec := record(next, w, r)

			labels := metric.WithAttributes(
				semconv.HTTPRequestMethodKey.String(r.Method),
				semconv.HTTPRoute(routePattern(r)),
				semconv.HTTPResponseStatusCode(rec.status),
				attribute.Bool("error", rec.status >= http.StatusBadRequest),
			)
			m.duration.Record(ctx, time.Since(start).Seconds(), labels)
			m.requests.Add(ctx, 1, labels)
			m.size.Record(ctx, rec.bytes, labels)
		})
	}
}

// FetchMetrics records environment provider calls.
type FetchMetrics struct {
	duration metric.Float64Histogram
	calls    metric.Int64Counter
}

// NewFetchMetrics registers the provider instruments on the global meter.
func NewFetchMetrics() (*FetchMetrics, error) {
	meter := otel.Meter(instrumentationName)
	m := &FetchMetrics{}
	var err error

	if m.duration, err = meter.Float64Histogram("environment.fetch.duration",
		metric.WithDescription("Duration of environment provider calls"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.calls, err = meter.Int64Counter("environment.fetch.total",
		metric.WithDescription("Environment provider calls made"),
		metric.WithUnit("{call}")); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordRequest records one provider call and whether it failed.
func (m *FetchMetrics) RecordRequest(provider, operation string, duration time.Duration, err error) {
	labels := metric.WithAttributes(
		attribute.String("provider.name", provider),
		attribute.String("provider.operation", operation),
		attribute.Bool("error", err != nil),
	)

	// Fetches can outlive the request that triggered them.
	ctx := context.Background()
	m.duration.Record(ctx, duration.Seconds(), labels)
	m.calls.Add(ctx, 1, labels)
}
