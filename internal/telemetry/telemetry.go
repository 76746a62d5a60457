// Package telemetry wires OpenTelemetry metrics through a Prometheus
// exporter so they can be scraped from /metrics.
package telemetry

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

const meterName = "github.com/eval-hub/eval-hub"

// Metrics bundles the instruments recorded by the HTTP middleware and the
// evaluation service.
type Metrics struct {
	Requests             metric.Int64Counter
	ErrorCount           metric.Int64Counter
	RequestDuration      metric.Float64Histogram
	EvaluationsStarted   metric.Int64Counter
	EvaluationsCompleted metric.Int64Counter

	registry *prometheus.Registry
}

// PrometheusHandler returns the scrape handler for the metrics registry.
func (m *Metrics) PrometheusHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// InitMetrics sets up the meter provider, registers the service metrics
// and the Go runtime instrumentation, and returns a shutdown function to
// flush the provider on exit.
func InitMetrics(version string) (func(context.Context) error, *Metrics, error) {
	registry := prometheus.NewRegistry()

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName("eval-hub"),
		semconv.ServiceVersion(version),
	))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build telemetry resource: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)

	if err := runtime.Start(runtime.WithMeterProvider(provider)); err != nil {
		return nil, nil, fmt.Errorf("failed to start runtime instrumentation: %w", err)
	}

	meter := provider.Meter(meterName)

	metrics := &Metrics{registry: registry}
	if metrics.Requests, err = meter.Int64Counter("eval_hub_requests",
		metric.WithDescription("Total HTTP requests handled")); err != nil {
		return nil, nil, err
	}
	if metrics.ErrorCount, err = meter.Int64Counter("eval_hub_request_errors",
		metric.WithDescription("HTTP requests answered with status >= 400")); err != nil {
		return nil, nil, err
	}
	if metrics.RequestDuration, err = meter.Float64Histogram("eval_hub_request_duration_seconds",
		metric.WithDescription("HTTP request latency in seconds"),
		metric.WithUnit("s")); err != nil {
		return nil, nil, err
	}
	if metrics.EvaluationsStarted, err = meter.Int64Counter("eval_hub_evaluations_started",
		metric.WithDescription("Individual evaluations accepted for execution")); err != nil {
		return nil, nil, err
	}
	if metrics.EvaluationsCompleted, err = meter.Int64Counter("eval_hub_evaluations_completed",
		metric.WithDescription("Individual evaluations that reached a terminal status")); err != nil {
		return nil, nil, err
	}

	return provider.Shutdown, metrics, nil
}
