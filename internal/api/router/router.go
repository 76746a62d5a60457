// Package router assembles the huma API: routes, telemetry middleware,
// the Prometheus scrape endpoint and the fallback 404 handler.
package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	v1 "github.com/eval-hub/eval-hub/internal/api/handlers/v1"
	"github.com/eval-hub/eval-hub/internal/providers"
	"github.com/eval-hub/eval-hub/internal/service"
	"github.com/eval-hub/eval-hub/internal/telemetry"
)

// Middleware configuration options
type middlewareConfig struct {
	skipPaths map[string]bool
}

type MiddlewareOption func(*middlewareConfig)

// WithSkipPaths skips instrumentation for specific paths.
func WithSkipPaths(paths ...string) MiddlewareOption {
	return func(c *middlewareConfig) {
		for _, path := range paths {
			c.skipPaths[path] = true
		}
	}
}

// getRoutePath extracts the route pattern from the context so metrics
// aggregate per route rather than per path-parameter value.
func getRoutePath(ctx huma.Context) string {
	if op := ctx.Operation().Path; op != "" {
		return op
	}
	return ctx.URL().Path
}

// MetricTelemetryMiddleware records request count, error count and
// latency for every handled request.
func MetricTelemetryMiddleware(metrics *telemetry.Metrics, options ...MiddlewareOption) func(huma.Context, func(huma.Context)) {
	config := &middlewareConfig{
		skipPaths: make(map[string]bool),
	}
	for _, opt := range options {
		opt(config)
	}

	return func(ctx huma.Context, next func(huma.Context)) {
		path := ctx.URL().Path
		if config.skipPaths[path] {
			next(ctx)
			return
		}

		start := time.Now()
		method := ctx.Method()
		routePath := getRoutePath(ctx)

		next(ctx)

		duration := time.Since(start).Seconds()
		statusCode := ctx.Status()

		attrs := []attribute.KeyValue{
			attribute.String("method", method),
			attribute.String("path", routePath),
			attribute.Int("status_code", statusCode),
		}

		metrics.Requests.Add(ctx.Context(), 1, metric.WithAttributes(attrs...))
		if statusCode >= 400 {
			metrics.ErrorCount.Add(ctx.Context(), 1, metric.WithAttributes(attrs...))
		}
		metrics.RequestDuration.Record(ctx.Context(), duration, metric.WithAttributes(attrs...))
	}
}

// handle404 answers unknown paths with a problem+json body pointing at
// the docs, suggesting the /api/v1 prefix for bare paths.
func handle404(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(http.StatusNotFound)

	path := r.URL.Path
	detail := "Endpoint not found. See /docs for the API documentation."
	if !strings.HasPrefix(path, "/api/v1/") {
		detail = fmt.Sprintf(
			"Endpoint not found. Did you mean '%s'? See /docs for the API documentation.",
			"/api/v1"+path,
		)
	}

	errorBody := map[string]any{
		"title":  "Not Found",
		"status": 404,
		"detail": detail,
	}
	jsonData, err := json.Marshal(errorBody)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if _, err := w.Write(jsonData); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// Services groups the dependencies the routes are registered against.
type Services struct {
	Models      *service.ModelService
	Evaluations *service.EvaluationService
	Catalog     *providers.Catalog
}

// NewHumaAPI creates the huma API with all routes registered on mux.
func NewHumaAPI(svc Services, mux *http.ServeMux, metrics *telemetry.Metrics, versionInfo *v1.VersionBody) huma.API {
	humaConfig := huma.DefaultConfig("Eval Hub", versionInfo.Version)
	humaConfig.Info.Description = "Coordinates evaluation runs of machine-learning models against benchmark suites executed by pluggable backends."
	// Disable $schema property in responses: https://github.com/danielgtaylor/huma/issues/230
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}

	humaAPI := humago.New(mux, humaConfig)

	humaAPI.OpenAPI().Tags = []*huma.Tag{
		{
			Name:        "model-servers",
			Description: "Operations for registering and discovering model servers",
		},
		{
			Name:        "evaluations",
			Description: "Operations for creating and tracking evaluation jobs",
		},
		{
			Name:        "providers",
			Description: "Read-only views of the evaluation provider and benchmark catalog",
		},
		{
			Name:        "health",
			Description: "Health check endpoint for monitoring service availability",
		},
		{
			Name:        "version",
			Description: "Version information endpoint for retrieving build details",
		},
	}

	humaAPI.UseMiddleware(MetricTelemetryMiddleware(metrics,
		WithSkipPaths("/health", "/metrics", "/docs"),
	))

	v1.RegisterModelServerEndpoints(humaAPI, svc.Models)
	v1.RegisterEvaluationEndpoints(humaAPI, svc.Evaluations)
	v1.RegisterProviderEndpoints(humaAPI, svc.Catalog)
	v1.RegisterHealthEndpoint(humaAPI)
	v1.RegisterVersionEndpoint(humaAPI, versionInfo)

	mux.Handle("/metrics", metrics.PrometheusHandler())

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			http.Redirect(w, r, "/docs", http.StatusTemporaryRedirect)
			return
		}
		handle404(w, r)
	})

	return humaAPI
}
