// Package app wires the eval-hub service together and runs it until a
// shutdown signal arrives.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/eval-hub/eval-hub/internal/api"
	v1 "github.com/eval-hub/eval-hub/internal/api/handlers/v1"
	"github.com/eval-hub/eval-hub/internal/api/router"
	"github.com/eval-hub/eval-hub/internal/config"
	"github.com/eval-hub/eval-hub/internal/envservers"
	"github.com/eval-hub/eval-hub/internal/mcp/hubserver"
	"github.com/eval-hub/eval-hub/internal/providers"
	"github.com/eval-hub/eval-hub/internal/runtime"
	"github.com/eval-hub/eval-hub/internal/runtime/kubernetes"
	"github.com/eval-hub/eval-hub/internal/runtime/local"
	"github.com/eval-hub/eval-hub/internal/service"
	"github.com/eval-hub/eval-hub/internal/storage"
	"github.com/eval-hub/eval-hub/internal/telemetry"
	"github.com/eval-hub/eval-hub/internal/tracking"
	"github.com/eval-hub/eval-hub/internal/version"
)

// App builds every component from configuration, starts the HTTP server
// (plus the optional MCP listener) and blocks until SIGINT or SIGTERM.
func App(_ context.Context) error {
	cfg := config.NewConfig()
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	logLevel := slog.LevelInfo
	if cfg.Verbose {
		logLevel = slog.LevelDebug
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)

	log.Info("starting eval-hub",
		"version", version.Version,
		"commit", version.GitCommit,
		"runtime", cfg.Runtime)

	shutdownTelemetry, metrics, err := telemetry.InitMetrics(cfg.Version)
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			log.Error("failed to shutdown telemetry", "error", err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := storage.New(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	catalog, err := providers.Load(cfg.ProvidersDir, log)
	if err != nil {
		return fmt.Errorf("failed to load provider catalog: %w", err)
	}

	models := service.NewModelService(envservers.New(log), log)

	tracker := tracking.NewClient(cfg.MLflowTrackingURI, cfg.MLflowUIURL, log)
	if tracker.Enabled() {
		log.Info("MLflow tracking enabled", "tracking_uri", cfg.MLflowTrackingURI)
	}

	rt, err := newRuntime(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize %s runtime: %w", cfg.Runtime, err)
	}

	evaluations := service.NewEvaluationService(
		store, catalog, models, tracker, rt, metrics, callbackBaseURL(cfg), log)

	versionInfo := &v1.VersionBody{
		Version:   version.Version,
		GitCommit: version.GitCommit,
		BuildTime: version.BuildDate,
	}

	server := api.NewServer(cfg, router.Services{
		Models:      models,
		Evaluations: evaluations,
		Catalog:     catalog,
	}, metrics, versionInfo, log)

	var mcpHTTPServer *http.Server
	if cfg.MCPPort > 0 {
		mcpServer := hubserver.NewServer(models, evaluations, catalog)
		handler := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
			return mcpServer
		}, &mcp.StreamableHTTPOptions{})

		addr := ":" + strconv.Itoa(int(cfg.MCPPort))
		mcpHTTPServer = &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			log.Info("MCP HTTP server starting", "address", addr)
			if err := mcpHTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("failed to start MCP server", "error", err)
				os.Exit(1)
			}
		}()
	}

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	sctx, scancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer scancel()

	if err := server.Shutdown(sctx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	if mcpHTTPServer != nil {
		if err := mcpHTTPServer.Shutdown(sctx); err != nil {
			log.Error("MCP server forced to shutdown", "error", err)
		}
	}

	log.Info("server exiting")
	return nil
}

func newRuntime(cfg *config.Config, log *slog.Logger) (runtime.Runtime, error) {
	switch cfg.Runtime {
	case config.RuntimeKubernetes:
		return kubernetes.New(cfg.JobNamespace, log)
	default:
		return local.New(log), nil
	}
}

// callbackBaseURL derives the address adapters post status events to.
// When unconfigured it falls back to the listen address on localhost,
// which suits the local runtime.
func callbackBaseURL(cfg *config.Config) string {
	if cfg.CallbackBaseURL != "" {
		return strings.TrimRight(cfg.CallbackBaseURL, "/")
	}
	return "http://localhost" + cfg.ServerAddress
}
