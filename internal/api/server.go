// Package api hosts the HTTP server wrapping the huma API.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/cors"

	v1 "github.com/eval-hub/eval-hub/internal/api/handlers/v1"
	"github.com/eval-hub/eval-hub/internal/api/router"
	"github.com/eval-hub/eval-hub/internal/config"
	"github.com/eval-hub/eval-hub/internal/telemetry"
)

// TrailingSlashMiddleware redirects API requests with trailing slashes to
// their canonical form.
func TrailingSlashMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		isAPIRoute := strings.HasPrefix(r.URL.Path, "/api/v1/") ||
			r.URL.Path == "/health" ||
			r.URL.Path == "/metrics" ||
			strings.HasPrefix(r.URL.Path, "/docs")

		if isAPIRoute && r.URL.Path != "/" && strings.HasSuffix(r.URL.Path, "/") {
			newURL := *r.URL
			newURL.Path = strings.TrimSuffix(r.URL.Path, "/")

			// 308 preserves the request method.
			http.Redirect(w, r, newURL.String(), http.StatusPermanentRedirect)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Server is the eval-hub HTTP server.
type Server struct {
	config  *config.Config
	humaAPI huma.API
	mux     *http.ServeMux
	server  *http.Server
	log     *slog.Logger
}

// HumaAPI returns the huma API instance, allowing registration of extra
// routes.
func (s *Server) HumaAPI() huma.API {
	return s.humaAPI
}

// Mux returns the HTTP ServeMux, allowing registration of custom
// handlers.
func (s *Server) Mux() *http.ServeMux {
	return s.mux
}

// NewServer assembles the HTTP server: routes, CORS and the trailing
// slash redirect.
func NewServer(cfg *config.Config, svc router.Services, metrics *telemetry.Metrics, versionInfo *v1.VersionBody, log *slog.Logger) *Server {
	mux := http.NewServeMux()
	humaAPI := router.NewHumaAPI(svc, mux, metrics, versionInfo)

	// Permissive CORS; the API carries no credentials.
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Type", "Content-Length"},
		AllowCredentials: false,
		MaxAge:           86400,
	})

	handler := TrailingSlashMiddleware(corsHandler.Handler(mux))

	return &Server{
		config:  cfg,
		humaAPI: humaAPI,
		mux:     mux,
		log:     log,
		server: &http.Server{
			Addr:              cfg.ServerAddress,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start begins listening for incoming HTTP requests.
func (s *Server) Start() error {
	s.log.Info("HTTP server starting",
		"address", s.config.ServerAddress,
		"docs", "http://localhost"+s.config.ServerAddress+"/docs")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
