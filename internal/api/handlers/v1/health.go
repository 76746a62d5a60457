package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/eval-hub/eval-hub/pkg/api"
)

// RegisterHealthEndpoint registers the liveness endpoint, served outside
// the /api/v1 prefix so probes stay stable across API versions.
func RegisterHealthEndpoint(humaAPI huma.API) {
	huma.Register(humaAPI, huma.Operation{
		OperationID: "get-health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Report service liveness",
		Tags:        []string{"health"},
	}, func(_ context.Context, _ *struct{}) (*Response[api.HealthResponse], error) {
		return &Response[api.HealthResponse]{
			Body: api.HealthResponse{
				Status:    api.StatusHealthy,
				Timestamp: time.Now().UTC(),
			},
		}, nil
	})
}
