package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// VersionBody carries build metadata.
type VersionBody struct {
	Version   string `json:"version" example:"1.0.0"`
	GitCommit string `json:"git_commit" example:"a1b2c3d"`
	BuildTime string `json:"build_time" example:"2025-09-01T12:00:00Z"`
}

// RegisterVersionEndpoint registers the version information endpoint.
func RegisterVersionEndpoint(humaAPI huma.API, versionInfo *VersionBody) {
	huma.Register(humaAPI, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/v1/version",
		Summary:     "Version information",
		Description: "Get the build version, git commit and build timestamp",
		Tags:        []string{"version"},
	}, func(_ context.Context, _ *struct{}) (*Response[VersionBody], error) {
		return &Response[VersionBody]{Body: *versionInfo}, nil
	})
}
