// Package hubserver exposes read-only eval-hub discovery tools over the
// Model Context Protocol, so agents can inspect model servers, the
// provider catalog and evaluation jobs without the REST API.
package hubserver

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/eval-hub/eval-hub/internal/providers"
	"github.com/eval-hub/eval-hub/internal/service"
	"github.com/eval-hub/eval-hub/internal/version"
	"github.com/eval-hub/eval-hub/pkg/api"
)

const (
	defaultListLimit = 30
	maxListLimit     = 100
)

// NewServer constructs an MCP server backed by the hub services. Every
// tool is read-only; mutations stay on the REST surface.
func NewServer(models *service.ModelService, evaluations *service.EvaluationService, catalog *providers.Catalog) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "eval-hub-mcp",
		Version: version.Version,
	}, &mcp.ServerOptions{
		HasTools: true,
	})

	addModelServerTools(server, models)
	addProviderTools(server, catalog)
	addEvaluationTools(server, evaluations)
	addMetaTools(server)

	return server
}

func addModelServerTools(server *mcp.Server, models *service.ModelService) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_model_servers",
		Description: "List registered and runtime model servers",
	}, func(_ context.Context, _ *mcp.CallToolRequest, args struct {
		IncludeInactive bool `json:"include_inactive,omitempty"`
	}) (*mcp.CallToolResult, api.ListModelServersResponse, error) {
		return nil, *models.ListServers(args.IncludeInactive), nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_model_server",
		Description: "Fetch one model server by ID",
	}, func(_ context.Context, _ *mcp.CallToolRequest, args struct {
		ServerID string `json:"server_id"`
	}) (*mcp.CallToolResult, api.ModelServer, error) {
		if args.ServerID == "" {
			return nil, api.ModelServer{}, fmt.Errorf("server_id is required")
		}
		server, err := models.GetServer(args.ServerID)
		if err != nil {
			return nil, api.ModelServer{}, err
		}
		return nil, *server, nil
	})
}

func addProviderTools(server *mcp.Server, catalog *providers.Catalog) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_providers",
		Description: "List evaluation providers and their benchmarks",
	}, func(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, api.ProviderResourceList, error) {
		items := catalog.Providers()
		return nil, api.ProviderResourceList{TotalCount: len(items), Items: items}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_provider",
		Description: "Fetch one evaluation provider by ID",
	}, func(_ context.Context, _ *mcp.CallToolRequest, args struct {
		ProviderID string `json:"provider_id"`
	}) (*mcp.CallToolResult, api.ProviderResource, error) {
		if args.ProviderID == "" {
			return nil, api.ProviderResource{}, fmt.Errorf("provider_id is required")
		}
		provider, ok := catalog.Get(args.ProviderID)
		if !ok {
			return nil, api.ProviderResource{}, fmt.Errorf("provider not found: %s", args.ProviderID)
		}
		return nil, *provider, nil
	})
}

func addEvaluationTools(server *mcp.Server, evaluations *service.EvaluationService) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_evaluations",
		Description: "List evaluation jobs, newest first",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args struct {
		Limit int `json:"limit,omitempty"`
	}) (*mcp.CallToolResult, api.EvaluationJobList, error) {
		list, err := evaluations.ListEvaluations(ctx, clampLimit(args.Limit))
		if err != nil {
			return nil, api.EvaluationJobList{}, err
		}
		return nil, *list, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_evaluation",
		Description: "Fetch an evaluation job with its per-benchmark results and derived overall status",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args struct {
		JobID string `json:"job_id"`
	}) (*mcp.CallToolResult, api.EvaluationResponse, error) {
		jobID, err := uuid.Parse(args.JobID)
		if err != nil {
			return nil, api.EvaluationResponse{}, fmt.Errorf("invalid job_id: %w", err)
		}
		response, err := evaluations.GetEvaluation(ctx, jobID)
		if err != nil {
			return nil, api.EvaluationResponse{}, err
		}
		return nil, *response, nil
	})
}

func addMetaTools(server *mcp.Server) {
	type versionResult struct {
		Version   string `json:"version"`
		GitCommit string `json:"git_commit"`
		BuildDate string `json:"build_date"`
	}
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_version",
		Description: "Report the eval-hub build version",
	}, func(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, versionResult, error) {
		return nil, versionResult{
			Version:   version.Version,
			GitCommit: version.GitCommit,
			BuildDate: version.BuildDate,
		}, nil
	})
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultListLimit
	case limit > maxListLimit:
		return maxListLimit
	default:
		return limit
	}
}
