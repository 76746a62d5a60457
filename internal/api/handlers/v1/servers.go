package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/eval-hub/eval-hub/internal/service"
	"github.com/eval-hub/eval-hub/pkg/api"
)

// RegisterServerInput wraps the registration payload.
type RegisterServerInput struct {
	Body api.ModelServerRegistrationRequest
}

// ListServersInput holds the query parameters for listing model servers.
type ListServersInput struct {
	IncludeInactive bool `query:"include_inactive" doc:"Include inactive registered servers" default:"false"`
}

// ServerDetailInput identifies one model server.
type ServerDetailInput struct {
	ServerID string `path:"serverId" doc:"Model server identifier" example:"vllm-prod"`
}

// UpdateServerInput carries a partial update for a registered server.
type UpdateServerInput struct {
	ServerID string `path:"serverId" doc:"Model server identifier" example:"vllm-prod"`
	Body     api.ModelServerUpdateRequest
}

// ModelDetailInput identifies one model on one server.
type ModelDetailInput struct {
	ServerID  string `path:"serverId" doc:"Model server identifier" example:"vllm-prod"`
	ModelName string `path:"modelName" doc:"Model name on the server" example:"granite-3.1-8b-instruct"`
}

// RegisterModelServerEndpoints registers the model server registry
// endpoints.
func RegisterModelServerEndpoints(humaAPI huma.API, models *service.ModelService) {
	tags := []string{"model-servers"}

	huma.Register(humaAPI, huma.Operation{
		OperationID:   "register-model-server",
		Method:        http.MethodPost,
		Path:          "/api/v1/models/servers",
		Summary:       "Register a model server",
		Description:   "Register a model server. The server ID must be unique across registered and runtime servers.",
		Tags:          tags,
		DefaultStatus: http.StatusCreated,
	}, func(_ context.Context, input *RegisterServerInput) (*Response[api.ModelServer], error) {
		server, err := models.RegisterServer(&input.Body)
		if err != nil {
			return nil, serviceError(err)
		}
		return &Response[api.ModelServer]{Body: *server}, nil
	})

	huma.Register(humaAPI, huma.Operation{
		OperationID: "list-model-servers",
		Method:      http.MethodGet,
		Path:        "/api/v1/models/servers",
		Summary:     "List model servers",
		Description: "List registered and runtime model servers. Runtime servers are always included regardless of the include_inactive flag.",
		Tags:        tags,
	}, func(_ context.Context, input *ListServersInput) (*Response[api.ListModelServersResponse], error) {
		return &Response[api.ListModelServersResponse]{Body: *models.ListServers(input.IncludeInactive)}, nil
	})

	huma.Register(humaAPI, huma.Operation{
		OperationID: "get-model-server",
		Method:      http.MethodGet,
		Path:        "/api/v1/models/servers/{serverId}",
		Summary:     "Get a model server",
		Tags:        tags,
	}, func(_ context.Context, input *ServerDetailInput) (*Response[api.ModelServer], error) {
		server, err := models.GetServer(input.ServerID)
		if err != nil {
			return nil, serviceError(err)
		}
		return &Response[api.ModelServer]{Body: *server}, nil
	})

	huma.Register(humaAPI, huma.Operation{
		OperationID: "update-model-server",
		Method:      http.MethodPatch,
		Path:        "/api/v1/models/servers/{serverId}",
		Summary:     "Update a registered model server",
		Description: "Apply a partial update to a registered server. Runtime servers cannot be updated; change the environment and reload instead.",
		Tags:        tags,
	}, func(_ context.Context, input *UpdateServerInput) (*Response[api.ModelServer], error) {
		server, err := models.UpdateServer(input.ServerID, &input.Body)
		if err != nil {
			return nil, serviceError(err)
		}
		return &Response[api.ModelServer]{Body: *server}, nil
	})

	huma.Register(humaAPI, huma.Operation{
		OperationID: "delete-model-server",
		Method:      http.MethodDelete,
		Path:        "/api/v1/models/servers/{serverId}",
		Summary:     "Delete a registered model server",
		Description: "Delete a registered server. Runtime servers cannot be deleted.",
		Tags:        tags,
	}, func(_ context.Context, input *ServerDetailInput) (*Response[EmptyResponse], error) {
		if err := models.DeleteServer(input.ServerID); err != nil {
			return nil, serviceError(err)
		}
		return &Response[EmptyResponse]{Body: EmptyResponse{Message: "Server deleted"}}, nil
	})

	huma.Register(humaAPI, huma.Operation{
		OperationID: "get-model-on-server",
		Method:      http.MethodGet,
		Path:        "/api/v1/models/servers/{serverId}/models/{modelName}",
		Summary:     "Get a model hosted on a server",
		Tags:        tags,
	}, func(_ context.Context, input *ModelDetailInput) (*Response[api.GetModelResponse], error) {
		server, model, err := models.GetModelOnServer(input.ServerID, input.ModelName)
		if err != nil {
			return nil, serviceError(err)
		}
		return &Response[api.GetModelResponse]{Body: api.GetModelResponse{
			Server: api.ModelServerSummary{
				ServerID:   server.ServerID,
				ServerType: server.ServerType,
				BaseURL:    server.BaseURL,
				ModelCount: len(server.Models),
				Status:     server.Status,
				Tags:       server.Tags,
				CreatedAt:  server.CreatedAt,
			},
			Model: *model,
		}}, nil
	})

	huma.Register(humaAPI, huma.Operation{
		OperationID: "reload-runtime-servers",
		Method:      http.MethodPost,
		Path:        "/api/v1/models/servers/reload",
		Summary:     "Reload runtime servers",
		Description: "Rebuild the runtime server namespace from the current environment. Registered servers are not touched.",
		Tags:        tags,
	}, func(_ context.Context, _ *struct{}) (*Response[api.ListModelServersResponse], error) {
		models.ReloadRuntimeServers()
		return &Response[api.ListModelServersResponse]{Body: *models.ListServers(true)}, nil
	})
}
