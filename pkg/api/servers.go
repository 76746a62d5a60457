// Package api defines the wire types shared by the eval-hub HTTP API, the
// provider catalog, and the evaluation runtimes.
package api

import (
	"strings"
	"time"
)

// ModelType identifies the wire protocol spoken by a model server.
type ModelType string

const (
	ModelTypeOpenAICompatible ModelType = "openai-compatible"
	ModelTypeVLLM             ModelType = "vllm"
	ModelTypeOllama           ModelType = "ollama"
)

// ParseModelType maps a string onto a known ModelType. Matching is
// case-insensitive. Unrecognized values fall back to
// ModelTypeOpenAICompatible; the second return value reports whether the
// input was recognized. Callers that care about bad input log a warning,
// nobody treats it as an error.
func ParseModelType(s string) (ModelType, bool) {
	switch ModelType(strings.ToLower(s)) {
	case ModelTypeOpenAICompatible:
		return ModelTypeOpenAICompatible, true
	case ModelTypeVLLM:
		return ModelTypeVLLM, true
	case ModelTypeOllama:
		return ModelTypeOllama, true
	default:
		return ModelTypeOpenAICompatible, false
	}
}

// ServerModel describes a single model hosted on a model server.
type ServerModel struct {
	ModelName   string      `json:"model_name"`
	Description *string     `json:"description,omitempty"`
	Status      ModelStatus `json:"status"`
	Tags        []string    `json:"tags,omitempty"`
}

// ModelServer is a registered or runtime-discovered inference endpoint
// hosting one or more models.
type ModelServer struct {
	ServerID       string         `json:"server_id"`
	ServerType     ModelType      `json:"server_type"`
	BaseURL        string         `json:"base_url"`
	APIKeyRequired bool           `json:"api_key_required"`
	Models         []ServerModel  `json:"models"`
	ServerConfig   map[string]any `json:"server_config,omitempty"`
	Status         ModelStatus    `json:"status"`
	Tags           []string       `json:"tags,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// ModelServerSummary is the compact listing view of a ModelServer.
type ModelServerSummary struct {
	ServerID   string      `json:"server_id"`
	ServerType ModelType   `json:"server_type"`
	BaseURL    string      `json:"base_url"`
	ModelCount int         `json:"model_count"`
	Status     ModelStatus `json:"status"`
	Tags       []string    `json:"tags,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// ModelServerRegistrationRequest is the payload for registering a new
// model server.
type ModelServerRegistrationRequest struct {
	ServerID       string         `json:"server_id" doc:"Unique identifier for the server" example:"vllm-prod"`
	ServerType     ModelType      `json:"server_type,omitempty" doc:"Wire protocol spoken by the server" example:"openai-compatible"`
	BaseURL        string         `json:"base_url" doc:"Base URL of the inference endpoint" example:"http://vllm.models.svc:8000"`
	APIKeyRequired bool           `json:"api_key_required,omitempty" doc:"Whether requests must carry an API key"`
	Models         []ServerModel  `json:"models,omitempty" doc:"Models hosted on the server"`
	ServerConfig   map[string]any `json:"server_config,omitempty" doc:"Opaque server-specific configuration"`
	Status         ModelStatus    `json:"status,omitempty" doc:"Initial status, defaults to active"`
	Tags           []string       `json:"tags,omitempty"`
}

// ModelServerUpdateRequest carries a partial update for a registered
// server. Nil fields are left untouched.
type ModelServerUpdateRequest struct {
	BaseURL        *string        `json:"base_url,omitempty"`
	APIKeyRequired *bool          `json:"api_key_required,omitempty"`
	Models         []ServerModel  `json:"models,omitempty"`
	ServerConfig   map[string]any `json:"server_config,omitempty"`
	Status         *ModelStatus   `json:"status,omitempty"`
	Tags           []string       `json:"tags,omitempty"`
}

// ListModelServersResponse is the response for listing model servers.
// Servers contains both registered and runtime servers; RuntimeServers
// repeats the runtime subset so callers can tell the namespaces apart.
type ListModelServersResponse struct {
	Servers        []ModelServerSummary `json:"servers"`
	TotalServers   int                  `json:"total_servers"`
	RuntimeServers []ModelServerSummary `json:"runtime_servers"`
}

// GetModelResponse pairs a model with the server hosting it.
type GetModelResponse struct {
	Server ModelServerSummary `json:"server"`
	Model  ServerModel        `json:"model"`
}
