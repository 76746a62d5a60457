package service

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/eval-hub/eval-hub/internal/envservers"
	"github.com/eval-hub/eval-hub/pkg/api"
)

// ModelService manages model servers across two namespaces: servers
// registered through the API and runtime servers derived from environment
// variables. A server ID is unique across the union of both namespaces.
// Runtime servers are read-only; they change only when the environment is
// reloaded.
//
// The service is constructed once per process and is safe for concurrent
// use.
type ModelService struct {
	mu          sync.RWMutex
	registered  map[string]*api.ModelServer
	runtime     map[string]*api.ModelServer
	initialized bool

	loader *envservers.Loader
	log    *slog.Logger
}

// NewModelService creates a model service. Runtime servers are loaded
// lazily on first use.
func NewModelService(loader *envservers.Loader, log *slog.Logger) *ModelService {
	return &ModelService{
		registered: make(map[string]*api.ModelServer),
		runtime:    make(map[string]*api.ModelServer),
		loader:     loader,
		log:        log,
	}
}

// initializeLocked loads runtime servers on first use. Callers must hold
// the write lock. Repeated calls are no-ops.
func (s *ModelService) initializeLocked() {
	if s.initialized {
		return
	}
	s.runtime = s.loader.Load(os.Environ())
	s.initialized = true
	s.log.Info("model service initialized",
		"registered_servers", len(s.registered),
		"runtime_servers", len(s.runtime))
}

func (s *ModelService) ensureInitialized() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initializeLocked()
}

// RegisterServer adds a server to the registered namespace. Registration
// fails if the ID is taken in either namespace; on failure no state
// changes.
func (s *ModelService) RegisterServer(req *api.ModelServerRegistrationRequest) (*api.ModelServer, error) {
	if req.ServerID == "" {
		return nil, fmt.Errorf("%w: server_id is required", ErrInvalidRequest)
	}
	if req.BaseURL == "" {
		return nil, fmt.Errorf("%w: base_url is required", ErrInvalidRequest)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.initializeLocked()

	if _, exists := s.registered[req.ServerID]; exists {
		return nil, fmt.Errorf("%w: server with ID %q already exists", ErrServerAlreadyExists, req.ServerID)
	}
	if _, exists := s.runtime[req.ServerID]; exists {
		return nil, fmt.Errorf("%w: server with ID %q is specified as runtime server via environment variable",
			ErrServerAlreadyExists, req.ServerID)
	}

	serverType := req.ServerType
	if serverType == "" {
		serverType = api.ModelTypeOpenAICompatible
	}
	status := req.Status
	if status == "" {
		status = api.ModelStatusActive
	}
	models := req.Models
	if models == nil {
		models = []api.ServerModel{}
	}

	now := time.Now().UTC()
	server := &api.ModelServer{
		ServerID:       req.ServerID,
		ServerType:     serverType,
		BaseURL:        req.BaseURL,
		APIKeyRequired: req.APIKeyRequired,
		Models:         models,
		ServerConfig:   req.ServerConfig,
		Status:         status,
		Tags:           req.Tags,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.registered[req.ServerID] = server

	s.log.Info("model server registered",
		"server_id", req.ServerID,
		"server_type", string(serverType),
		"model_count", len(server.Models))

	serverCopy := *server
	return &serverCopy, nil
}

// GetServer returns the server with the given ID from either namespace,
// checking registered servers first.
func (s *ModelService) GetServer(serverID string) (*api.ModelServer, error) {
	s.ensureInitialized()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if server, ok := s.registered[serverID]; ok {
		serverCopy := *server
		return &serverCopy, nil
	}
	if server, ok := s.runtime[serverID]; ok {
		serverCopy := *server
		return &serverCopy, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrServerNotFound, serverID)
}

// GetModelOnServer returns a model hosted on the given server together
// with the server itself.
func (s *ModelService) GetModelOnServer(serverID, modelName string) (*api.ModelServer, *api.ServerModel, error) {
	server, err := s.GetServer(serverID)
	if err != nil {
		return nil, nil, err
	}
	for i := range server.Models {
		if server.Models[i].ModelName == modelName {
			model := server.Models[i]
			return server, &model, nil
		}
	}
	return nil, nil, fmt.Errorf("%w: %s on server %s", ErrModelNotFound, modelName, serverID)
}

// ListServers returns summaries of all servers. Registered servers may be
// filtered to active ones; runtime servers are always included. The
// response repeats the runtime subset so callers can tell the namespaces
// apart.
func (s *ModelService) ListServers(includeInactive bool) *api.ListModelServersResponse {
	s.ensureInitialized()

	s.mu.RLock()
	defer s.mu.RUnlock()

	registered := make([]api.ModelServerSummary, 0, len(s.registered))
	for _, server := range s.registered {
		if includeInactive || server.Status == api.ModelStatusActive {
			registered = append(registered, summarize(server))
		}
	}
	runtime := make([]api.ModelServerSummary, 0, len(s.runtime))
	for _, server := range s.runtime {
		runtime = append(runtime, summarize(server))
	}

	// Map iteration order is random; keep listings stable.
	sortSummaries(registered)
	sortSummaries(runtime)

	servers := make([]api.ModelServerSummary, 0, len(registered)+len(runtime))
	servers = append(servers, registered...)
	servers = append(servers, runtime...)

	return &api.ListModelServersResponse{
		Servers:        servers,
		TotalServers:   len(servers),
		RuntimeServers: runtime,
	}
}

// UpdateServer applies a partial update to a registered server. Nil fields
// in the request leave the stored value untouched. Runtime servers cannot
// be updated.
func (s *ModelService) UpdateServer(serverID string, req *api.ModelServerUpdateRequest) (*api.ModelServer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initializeLocked()

	if _, isRuntime := s.runtime[serverID]; isRuntime {
		return nil, fmt.Errorf("%w: cannot update %s", ErrRuntimeServerImmutable, serverID)
	}
	server, ok := s.registered[serverID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrServerNotFound, serverID)
	}

	if req.BaseURL != nil {
		server.BaseURL = *req.BaseURL
	}
	if req.APIKeyRequired != nil {
		server.APIKeyRequired = *req.APIKeyRequired
	}
	if req.Models != nil {
		server.Models = req.Models
	}
	if req.ServerConfig != nil {
		server.ServerConfig = req.ServerConfig
	}
	if req.Status != nil {
		server.Status = *req.Status
	}
	if req.Tags != nil {
		server.Tags = req.Tags
	}
	server.UpdatedAt = time.Now().UTC()

	s.log.Info("model server updated", "server_id", serverID)

	serverCopy := *server
	return &serverCopy, nil
}

// DeleteServer removes a registered server. Runtime servers cannot be
// deleted.
func (s *ModelService) DeleteServer(serverID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initializeLocked()

	if _, isRuntime := s.runtime[serverID]; isRuntime {
		return fmt.Errorf("%w: cannot delete %s", ErrRuntimeServerImmutable, serverID)
	}
	if _, ok := s.registered[serverID]; !ok {
		return fmt.Errorf("%w: %s", ErrServerNotFound, serverID)
	}

	delete(s.registered, serverID)
	s.log.Info("model server deleted", "server_id", serverID)
	return nil
}

// ReloadRuntimeServers rebuilds the runtime namespace from the current
// environment. Registered servers are not touched.
func (s *ModelService) ReloadRuntimeServers() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runtime = s.loader.Load(os.Environ())
	s.initialized = true
	s.log.Info("runtime servers reloaded from environment variables",
		"runtime_servers", len(s.runtime))
}

// ResolveModelURL returns the serving URL for a model reference. A direct
// URL wins; otherwise the reference is resolved through the registry.
func (s *ModelService) ResolveModelURL(model api.Model) (string, error) {
	if model.URL != "" {
		return model.URL, nil
	}
	if model.ServerID == "" {
		return "", fmt.Errorf("%w: model %q needs either a url or a server_id", ErrInvalidRequest, model.Name)
	}
	server, _, err := s.GetModelOnServer(model.ServerID, model.Name)
	if err != nil {
		return "", err
	}
	return server.BaseURL, nil
}

func summarize(server *api.ModelServer) api.ModelServerSummary {
	return api.ModelServerSummary{
		ServerID:   server.ServerID,
		ServerType: server.ServerType,
		BaseURL:    server.BaseURL,
		ModelCount: len(server.Models),
		Status:     server.Status,
		Tags:       server.Tags,
		CreatedAt:  server.CreatedAt,
	}
}

func sortSummaries(summaries []api.ModelServerSummary) {
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].ServerID < summaries[j].ServerID
	})
}
