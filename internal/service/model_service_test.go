package service_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eval-hub/eval-hub/internal/envservers"
	"github.com/eval-hub/eval-hub/internal/service"
	"github.com/eval-hub/eval-hub/pkg/api"
)

func newModelService() *service.ModelService {
	log := slog.New(slog.DiscardHandler)
	return service.NewModelService(envservers.New(log), log)
}

func registrationRequest(serverID string) *api.ModelServerRegistrationRequest {
	return &api.ModelServerRegistrationRequest{
		ServerID:   serverID,
		ServerType: api.ModelTypeVLLM,
		BaseURL:    "http://" + serverID + ":8000",
		Models: []api.ServerModel{
			{ModelName: "granite-8b", Status: api.ModelStatusActive},
		},
	}
}

func TestRegisterAndGetServer(t *testing.T) {
	svc := newModelService()

	created, err := svc.RegisterServer(registrationRequest("vllm-prod"))
	require.NoError(t, err)
	assert.Equal(t, "vllm-prod", created.ServerID)
	assert.Equal(t, api.ModelTypeVLLM, created.ServerType)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	fetched, err := svc.GetServer("vllm-prod")
	require.NoError(t, err)
	assert.Equal(t, created.BaseURL, fetched.BaseURL)
	require.Len(t, fetched.Models, 1)
	assert.Equal(t, "granite-8b", fetched.Models[0].ModelName)
}

func TestRegisterServerDefaults(t *testing.T) {
	svc := newModelService()

	created, err := svc.RegisterServer(&api.ModelServerRegistrationRequest{
		ServerID: "bare",
		BaseURL:  "http://bare:8000",
	})
	require.NoError(t, err)
	assert.Equal(t, api.ModelTypeOpenAICompatible, created.ServerType)
	assert.Equal(t, api.ModelStatusActive, created.Status)
	assert.NotNil(t, created.Models)
	assert.Empty(t, created.Models)
}

func TestRegisterServerValidation(t *testing.T) {
	svc := newModelService()

	_, err := svc.RegisterServer(&api.ModelServerRegistrationRequest{BaseURL: "http://x:8000"})
	assert.ErrorIs(t, err, service.ErrInvalidRequest)

	_, err = svc.RegisterServer(&api.ModelServerRegistrationRequest{ServerID: "x"})
	assert.ErrorIs(t, err, service.ErrInvalidRequest)
}

func TestRegisterServerDuplicate(t *testing.T) {
	svc := newModelService()

	_, err := svc.RegisterServer(registrationRequest("dup"))
	require.NoError(t, err)

	_, err = svc.RegisterServer(registrationRequest("dup"))
	assert.ErrorIs(t, err, service.ErrServerAlreadyExists)

	// The failed attempt must not have disturbed the original entry.
	server, err := svc.GetServer("dup")
	require.NoError(t, err)
	assert.Equal(t, "http://dup:8000", server.BaseURL)
}

func TestRegisterServerCollidesWithRuntimeServer(t *testing.T) {
	t.Setenv("EVAL_HUB_MODEL_SERVER_SHARED_URL", "http://runtime:8000")
	svc := newModelService()

	_, err := svc.RegisterServer(registrationRequest("shared"))
	require.ErrorIs(t, err, service.ErrServerAlreadyExists)
	assert.Contains(t, err.Error(), "runtime server")
}

func TestGetServerChecksRegisteredFirst(t *testing.T) {
	svc := newModelService()
	_, err := svc.RegisterServer(registrationRequest("shadow"))
	require.NoError(t, err)

	// A later reload can introduce a runtime server with the same ID; the
	// registered entry still wins lookups.
	t.Setenv("EVAL_HUB_MODEL_SERVER_SHADOW_URL", "http://runtime:9000")
	svc.ReloadRuntimeServers()

	server, err := svc.GetServer("shadow")
	require.NoError(t, err)
	assert.Equal(t, "http://shadow:8000", server.BaseURL)
}

func TestGetServerNotFound(t *testing.T) {
	svc := newModelService()
	_, err := svc.GetServer("missing")
	assert.ErrorIs(t, err, service.ErrServerNotFound)
}

func TestGetModelOnServer(t *testing.T) {
	svc := newModelService()
	_, err := svc.RegisterServer(registrationRequest("vllm-prod"))
	require.NoError(t, err)

	server, model, err := svc.GetModelOnServer("vllm-prod", "granite-8b")
	require.NoError(t, err)
	assert.Equal(t, "vllm-prod", server.ServerID)
	assert.Equal(t, "granite-8b", model.ModelName)

	_, _, err = svc.GetModelOnServer("vllm-prod", "nope")
	assert.ErrorIs(t, err, service.ErrModelNotFound)

	_, _, err = svc.GetModelOnServer("missing", "granite-8b")
	assert.ErrorIs(t, err, service.ErrServerNotFound)
}

func TestListServers(t *testing.T) {
	t.Setenv("EVAL_HUB_MODEL_SERVER_RT_URL", "http://rt:8000")
	svc := newModelService()

	_, err := svc.RegisterServer(registrationRequest("active-one"))
	require.NoError(t, err)

	inactive := registrationRequest("inactive-one")
	inactive.Status = api.ModelStatusInactive
	_, err = svc.RegisterServer(inactive)
	require.NoError(t, err)

	all := svc.ListServers(true)
	assert.Equal(t, 3, all.TotalServers)
	require.Len(t, all.RuntimeServers, 1)
	assert.Equal(t, "rt", all.RuntimeServers[0].ServerID)

	activeOnly := svc.ListServers(false)
	assert.Equal(t, 2, activeOnly.TotalServers, "inactive registered servers are filtered")
	assert.Len(t, activeOnly.RuntimeServers, 1, "runtime servers are never filtered")

	ids := make([]string, 0, len(activeOnly.Servers))
	for _, s := range activeOnly.Servers {
		ids = append(ids, s.ServerID)
	}
	assert.Equal(t, []string{"active-one", "rt"}, ids)
}

func TestUpdateServer(t *testing.T) {
	svc := newModelService()
	created, err := svc.RegisterServer(registrationRequest("vllm-prod"))
	require.NoError(t, err)

	newURL := "http://vllm-prod:9000"
	updated, err := svc.UpdateServer("vllm-prod", &api.ModelServerUpdateRequest{
		BaseURL: &newURL,
	})
	require.NoError(t, err)
	assert.Equal(t, newURL, updated.BaseURL)
	assert.Equal(t, created.ServerType, updated.ServerType, "unset fields stay untouched")
	require.Len(t, updated.Models, 1)
	assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))
}

func TestUpdateServerNotFound(t *testing.T) {
	svc := newModelService()
	url := "http://x:8000"
	_, err := svc.UpdateServer("missing", &api.ModelServerUpdateRequest{BaseURL: &url})
	assert.ErrorIs(t, err, service.ErrServerNotFound)
}

func TestUpdateRuntimeServerRejected(t *testing.T) {
	t.Setenv("EVAL_HUB_MODEL_SERVER_RT_URL", "http://rt:8000")
	svc := newModelService()

	url := "http://other:8000"
	_, err := svc.UpdateServer("rt", &api.ModelServerUpdateRequest{BaseURL: &url})
	require.ErrorIs(t, err, service.ErrRuntimeServerImmutable)

	server, err := svc.GetServer("rt")
	require.NoError(t, err)
	assert.Equal(t, "http://rt:8000", server.BaseURL, "runtime entry is unchanged")
}

func TestDeleteServer(t *testing.T) {
	svc := newModelService()
	_, err := svc.RegisterServer(registrationRequest("doomed"))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteServer("doomed"))

	_, err = svc.GetServer("doomed")
	assert.ErrorIs(t, err, service.ErrServerNotFound)

	err = svc.DeleteServer("doomed")
	assert.ErrorIs(t, err, service.ErrServerNotFound)
}

func TestDeleteRuntimeServerRejected(t *testing.T) {
	t.Setenv("EVAL_HUB_MODEL_SERVER_RT_URL", "http://rt:8000")
	svc := newModelService()

	err := svc.DeleteServer("rt")
	require.ErrorIs(t, err, service.ErrRuntimeServerImmutable)

	_, err = svc.GetServer("rt")
	assert.NoError(t, err)
}

func TestRuntimeServersLoadOnce(t *testing.T) {
	t.Setenv("EVAL_HUB_MODEL_SERVER_FIRST_URL", "http://first:8000")
	svc := newModelService()

	assert.Len(t, svc.ListServers(true).RuntimeServers, 1)

	// Environment changes are invisible until an explicit reload.
	t.Setenv("EVAL_HUB_MODEL_SERVER_SECOND_URL", "http://second:8000")
	assert.Len(t, svc.ListServers(true).RuntimeServers, 1)

	svc.ReloadRuntimeServers()
	assert.Len(t, svc.ListServers(true).RuntimeServers, 2)
}

func TestReloadKeepsRegisteredServers(t *testing.T) {
	t.Setenv("EVAL_HUB_MODEL_SERVER_RT_URL", "http://rt:8000")
	svc := newModelService()
	_, err := svc.RegisterServer(registrationRequest("sticky"))
	require.NoError(t, err)

	svc.ReloadRuntimeServers()

	_, err = svc.GetServer("sticky")
	assert.NoError(t, err)
}

func TestResolveModelURL(t *testing.T) {
	svc := newModelService()
	_, err := svc.RegisterServer(registrationRequest("vllm-prod"))
	require.NoError(t, err)

	url, err := svc.ResolveModelURL(api.Model{Name: "m", URL: "http://direct:8000"})
	require.NoError(t, err)
	assert.Equal(t, "http://direct:8000", url)

	url, err = svc.ResolveModelURL(api.Model{Name: "granite-8b", ServerID: "vllm-prod"})
	require.NoError(t, err)
	assert.Equal(t, "http://vllm-prod:8000", url)

	_, err = svc.ResolveModelURL(api.Model{Name: "granite-8b"})
	assert.ErrorIs(t, err, service.ErrInvalidRequest)

	_, err = svc.ResolveModelURL(api.Model{Name: "granite-8b", ServerID: "missing"})
	assert.ErrorIs(t, err, service.ErrServerNotFound)
}
