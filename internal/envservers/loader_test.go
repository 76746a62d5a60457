package envservers_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eval-hub/eval-hub/internal/envservers"
	"github.com/eval-hub/eval-hub/pkg/api"
)

func newLoader() *envservers.Loader {
	return envservers.New(slog.New(slog.DiscardHandler))
}

func TestLoadEmptyEnvironment(t *testing.T) {
	servers := newLoader().Load(nil)
	assert.Empty(t, servers)
}

func TestLoadSimplePattern(t *testing.T) {
	servers := newLoader().Load([]string{
		"MODEL_SERVER_URL=http://vllm.models.svc:8000",
	})
	require.Len(t, servers, 1)

	server := servers["default"]
	require.NotNil(t, server)
	assert.Equal(t, "default", server.ServerID)
	assert.Equal(t, api.ModelTypeOpenAICompatible, server.ServerType)
	assert.Equal(t, "http://vllm.models.svc:8000", server.BaseURL)
	assert.True(t, server.APIKeyRequired)
	assert.Equal(t, api.ModelStatusActive, server.Status)
	assert.Equal(t, []string{"runtime"}, server.Tags)

	// With no MODEL_SERVER_MODELS the server hosts one model named after
	// the server ID.
	require.Len(t, server.Models, 1)
	assert.Equal(t, "default", server.Models[0].ModelName)
	assert.Equal(t, api.ModelStatusActive, server.Models[0].Status)
	assert.Equal(t, []string{"runtime"}, server.Models[0].Tags)
}

func TestLoadSimplePatternFullyConfigured(t *testing.T) {
	servers := newLoader().Load([]string{
		"MODEL_SERVER_URL=  http://vllm:8000  ",
		"MODEL_SERVER_ID=prod",
		"MODEL_SERVER_TYPE=VLLM",
		"MODEL_SERVER_MODELS=granite-8b, llama-70b , ",
	})
	require.Len(t, servers, 1)

	server := servers["prod"]
	require.NotNil(t, server)
	assert.Equal(t, api.ModelTypeVLLM, server.ServerType, "type matching is case-insensitive")
	assert.Equal(t, "http://vllm:8000", server.BaseURL, "URL is trimmed")

	require.Len(t, server.Models, 2)
	assert.Equal(t, "granite-8b", server.Models[0].ModelName)
	assert.Equal(t, "llama-70b", server.Models[1].ModelName)
}

func TestLoadSimplePatternBlankURLSkipped(t *testing.T) {
	servers := newLoader().Load([]string{
		"MODEL_SERVER_URL=   ",
		"MODEL_SERVER_ID=prod",
	})
	assert.Empty(t, servers)
}

func TestLoadSimplePatternUnknownTypeFallsBack(t *testing.T) {
	servers := newLoader().Load([]string{
		"MODEL_SERVER_URL=http://vllm:8000",
		"MODEL_SERVER_TYPE=quantum",
	})
	require.Contains(t, servers, "default")
	assert.Equal(t, api.ModelTypeOpenAICompatible, servers["default"].ServerType)
}

func TestLoadNamespacedPattern(t *testing.T) {
	servers := newLoader().Load([]string{
		"EVAL_HUB_MODEL_SERVER_PROD_URL=http://prod:8000",
		"EVAL_HUB_MODEL_SERVER_STAGING_URL=http://staging:8000",
		"EVAL_HUB_MODEL_SERVER_STAGING_MODELS=m1,m2,m3",
	})
	require.Len(t, servers, 2)

	prod := servers["prod"]
	require.NotNil(t, prod, "server ID derives from the lowercased variable name")
	require.Len(t, prod.Models, 1)
	assert.Equal(t, "prod", prod.Models[0].ModelName)

	staging := servers["staging"]
	require.NotNil(t, staging)
	require.Len(t, staging.Models, 3)
}

func TestLoadNamespacedPatternIDOverride(t *testing.T) {
	servers := newLoader().Load([]string{
		"EVAL_HUB_MODEL_SERVER_PROD_URL=http://prod:8000",
		"EVAL_HUB_MODEL_SERVER_PROD_ID=primary",
	})
	require.Len(t, servers, 1)

	server := servers["primary"]
	require.NotNil(t, server)
	// The default model name follows the overridden ID.
	require.Len(t, server.Models, 1)
	assert.Equal(t, "primary", server.Models[0].ModelName)
}

func TestLoadNamespacedPatternEmptyURLSkipped(t *testing.T) {
	servers := newLoader().Load([]string{
		"EVAL_HUB_MODEL_SERVER_PROD_URL=  ",
		"EVAL_HUB_MODEL_SERVER_STAGING_URL=http://staging:8000",
	})
	require.Len(t, servers, 1)
	assert.Contains(t, servers, "staging")
}

func TestLoadNamespacedOverwritesSimple(t *testing.T) {
	// Both patterns produce server "a"; the namespaced entry wins.
	servers := newLoader().Load([]string{
		"MODEL_SERVER_URL=http://a:8000",
		"MODEL_SERVER_ID=a",
		"EVAL_HUB_MODEL_SERVER_A_URL=http://b:9000",
	})
	require.Len(t, servers, 1)
	require.Contains(t, servers, "a")
	assert.Equal(t, "http://b:9000", servers["a"].BaseURL)
}

func TestLoadLegacyPattern(t *testing.T) {
	servers := newLoader().Load([]string{
		"EVAL_HUB_MODEL_LLAMA_URL=http://llama:8080",
	})
	require.Len(t, servers, 1)

	server := servers["llama"]
	require.NotNil(t, server)
	assert.True(t, server.APIKeyRequired)
	require.Len(t, server.Models, 1)
	assert.Equal(t, "llama", server.Models[0].ModelName)
}

func TestLoadLegacySkippedWhenIDTaken(t *testing.T) {
	servers := newLoader().Load([]string{
		"EVAL_HUB_MODEL_SERVER_LLAMA_URL=http://primary:8000",
		"EVAL_HUB_MODEL_LLAMA_URL=http://legacy:8080",
	})
	require.Len(t, servers, 1)
	assert.Equal(t, "http://primary:8000", servers["llama"].BaseURL)
}

func TestLoadLegacyIgnoresVariablesMentioningServer(t *testing.T) {
	// Contains "SERVER" and does not match the namespaced prefix either,
	// so it produces nothing at all.
	servers := newLoader().Load([]string{
		"EVAL_HUB_MODEL_MY_SERVER_URL=http://x:8000",
	})
	assert.Empty(t, servers)
}

func TestLoadLegacyEmptyURLSkipped(t *testing.T) {
	servers := newLoader().Load([]string{
		"EVAL_HUB_MODEL_LLAMA_URL= ",
	})
	assert.Empty(t, servers)
}

func TestLoadLegacyUnknownTypeFallsBackSilently(t *testing.T) {
	servers := newLoader().Load([]string{
		"EVAL_HUB_MODEL_LLAMA_URL=http://llama:8080",
		"EVAL_HUB_MODEL_LLAMA_TYPE=abacus",
	})
	require.Contains(t, servers, "llama")
	assert.Equal(t, api.ModelTypeOpenAICompatible, servers["llama"].ServerType)
}

func TestLoadNamespacedVariableWithoutName(t *testing.T) {
	// EVAL_HUB_MODEL_SERVER_URL has no <NAME> part between prefix and
	// suffix; it matches neither pattern (legacy excludes it for the
	// "SERVER" substring).
	servers := newLoader().Load([]string{
		"EVAL_HUB_MODEL_SERVER_URL=http://x:8000",
	})
	assert.Empty(t, servers)
}

func TestLoadIgnoresMalformedEnvironEntries(t *testing.T) {
	servers := newLoader().Load([]string{
		"NOT_A_PAIR",
		"MODEL_SERVER_URL=http://vllm:8000",
	})
	assert.Len(t, servers, 1)
}

func TestLoadIsIdempotent(t *testing.T) {
	environ := []string{
		"MODEL_SERVER_URL=http://simple:8000",
		"EVAL_HUB_MODEL_SERVER_PROD_URL=http://prod:8000",
		"EVAL_HUB_MODEL_SERVER_PROD_MODELS=m1,m2",
		"EVAL_HUB_MODEL_LEGACY_URL=http://legacy:8080",
	}

	loader := newLoader()
	first := loader.Load(environ)
	second := loader.Load(environ)

	require.Equal(t, len(first), len(second))
	for id, server := range first {
		other, ok := second[id]
		require.True(t, ok, "server %q missing on reload", id)
		assert.Equal(t, server.BaseURL, other.BaseURL)
		assert.Equal(t, server.ServerType, other.ServerType)
		assert.Equal(t, len(server.Models), len(other.Models))
	}
}
