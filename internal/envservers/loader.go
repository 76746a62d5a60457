// Package envservers derives runtime model servers from process
// environment variables.
//
// Three variable patterns are recognized, applied in order into a single
// accumulator keyed by server ID:
//
//  1. MODEL_SERVER_URL (+ optional MODEL_SERVER_ID, MODEL_SERVER_TYPE,
//     MODEL_SERVER_MODELS) declares a single server, ID "default" unless
//     overridden.
//  2. EVAL_HUB_MODEL_SERVER_<NAME>_URL (+ optional _ID, _TYPE and _MODELS
//     companions under the same <NAME>) declares one server per URL
//     variable. Entries overwrite any same-ID server from the simple
//     pattern.
//  3. EVAL_HUB_MODEL_<NAME>_URL (legacy, variable name must not contain
//     "SERVER") declares a single-model server, skipped when the derived
//     ID is already taken.
//
// Parsing never fails: an unrecognized server type falls back to the
// default with a warning, an empty URL drops that one candidate. Variables
// are visited in sorted name order so repeated loads of an unchanged
// environment produce identical results.
package envservers

import (
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/eval-hub/eval-hub/pkg/api"
)

const (
	simpleURLVar    = "MODEL_SERVER_URL"
	simpleIDVar     = "MODEL_SERVER_ID"
	simpleTypeVar   = "MODEL_SERVER_TYPE"
	simpleModelsVar = "MODEL_SERVER_MODELS"

	namespacedPrefix = "EVAL_HUB_MODEL_SERVER_"
	legacyPrefix     = "EVAL_HUB_MODEL_"
	urlSuffix        = "_URL"

	runtimeTag = "runtime"
)

// Loader parses runtime model servers out of environment variables.
type Loader struct {
	log *slog.Logger
}

// New returns a Loader that reports parse warnings through log.
func New(log *slog.Logger) *Loader {
	return &Loader{log: log}
}

// Load applies each parse rule in order against environ, a list of
// "KEY=VALUE" pairs as produced by os.Environ, and returns the resulting
// runtime servers keyed by server ID.
func (l *Loader) Load(environ []string) map[string]*api.ModelServer {
	env := parseEnviron(environ)
	servers := make(map[string]*api.ModelServer)
	for _, rule := range l.rules() {
		rule(env, servers)
	}
	return servers
}

type parseRule func(env *environment, servers map[string]*api.ModelServer)

// rules returns the parse rules in application order. Later rules see the
// entries earlier ones produced: the namespaced rule overwrites same-ID
// entries, the legacy rule skips them.
func (l *Loader) rules() []parseRule {
	return []parseRule{
		l.simpleRule,
		l.namespacedRule,
		l.legacyRule,
	}
}

// simpleRule handles the single MODEL_SERVER_URL variable pair.
func (l *Loader) simpleRule(env *environment, servers map[string]*api.ModelServer) {
	baseURL := strings.TrimSpace(env.get(simpleURLVar, ""))
	if baseURL == "" {
		return
	}

	serverID := env.get(simpleIDVar, "default")
	typeStr := env.get(simpleTypeVar, string(api.ModelTypeOpenAICompatible))

	serverType, known := api.ParseModelType(typeStr)
	if !known {
		l.log.Warn("invalid server type, using default 'openai-compatible'",
			"env_var", simpleTypeVar, "value", typeStr)
	}

	modelNames := splitModelNames(env.get(simpleModelsVar, ""))
	if len(modelNames) == 0 {
		modelNames = []string{serverID}
	}

	servers[serverID] = newRuntimeServer(serverID, serverType, baseURL, modelNames)
	l.log.Info("loaded runtime server from MODEL_SERVER_URL environment variable",
		"server_id", serverID,
		"server_type", string(serverType),
		"base_url", baseURL,
		"model_count", len(modelNames))
}

// namespacedRule handles EVAL_HUB_MODEL_SERVER_<NAME>_URL variables, one
// server per URL variable.
func (l *Loader) namespacedRule(env *environment, servers map[string]*api.ModelServer) {
	for _, name := range env.keys {
		group, ok := cutPattern(name, namespacedPrefix, urlSuffix)
		if !ok {
			continue
		}

		serverID := strings.ToLower(group)
		baseURL := strings.TrimSpace(env.vars[name])
		if baseURL == "" {
			l.log.Warn("empty URL for runtime server, skipping", "server_id", serverID)
			continue
		}

		// Companion variables are keyed on the raw uppercase <NAME>, not
		// on the derived server ID.
		serverID = env.get(namespacedPrefix+group+"_ID", serverID)
		typeStr := env.get(namespacedPrefix+group+"_TYPE", string(api.ModelTypeOpenAICompatible))
		modelsStr := env.get(namespacedPrefix+group+"_MODELS", "")

		serverType, known := api.ParseModelType(typeStr)
		if !known {
			l.log.Warn("invalid server type for runtime server, using default 'openai-compatible'",
				"server_id", serverID, "value", typeStr)
		}

		modelNames := splitModelNames(modelsStr)
		if len(modelNames) == 0 {
			modelNames = []string{serverID}
		}

		servers[serverID] = newRuntimeServer(serverID, serverType, baseURL, modelNames)
		l.log.Info("loaded runtime server from environment",
			"server_id", serverID,
			"server_type", string(serverType),
			"base_url", baseURL,
			"model_count", len(modelNames))
	}
}

// legacyRule handles EVAL_HUB_MODEL_<NAME>_URL variables kept for backward
// compatibility. Each produces a server hosting a single model named after
// the server ID.
func (l *Loader) legacyRule(env *environment, servers map[string]*api.ModelServer) {
	for _, name := range env.keys {
		if strings.Contains(name, "SERVER") {
			continue
		}
		group, ok := cutPattern(name, legacyPrefix, urlSuffix)
		if !ok {
			continue
		}

		// The presence check runs against the derived ID, before any _ID
		// override. An override can still land on an occupied ID.
		serverID := strings.ToLower(group)
		if _, exists := servers[serverID]; exists {
			continue
		}

		baseURL := strings.TrimSpace(env.vars[name])
		if baseURL == "" {
			continue
		}

		serverID = env.get(legacyPrefix+group+"_ID", serverID)
		typeStr := env.get(legacyPrefix+group+"_TYPE", string(api.ModelTypeOpenAICompatible))
		// Legacy entries fall back silently on unknown types.
		serverType, _ := api.ParseModelType(typeStr)

		servers[serverID] = newRuntimeServer(serverID, serverType, baseURL, []string{serverID})
		l.log.Info("loaded runtime server from legacy environment variable",
			"server_id", serverID,
			"base_url", baseURL)
	}
}

// environment is a parsed snapshot of process environment variables with a
// stable iteration order.
type environment struct {
	vars map[string]string
	keys []string
}

func parseEnviron(environ []string) *environment {
	vars := make(map[string]string, len(environ))
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		vars[key] = value
	}
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return &environment{vars: vars, keys: keys}
}

// get returns the value of key, or fallback when the variable is absent.
// A variable set to the empty string is present and returns "".
func (e *environment) get(key, fallback string) string {
	if value, ok := e.vars[key]; ok {
		return value
	}
	return fallback
}

// cutPattern returns the part of name between prefix and suffix. The match
// requires at least one character between them.
func cutPattern(name, prefix, suffix string) (string, bool) {
	if len(name) <= len(prefix)+len(suffix) {
		return "", false
	}
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
		return "", false
	}
	return name[len(prefix) : len(name)-len(suffix)], true
}

// splitModelNames parses a comma-separated model list, trimming whitespace
// and dropping empty entries.
func splitModelNames(s string) []string {
	if s == "" {
		return nil
	}
	var names []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	return names
}

func newRuntimeServer(serverID string, serverType api.ModelType, baseURL string, modelNames []string) *api.ModelServer {
	models := make([]api.ServerModel, 0, len(modelNames))
	for _, modelName := range modelNames {
		models = append(models, api.ServerModel{
			ModelName: modelName,
			Status:    api.ModelStatusActive,
			Tags:      []string{runtimeTag},
		})
	}
	now := time.Now().UTC()
	return &api.ModelServer{
		ServerID:       serverID,
		ServerType:     serverType,
		BaseURL:        baseURL,
		APIKeyRequired: true,
		Models:         models,
		Status:         api.ModelStatusActive,
		Tags:           []string{runtimeTag},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
