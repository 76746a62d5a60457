package api

import (
	"time"

	"github.com/google/uuid"
)

// BackendType identifies the evaluation backend family that executes a
// benchmark.
type BackendType string

const (
	BackendTypeLMEval BackendType = "lmeval"
	BackendTypeCustom BackendType = "custom"
)

// Model identifies the model under evaluation, either by direct URL or by
// reference into the model server registry.
type Model struct {
	Name     string `json:"name" doc:"Model name as known to the serving endpoint" example:"granite-3.1-8b-instruct"`
	URL      string `json:"url,omitempty" doc:"Direct URL of the serving endpoint"`
	ServerID string `json:"server_id,omitempty" doc:"Registry reference, resolved to a URL before dispatch"`
}

// BenchmarkSpec selects a benchmark and the tasks to run within it.
type BenchmarkSpec struct {
	Name   string         `json:"name"`
	Tasks  []string       `json:"tasks,omitempty"`
	Config map[string]any `json:"config,omitempty"`
}

// BackendSpec selects an evaluation backend and the benchmarks it runs.
type BackendSpec struct {
	Name       string          `json:"name"`
	Type       BackendType     `json:"type"`
	Benchmarks []BenchmarkSpec `json:"benchmarks"`
}

// EvaluationSpec describes one model evaluated against one or more
// backends.
type EvaluationSpec struct {
	Name     string        `json:"name"`
	Model    Model         `json:"model"`
	Backends []BackendSpec `json:"backends"`
}

// ExperimentConfig names the tracking experiment the request reports into.
type ExperimentConfig struct {
	Name string            `json:"name"`
	Tags map[string]string `json:"tags,omitempty"`
}

// EvaluationRequest is an accepted multi-evaluation request.
type EvaluationRequest struct {
	RequestID   uuid.UUID        `json:"request_id"`
	Evaluations []EvaluationSpec `json:"evaluations"`
	Experiment  ExperimentConfig `json:"experiment"`
}

// TotalEvaluations returns the number of individual evaluation results the
// request is expected to produce, one per (evaluation, backend, benchmark)
// combination.
func (r *EvaluationRequest) TotalEvaluations() int {
	total := 0
	for _, eval := range r.Evaluations {
		for _, backend := range eval.Backends {
			total += len(backend.Benchmarks)
		}
	}
	return total
}

// EvaluationResult is the per-benchmark outcome owned by the execution
// backend. The hub only reads it.
type EvaluationResult struct {
	EvaluationID    uuid.UUID          `json:"evaluation_id"`
	ProviderID      string             `json:"provider_id"`
	BenchmarkID     string             `json:"benchmark_id"`
	Status          EvaluationStatus   `json:"status"`
	Metrics         map[string]float64 `json:"metrics,omitempty"`
	Artifacts       map[string]string  `json:"artifacts,omitempty"`
	ErrorMessage    *string            `json:"error_message,omitempty"`
	StartedAt       *time.Time         `json:"started_at,omitempty"`
	CompletedAt     *time.Time         `json:"completed_at,omitempty"`
	DurationSeconds *float64           `json:"duration_seconds,omitempty"`
}

// EvaluationResponse is the request-scoped view of an evaluation job. It is
// recomputed on every read and never mutated in place. There is
// intentionally no progress percentage, no estimated completion time, and
// no last-updated timestamp: callers needing per-evaluation detail inspect
// Results directly.
type EvaluationResponse struct {
	Request          EvaluationRequest  `json:"request"`
	Results          []EvaluationResult `json:"results"`
	Status           EvaluationStatus   `json:"status"`
	TotalEvaluations int                `json:"total_evaluations"`
	ExperimentURL    string             `json:"experiment_url,omitempty"`
}

// EvaluationJobList is the paginated listing of evaluation jobs.
type EvaluationJobList struct {
	Items      []EvaluationResponse `json:"items"`
	TotalCount int                  `json:"total_count"`
	Limit      int                  `json:"limit"`
}

// RunStatusEvent is the callback payload adapters post while executing a
// benchmark run.
type RunStatusEvent struct {
	EvaluationID    uuid.UUID          `json:"evaluation_id"`
	ProviderID      string             `json:"provider_id"`
	BenchmarkID     string             `json:"benchmark_id"`
	Status          EvaluationStatus   `json:"status"`
	Metrics         map[string]float64 `json:"metrics,omitempty"`
	Artifacts       map[string]string  `json:"artifacts,omitempty"`
	ErrorMessage    *string            `json:"error_message,omitempty"`
	StartedAt       *time.Time         `json:"started_at,omitempty"`
	CompletedAt     *time.Time         `json:"completed_at,omitempty"`
	DurationSeconds *float64           `json:"duration_seconds,omitempty"`
	MLFlowRunID     string             `json:"mlflow_run_id,omitempty"`
}
