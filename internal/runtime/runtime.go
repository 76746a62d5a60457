// Package runtime defines how provider adapters are launched. The hub
// never executes benchmarks itself; a Runtime starts one adapter per
// evaluation task and the adapter reports progress back through the
// status-callback endpoint.
package runtime

import (
	"context"

	"github.com/google/uuid"

	"github.com/eval-hub/eval-hub/pkg/api"
)

// EvaluationTask is one benchmark run handed to an adapter. CallbackURL
// is where the adapter posts RunStatusEvent payloads for its evaluation.
type EvaluationTask struct {
	JobID        uuid.UUID
	EvaluationID uuid.UUID
	Provider     *api.ProviderResource
	Benchmark    api.BenchmarkSpec
	ModelName    string
	ModelURL     string
	CallbackURL  string
}

// Runtime launches the adapters for an evaluation job. RunEvaluationJob
// returns once every task has been handed off (local: child processes
// finished spawning and running; kubernetes: Jobs created). Execution
// outcomes arrive asynchronously via the status callback.
type Runtime interface {
	Name() string
	RunEvaluationJob(ctx context.Context, tasks []EvaluationTask) error
}
