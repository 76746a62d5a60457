// Package local runs provider adapters as child processes of the hub.
// Intended for development and single-node deployments.
package local

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/eval-hub/eval-hub/internal/runtime"
)

// maxConcurrentAdapters bounds how many adapter processes run at once.
const maxConcurrentAdapters = 4

// Runtime launches adapters via os/exec.
type Runtime struct {
	log *slog.Logger
}

// New creates a local runtime.
func New(log *slog.Logger) *Runtime {
	return &Runtime{log: log}
}

func (r *Runtime) Name() string {
	return "local"
}

// RunEvaluationJob starts one adapter process per task and waits for all
// of them to exit. Task failures are collected; the first error is
// returned after every process has finished.
func (r *Runtime) RunEvaluationJob(ctx context.Context, tasks []runtime.EvaluationTask) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentAdapters)

	for _, task := range tasks {
		g.Go(func() error {
			return r.runTask(ctx, task)
		})
	}
	return g.Wait()
}

func (r *Runtime) runTask(ctx context.Context, task runtime.EvaluationTask) error {
	if task.Provider.Runtime == nil || task.Provider.Runtime.Local == nil {
		return fmt.Errorf("provider %s has no local runtime configuration", task.Provider.ID)
	}
	spec := task.Provider.Runtime.Local

	cmd := exec.CommandContext(ctx, spec.Command, spec.Args...)
	cmd.Dir = spec.WorkDir
	cmd.Env = append(os.Environ(), TaskEnv(task)...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	r.log.Info("starting local adapter",
		"provider_id", task.Provider.ID,
		"benchmark", task.Benchmark.Name,
		"evaluation_id", task.EvaluationID,
		"command", spec.Command)

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("adapter for evaluation %s failed: %w", task.EvaluationID, err)
	}
	return nil
}

// TaskEnv builds the environment variables an adapter reads to know what
// to evaluate and where to report status.
func TaskEnv(task runtime.EvaluationTask) []string {
	env := []string{
		"EVAL_HUB_JOB_ID=" + task.JobID.String(),
		"EVAL_HUB_EVALUATION_ID=" + task.EvaluationID.String(),
		"EVAL_HUB_PROVIDER_ID=" + task.Provider.ID,
		"EVAL_HUB_BENCHMARK=" + task.Benchmark.Name,
		"EVAL_HUB_MODEL_NAME=" + task.ModelName,
		"EVAL_HUB_MODEL_URL=" + task.ModelURL,
		"EVAL_HUB_CALLBACK_URL=" + task.CallbackURL,
	}
	if len(task.Benchmark.Tasks) > 0 {
		env = append(env, "EVAL_HUB_BENCHMARK_TASKS="+strings.Join(task.Benchmark.Tasks, ","))
	}
	return env
}
