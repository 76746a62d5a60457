package service_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eval-hub/eval-hub/internal/envservers"
	"github.com/eval-hub/eval-hub/internal/providers"
	"github.com/eval-hub/eval-hub/internal/runtime"
	"github.com/eval-hub/eval-hub/internal/service"
	"github.com/eval-hub/eval-hub/internal/storage"
	"github.com/eval-hub/eval-hub/pkg/api"
)

// fakeRuntime records dispatched tasks and optionally fails.
type fakeRuntime struct {
	mu    sync.Mutex
	tasks []runtime.EvaluationTask
	err   error
}

func (f *fakeRuntime) Name() string { return "fake" }

func (f *fakeRuntime) RunEvaluationJob(_ context.Context, tasks []runtime.EvaluationTask) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, tasks...)
	return f.err
}

func (f *fakeRuntime) dispatched() []runtime.EvaluationTask {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]runtime.EvaluationTask(nil), f.tasks...)
}

type fakeTracker struct {
	url string
	err error
}

func (f *fakeTracker) EnsureExperiment(context.Context, string) (string, error) {
	return f.url, f.err
}

type evalFixture struct {
	svc     *service.EvaluationService
	store   storage.Storage
	runtime *fakeRuntime
}

func newEvalFixture(t *testing.T, rt *fakeRuntime, tracker service.Tracker) *evalFixture {
	t.Helper()
	log := slog.New(slog.DiscardHandler)

	store := storage.NewMemory(log)
	t.Cleanup(store.Close)

	catalog, err := providers.Load("", log)
	require.NoError(t, err)

	models := service.NewModelService(envservers.New(log), log)
	svc := service.NewEvaluationService(
		store, catalog, models, tracker, rt, nil, "http://localhost:8080", log)
	return &evalFixture{svc: svc, store: store, runtime: rt}
}

func evaluationRequest(benchmarks ...string) *api.EvaluationRequest {
	specs := make([]api.BenchmarkSpec, 0, len(benchmarks))
	for _, name := range benchmarks {
		specs = append(specs, api.BenchmarkSpec{Name: name})
	}
	return &api.EvaluationRequest{
		Evaluations: []api.EvaluationSpec{
			{
				Name:  "granite-eval",
				Model: api.Model{Name: "granite-8b", URL: "http://vllm:8000"},
				Backends: []api.BackendSpec{
					{Name: "lm-eval", Type: api.BackendTypeLMEval, Benchmarks: specs},
				},
			},
		},
		Experiment: api.ExperimentConfig{Name: "granite-runs"},
	}
}

func TestCreateEvaluationSeedsPendingResults(t *testing.T) {
	f := newEvalFixture(t, &fakeRuntime{}, &fakeTracker{url: "http://mlflow/#/experiments/7"})

	resp, err := f.svc.CreateEvaluation(context.Background(), evaluationRequest("arc_easy", "hellaswag"))
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, resp.Request.RequestID)
	assert.Equal(t, 2, resp.TotalEvaluations)
	assert.Equal(t, api.EvaluationStatusPending, resp.Status)
	assert.Equal(t, "http://mlflow/#/experiments/7", resp.ExperimentURL)
	require.Len(t, resp.Results, 2)
	for _, result := range resp.Results {
		assert.Equal(t, api.EvaluationStatusPending, result.Status)
		assert.Equal(t, "lm-eval", result.ProviderID)
	}

	require.Eventually(t, func() bool {
		return len(f.runtime.dispatched()) == 2
	}, time.Second, 10*time.Millisecond)

	task := f.runtime.dispatched()[0]
	assert.Equal(t, resp.Request.RequestID, task.JobID)
	assert.Equal(t, "http://vllm:8000", task.ModelURL)
	assert.Contains(t, task.CallbackURL, resp.Request.RequestID.String())
}

func TestCreateEvaluationUnknownProvider(t *testing.T) {
	f := newEvalFixture(t, &fakeRuntime{}, nil)

	req := evaluationRequest("arc_easy")
	req.Evaluations[0].Backends[0].Name = "no-such-provider"

	_, err := f.svc.CreateEvaluation(context.Background(), req)
	require.ErrorIs(t, err, service.ErrProviderNotFound)

	// Fail-closed: nothing persisted, nothing dispatched.
	list, listErr := f.svc.ListEvaluations(context.Background(), 10)
	require.NoError(t, listErr)
	assert.Zero(t, list.TotalCount)
	assert.Empty(t, f.runtime.dispatched())
}

func TestCreateEvaluationUnresolvableModel(t *testing.T) {
	f := newEvalFixture(t, &fakeRuntime{}, nil)

	req := evaluationRequest("arc_easy")
	req.Evaluations[0].Model = api.Model{Name: "granite-8b", ServerID: "missing"}

	_, err := f.svc.CreateEvaluation(context.Background(), req)
	require.ErrorIs(t, err, service.ErrServerNotFound)
}

func TestCreateEvaluationTrackerFailureDegrades(t *testing.T) {
	f := newEvalFixture(t, &fakeRuntime{}, &fakeTracker{err: errors.New("mlflow down")})

	resp, err := f.svc.CreateEvaluation(context.Background(), evaluationRequest("arc_easy"))
	require.NoError(t, err)
	assert.Empty(t, resp.ExperimentURL)
}

func TestDispatchFailureMarksResultsFailed(t *testing.T) {
	f := newEvalFixture(t, &fakeRuntime{err: errors.New("image pull backoff")}, nil)

	resp, err := f.svc.CreateEvaluation(context.Background(), evaluationRequest("arc_easy"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		current, getErr := f.svc.GetEvaluation(context.Background(), resp.Request.RequestID)
		if getErr != nil {
			return false
		}
		return current.Results[0].Status == api.EvaluationStatusFailed
	}, time.Second, 10*time.Millisecond)

	current, err := f.svc.GetEvaluation(context.Background(), resp.Request.RequestID)
	require.NoError(t, err)
	require.NotNil(t, current.Results[0].ErrorMessage)
	assert.Contains(t, *current.Results[0].ErrorMessage, "image pull backoff")
	// Every attempt concluded, so the overall status reads completed.
	assert.Equal(t, api.EvaluationStatusCompleted, current.Status)
}

func TestApplyRunStatusLifecycle(t *testing.T) {
	f := newEvalFixture(t, &fakeRuntime{}, nil)

	resp, err := f.svc.CreateEvaluation(context.Background(), evaluationRequest("arc_easy"))
	require.NoError(t, err)
	jobID := resp.Request.RequestID
	evalID := resp.Results[0].EvaluationID

	started := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	result, err := f.svc.ApplyRunStatus(context.Background(), jobID, &api.RunStatusEvent{
		EvaluationID: evalID,
		Status:       api.EvaluationStatusRunning,
		StartedAt:    &started,
	})
	require.NoError(t, err)
	assert.Equal(t, api.EvaluationStatusRunning, result.Status)

	current, err := f.svc.GetEvaluation(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, api.EvaluationStatusRunning, current.Status)

	completed := started.Add(90 * time.Second)
	result, err = f.svc.ApplyRunStatus(context.Background(), jobID, &api.RunStatusEvent{
		EvaluationID: evalID,
		Status:       api.EvaluationStatusCompleted,
		Metrics:      map[string]float64{"acc": 0.83},
		CompletedAt:  &completed,
	})
	require.NoError(t, err)
	assert.Equal(t, api.EvaluationStatusCompleted, result.Status)
	// StartedAt survives from the running event; the duration is derived.
	require.NotNil(t, result.DurationSeconds)
	assert.InDelta(t, 90.0, *result.DurationSeconds, 0.001)

	current, err = f.svc.GetEvaluation(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, api.EvaluationStatusCompleted, current.Status)
	assert.Equal(t, map[string]float64{"acc": 0.83}, current.Results[0].Metrics)
}

func TestApplyRunStatusReportedDurationWins(t *testing.T) {
	f := newEvalFixture(t, &fakeRuntime{}, nil)

	resp, err := f.svc.CreateEvaluation(context.Background(), evaluationRequest("arc_easy"))
	require.NoError(t, err)

	reported := 12.5
	started := time.Now().UTC().Add(-time.Hour)
	completed := time.Now().UTC()
	result, err := f.svc.ApplyRunStatus(context.Background(), resp.Request.RequestID, &api.RunStatusEvent{
		EvaluationID:    resp.Results[0].EvaluationID,
		Status:          api.EvaluationStatusCompleted,
		StartedAt:       &started,
		CompletedAt:     &completed,
		DurationSeconds: &reported,
	})
	require.NoError(t, err)
	require.NotNil(t, result.DurationSeconds)
	assert.Equal(t, reported, *result.DurationSeconds)
}

func TestApplyRunStatusIgnoresTerminalResults(t *testing.T) {
	f := newEvalFixture(t, &fakeRuntime{}, nil)

	resp, err := f.svc.CreateEvaluation(context.Background(), evaluationRequest("arc_easy"))
	require.NoError(t, err)
	jobID := resp.Request.RequestID
	evalID := resp.Results[0].EvaluationID

	_, err = f.svc.CancelEvaluation(context.Background(), jobID)
	require.NoError(t, err)

	// Late callback from an adapter that did not notice the cancellation.
	result, err := f.svc.ApplyRunStatus(context.Background(), jobID, &api.RunStatusEvent{
		EvaluationID: evalID,
		Status:       api.EvaluationStatusRunning,
	})
	require.NoError(t, err)
	assert.Equal(t, api.EvaluationStatusCancelled, result.Status)
}

func TestApplyRunStatusUnknownEvaluation(t *testing.T) {
	f := newEvalFixture(t, &fakeRuntime{}, nil)

	resp, err := f.svc.CreateEvaluation(context.Background(), evaluationRequest("arc_easy"))
	require.NoError(t, err)

	_, err = f.svc.ApplyRunStatus(context.Background(), resp.Request.RequestID, &api.RunStatusEvent{
		EvaluationID: uuid.New(),
		Status:       api.EvaluationStatusRunning,
	})
	require.ErrorIs(t, err, service.ErrJobNotFound)
}

func TestCancelEvaluation(t *testing.T) {
	f := newEvalFixture(t, &fakeRuntime{}, nil)

	resp, err := f.svc.CreateEvaluation(context.Background(), evaluationRequest("arc_easy", "gsm8k"))
	require.NoError(t, err)

	cancelled, err := f.svc.CancelEvaluation(context.Background(), resp.Request.RequestID)
	require.NoError(t, err)
	for _, result := range cancelled.Results {
		assert.Equal(t, api.EvaluationStatusCancelled, result.Status)
	}
	assert.Equal(t, api.EvaluationStatusCompleted, cancelled.Status)
}

func TestGetEvaluationNotFound(t *testing.T) {
	f := newEvalFixture(t, &fakeRuntime{}, nil)

	_, err := f.svc.GetEvaluation(context.Background(), uuid.New())
	require.ErrorIs(t, err, service.ErrJobNotFound)
}

func TestListEvaluations(t *testing.T) {
	f := newEvalFixture(t, &fakeRuntime{}, nil)

	for range 3 {
		_, err := f.svc.CreateEvaluation(context.Background(), evaluationRequest("arc_easy"))
		require.NoError(t, err)
	}

	list, err := f.svc.ListEvaluations(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 3, list.TotalCount)
	assert.Len(t, list.Items, 2)
	assert.Equal(t, 2, list.Limit)
}

func TestDeleteEvaluation(t *testing.T) {
	f := newEvalFixture(t, &fakeRuntime{}, nil)

	resp, err := f.svc.CreateEvaluation(context.Background(), evaluationRequest("arc_easy"))
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteEvaluation(context.Background(), resp.Request.RequestID))
	_, err = f.svc.GetEvaluation(context.Background(), resp.Request.RequestID)
	require.ErrorIs(t, err, service.ErrJobNotFound)
}
