package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/eval-hub/eval-hub/internal/providers"
	"github.com/eval-hub/eval-hub/internal/runtime"
	"github.com/eval-hub/eval-hub/internal/storage"
	"github.com/eval-hub/eval-hub/internal/telemetry"
	"github.com/eval-hub/eval-hub/pkg/api"
)

// dispatchTimeout bounds how long a runtime may take to hand off the
// adapters of one job.
const dispatchTimeout = 5 * time.Minute

// Tracker is the experiment-tracking collaborator. The hub only asks it
// for the experiment URL echoed in responses.
type Tracker interface {
	EnsureExperiment(ctx context.Context, name string) (string, error)
}

// EvaluationService coordinates evaluation jobs: it validates requests
// against the provider catalog and the model server registry, seeds
// pending results, dispatches adapters through the configured runtime,
// and folds adapter status callbacks back into storage. The aggregate
// response is rebuilt from stored results on every read.
type EvaluationService struct {
	store   storage.Storage
	catalog *providers.Catalog
	models  *ModelService
	builder *ResponseBuilder
	tracker Tracker
	runtime runtime.Runtime
	metrics *telemetry.Metrics
	log     *slog.Logger

	// callbackBaseURL is the address adapters post status events to.
	callbackBaseURL string
}

// NewEvaluationService wires the evaluation coordinator. tracker and
// metrics may be nil; tracking and instrumentation are then skipped.
func NewEvaluationService(
	store storage.Storage,
	catalog *providers.Catalog,
	models *ModelService,
	tracker Tracker,
	rt runtime.Runtime,
	metrics *telemetry.Metrics,
	callbackBaseURL string,
	log *slog.Logger,
) *EvaluationService {
	return &EvaluationService{
		store:           store,
		catalog:         catalog,
		models:          models,
		builder:         NewResponseBuilder(),
		tracker:         tracker,
		runtime:         rt,
		metrics:         metrics,
		callbackBaseURL: callbackBaseURL,
		log:             log,
	}
}

// CreateEvaluation accepts a request, persists the job with one pending
// result per benchmark, and dispatches the adapters in the background.
// The returned response reflects the freshly seeded state.
func (s *EvaluationService) CreateEvaluation(ctx context.Context, req *api.EvaluationRequest) (*api.EvaluationResponse, error) {
	if req.RequestID == uuid.Nil {
		req.RequestID = uuid.New()
	}

	tasks, results, err := s.expandRequest(req)
	if err != nil {
		return nil, err
	}

	experimentURL := ""
	if s.tracker != nil {
		experimentURL, err = s.tracker.EnsureExperiment(ctx, req.Experiment.Name)
		if err != nil {
			// Tracking never blocks evaluation creation.
			s.log.Warn("failed to set up tracking experiment, continuing without it",
				"experiment", req.Experiment.Name, "error", err)
			experimentURL = ""
		}
	}

	now := time.Now().UTC()
	job := &storage.Job{
		ID:            req.RequestID,
		Request:       *req,
		Results:       results,
		ExperimentURL: experimentURL,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.CreateEvaluationJob(ctx, job); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: evaluation job %s already exists", ErrInvalidRequest, req.RequestID)
		}
		return nil, fmt.Errorf("failed to persist evaluation job: %w", err)
	}

	if s.metrics != nil {
		s.metrics.EvaluationsStarted.Add(ctx, int64(len(results)))
	}
	s.log.Info("evaluation job accepted",
		"job_id", req.RequestID,
		"evaluations", len(results),
		"runtime", s.runtime.Name())

	go s.dispatch(job.ID, tasks)

	return s.builder.BuildResponse(req, results, experimentURL), nil
}

// expandRequest validates the request and produces the task list plus the
// seeded pending results, one per (evaluation, backend, benchmark).
func (s *EvaluationService) expandRequest(req *api.EvaluationRequest) ([]runtime.EvaluationTask, []api.EvaluationResult, error) {
	if len(req.Evaluations) == 0 {
		return nil, nil, fmt.Errorf("%w: request has no evaluations", ErrInvalidRequest)
	}

	var tasks []runtime.EvaluationTask
	var results []api.EvaluationResult
	for _, eval := range req.Evaluations {
		if len(eval.Backends) == 0 {
			return nil, nil, fmt.Errorf("%w: evaluation %q has no backends", ErrInvalidRequest, eval.Name)
		}
		modelURL, err := s.models.ResolveModelURL(eval.Model)
		if err != nil {
			return nil, nil, err
		}
		for _, backend := range eval.Backends {
			provider, ok := s.catalog.Get(backend.Name)
			if !ok {
				return nil, nil, fmt.Errorf("%w: %s", ErrProviderNotFound, backend.Name)
			}
			if len(backend.Benchmarks) == 0 {
				return nil, nil, fmt.Errorf("%w: backend %q has no benchmarks", ErrInvalidRequest, backend.Name)
			}
			for _, benchmark := range backend.Benchmarks {
				evaluationID := uuid.New()
				tasks = append(tasks, runtime.EvaluationTask{
					JobID:        req.RequestID,
					EvaluationID: evaluationID,
					Provider:     provider,
					Benchmark:    benchmark,
					ModelName:    eval.Model.Name,
					ModelURL:     modelURL,
					CallbackURL:  s.callbackURL(req.RequestID),
				})
				results = append(results, api.EvaluationResult{
					EvaluationID: evaluationID,
					ProviderID:   provider.ID,
					BenchmarkID:  benchmark.Name,
					Status:       api.EvaluationStatusPending,
				})
			}
		}
	}
	return tasks, results, nil
}

func (s *EvaluationService) callbackURL(jobID uuid.UUID) string {
	return fmt.Sprintf("%s/api/v1/evaluations/jobs/%s/status", s.callbackBaseURL, jobID)
}

// dispatch hands the job's tasks to the runtime. When the runtime cannot
// start the adapters, every result still pending is marked failed so the
// job does not hang in pending forever.
func (s *EvaluationService) dispatch(jobID uuid.UUID, tasks []runtime.EvaluationTask) {
	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	err := s.runtime.RunEvaluationJob(ctx, tasks)
	if err == nil {
		return
	}
	s.log.Error("runtime dispatch failed", "job_id", jobID, "error", err)

	job, getErr := s.store.GetEvaluationJob(ctx, jobID)
	if getErr != nil {
		s.log.Error("failed to load job after dispatch failure", "job_id", jobID, "error", getErr)
		return
	}
	message := err.Error()
	now := time.Now().UTC()
	for _, result := range job.Results {
		if result.Status != api.EvaluationStatusPending {
			continue
		}
		result.Status = api.EvaluationStatusFailed
		result.ErrorMessage = &message
		result.CompletedAt = &now
		if updateErr := s.store.UpdateEvaluationResult(ctx, jobID, result); updateErr != nil {
			s.log.Error("failed to mark result as failed",
				"job_id", jobID, "evaluation_id", result.EvaluationID, "error", updateErr)
		}
	}
}

// GetEvaluation returns the current view of a job.
func (s *EvaluationService) GetEvaluation(ctx context.Context, jobID uuid.UUID) (*api.EvaluationResponse, error) {
	job, err := s.store.GetEvaluationJob(ctx, jobID)
	if err != nil {
		return nil, s.mapStorageError(err, jobID)
	}
	return s.builder.BuildResponse(&job.Request, job.Results, job.ExperimentURL), nil
}

// ListEvaluations returns up to limit jobs, newest first.
func (s *EvaluationService) ListEvaluations(ctx context.Context, limit int) (*api.EvaluationJobList, error) {
	jobs, total, err := s.store.ListEvaluationJobs(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluation jobs: %w", err)
	}
	items := make([]api.EvaluationResponse, 0, len(jobs))
	for _, job := range jobs {
		items = append(items, *s.builder.BuildResponse(&job.Request, job.Results, job.ExperimentURL))
	}
	return &api.EvaluationJobList{Items: items, TotalCount: total, Limit: limit}, nil
}

// CancelEvaluation marks every non-terminal result of the job cancelled
// and returns the updated view.
func (s *EvaluationService) CancelEvaluation(ctx context.Context, jobID uuid.UUID) (*api.EvaluationResponse, error) {
	job, err := s.store.CancelEvaluationJob(ctx, jobID)
	if err != nil {
		return nil, s.mapStorageError(err, jobID)
	}
	s.log.Info("evaluation job cancelled", "job_id", jobID)
	return s.builder.BuildResponse(&job.Request, job.Results, job.ExperimentURL), nil
}

// DeleteEvaluation removes a job from storage entirely.
func (s *EvaluationService) DeleteEvaluation(ctx context.Context, jobID uuid.UUID) error {
	if err := s.store.DeleteEvaluationJob(ctx, jobID); err != nil {
		return s.mapStorageError(err, jobID)
	}
	s.log.Info("evaluation job deleted", "job_id", jobID)
	return nil
}

// ApplyRunStatus folds an adapter status callback into the stored job.
// The duration is computed from the timestamps when the adapter did not
// report one.
func (s *EvaluationService) ApplyRunStatus(ctx context.Context, jobID uuid.UUID, event *api.RunStatusEvent) (*api.EvaluationResult, error) {
	job, err := s.store.GetEvaluationJob(ctx, jobID)
	if err != nil {
		return nil, s.mapStorageError(err, jobID)
	}

	var current *api.EvaluationResult
	for i := range job.Results {
		if job.Results[i].EvaluationID == event.EvaluationID {
			current = &job.Results[i]
			break
		}
	}
	if current == nil {
		return nil, fmt.Errorf("%w: evaluation %s on job %s", ErrJobNotFound, event.EvaluationID, jobID)
	}
	if current.Status.IsTerminal() {
		// Late callbacks after cancellation or completion are dropped.
		s.log.Warn("ignoring status event for terminal evaluation",
			"job_id", jobID, "evaluation_id", event.EvaluationID, "status", string(event.Status))
		resultCopy := *current
		return &resultCopy, nil
	}

	updated := applyEvent(*current, event)
	if err := s.store.UpdateEvaluationResult(ctx, jobID, updated); err != nil {
		return nil, s.mapStorageError(err, jobID)
	}

	if s.metrics != nil && updated.Status.IsTerminal() {
		s.metrics.EvaluationsCompleted.Add(ctx, 1)
	}
	s.log.Info("evaluation status updated",
		"job_id", jobID,
		"evaluation_id", event.EvaluationID,
		"status", string(updated.Status))
	return &updated, nil
}

// applyEvent merges a status event into a result. Fields absent from the
// event keep their stored values.
func applyEvent(result api.EvaluationResult, event *api.RunStatusEvent) api.EvaluationResult {
	result.Status = event.Status
	if event.Metrics != nil {
		result.Metrics = event.Metrics
	}
	if event.Artifacts != nil {
		result.Artifacts = event.Artifacts
	}
	if event.ErrorMessage != nil {
		result.ErrorMessage = event.ErrorMessage
	}
	if event.StartedAt != nil {
		result.StartedAt = event.StartedAt
	}
	if event.CompletedAt != nil {
		result.CompletedAt = event.CompletedAt
	}
	switch {
	case event.DurationSeconds != nil:
		result.DurationSeconds = event.DurationSeconds
	case result.StartedAt != nil && result.CompletedAt != nil:
		duration := result.CompletedAt.Sub(*result.StartedAt).Seconds()
		result.DurationSeconds = &duration
	}
	return result
}

func (s *EvaluationService) mapStorageError(err error, jobID uuid.UUID) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return err
}
