package storage_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eval-hub/eval-hub/internal/storage"
	"github.com/eval-hub/eval-hub/pkg/api"
)

func newMemory(t *testing.T) *storage.Memory {
	t.Helper()
	m := storage.NewMemory(slog.New(slog.DiscardHandler))
	t.Cleanup(m.Close)
	return m
}

func newJob(createdAt time.Time) *storage.Job {
	return &storage.Job{
		ID: uuid.New(),
		Request: api.EvaluationRequest{
			RequestID:  uuid.New(),
			Experiment: api.ExperimentConfig{Name: "exp"},
		},
		Results: []api.EvaluationResult{
			{
				EvaluationID: uuid.New(),
				ProviderID:   "lm-eval",
				BenchmarkID:  "arc_easy",
				Status:       api.EvaluationStatusPending,
			},
			{
				EvaluationID: uuid.New(),
				ProviderID:   "lm-eval",
				BenchmarkID:  "hellaswag",
				Status:       api.EvaluationStatusCompleted,
			},
		},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestMemoryCreateAndGet(t *testing.T) {
	m := newMemory(t)
	ctx := context.Background()
	job := newJob(time.Now().UTC())

	require.NoError(t, m.CreateEvaluationJob(ctx, job))

	fetched, err := m.GetEvaluationJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, fetched.ID)
	require.Len(t, fetched.Results, 2)

	// Returned jobs are copies; callers cannot reach into the store.
	fetched.Results[0].Status = api.EvaluationStatusFailed
	again, err := m.GetEvaluationJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, api.EvaluationStatusPending, again.Results[0].Status)
}

func TestMemoryCreateDuplicate(t *testing.T) {
	m := newMemory(t)
	ctx := context.Background()
	job := newJob(time.Now().UTC())

	require.NoError(t, m.CreateEvaluationJob(ctx, job))
	assert.ErrorIs(t, m.CreateEvaluationJob(ctx, job), storage.ErrAlreadyExists)
}

func TestMemoryGetMissing(t *testing.T) {
	m := newMemory(t)
	_, err := m.GetEvaluationJob(context.Background(), uuid.New())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMemoryListNewestFirst(t *testing.T) {
	m := newMemory(t)
	ctx := context.Background()
	base := time.Now().UTC()

	oldest := newJob(base.Add(-2 * time.Hour))
	middle := newJob(base.Add(-1 * time.Hour))
	newest := newJob(base)
	for _, job := range []*storage.Job{oldest, middle, newest} {
		require.NoError(t, m.CreateEvaluationJob(ctx, job))
	}

	jobs, total, err := m.ListEvaluationJobs(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, jobs, 2)
	assert.Equal(t, newest.ID, jobs[0].ID)
	assert.Equal(t, middle.ID, jobs[1].ID)
}

func TestMemoryUpdateEvaluationResult(t *testing.T) {
	m := newMemory(t)
	ctx := context.Background()
	job := newJob(time.Now().UTC())
	require.NoError(t, m.CreateEvaluationJob(ctx, job))

	updated := job.Results[0]
	updated.Status = api.EvaluationStatusRunning
	require.NoError(t, m.UpdateEvaluationResult(ctx, job.ID, updated))

	fetched, err := m.GetEvaluationJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, api.EvaluationStatusRunning, fetched.Results[0].Status)
	assert.Equal(t, api.EvaluationStatusCompleted, fetched.Results[1].Status)

	unknown := updated
	unknown.EvaluationID = uuid.New()
	assert.ErrorIs(t, m.UpdateEvaluationResult(ctx, job.ID, unknown), storage.ErrNotFound)
	assert.ErrorIs(t, m.UpdateEvaluationResult(ctx, uuid.New(), updated), storage.ErrNotFound)
}

func TestMemoryCancelEvaluationJob(t *testing.T) {
	m := newMemory(t)
	ctx := context.Background()
	job := newJob(time.Now().UTC())
	require.NoError(t, m.CreateEvaluationJob(ctx, job))

	cancelled, err := m.CancelEvaluationJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, api.EvaluationStatusCancelled, cancelled.Results[0].Status, "pending result is cancelled")
	assert.Equal(t, api.EvaluationStatusCompleted, cancelled.Results[1].Status, "terminal result is left alone")

	_, err = m.CancelEvaluationJob(ctx, uuid.New())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMemoryDeleteEvaluationJob(t *testing.T) {
	m := newMemory(t)
	ctx := context.Background()
	job := newJob(time.Now().UTC())
	require.NoError(t, m.CreateEvaluationJob(ctx, job))

	require.NoError(t, m.DeleteEvaluationJob(ctx, job.ID))

	_, err := m.GetEvaluationJob(ctx, job.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, m.DeleteEvaluationJob(ctx, job.ID), storage.ErrNotFound)
}
