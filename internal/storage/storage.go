// Package storage persists evaluation jobs. Two backends exist: an
// in-memory store for development and tests, and PostgreSQL.
package storage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/eval-hub/eval-hub/pkg/api"
)

var (
	// ErrNotFound is returned when a job or result is not found.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyExists is returned when a job with the same ID exists.
	ErrAlreadyExists = errors.New("record already exists")
)

// Job is the stored state of one evaluation request. The overall status is
// not stored; it is derived from Results on every read.
type Job struct {
	ID            uuid.UUID              `json:"id"`
	Request       api.EvaluationRequest  `json:"request"`
	Results       []api.EvaluationResult `json:"results"`
	ExperimentURL string                 `json:"experiment_url,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// Storage is the persistence interface for evaluation jobs.
type Storage interface {
	// CreateEvaluationJob stores a new job.
	CreateEvaluationJob(ctx context.Context, job *Job) error

	// GetEvaluationJob returns the job with the given ID.
	GetEvaluationJob(ctx context.Context, jobID uuid.UUID) (*Job, error)

	// ListEvaluationJobs returns up to limit jobs ordered newest first,
	// along with the total number of stored jobs.
	ListEvaluationJobs(ctx context.Context, limit int) ([]*Job, int, error)

	// UpdateEvaluationResult replaces the stored result with the same
	// evaluation ID on the given job.
	UpdateEvaluationResult(ctx context.Context, jobID uuid.UUID, result api.EvaluationResult) error

	// CancelEvaluationJob marks every non-terminal result of the job as
	// cancelled and returns the updated job.
	CancelEvaluationJob(ctx context.Context, jobID uuid.UUID) (*Job, error)

	// DeleteEvaluationJob removes the job entirely.
	DeleteEvaluationJob(ctx context.Context, jobID uuid.UUID) error

	// Close releases backend resources.
	Close()
}

// New selects a backend from the connection string. The "memory" sentinel
// (or an empty string) yields the in-memory store; anything else is
// treated as a PostgreSQL connection URI.
func New(ctx context.Context, databaseURL string, log *slog.Logger) (Storage, error) {
	if databaseURL == "" || databaseURL == "memory" {
		return NewMemory(log), nil
	}
	return NewPostgres(ctx, databaseURL, log)
}
