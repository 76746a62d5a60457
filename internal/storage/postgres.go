package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eval-hub/eval-hub/pkg/api"
)

const schema = `
CREATE TABLE IF NOT EXISTS evaluation_jobs (
	id UUID PRIMARY KEY,
	request JSONB NOT NULL,
	results JSONB NOT NULL DEFAULT '[]'::jsonb,
	experiment_url TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_evaluation_jobs_created_at ON evaluation_jobs (created_at DESC);
`

// Postgres is a Storage implementation backed by PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewPostgres connects to PostgreSQL and bootstraps the schema.
func NewPostgres(ctx context.Context, connectionURI string, log *slog.Logger) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(connectionURI)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PostgreSQL config: %w", err)
	}

	// Stability-focused pool defaults.
	config.MaxConns = 30
	config.MinConns = 5
	config.MaxConnIdleTime = 30 * time.Minute
	config.MaxConnLifetime = 2 * time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create PostgreSQL pool: %w", err)
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Info("connected to PostgreSQL")
	return &Postgres{pool: pool, log: log}, nil
}

func (p *Postgres) CreateEvaluationJob(ctx context.Context, job *Job) error {
	requestJSON, err := json.Marshal(job.Request)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	resultsJSON, err := json.Marshal(job.Results)
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}

	_, err = p.pool.Exec(ctx,
		`INSERT INTO evaluation_jobs (id, request, results, experiment_url, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		job.ID, requestJSON, resultsJSON, job.ExperimentURL, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert evaluation job: %w", err)
	}
	return nil
}

func (p *Postgres) GetEvaluationJob(ctx context.Context, jobID uuid.UUID) (*Job, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT id, request, results, experiment_url, created_at, updated_at
		 FROM evaluation_jobs WHERE id = $1`, jobID)
	return scanJob(row)
}

func (p *Postgres) ListEvaluationJobs(ctx context.Context, limit int) ([]*Job, int, error) {
	if limit <= 0 {
		limit = 50
	}

	var total int
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM evaluation_jobs`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count evaluation jobs: %w", err)
	}

	rows, err := p.pool.Query(ctx,
		`SELECT id, request, results, experiment_url, created_at, updated_at
		 FROM evaluation_jobs ORDER BY created_at DESC, id LIMIT $1`, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list evaluation jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, 0, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate evaluation jobs: %w", err)
	}
	return jobs, total, nil
}

func (p *Postgres) UpdateEvaluationResult(ctx context.Context, jobID uuid.UUID, result api.EvaluationResult) error {
	_, err := p.mutateResults(ctx, jobID, func(results []api.EvaluationResult) ([]api.EvaluationResult, error) {
		for i := range results {
			if results[i].EvaluationID == result.EvaluationID {
				results[i] = result
				return results, nil
			}
		}
		return nil, ErrNotFound
	})
	return err
}

func (p *Postgres) CancelEvaluationJob(ctx context.Context, jobID uuid.UUID) (*Job, error) {
	return p.mutateResults(ctx, jobID, func(results []api.EvaluationResult) ([]api.EvaluationResult, error) {
		for i := range results {
			if !results[i].Status.IsTerminal() {
				results[i].Status = api.EvaluationStatusCancelled
			}
		}
		return results, nil
	})
}

// mutateResults applies fn to the job's result list inside a transaction
// and returns the updated job.
func (p *Postgres) mutateResults(ctx context.Context, jobID uuid.UUID, fn func([]api.EvaluationResult) ([]api.EvaluationResult, error)) (*Job, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx,
		`SELECT id, request, results, experiment_url, created_at, updated_at
		 FROM evaluation_jobs WHERE id = $1 FOR UPDATE`, jobID)
	job, err := scanJob(row)
	if err != nil {
		return nil, err
	}

	job.Results, err = fn(job.Results)
	if err != nil {
		return nil, err
	}
	job.UpdatedAt = time.Now().UTC()

	resultsJSON, err := json.Marshal(job.Results)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal results: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE evaluation_jobs SET results = $1, updated_at = $2 WHERE id = $3`,
		resultsJSON, job.UpdatedAt, jobID); err != nil {
		return nil, fmt.Errorf("failed to update evaluation job: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return job, nil
}

func (p *Postgres) DeleteEvaluationJob(ctx context.Context, jobID uuid.UUID) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM evaluation_jobs WHERE id = $1`, jobID)
	if err != nil {
		return fmt.Errorf("failed to delete evaluation job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

func scanJob(row pgx.Row) (*Job, error) {
	var (
		job         Job
		requestJSON []byte
		resultsJSON []byte
	)
	err := row.Scan(&job.ID, &requestJSON, &resultsJSON, &job.ExperimentURL, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan evaluation job: %w", err)
	}
	if err := json.Unmarshal(requestJSON, &job.Request); err != nil {
		return nil, fmt.Errorf("failed to unmarshal request: %w", err)
	}
	if err := json.Unmarshal(resultsJSON, &job.Results); err != nil {
		return nil, fmt.Errorf("failed to unmarshal results: %w", err)
	}
	return &job, nil
}
