package storage

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eval-hub/eval-hub/pkg/api"
)

const (
	// jobTTL is how long jobs whose results have all reached a terminal
	// state are retained in memory.
	jobTTL = 24 * time.Hour

	cleanupInterval = 10 * time.Minute
)

// Memory is an in-memory Storage implementation.
type Memory struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*Job
	log  *slog.Logger
	done chan struct{}
}

// NewMemory creates an in-memory store and starts its retention sweeper.
func NewMemory(log *slog.Logger) *Memory {
	m := &Memory{
		jobs: make(map[uuid.UUID]*Job),
		log:  log,
		done: make(chan struct{}),
	}
	go m.cleanupLoop()
	return m
}

func (m *Memory) CreateEvaluationJob(_ context.Context, job *Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.jobs[job.ID]; exists {
		return ErrAlreadyExists
	}
	m.jobs[job.ID] = copyJob(job)
	return nil
}

func (m *Memory) GetEvaluationJob(_ context.Context, jobID uuid.UUID) (*Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyJob(job), nil
}

func (m *Memory) ListEvaluationJobs(_ context.Context, limit int) ([]*Job, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, copyJob(job))
	}
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].ID.String() < jobs[j].ID.String()
		}
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})

	total := len(jobs)
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, total, nil
}

func (m *Memory) UpdateEvaluationResult(_ context.Context, jobID uuid.UUID, result api.EvaluationResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	for i := range job.Results {
		if job.Results[i].EvaluationID == result.EvaluationID {
			job.Results[i] = result
			job.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) CancelEvaluationJob(_ context.Context, jobID uuid.UUID) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	for i := range job.Results {
		if !job.Results[i].Status.IsTerminal() {
			job.Results[i].Status = api.EvaluationStatusCancelled
		}
	}
	job.UpdatedAt = time.Now().UTC()
	return copyJob(job), nil
}

func (m *Memory) DeleteEvaluationJob(_ context.Context, jobID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.jobs[jobID]; !ok {
		return ErrNotFound
	}
	delete(m.jobs, jobID)
	return nil
}

// Close stops the retention sweeper.
func (m *Memory) Close() {
	close(m.done)
}

// cleanupLoop periodically drops jobs that finished long ago.
func (m *Memory) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanup()
		case <-m.done:
			return
		}
	}
}

func (m *Memory) cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().UTC().Add(-jobTTL)
	for id, job := range m.jobs {
		if jobFinished(job) && job.UpdatedAt.Before(cutoff) {
			delete(m.jobs, id)
			m.log.Debug("dropped expired evaluation job", "job_id", id)
		}
	}
}

// jobFinished reports whether every result of the job reached a terminal
// state. Jobs with no results yet are never considered finished.
func jobFinished(job *Job) bool {
	if len(job.Results) == 0 {
		return false
	}
	for i := range job.Results {
		if !job.Results[i].Status.IsTerminal() {
			return false
		}
	}
	return true
}

// copyJob returns a copy that does not share the results slice with the
// stored job.
func copyJob(job *Job) *Job {
	jobCopy := *job
	jobCopy.Results = make([]api.EvaluationResult, len(job.Results))
	copy(jobCopy.Results, job.Results)
	return &jobCopy
}
