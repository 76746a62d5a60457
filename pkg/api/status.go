package api

// EvaluationStatus represents the lifecycle state of an evaluation or an
// evaluation request as a whole.
type EvaluationStatus string

const (
	EvaluationStatusPending   EvaluationStatus = "pending"
	EvaluationStatusRunning   EvaluationStatus = "running"
	EvaluationStatusCompleted EvaluationStatus = "completed"
	EvaluationStatusFailed    EvaluationStatus = "failed"
	EvaluationStatusCancelled EvaluationStatus = "cancelled"
)

// IsTerminal returns true if the status cannot transition any further.
func (s EvaluationStatus) IsTerminal() bool {
	return s == EvaluationStatusCompleted || s == EvaluationStatusFailed || s == EvaluationStatusCancelled
}

// ModelStatus represents the availability of a model server or a model
// hosted on one.
type ModelStatus string

const (
	ModelStatusActive   ModelStatus = "active"
	ModelStatusInactive ModelStatus = "inactive"
	ModelStatusUnknown  ModelStatus = "unknown"
)
