package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/eval-hub/eval-hub/internal/service"
	"github.com/eval-hub/eval-hub/pkg/api"
)

// CreateEvaluationInput wraps the evaluation request payload.
type CreateEvaluationInput struct {
	Body api.EvaluationRequest
}

// ListEvaluationsInput holds the query parameters for listing jobs.
type ListEvaluationsInput struct {
	Limit int `query:"limit" doc:"Maximum number of jobs to return" default:"50" minimum:"1" maximum:"200"`
}

// EvaluationDetailInput identifies one evaluation job.
type EvaluationDetailInput struct {
	JobID uuid.UUID `path:"jobId" doc:"Evaluation job identifier" format:"uuid"`
}

// CancelEvaluationInput identifies a job to cancel, optionally purging it
// from storage.
type CancelEvaluationInput struct {
	JobID uuid.UUID `path:"jobId" doc:"Evaluation job identifier" format:"uuid"`
	Purge bool      `query:"purge" doc:"Remove the job from storage after cancelling" default:"false"`
}

// RunStatusInput wraps an adapter status callback.
type RunStatusInput struct {
	JobID uuid.UUID `path:"jobId" doc:"Evaluation job identifier" format:"uuid"`
	Body  api.RunStatusEvent
}

// RegisterEvaluationEndpoints registers the evaluation job endpoints,
// including the adapter status callback.
func RegisterEvaluationEndpoints(humaAPI huma.API, evaluations *service.EvaluationService) {
	tags := []string{"evaluations"}

	huma.Register(humaAPI, huma.Operation{
		OperationID:   "create-evaluation-job",
		Method:        http.MethodPost,
		Path:          "/api/v1/evaluations/jobs",
		Summary:       "Create an evaluation job",
		Description:   "Accept a multi-evaluation request and dispatch its benchmarks to the configured runtime.",
		Tags:          tags,
		DefaultStatus: http.StatusAccepted,
	}, func(ctx context.Context, input *CreateEvaluationInput) (*Response[api.EvaluationResponse], error) {
		response, err := evaluations.CreateEvaluation(ctx, &input.Body)
		if err != nil {
			return nil, serviceError(err)
		}
		return &Response[api.EvaluationResponse]{Body: *response}, nil
	})

	huma.Register(humaAPI, huma.Operation{
		OperationID: "list-evaluation-jobs",
		Method:      http.MethodGet,
		Path:        "/api/v1/evaluations/jobs",
		Summary:     "List evaluation jobs",
		Tags:        tags,
	}, func(ctx context.Context, input *ListEvaluationsInput) (*Response[api.EvaluationJobList], error) {
		list, err := evaluations.ListEvaluations(ctx, input.Limit)
		if err != nil {
			return nil, serviceError(err)
		}
		return &Response[api.EvaluationJobList]{Body: *list}, nil
	})

	huma.Register(humaAPI, huma.Operation{
		OperationID: "get-evaluation-job",
		Method:      http.MethodGet,
		Path:        "/api/v1/evaluations/jobs/{jobId}",
		Summary:     "Get an evaluation job",
		Description: "Get the current view of an evaluation job. The overall status is derived from the per-benchmark results on every read.",
		Tags:        tags,
	}, func(ctx context.Context, input *EvaluationDetailInput) (*Response[api.EvaluationResponse], error) {
		response, err := evaluations.GetEvaluation(ctx, input.JobID)
		if err != nil {
			return nil, serviceError(err)
		}
		return &Response[api.EvaluationResponse]{Body: *response}, nil
	})

	huma.Register(humaAPI, huma.Operation{
		OperationID: "cancel-evaluation-job",
		Method:      http.MethodDelete,
		Path:        "/api/v1/evaluations/jobs/{jobId}",
		Summary:     "Cancel an evaluation job",
		Description: "Mark every non-terminal result of the job as cancelled. With purge=true the job is removed from storage afterwards.",
		Tags:        tags,
	}, func(ctx context.Context, input *CancelEvaluationInput) (*Response[api.EvaluationResponse], error) {
		response, err := evaluations.CancelEvaluation(ctx, input.JobID)
		if err != nil {
			return nil, serviceError(err)
		}
		if input.Purge {
			if err := evaluations.DeleteEvaluation(ctx, input.JobID); err != nil {
				return nil, serviceError(err)
			}
		}
		return &Response[api.EvaluationResponse]{Body: *response}, nil
	})

	huma.Register(humaAPI, huma.Operation{
		OperationID: "post-evaluation-status",
		Method:      http.MethodPost,
		Path:        "/api/v1/evaluations/jobs/{jobId}/status",
		Summary:     "Report evaluation status",
		Description: "Adapter callback reporting progress for one evaluation of the job.",
		Tags:        tags,
	}, func(ctx context.Context, input *RunStatusInput) (*Response[api.EvaluationResult], error) {
		result, err := evaluations.ApplyRunStatus(ctx, input.JobID, &input.Body)
		if err != nil {
			return nil, serviceError(err)
		}
		return &Response[api.EvaluationResult]{Body: *result}, nil
	})
}
