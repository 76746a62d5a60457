package service

import (
	"github.com/eval-hub/eval-hub/pkg/api"
)

// ResponseBuilder derives the aggregate view of an evaluation request from
// its per-benchmark results. It holds no state and never fails; every
// input combination maps to some response.
type ResponseBuilder struct{}

// NewResponseBuilder creates a response builder.
func NewResponseBuilder() *ResponseBuilder {
	return &ResponseBuilder{}
}

// BuildResponse assembles the response for a request from its results. The
// result sequence is copied verbatim in the order given; trackingURL is
// passed through unmodified.
func (b *ResponseBuilder) BuildResponse(req *api.EvaluationRequest, results []api.EvaluationResult, trackingURL string) *api.EvaluationResponse {
	total := req.TotalEvaluations()
	counts := b.countResultsByStatus(results)
	status := b.determineOverallStatus(counts, total)

	copied := make([]api.EvaluationResult, len(results))
	copy(copied, results)

	return &api.EvaluationResponse{
		Request:          *req,
		Results:          copied,
		Status:           status,
		TotalEvaluations: total,
		ExperimentURL:    trackingURL,
	}
}

// countResultsByStatus tallies results per status. Statuses with no
// results are absent from the tally.
func (b *ResponseBuilder) countResultsByStatus(results []api.EvaluationResult) map[api.EvaluationStatus]int {
	counts := make(map[api.EvaluationStatus]int)
	for _, result := range results {
		counts[result.Status]++
	}
	return counts
}

// determineOverallStatus derives one status for the whole request. Rules
// apply in order, first match wins:
//
//  1. nothing to evaluate: pending
//  2. at least one result running: running
//  3. at least one result pending: pending
//  4. anything else (completed, failed, cancelled, or any mix): completed
//
// Rule 4 deliberately reports an all-failed request as completed: every
// attempt concluded. Callers detect failure from the per-result statuses,
// not from the overall one.
func (b *ResponseBuilder) determineOverallStatus(counts map[api.EvaluationStatus]int, totalEvaluations int) api.EvaluationStatus {
	switch {
	case totalEvaluations == 0:
		return api.EvaluationStatusPending
	case counts[api.EvaluationStatusRunning] > 0:
		return api.EvaluationStatusRunning
	case counts[api.EvaluationStatusPending] > 0:
		return api.EvaluationStatusPending
	default:
		return api.EvaluationStatusCompleted
	}
}
