// Package v1 contains the huma endpoint handlers for the /api/v1 surface.
package v1

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/eval-hub/eval-hub/internal/service"
)

// Response is a generic wrapper for huma responses.
type Response[T any] struct {
	Body T
}

// EmptyResponse is a simple success message body.
type EmptyResponse struct {
	Message string `json:"message" doc:"Success message" example:"Operation completed successfully"`
}

// serviceError maps service-layer errors onto huma status errors.
func serviceError(err error) error {
	switch {
	case errors.Is(err, service.ErrServerNotFound),
		errors.Is(err, service.ErrModelNotFound),
		errors.Is(err, service.ErrJobNotFound),
		errors.Is(err, service.ErrProviderNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, service.ErrServerAlreadyExists):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, service.ErrRuntimeServerImmutable):
		return huma.Error403Forbidden(err.Error())
	case errors.Is(err, service.ErrInvalidRequest):
		return huma.Error400BadRequest(err.Error())
	default:
		return huma.Error500InternalServerError("internal error", err)
	}
}
