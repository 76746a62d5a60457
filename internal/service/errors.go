// Package service implements the eval-hub core services: the model server
// registry, the evaluation coordinator, and response aggregation.
package service

import "errors"

// Common service errors. Handlers map these onto HTTP status codes.
var (
	ErrServerNotFound         = errors.New("model server not found")
	ErrModelNotFound          = errors.New("model not found on server")
	ErrServerAlreadyExists    = errors.New("server already exists")
	ErrRuntimeServerImmutable = errors.New("runtime servers specified via environment variables cannot be modified")
	ErrJobNotFound            = errors.New("evaluation job not found")
	ErrProviderNotFound       = errors.New("provider not found")
	ErrInvalidRequest         = errors.New("invalid request")
)
