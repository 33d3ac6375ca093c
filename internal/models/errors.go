package models

import "errors"

// Domain errors. Handlers map these to HTTP status codes with errors.Is;
// the recommendation orchestrator uses them to decide when to fall back.
var (
	// ErrMissingAPIKey is a permanent configuration error and is never retried.
	ErrMissingAPIKey = errors.New("provider API key is not configured")

	// ErrRateLimitExceeded means a quota denied the call before any provider contact.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrBudgetExceeded means the monthly spend ceiling has been reached.
	ErrBudgetExceeded = errors.New("monthly budget exceeded")

	// ErrCircuitOpen means the circuit breaker short-circuited the call.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrModelUnavailable means no catalog model can serve the request.
	ErrModelUnavailable = errors.New("no available model for request")

	// ErrEmptyResponse means the provider answered with no usable content.
	ErrEmptyResponse = errors.New("empty response from provider")

	ErrStudentNotFound = errors.New("student not found")
	ErrProjectNotFound = errors.New("project not found")
)
