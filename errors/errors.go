package errors

import "errors"

// Sentinel errors for the pipeline's terminal failure modes. Callers match
// them with errors.Is after the orchestrator wraps them with a
// human-readable rationale.
var (
	// ErrClarificationExhausted indicates the supervisor hit the
	// refinement attempt limit without producing a well-formed query.
	ErrClarificationExhausted = errors.New("clarification attempts exhausted")

	// ErrValidationExhausted indicates the regenerated answer also failed
	// validation; the session needs a new query.
	ErrValidationExhausted = errors.New("validation attempts exhausted")

	// ErrProviderTimeout indicates an external provider call exceeded the
	// configured deadline.
	ErrProviderTimeout = errors.New("provider deadline exceeded")

	// ErrProviderUnavailable indicates an external provider failed for a
	// reason other than a timeout.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrMalformedSummary indicates the summarizer left a required field
	// empty.
	ErrMalformedSummary = errors.New("summary is missing required fields")

	// ErrInvalidTicketRequest indicates a ticket was attempted without an
	// unsatisfied classification or without explicit confirmation.
	ErrInvalidTicketRequest = errors.New("invalid ticket request")

	// ErrSessionBusy indicates a turn arrived while another turn for the
	// same session was still in flight.
	ErrSessionBusy = errors.New("session busy")

	// ErrSessionNotFound indicates an unknown session ID.
	ErrSessionNotFound = errors.New("session not found")

	// ErrNotFound indicates that a requested resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = errors.New("invalid input")
)
