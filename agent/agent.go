package agent

import (
	"context"

	"github.com/sweetpotato0/deskflow/session"
)

// Status is the outcome an agent reports back to the orchestrator. State
// transitions are driven exclusively by this field.
type Status string

const (
	// StatusContinue advances the pipeline to the next stage.
	StatusContinue Status = "continue"

	// StatusNeedsClarification pauses the pipeline and relays a question
	// back to the caller.
	StatusNeedsClarification Status = "needs_clarification"

	// StatusRejected terminates the turn with a human-readable rationale.
	StatusRejected Status = "rejected"

	// StatusError terminates the turn because of an internal or provider
	// failure.
	StatusError Status = "error"
)

// Request is the immutable value passed into an agent: the current session
// snapshot plus any turn-specific input.
type Request struct {
	// Session is a snapshot of the conversation; agents must not mutate it.
	Session *session.Session

	// Input carries turn-specific text: the raw query, a clarification
	// answer, or user feedback, depending on the stage.
	Input string

	// Context carries supporting passages retrieved for the current turn,
	// already rendered for prompting.
	Context []string
}

// Result is the immutable value an agent returns.
type Result struct {
	// Status drives the orchestrator's state table.
	Status Status

	// Output is the stage-specific payload: a refined query or clarifying
	// question for the supervisor, a Verdict for validation, a Summary for
	// summarization, and so on. The orchestrator asserts the concrete type
	// per state.
	Output any

	// Rationale is free text recorded for observability and surfaced on
	// rejection.
	Rationale string
}

// Agent is the shared capability contract implemented by every reasoning
// stage. The orchestrator owns sequencing; agents own exactly one
// responsibility each.
type Agent interface {
	Execute(ctx context.Context, req *Request) (*Result, error)
}
