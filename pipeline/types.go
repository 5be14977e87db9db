package pipeline

import (
	"github.com/sweetpotato0/deskflow/agent"
	"github.com/sweetpotato0/deskflow/session"
	"github.com/sweetpotato0/deskflow/ticket"
)

// Verdict is the validation agent's judgment on a candidate answer. Both
// flags must hold for the answer to advance.
type Verdict struct {
	Accurate  bool   `json:"accurate"`
	Relevant  bool   `json:"relevant"`
	Rationale string `json:"rationale"`
}

// Pass reports whether the verdict lets the answer through.
func (v *Verdict) Pass() bool {
	return v != nil && v.Accurate && v.Relevant
}

// PayloadKind tags what the turn payload carries.
type PayloadKind string

const (
	PayloadClarification    PayloadKind = "clarification"
	PayloadSummary          PayloadKind = "summary"
	PayloadRejection        PayloadKind = "rejection"
	PayloadError            PayloadKind = "error"
	PayloadAcknowledgment   PayloadKind = "acknowledgment"
	PayloadFollowUp         PayloadKind = "follow_up"
	PayloadEscalationPrompt PayloadKind = "escalation_prompt"
	PayloadTicket           PayloadKind = "ticket"
	PayloadDeclined         PayloadKind = "declined"
)

// TurnResult is what one orchestrator operation returns to the caller. The
// payload is exactly one of Question, Summary, or Ticket depending on Kind;
// Rationale explains rejections, errors, and classifications.
type TurnResult struct {
	SessionID string        `json:"session_id"`
	State     session.State `json:"state"`
	Status    agent.Status  `json:"status"`
	Kind      PayloadKind   `json:"kind"`

	Question  string           `json:"question,omitempty"`
	Summary   *session.Summary `json:"summary,omitempty"`
	Ticket    *ticket.Ticket   `json:"ticket,omitempty"`
	Rationale string           `json:"rationale,omitempty"`

	// Err carries the failure kind for error results; it wraps one of the
	// package sentinels so callers can branch with errors.Is.
	Err error `json:"-"`
}
