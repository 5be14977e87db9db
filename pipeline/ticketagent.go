package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sweetpotato0/deskflow/agent"
	deskerrors "github.com/sweetpotato0/deskflow/errors"
	"github.com/sweetpotato0/deskflow/message"
	"github.com/sweetpotato0/deskflow/prompt"
	"github.com/sweetpotato0/deskflow/session"
	"github.com/sweetpotato0/deskflow/ticket"
)

// ticketOutput is the JSON shape the ticket model must return.
type ticketOutput struct {
	IssueSummary string `json:"issue_summary"`
	Category     string `json:"category"`
}

// ticketAgent converts an escalated session into a ticket record. It never
// runs speculatively: the orchestrator gates it behind the confirmation flag.
type ticketAgent struct {
	llm     agent.LLMClient
	prompt  string
	timeout time.Duration
}

func newTicketAgent(llm agent.LLMClient, cfg *Config) *ticketAgent {
	return &ticketAgent{
		llm:     llm,
		prompt:  cfg.TicketPrompt,
		timeout: cfg.ProviderTimeout,
	}
}

// Execute returns StatusContinue with a *ticket.Ticket as output, built from
// the full session snapshot at the time of escalation. The ticket is not yet
// persisted; the orchestrator owns that step.
func (t *ticketAgent) Execute(ctx context.Context, req *agent.Request) (*agent.Result, error) {
	sess := req.Session
	if !sess.TicketConfirmed || sess.Feedback == nil || sess.Feedback.Class != session.Unsatisfied {
		return &agent.Result{Status: agent.StatusRejected, Rationale: "ticket requested without confirmed escalation"},
			fmt.Errorf("%w: session %s not eligible", deskerrors.ErrInvalidTicketRequest, sess.ID)
	}
	if !sess.Validated || sess.Summary == nil {
		return &agent.Result{Status: agent.StatusRejected, Rationale: "ticket requested for an unvalidated answer"},
			fmt.Errorf("%w: session %s has no validated answer", deskerrors.ErrInvalidTicketRequest, sess.ID)
	}

	userPrompt := prompt.NewBuilder().
		AddLabeled("User question", sess.RefinedQuery).
		AddFormat("\nAnswer given:\n%s\n%s\n\n", sess.Summary.Headline, sess.Summary.Detail).
		AddFormat("Why the user is unsatisfied:\n%s\n\n", sess.Feedback.Rationale).
		Add("Return JSON only.").
		Build()
	msgs := []*message.Message{
		message.NewMessage(message.RoleSystem, t.prompt),
		message.NewMessage(message.RoleUser, userPrompt),
	}

	raw, err := callModel(ctx, t.llm, t.timeout, msgs)
	if err != nil {
		return &agent.Result{Status: agent.StatusError, Rationale: "ticket drafting failed"}, err
	}

	out, err := decodeJSON[ticketOutput](raw)
	if err != nil {
		return &agent.Result{Status: agent.StatusError, Rationale: "ticket draft invalid"},
			fmt.Errorf("ticket output invalid: %w", err)
	}

	category := ticket.Category(strings.TrimSpace(out.Category))
	if !ticket.ValidCategory(category) {
		return &agent.Result{Status: agent.StatusError, Rationale: "ticket draft invalid"},
			fmt.Errorf("%w: unknown category %q", deskerrors.ErrInvalidTicketRequest, out.Category)
	}
	if strings.TrimSpace(out.IssueSummary) == "" {
		return &agent.Result{Status: agent.StatusError, Rationale: "ticket draft invalid"},
			fmt.Errorf("%w: empty issue summary", deskerrors.ErrInvalidTicketRequest)
	}

	rec := &ticket.Ticket{
		SessionID:         sess.ID,
		IssueSummary:      strings.TrimSpace(out.IssueSummary),
		Category:          category,
		RefinedQuery:      sess.RefinedQuery,
		Answer:            fmt.Sprintf("%s %s", sess.Summary.Headline, sess.Summary.Detail),
		FeedbackRationale: sess.Feedback.Rationale,
	}
	return &agent.Result{Status: agent.StatusContinue, Output: rec}, nil
}
