package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sweetpotato0/deskflow/agent"
	"github.com/sweetpotato0/deskflow/message"
	"github.com/sweetpotato0/deskflow/prompt"
)

// validator checks a candidate answer against the passages that grounded it.
// It never edits the answer; it only judges it.
type validator struct {
	llm     agent.LLMClient
	prompt  string
	timeout time.Duration
}

func newValidator(llm agent.LLMClient, cfg *Config) *validator {
	return &validator{
		llm:     llm,
		prompt:  cfg.ValidatorPrompt,
		timeout: cfg.ProviderTimeout,
	}
}

// Execute returns StatusContinue with a *Verdict as output. The candidate
// answer arrives as req.Input; the grounding passages as req.Context.
func (v *validator) Execute(ctx context.Context, req *agent.Request) (*agent.Result, error) {
	userPrompt := prompt.NewBuilder().
		AddLabeled("Question", req.Session.RefinedQuery).
		AddLine("").
		AddFormat("Candidate answer:\n%s\n\n", req.Input).
		AddNumbered("Reference passages", req.Context, "none were retrieved.").
		Add("\nReturn JSON only.").
		Build()

	msgs := []*message.Message{
		message.NewMessage(message.RoleSystem, v.prompt),
		message.NewMessage(message.RoleUser, userPrompt),
	}

	raw, err := callModel(ctx, v.llm, v.timeout, msgs)
	if err != nil {
		return &agent.Result{Status: agent.StatusError, Rationale: "answer validation failed"}, err
	}

	verdict, err := decodeJSON[Verdict](raw)
	if err != nil {
		return &agent.Result{Status: agent.StatusError, Rationale: "validation output invalid"},
			fmt.Errorf("validator output invalid: %w", err)
	}

	return &agent.Result{Status: agent.StatusContinue, Output: verdict, Rationale: verdict.Rationale}, nil
}
