package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/sweetpotato0/deskflow/agent"
	"github.com/sweetpotato0/deskflow/message"
	"github.com/sweetpotato0/deskflow/prompt"
)

// answerer is the bridge between refinement and validation: it grounds the
// refined query in retrieved passages and asks the model for a candidate
// answer. Provider failures are retried exactly once here and nowhere else.
type answerer struct {
	llm     agent.LLMClient
	prompt  string
	timeout time.Duration
	budget  int
	counter TokenCounter
	logger  *slog.Logger
}

func newAnswerer(llm agent.LLMClient, cfg *Config, logger *slog.Logger) *answerer {
	return &answerer{
		llm:     llm,
		prompt:  cfg.AnswerPrompt,
		timeout: cfg.ProviderTimeout,
		budget:  cfg.ContextTokenBudget,
		counter: cfg.tokenCounter,
		logger:  logger,
	}
}

// Execute produces a candidate answer grounded in req.Context. The refined
// query arrives as req.Input.
func (a *answerer) Execute(ctx context.Context, req *agent.Request) (*agent.Result, error) {
	passages := a.fitBudget(req.Context)

	userPrompt := prompt.NewBuilder().
		AddLabeled("Question", req.Input).
		AddLine("").
		AddNumbered("Reference passages", passages, "none found.").
		Build()

	msgs := []*message.Message{
		message.NewMessage(message.RoleSystem, a.prompt),
		message.NewMessage(message.RoleUser, userPrompt),
	}

	raw, err := callModel(ctx, a.llm, a.timeout, msgs)
	if err != nil {
		a.logger.Warn("answer generation failed, retrying once", "error", err)
		raw, err = callModel(ctx, a.llm, a.timeout, msgs)
	}
	if err != nil {
		return &agent.Result{Status: agent.StatusError, Rationale: "the assistant could not reach its answer model"}, err
	}

	return &agent.Result{Status: agent.StatusContinue, Output: strings.TrimSpace(raw)}, nil
}

// fitBudget drops trailing passages once the token budget is exhausted.
// Retrieval orders passages strongest first, so the weakest go first.
func (a *answerer) fitBudget(passages []string) []string {
	if a.counter == nil || a.budget <= 0 {
		return passages
	}
	kept := make([]string, 0, len(passages))
	used := 0
	for _, p := range passages {
		n := a.counter.CountTokens(p)
		if used+n > a.budget && len(kept) > 0 {
			break
		}
		kept = append(kept, p)
		used += n
	}
	return kept
}
