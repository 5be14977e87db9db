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
)

// summarizer condenses a validated answer into the fixed response schema.
// A summary with any empty field is an error, never a degraded success.
type summarizer struct {
	llm     agent.LLMClient
	prompt  string
	timeout time.Duration
}

func newSummarizer(llm agent.LLMClient, cfg *Config) *summarizer {
	return &summarizer{
		llm:     llm,
		prompt:  cfg.SummarizerPrompt,
		timeout: cfg.ProviderTimeout,
	}
}

// Execute returns StatusContinue with a *session.Summary as output. The
// validated answer arrives as req.Input; passage titles as req.Context.
func (s *summarizer) Execute(ctx context.Context, req *agent.Request) (*agent.Result, error) {
	userPrompt := prompt.NewBuilder().
		AddLabeled("Question", req.Session.RefinedQuery).
		AddFormat("\nValidated answer:\n%s\n\n", req.Input).
		AddLabeled("Reference passage titles", strings.Join(req.Context, "; ")).
		Add("\nReturn JSON only.").
		Build()

	msgs := []*message.Message{
		message.NewMessage(message.RoleSystem, s.prompt),
		message.NewMessage(message.RoleUser, userPrompt),
	}

	raw, err := callModel(ctx, s.llm, s.timeout, msgs)
	if err != nil {
		return &agent.Result{Status: agent.StatusError, Rationale: "summarization failed"}, err
	}

	summary, err := decodeJSON[session.Summary](raw)
	if err != nil {
		return &agent.Result{Status: agent.StatusError, Rationale: "the response summary was malformed"},
			fmt.Errorf("%w: %v", deskerrors.ErrMalformedSummary, err)
	}
	if !summary.Complete() {
		return &agent.Result{Status: agent.StatusError, Rationale: "the response summary was malformed"},
			fmt.Errorf("%w: required field missing", deskerrors.ErrMalformedSummary)
	}

	return &agent.Result{Status: agent.StatusContinue, Output: summary}, nil
}
