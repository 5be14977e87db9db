package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sweetpotato0/deskflow/agent"
	"github.com/sweetpotato0/deskflow/message"
	"github.com/sweetpotato0/deskflow/prompt"
	"github.com/sweetpotato0/deskflow/session"
)

// feedbackOutput is the JSON shape the classification model must return.
type feedbackOutput struct {
	Class     string `json:"class"`
	Rationale string `json:"rationale"`
}

// feedbackAgent classifies the user's reaction to a structured summary.
// Classification is not pure sentiment: a restated problem is unsatisfied
// regardless of tone.
type feedbackAgent struct {
	llm     agent.LLMClient
	prompt  string
	timeout time.Duration
}

func newFeedbackAgent(llm agent.LLMClient, cfg *Config) *feedbackAgent {
	return &feedbackAgent{
		llm:     llm,
		prompt:  cfg.FeedbackPrompt,
		timeout: cfg.ProviderTimeout,
	}
}

// Execute returns StatusContinue with a *session.Feedback as output. The
// user's feedback text arrives as req.Input.
func (f *feedbackAgent) Execute(ctx context.Context, req *agent.Request) (*agent.Result, error) {
	summaryJSON := ""
	if req.Session.Summary != nil {
		if data, err := json.Marshal(req.Session.Summary); err == nil {
			summaryJSON = string(data)
		}
	}

	userPrompt := prompt.NewBuilder().
		AddLabeled("Original question", req.Session.RefinedQuery).
		AddFormat("\nResponse shown to the user:\n%s\n\n", summaryJSON).
		AddFormat("User feedback:\n%s\n\n", req.Input).
		Add("Return JSON only.").
		Build()
	msgs := []*message.Message{
		message.NewMessage(message.RoleSystem, f.prompt),
		message.NewMessage(message.RoleUser, userPrompt),
	}

	raw, err := callModel(ctx, f.llm, f.timeout, msgs)
	if err != nil {
		return &agent.Result{Status: agent.StatusError, Rationale: "feedback analysis failed"}, err
	}

	out, err := decodeJSON[feedbackOutput](raw)
	if err != nil {
		return &agent.Result{Status: agent.StatusError, Rationale: "feedback classification invalid"},
			fmt.Errorf("feedback output invalid: %w", err)
	}

	class := session.SatisfactionClass(out.Class)
	switch class {
	case session.Satisfied, session.Unsatisfied, session.Ambiguous:
	default:
		// Unknown labels are too sparse to act on.
		class = session.Ambiguous
	}

	fb := &session.Feedback{Class: class, Rationale: out.Rationale}
	return &agent.Result{Status: agent.StatusContinue, Output: fb, Rationale: out.Rationale}, nil
}
