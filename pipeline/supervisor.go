package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sweetpotato0/deskflow/agent"
	"github.com/sweetpotato0/deskflow/message"
	"github.com/sweetpotato0/deskflow/prompt"
)

// supervisorOutput is the JSON shape the refinement model must return.
type supervisorOutput struct {
	WellFormed         bool   `json:"well_formed"`
	RefinedQuery       string `json:"refined_query"`
	ClarifyingQuestion string `json:"clarifying_question"`
}

// supervisor refines an ambiguous query into a self-contained question or
// asks the caller for the missing piece.
type supervisor struct {
	llm     agent.LLMClient
	prompt  string
	timeout time.Duration
}

func newSupervisor(llm agent.LLMClient, cfg *Config) *supervisor {
	return &supervisor{
		llm:     llm,
		prompt:  cfg.SupervisorPrompt,
		timeout: cfg.ProviderTimeout,
	}
}

// Execute returns StatusContinue with the refined query as output, or
// StatusNeedsClarification with the question to relay.
func (s *supervisor) Execute(ctx context.Context, req *agent.Request) (*agent.Result, error) {
	b := prompt.NewBuilder().
		AddLabeled("Original query", req.Session.OriginalQuery)
	if req.Session.ClarifyQuestion != "" {
		b.AddLabeled("Clarifying question previously asked", req.Session.ClarifyQuestion).
			AddLabeled("User's clarification answer", req.Input)
	}
	if len(req.Session.RecentQueries) > 1 {
		b.AddLabeled("Recent queries in this conversation", strings.Join(req.Session.RecentQueries, "; "))
	}
	b.Add("Return JSON only.")

	msgs := []*message.Message{
		message.NewMessage(message.RoleSystem, s.prompt),
		message.NewMessage(message.RoleUser, b.Build()),
	}

	raw, err := callModel(ctx, s.llm, s.timeout, msgs)
	if err != nil {
		return &agent.Result{Status: agent.StatusError, Rationale: "query refinement failed"}, err
	}

	out, err := decodeJSON[supervisorOutput](raw)
	if err != nil {
		return &agent.Result{Status: agent.StatusError, Rationale: "refinement output invalid"},
			fmt.Errorf("supervisor output invalid: %w", err)
	}

	if !out.WellFormed {
		question := strings.TrimSpace(out.ClarifyingQuestion)
		if question == "" {
			question = "Could you describe what exactly is affected and what you are trying to do?"
		}
		return &agent.Result{
			Status:    agent.StatusNeedsClarification,
			Output:    question,
			Rationale: "query lacks a concrete subject or actionable intent",
		}, nil
	}

	refined := strings.TrimSpace(out.RefinedQuery)
	if refined == "" {
		return &agent.Result{Status: agent.StatusError, Rationale: "refinement output invalid"},
			fmt.Errorf("supervisor marked query well-formed but returned no refined query")
	}
	return &agent.Result{Status: agent.StatusContinue, Output: refined}, nil
}
