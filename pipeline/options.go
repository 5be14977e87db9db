package pipeline

import (
	"strings"
	"time"
)

// validationRetryLimit is how many regeneration attempts a failed validation
// may trigger. Fixed: a second failed candidate ends the turn.
const validationRetryLimit = 1

// TokenCounter measures prompt text so retrieved passages can be capped to a
// budget before generation.
type TokenCounter interface {
	CountTokens(text string) int
}

// Config controls the orchestrator and the prompts of its agents. Callers
// construct reproducible pipelines from a single struct; it is never mutated
// after New.
type Config struct {
	Name string // Logical name for tracing/logging

	RefinementAttemptLimit int           // Supervisor invocations per query cycle before giving up
	ProviderTimeout        time.Duration // Deadline applied to each model call
	GraphMaxVisits         int           // Safety guard for graph execution
	ContextTokenBudget     int           // Max tokens of passage text included in prompts (0 = unlimited)

	SupervisorPrompt string
	AnswerPrompt     string
	ValidatorPrompt  string
	SummarizerPrompt string
	FeedbackPrompt   string
	TicketPrompt     string

	// FollowUpQuestion is the single direct follow-up asked when feedback is
	// too sparse to classify.
	FollowUpQuestion string

	// EscalationPrompt is relayed to the user when unsatisfied feedback makes
	// the session eligible for a ticket.
	EscalationPrompt string

	tokenCounter TokenCounter
}

// Option customises the pipeline configuration.
type Option func(*Config)

// WithName sets the logical pipeline name used in logs and traces.
func WithName(name string) Option {
	return func(cfg *Config) {
		if strings.TrimSpace(name) != "" {
			cfg.Name = name
		}
	}
}

// WithRefinementAttemptLimit bounds how many times the supervisor may run for
// one query cycle before the turn is rejected.
func WithRefinementAttemptLimit(limit int) Option {
	return func(cfg *Config) {
		if limit > 0 {
			cfg.RefinementAttemptLimit = limit
		}
	}
}

// WithProviderTimeout bounds every model call.
func WithProviderTimeout(d time.Duration) Option {
	return func(cfg *Config) {
		if d > 0 {
			cfg.ProviderTimeout = d
		}
	}
}

// WithGraphMaxVisits tweaks the safety guard for graph traversal.
func WithGraphMaxVisits(max int) Option {
	return func(cfg *Config) {
		if max > 0 {
			cfg.GraphMaxVisits = max
		}
	}
}

// WithTokenCounter plugs in a tokenizer used to enforce the passage budget.
func WithTokenCounter(tc TokenCounter) Option {
	return func(cfg *Config) {
		if tc != nil {
			cfg.tokenCounter = tc
		}
	}
}

// WithContextTokenBudget caps the token count of passage text per prompt.
// Requires a token counter to take effect.
func WithContextTokenBudget(budget int) Option {
	return func(cfg *Config) {
		if budget > 0 {
			cfg.ContextTokenBudget = budget
		}
	}
}

// WithSupervisorPrompt sets the system prompt of the query refinement agent.
func WithSupervisorPrompt(prompt string) Option {
	return func(cfg *Config) {
		if prompt != "" {
			cfg.SupervisorPrompt = prompt
		}
	}
}

// WithAnswerPrompt sets the system prompt of the answer generation step.
func WithAnswerPrompt(prompt string) Option {
	return func(cfg *Config) {
		if prompt != "" {
			cfg.AnswerPrompt = prompt
		}
	}
}

// WithValidatorPrompt sets the system prompt of the validation agent.
func WithValidatorPrompt(prompt string) Option {
	return func(cfg *Config) {
		if prompt != "" {
			cfg.ValidatorPrompt = prompt
		}
	}
}

// WithSummarizerPrompt sets the system prompt of the summarization agent.
func WithSummarizerPrompt(prompt string) Option {
	return func(cfg *Config) {
		if prompt != "" {
			cfg.SummarizerPrompt = prompt
		}
	}
}

// WithFeedbackPrompt sets the system prompt of the feedback analysis agent.
func WithFeedbackPrompt(prompt string) Option {
	return func(cfg *Config) {
		if prompt != "" {
			cfg.FeedbackPrompt = prompt
		}
	}
}

// WithTicketPrompt sets the system prompt of the ticket agent.
func WithTicketPrompt(prompt string) Option {
	return func(cfg *Config) {
		if prompt != "" {
			cfg.TicketPrompt = prompt
		}
	}
}

// WithFollowUpQuestion overrides the follow-up asked on ambiguous feedback.
func WithFollowUpQuestion(q string) Option {
	return func(cfg *Config) {
		if strings.TrimSpace(q) != "" {
			cfg.FollowUpQuestion = q
		}
	}
}

// WithEscalationPrompt overrides the ticket confirmation prompt.
func WithEscalationPrompt(p string) Option {
	return func(cfg *Config) {
		if strings.TrimSpace(p) != "" {
			cfg.EscalationPrompt = p
		}
	}
}

func defaultConfig() *Config {
	return &Config{
		Name:                   "deskflow",
		RefinementAttemptLimit: 3,
		ProviderTimeout:        30 * time.Second,
		GraphMaxVisits:         10,

		SupervisorPrompt: `You are the intake supervisor for an IT helpdesk assistant. Decide whether the user's query is well-formed: it must name a concrete subject and an actionable intent. Placeholder pronouns without an antecedent, a missing subject, or multiple plausible interpretations make it ambiguous.
Return JSON only matching {"well_formed":true|false,"refined_query":"...","clarifying_question":"..."}.
Rules:
- When well-formed, set "refined_query" to a single self-contained question that preserves the user's intent and leave "clarifying_question" empty.
- When ambiguous, set "well_formed" to false and ask exactly one clarifying question that names the missing piece (for example which device, which application, which error).
- Fold any prior clarification answer into the refined query instead of repeating the question.`,

		AnswerPrompt: `You are an IT helpdesk assistant. Answer the user's question using only the reference passages supplied below. Be concise and actionable. If the passages do not cover the question, say what is missing instead of guessing.`,

		ValidatorPrompt: `You are the quality reviewer for an IT helpdesk assistant. Judge the candidate answer against the reference passages.
Return JSON only matching {"accurate":true|false,"relevant":true|false,"rationale":"..."}.
Rules:
- "accurate" is true only when every factual claim in the answer is supported by the passages.
- "relevant" is true only when the answer addresses the user's actual question.
- Keep the rationale to one or two sentences naming the failing claim when either flag is false.`,

		SummarizerPrompt: `You condense a validated helpdesk answer into a structured response.
Return JSON only matching {"headline":"...","detail":"...","sources":["..."]}.
Rules:
- "headline" is one sentence stating the resolution.
- "detail" carries the concrete steps or explanation.
- "sources" lists the titles of the reference passages the answer relied on.
- Every field is required; never emit an empty field.`,

		FeedbackPrompt: `You classify a user's reaction to a helpdesk answer.
Return JSON only matching {"class":"satisfied|unsatisfied|ambiguous","rationale":"..."}.
Rules:
- "satisfied" means the user indicates the issue is resolved.
- "unsatisfied" means the issue persists. A user who restates the same problem is unsatisfied even if they compliment the answer.
- "ambiguous" is reserved for feedback too sparse to classify, such as a bare acknowledgment.
- The rationale is one sentence explaining the classification.`,

		TicketPrompt: `You file a support ticket for an unresolved helpdesk issue.
Return JSON only matching {"issue_summary":"...","category":"..."}.
Rules:
- "issue_summary" is two or three sentences covering the user's question, the answer given, and why it did not resolve the issue.
- "category" must be exactly one of: Network Issue, Password Reset, Software Installation, Hardware Problem.`,

		FollowUpQuestion: "Did that answer resolve your issue, or is something still not working?",
		EscalationPrompt: "It sounds like the issue is not resolved. Should I file a support ticket for you?",
	}
}

func applyOptions(cfg *Config, opts []Option) *Config {
	if cfg == nil {
		cfg = defaultConfig()
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
