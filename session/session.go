package session

import (
	"time"

	"github.com/google/uuid"
)

// State represents where a session sits in the pipeline state machine.
type State string

const (
	StateRefining         State = "refining"
	StateAnswering        State = "answering"
	StateValidating       State = "validating"
	StateSummarizing      State = "summarizing"
	StateAwaitingFeedback State = "awaiting_feedback"
	StateEscalating       State = "escalating"
	StateTicketPending    State = "ticket_pending"

	// Terminal states.
	StateResolved      State = "resolved"
	StateTicketCreated State = "ticket_created"
	StateDeclined      State = "declined"
	StateRejected      State = "rejected"
	StateFailed        State = "failed"
)

// Terminal reports whether the state accepts no further transitions.
func (s State) Terminal() bool {
	switch s {
	case StateResolved, StateTicketCreated, StateDeclined, StateRejected, StateFailed:
		return true
	}
	return false
}

// SatisfactionClass is the feedback agent's classification of a user
// reaction. Only unsatisfied may lead to ticket creation; ambiguous causes
// a re-prompt, never an escalation.
type SatisfactionClass string

const (
	Satisfied   SatisfactionClass = "satisfied"
	Unsatisfied SatisfactionClass = "unsatisfied"
	Ambiguous   SatisfactionClass = "ambiguous"
)

// Summary is the structured, user-facing response produced by the
// summarization agent. The schema is fixed: every field must be populated.
type Summary struct {
	Headline string   `json:"headline"`
	Detail   string   `json:"detail"`
	Sources  []string `json:"sources"`
}

// Complete reports whether all required fields are populated.
func (s *Summary) Complete() bool {
	if s == nil || s.Headline == "" || s.Detail == "" || len(s.Sources) == 0 {
		return false
	}
	for _, src := range s.Sources {
		if src == "" {
			return false
		}
	}
	return true
}

// Feedback records the feedback agent's classification for the latest turn.
type Feedback struct {
	Class     SatisfactionClass `json:"class"`
	Rationale string            `json:"rationale"`
}

// EventType tags entries in the session history.
type EventType string

const (
	EventQueryReceived     EventType = "query_received"
	EventClarificationAsk  EventType = "clarification_asked"
	EventQueryRefined      EventType = "query_refined"
	EventAnswerGenerated   EventType = "answer_generated"
	EventVerdict           EventType = "verdict"
	EventSummaryReady      EventType = "summary_ready"
	EventFeedback          EventType = "feedback_classified"
	EventEscalationPrompt  EventType = "escalation_prompted"
	EventTicketConfirmed   EventType = "ticket_confirmed"
	EventTicketDeclined    EventType = "ticket_declined"
	EventTicketCreated     EventType = "ticket_created"
	EventFailure           EventType = "failure"
)

// Event is one append-only history entry. Invariant checks (for example
// "TicketCreated implies a prior confirmation event") read this log.
type Event struct {
	Type   EventType `json:"type"`
	Detail string    `json:"detail,omitempty"`
	At     time.Time `json:"at"`
}

const recentQueryLimit = 5

// Session is the mutable state of one conversation as it passes through the
// pipeline. It is owned exclusively by the orchestrator for the duration of
// one turn; the manager guarantees at most one in-flight turn per session.
type Session struct {
	ID            string   `json:"id"`
	State         State    `json:"state"`
	OriginalQuery string   `json:"original_query"`
	RefinedQuery  string   `json:"refined_query"`
	RecentQueries []string `json:"recent_queries,omitempty"`

	// Clarification loop bookkeeping. LastAnswer and LastRefined make
	// resubmission of the same clarification answer idempotent.
	ClarifyQuestion string `json:"clarify_question,omitempty"`
	ClarifyRounds   int    `json:"clarify_rounds"`
	LastAnswer      string `json:"last_answer,omitempty"`
	LastRefined     string `json:"last_refined,omitempty"`

	CandidateAnswer string   `json:"candidate_answer,omitempty"`
	Validated       bool     `json:"validated"`
	Summary         *Summary `json:"summary,omitempty"`

	Feedback        *Feedback `json:"feedback,omitempty"`
	TicketConfirmed bool      `json:"ticket_confirmed"`
	TicketID        string    `json:"ticket_id,omitempty"`

	History   []Event   `json:"history,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates a session in the Refining state. An empty id is replaced with
// a generated one.
func New(id string) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now()
	return &Session{
		ID:        id,
		State:     StateRefining,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetState updates the state and the modification timestamp.
func (s *Session) SetState(state State) {
	s.State = state
	s.UpdatedAt = time.Now()
}

// Record appends an event to the session history.
func (s *Session) Record(t EventType, detail string) {
	s.History = append(s.History, Event{Type: t, Detail: detail, At: time.Now()})
	s.UpdatedAt = time.Now()
}

// HasEvent reports whether an event of the given type exists in the history.
func (s *Session) HasEvent(t EventType) bool {
	for _, e := range s.History {
		if e.Type == t {
			return true
		}
	}
	return false
}

// PushQuery appends a query to the recent-query window, keeping the last
// five entries.
func (s *Session) PushQuery(q string) {
	s.RecentQueries = append(s.RecentQueries, q)
	if n := len(s.RecentQueries); n > recentQueryLimit {
		s.RecentQueries = s.RecentQueries[n-recentQueryLimit:]
	}
	s.UpdatedAt = time.Now()
}

// SetRefinedQuery replaces the refined query. Replacement is monotonic:
// clarification rounds overwrite, never append.
func (s *Session) SetRefinedQuery(q string) {
	s.RefinedQuery = q
	s.UpdatedAt = time.Now()
}

// ResetAnswer clears answer state before a new refinement cycle.
func (s *Session) ResetAnswer() {
	s.CandidateAnswer = ""
	s.Validated = false
	s.Summary = nil
	s.UpdatedAt = time.Now()
}

// Clone returns a deep copy used as the immutable snapshot handed to agents.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cloned := *s
	cloned.RecentQueries = append([]string(nil), s.RecentQueries...)
	cloned.History = append([]Event(nil), s.History...)
	if s.Summary != nil {
		sum := *s.Summary
		sum.Sources = append([]string(nil), s.Summary.Sources...)
		cloned.Summary = &sum
	}
	if s.Feedback != nil {
		fb := *s.Feedback
		cloned.Feedback = &fb
	}
	return &cloned
}
