package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sweetpotato0/deskflow/agent"
	deskerrors "github.com/sweetpotato0/deskflow/errors"
	"github.com/sweetpotato0/deskflow/graph"
	"github.com/sweetpotato0/deskflow/knowledge"
	"github.com/sweetpotato0/deskflow/pkg/logging"
	"github.com/sweetpotato0/deskflow/pkg/telemetry"
	"github.com/sweetpotato0/deskflow/session"
	"github.com/sweetpotato0/deskflow/ticket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const turnStateKey = "__pipeline_turn_state"

// Clients groups the LLM clients used by the different pipeline agents. Any
// nil role falls back to Default.
type Clients struct {
	Default    agent.LLMClient
	Supervisor agent.LLMClient
	Answerer   agent.LLMClient
	Validator  agent.LLMClient
	Summarizer agent.LLMClient
	Feedback   agent.LLMClient
	Ticket     agent.LLMClient
}

// Orchestrator owns the pipeline state machine. It sequences the reasoning
// agents, carries session state between turns, and produces the payload
// returned to the caller. Sessions run fully concurrently; within one
// session the manager enforces a single in-flight turn.
type Orchestrator struct {
	cfg        *Config
	sessions   *session.Manager
	knowledge  knowledge.Provider
	tickets    ticket.Store
	supervisor *supervisor
	answerer   *answerer
	validator  *validator
	summarizer *summarizer
	feedback   *feedbackAgent
	ticketer   *ticketAgent
	graph      *graph.Graph
	logger     *slog.Logger
	tracer     trace.Tracer
}

// turnState is the per-turn scratch space threaded through the graph. It is
// never shared across turns or sessions.
type turnState struct {
	sess          *session.Session
	input         string // raw query or clarification answer
	clarification bool   // input answers a pending clarifying question
	resume        bool   // session already holds a refined query; skip refinement
	passages      []knowledge.Passage
	regenerations int
	retry         bool
	result        *TurnResult
}

// NewOrchestrator wires the full pipeline.
func NewOrchestrator(clients Clients, provider knowledge.Provider, sessions *session.Manager, tickets ticket.Store, opts ...Option) (*Orchestrator, error) {
	cfg := applyOptions(nil, opts)

	if provider == nil {
		return nil, fmt.Errorf("knowledge provider is required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if tickets == nil {
		return nil, fmt.Errorf("ticket store is required")
	}
	if pickClient(clients.Default, nil) == nil &&
		(clients.Supervisor == nil || clients.Answerer == nil || clients.Validator == nil ||
			clients.Summarizer == nil || clients.Feedback == nil || clients.Ticket == nil) {
		return nil, fmt.Errorf("a default LLM client is required when any role client is unset")
	}

	logger := logging.WithComponent("pipeline").With("pipeline", cfg.Name)
	o := &Orchestrator{
		cfg:        cfg,
		sessions:   sessions,
		knowledge:  provider,
		tickets:    tickets,
		supervisor: newSupervisor(pickClient(clients.Supervisor, clients.Default), cfg),
		answerer:   newAnswerer(pickClient(clients.Answerer, clients.Default), cfg, logger),
		validator:  newValidator(pickClient(clients.Validator, clients.Default), cfg),
		summarizer: newSummarizer(pickClient(clients.Summarizer, clients.Default), cfg),
		feedback:   newFeedbackAgent(pickClient(clients.Feedback, clients.Default), cfg),
		ticketer:   newTicketAgent(pickClient(clients.Ticket, clients.Default), cfg),
		logger:     logger,
		tracer:     telemetry.Tracer("github.com/sweetpotato0/deskflow/pipeline"),
	}

	builder := graph.NewBuilder().
		AddNode("start", graph.NodeTypeStart, o.startNode).
		AddConditionNode("route", o.routeGate, map[string]string{
			"refine": "refine",
			"answer": "answer",
		}).
		AddNode("refine", graph.NodeTypeAgent, o.refineNode).
		AddConditionNode("refine_gate", o.refineGate, map[string]string{
			"end":    "end",
			"answer": "answer",
		}).
		AddNode("answer", graph.NodeTypeAgent, o.answerNode).
		AddConditionNode("answer_gate", o.answerGate, map[string]string{
			"end":      "end",
			"validate": "validate",
		}).
		AddNode("validate", graph.NodeTypeAgent, o.validateNode).
		AddConditionNode("validate_gate", o.validateGate, map[string]string{
			"end":       "end",
			"answer":    "answer",
			"summarize": "summarize",
		}).
		AddNode("summarize", graph.NodeTypeAgent, o.summarizeNode).
		AddNode("end", graph.NodeTypeEnd, o.endNode).
		AddEdge("start", "route").
		AddEdge("refine", "refine_gate").
		AddEdge("answer", "answer_gate").
		AddEdge("validate", "validate_gate").
		AddEdge("summarize", "end").
		SetStart("start").
		SetMaxVisits(cfg.GraphMaxVisits)

	o.graph = builder.Build()
	o.logger.Info("pipeline initialised",
		"refinement_attempt_limit", cfg.RefinementAttemptLimit,
		"provider_timeout", cfg.ProviderTimeout,
	)
	return o, nil
}

func pickClient(primary, fallback agent.LLMClient) agent.LLMClient {
	if primary != nil {
		return primary
	}
	return fallback
}

// SubmitQuery starts or resumes a query cycle for the session. A new query
// resets the cycle; resubmitting the same query after a provider failure
// resumes from the answering stage without re-running refinement.
func (o *Orchestrator) SubmitQuery(ctx context.Context, sessionID, query string) (*TurnResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query cannot be empty", deskerrors.ErrInvalidInput)
	}

	sess, release, err := o.sessions.Acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, span := o.tracer.Start(ctx, "pipeline.submit_query",
		trace.WithAttributes(attribute.String("session.id", sess.ID)))
	var turnErr error
	defer func() { telemetry.End(span, turnErr) }()

	resume := query == sess.OriginalQuery && sess.RefinedQuery != "" &&
		(sess.State == session.StateAnswering || sess.State == session.StateValidating)
	if !resume {
		o.resetCycle(sess, query)
	}
	sess.Record(session.EventQueryReceived, query)

	res, err := o.runTurn(ctx, &turnState{sess: sess, input: query, resume: resume})
	turnErr = err
	return res, err
}

// SubmitClarification answers a pending clarifying question and re-enters
// refinement. Resubmitting the same answer replays the cached refined query
// instead of consuming another refinement attempt.
func (o *Orchestrator) SubmitClarification(ctx context.Context, sessionID, answer string) (*TurnResult, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, fmt.Errorf("%w: clarification answer cannot be empty", deskerrors.ErrInvalidInput)
	}

	sess, release, err := o.sessions.Acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, span := o.tracer.Start(ctx, "pipeline.submit_clarification",
		trace.WithAttributes(attribute.String("session.id", sess.ID)))
	var turnErr error
	defer func() { telemetry.End(span, turnErr) }()

	if sess.State.Terminal() {
		turnErr = fmt.Errorf("%w: session %s is closed", deskerrors.ErrInvalidInput, sess.ID)
		return nil, turnErr
	}
	replay := answer == sess.LastAnswer && sess.LastRefined != ""
	if !replay && (sess.State != session.StateRefining || sess.ClarifyQuestion == "") {
		turnErr = fmt.Errorf("%w: session %s has no pending clarification", deskerrors.ErrInvalidInput, sess.ID)
		return nil, turnErr
	}

	res, err := o.runTurn(ctx, &turnState{sess: sess, input: answer, clarification: true})
	turnErr = err
	return res, err
}

// SubmitFeedback classifies the user's reaction to the structured summary
// and decides whether escalation is warranted.
func (o *Orchestrator) SubmitFeedback(ctx context.Context, sessionID, feedbackText string) (*TurnResult, error) {
	feedbackText = strings.TrimSpace(feedbackText)
	if feedbackText == "" {
		return nil, fmt.Errorf("%w: feedback cannot be empty", deskerrors.ErrInvalidInput)
	}

	sess, release, err := o.sessions.Acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, span := o.tracer.Start(ctx, "pipeline.submit_feedback",
		trace.WithAttributes(attribute.String("session.id", sess.ID)))
	var turnErr error
	defer func() { telemetry.End(span, turnErr) }()

	if sess.State != session.StateAwaitingFeedback {
		turnErr = fmt.Errorf("%w: session %s is not awaiting feedback", deskerrors.ErrInvalidInput, sess.ID)
		return nil, turnErr
	}

	res, err := o.feedback.Execute(ctx, &agent.Request{Session: sess.Clone(), Input: feedbackText})
	if err != nil || res.Status == agent.StatusError {
		o.logger.Error("feedback classification failed", "session", sess.ID, "error", err)
		return o.errorResult(sess, res.Rationale, err), nil
	}

	fb := res.Output.(*session.Feedback)
	sess.Feedback = fb
	sess.Record(session.EventFeedback, fmt.Sprintf("%s: %s", fb.Class, fb.Rationale))
	o.logger.Info("feedback classified", "session", sess.ID, "class", fb.Class)

	switch fb.Class {
	case session.Satisfied:
		sess.SetState(session.StateResolved)
		return &TurnResult{
			SessionID: sess.ID,
			State:     sess.State,
			Status:    agent.StatusContinue,
			Kind:      PayloadAcknowledgment,
			Rationale: fb.Rationale,
		}, nil

	case session.Ambiguous:
		// One direct follow-up, never an escalation.
		return &TurnResult{
			SessionID: sess.ID,
			State:     sess.State,
			Status:    agent.StatusNeedsClarification,
			Kind:      PayloadFollowUp,
			Question:  o.cfg.FollowUpQuestion,
			Rationale: fb.Rationale,
		}, nil

	default: // unsatisfied
		sess.SetState(session.StateEscalating)
		sess.Record(session.EventEscalationPrompt, o.cfg.EscalationPrompt)
		sess.SetState(session.StateTicketPending)
		return &TurnResult{
			SessionID: sess.ID,
			State:     sess.State,
			Status:    agent.StatusContinue,
			Kind:      PayloadEscalationPrompt,
			Question:  o.cfg.EscalationPrompt,
			Rationale: fb.Rationale,
		}, nil
	}
}

// ConfirmTicket resolves a pending escalation. Confirmation files a ticket;
// declining closes the session without one.
func (o *Orchestrator) ConfirmTicket(ctx context.Context, sessionID string, confirmed bool) (*TurnResult, error) {
	sess, release, err := o.sessions.Acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, span := o.tracer.Start(ctx, "pipeline.confirm_ticket",
		trace.WithAttributes(
			attribute.String("session.id", sess.ID),
			attribute.Bool("confirmed", confirmed),
		))
	var turnErr error
	defer func() { telemetry.End(span, turnErr) }()

	if sess.State != session.StateTicketPending {
		turnErr = fmt.Errorf("%w: session %s has no pending escalation", deskerrors.ErrInvalidTicketRequest, sess.ID)
		return nil, turnErr
	}

	if !confirmed {
		sess.Record(session.EventTicketDeclined, "")
		sess.SetState(session.StateDeclined)
		o.logger.Info("ticket declined", "session", sess.ID)
		return &TurnResult{
			SessionID: sess.ID,
			State:     sess.State,
			Status:    agent.StatusContinue,
			Kind:      PayloadDeclined,
		}, nil
	}

	sess.TicketConfirmed = true
	sess.Record(session.EventTicketConfirmed, "")

	res, err := o.ticketer.Execute(ctx, &agent.Request{Session: sess.Clone()})
	if err != nil || res.Status != agent.StatusContinue {
		o.logger.Error("ticket drafting failed", "session", sess.ID, "error", err)
		// The escalation stays pending; the caller may confirm again.
		return o.errorResult(sess, res.Rationale, err), nil
	}

	rec := res.Output.(*ticket.Ticket)
	if err := o.tickets.Create(ctx, rec); err != nil {
		o.logger.Error("ticket persistence failed", "session", sess.ID, "error", err)
		return o.errorResult(sess, "the ticket could not be saved", err), nil
	}

	sess.TicketID = rec.ID
	sess.Record(session.EventTicketCreated, rec.ID)
	sess.SetState(session.StateTicketCreated)
	o.logger.Info("ticket created", "session", sess.ID, "ticket", rec.ID, "category", rec.Category)

	return &TurnResult{
		SessionID: sess.ID,
		State:     sess.State,
		Status:    agent.StatusContinue,
		Kind:      PayloadTicket,
		Ticket:    rec,
	}, nil
}

// Session returns a read-only snapshot of the session. The snapshot is the
// state as of the last completed turn; a turn in flight is never exposed.
func (o *Orchestrator) Session(ctx context.Context, id string) (*session.Session, error) {
	return o.sessions.Lookup(ctx, id)
}

// Tickets exposes the ticket store for listing.
func (o *Orchestrator) Tickets() ticket.Store {
	return o.tickets
}

// resetCycle prepares the session for a fresh query cycle. History and the
// recent-query window survive; everything turn-scoped is cleared.
func (o *Orchestrator) resetCycle(sess *session.Session, query string) {
	sess.OriginalQuery = query
	sess.RefinedQuery = ""
	sess.ClarifyQuestion = ""
	sess.ClarifyRounds = 0
	sess.LastAnswer = ""
	sess.LastRefined = ""
	sess.Feedback = nil
	sess.TicketConfirmed = false
	sess.TicketID = ""
	sess.ResetAnswer()
	sess.PushQuery(query)
	sess.SetState(session.StateRefining)
}

func (o *Orchestrator) runTurn(ctx context.Context, ts *turnState) (*TurnResult, error) {
	if _, err := o.graph.Execute(ctx, graph.State{turnStateKey: ts}); err != nil {
		return nil, err
	}
	if ts.result == nil {
		return nil, fmt.Errorf("turn finished without a result")
	}
	return ts.result, nil
}

func (o *Orchestrator) startNode(ctx context.Context, state graph.State) (graph.State, error) {
	_, err := getTurn(state)
	return state, err
}

func (o *Orchestrator) routeGate(ctx context.Context, state graph.State) (string, error) {
	ts, err := getTurn(state)
	if err != nil {
		return "", err
	}
	if ts.resume {
		return "answer", nil
	}
	return "refine", nil
}

func (o *Orchestrator) refineNode(ctx context.Context, state graph.State) (graph.State, error) {
	ts, err := getTurn(state)
	if err != nil {
		return state, err
	}
	sess := ts.sess

	// Replaying the same clarification answer yields the cached refinement
	// and does not consume another attempt.
	if ts.clarification && ts.input == sess.LastAnswer && sess.LastRefined != "" {
		sess.SetRefinedQuery(sess.LastRefined)
		sess.SetState(session.StateAnswering)
		sess.ResetAnswer()
		return state, nil
	}

	sess.ClarifyRounds++
	res, err := o.supervisor.Execute(ctx, &agent.Request{Session: sess.Clone(), Input: ts.input})
	if err != nil || res.Status == agent.StatusError {
		o.logger.Error("refinement failed", "session", sess.ID, "error", err)
		ts.result = o.errorResult(sess, res.Rationale, err)
		return state, nil
	}

	switch res.Status {
	case agent.StatusNeedsClarification:
		question := res.Output.(string)
		if sess.ClarifyRounds >= o.cfg.RefinementAttemptLimit {
			sess.Record(session.EventFailure, "refinement attempts exhausted")
			sess.SetState(session.StateRejected)
			o.logger.Warn("refinement exhausted", "session", sess.ID, "rounds", sess.ClarifyRounds)
			ts.result = &TurnResult{
				SessionID: sess.ID,
				State:     sess.State,
				Status:    agent.StatusRejected,
				Kind:      PayloadRejection,
				Rationale: "the query could not be refined into an answerable question; please start over with more detail",
				Err:       deskerrors.ErrClarificationExhausted,
			}
			return state, nil
		}
		sess.ClarifyQuestion = question
		sess.Record(session.EventClarificationAsk, question)
		o.logger.Info("clarification requested", "session", sess.ID, "round", sess.ClarifyRounds)
		ts.result = &TurnResult{
			SessionID: sess.ID,
			State:     sess.State,
			Status:    agent.StatusNeedsClarification,
			Kind:      PayloadClarification,
			Question:  question,
			Rationale: res.Rationale,
		}
		return state, nil

	default: // continue
		refined := res.Output.(string)
		sess.SetRefinedQuery(refined)
		sess.Record(session.EventQueryRefined, refined)
		if ts.clarification {
			sess.LastAnswer = ts.input
			sess.LastRefined = refined
		}
		sess.ClarifyQuestion = ""
		sess.ResetAnswer()
		sess.SetState(session.StateAnswering)
		o.logger.Info("query refined", "session", sess.ID)
		return state, nil
	}
}

func (o *Orchestrator) refineGate(ctx context.Context, state graph.State) (string, error) {
	ts, err := getTurn(state)
	if err != nil {
		return "", err
	}
	if ts.result != nil {
		return "end", nil
	}
	return "answer", nil
}

func (o *Orchestrator) answerNode(ctx context.Context, state graph.State) (graph.State, error) {
	ts, err := getTurn(state)
	if err != nil {
		return state, err
	}
	sess := ts.sess
	sess.SetState(session.StateAnswering)

	passages, err := o.knowledge.Search(ctx, sess.RefinedQuery)
	if err != nil {
		o.logger.Warn("knowledge retrieval failed, retrying once", "session", sess.ID, "error", err)
		passages, err = o.knowledge.Search(ctx, sess.RefinedQuery)
	}
	if err != nil {
		o.logger.Error("knowledge retrieval failed", "session", sess.ID, "error", err)
		sess.Record(session.EventFailure, "knowledge retrieval failed")
		ts.result = o.errorResult(sess, "the knowledge base is unavailable",
			fmt.Errorf("%w: %v", deskerrors.ErrProviderUnavailable, err))
		return state, nil
	}
	ts.passages = passages

	res, err := o.answerer.Execute(ctx, &agent.Request{
		Session: sess.Clone(),
		Input:   sess.RefinedQuery,
		Context: renderPassages(passages),
	})
	if err != nil || res.Status == agent.StatusError {
		o.logger.Error("answer generation failed", "session", sess.ID, "error", err)
		sess.Record(session.EventFailure, "answer generation failed")
		// The session stays in Answering: resubmitting the query resumes here.
		ts.result = o.errorResult(sess, res.Rationale, err)
		return state, nil
	}

	sess.CandidateAnswer = res.Output.(string)
	sess.Record(session.EventAnswerGenerated, "")
	sess.SetState(session.StateValidating)
	return state, nil
}

func (o *Orchestrator) answerGate(ctx context.Context, state graph.State) (string, error) {
	ts, err := getTurn(state)
	if err != nil {
		return "", err
	}
	if ts.result != nil {
		return "end", nil
	}
	return "validate", nil
}

func (o *Orchestrator) validateNode(ctx context.Context, state graph.State) (graph.State, error) {
	ts, err := getTurn(state)
	if err != nil {
		return state, err
	}
	sess := ts.sess

	res, err := o.validator.Execute(ctx, &agent.Request{
		Session: sess.Clone(),
		Input:   sess.CandidateAnswer,
		Context: renderPassages(ts.passages),
	})
	if err != nil || res.Status == agent.StatusError {
		o.logger.Error("validation failed", "session", sess.ID, "error", err)
		sess.Record(session.EventFailure, "validation failed")
		ts.result = o.errorResult(sess, res.Rationale, err)
		return state, nil
	}

	verdict := res.Output.(*Verdict)
	if verdict.Pass() {
		sess.Validated = true
		sess.Record(session.EventVerdict, "pass: "+verdict.Rationale)
		sess.SetState(session.StateSummarizing)
		return state, nil
	}

	sess.Record(session.EventVerdict, "fail: "+verdict.Rationale)
	o.logger.Warn("candidate answer rejected by validation",
		"session", sess.ID, "regenerations", ts.regenerations, "rationale", verdict.Rationale)

	if ts.regenerations < validationRetryLimit {
		ts.regenerations++
		ts.retry = true
		sess.ResetAnswer()
		return state, nil
	}

	sess.SetState(session.StateRejected)
	ts.result = &TurnResult{
		SessionID: sess.ID,
		State:     sess.State,
		Status:    agent.StatusRejected,
		Kind:      PayloadRejection,
		Rationale: "no adequate answer could be produced for this question; please try rephrasing it",
		Err:       deskerrors.ErrValidationExhausted,
	}
	return state, nil
}

func (o *Orchestrator) validateGate(ctx context.Context, state graph.State) (string, error) {
	ts, err := getTurn(state)
	if err != nil {
		return "", err
	}
	if ts.result != nil {
		return "end", nil
	}
	if ts.retry {
		ts.retry = false
		return "answer", nil
	}
	return "summarize", nil
}

func (o *Orchestrator) summarizeNode(ctx context.Context, state graph.State) (graph.State, error) {
	ts, err := getTurn(state)
	if err != nil {
		return state, err
	}
	sess := ts.sess

	titles := make([]string, 0, len(ts.passages))
	for _, p := range ts.passages {
		if p.Title != "" {
			titles = append(titles, p.Title)
		}
	}

	res, err := o.summarizer.Execute(ctx, &agent.Request{
		Session: sess.Clone(),
		Input:   sess.CandidateAnswer,
		Context: titles,
	})
	if err != nil || res.Status == agent.StatusError {
		o.logger.Error("summarization failed", "session", sess.ID, "error", err)
		sess.Record(session.EventFailure, "summarization failed")
		if errors.Is(err, deskerrors.ErrMalformedSummary) {
			sess.SetState(session.StateFailed)
		}
		ts.result = o.errorResult(sess, res.Rationale, err)
		return state, nil
	}

	sess.Summary = res.Output.(*session.Summary)
	sess.Record(session.EventSummaryReady, sess.Summary.Headline)
	sess.SetState(session.StateAwaitingFeedback)
	o.logger.Info("summary ready", "session", sess.ID)

	ts.result = &TurnResult{
		SessionID: sess.ID,
		State:     sess.State,
		Status:    agent.StatusContinue,
		Kind:      PayloadSummary,
		Summary:   sess.Summary,
	}
	return state, nil
}

func (o *Orchestrator) endNode(ctx context.Context, state graph.State) (graph.State, error) {
	ts, err := getTurn(state)
	if err != nil {
		return state, err
	}
	if ts.result == nil {
		return state, fmt.Errorf("turn reached end without a result")
	}
	return state, nil
}

func (o *Orchestrator) errorResult(sess *session.Session, rationale string, err error) *TurnResult {
	if rationale == "" {
		rationale = "an internal error interrupted this turn"
	}
	return &TurnResult{
		SessionID: sess.ID,
		State:     sess.State,
		Status:    agent.StatusError,
		Kind:      PayloadError,
		Rationale: rationale,
		Err:       err,
	}
}

func getTurn(state graph.State) (*turnState, error) {
	raw, ok := state[turnStateKey]
	if !ok {
		return nil, fmt.Errorf("turn state missing in graph")
	}
	ts, ok := raw.(*turnState)
	if !ok {
		return nil, fmt.Errorf("invalid turn state type")
	}
	return ts, nil
}

func renderPassages(passages []knowledge.Passage) []string {
	out := make([]string, len(passages))
	for i, p := range passages {
		if p.Title != "" {
			out[i] = fmt.Sprintf("%s: %s", p.Title, p.Content)
			continue
		}
		out[i] = p.Content
	}
	return out
}
