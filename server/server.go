package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	deskerrors "github.com/sweetpotato0/deskflow/errors"
	"github.com/sweetpotato0/deskflow/pipeline"
	"github.com/sweetpotato0/deskflow/pkg/logging"
)

// Handler exposes the pipeline over HTTP.
type Handler struct {
	pipe   *pipeline.Orchestrator
	logger *slog.Logger
}

// NewHandler creates the HTTP handler for the pipeline.
func NewHandler(pipe *pipeline.Orchestrator) *Handler {
	return &Handler{
		pipe:   pipe,
		logger: logging.WithComponent("server"),
	}
}

// Router builds the chi router with all routes registered.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(2 * time.Minute))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/query", h.SubmitQuery)
		r.Post("/clarify", h.SubmitClarification)
		r.Post("/feedback", h.SubmitFeedback)
		r.Post("/ticket/confirm", h.ConfirmTicket)
		r.Get("/tickets", h.ListTickets)
		r.Get("/sessions/{id}", h.GetSession)
		r.Get("/health", h.Health)
	})
	return r
}

type queryRequest struct {
	SessionID string `json:"session_id"`
	Query     string `json:"query"`
}

type clarifyRequest struct {
	SessionID string `json:"session_id"`
	Answer    string `json:"answer"`
}

type feedbackRequest struct {
	SessionID string `json:"session_id"`
	Feedback  string `json:"feedback"`
}

type confirmRequest struct {
	SessionID string `json:"session_id"`
	Confirmed bool   `json:"confirmed"`
}

// turnResponse is the wire shape of a pipeline turn result.
type turnResponse struct {
	*pipeline.TurnResult
	ErrorKind string `json:"error_kind,omitempty"`
}

// SubmitQuery starts or resumes a query cycle.
func (h *Handler) SubmitQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.pipe.SubmitQuery(r.Context(), req.SessionID, req.Query)
	h.writeTurn(w, res, err)
}

// SubmitClarification answers a pending clarifying question.
func (h *Handler) SubmitClarification(w http.ResponseWriter, r *http.Request) {
	var req clarifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.pipe.SubmitClarification(r.Context(), req.SessionID, req.Answer)
	h.writeTurn(w, res, err)
}

// SubmitFeedback classifies the user's reaction to a summary.
func (h *Handler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.pipe.SubmitFeedback(r.Context(), req.SessionID, req.Feedback)
	h.writeTurn(w, res, err)
}

// ConfirmTicket resolves a pending escalation.
func (h *Handler) ConfirmTicket(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.pipe.ConfirmTicket(r.Context(), req.SessionID, req.Confirmed)
	h.writeTurn(w, res, err)
}

// ListTickets returns all filed tickets.
func (h *Handler) ListTickets(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.pipe.Tickets().List(r.Context())
	if err != nil {
		h.logger.Error("list tickets failed", "error", err)
		Error(w, http.StatusInternalServerError, "could not list tickets")
		return
	}
	JSON(w, http.StatusOK, map[string]any{"tickets": tickets})
}

// GetSession returns a session snapshot.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := h.pipe.Session(r.Context(), id)
	if err != nil {
		Error(w, http.StatusNotFound, "session not found")
		return
	}
	JSON(w, http.StatusOK, sess)
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeTurn(w http.ResponseWriter, res *pipeline.TurnResult, err error) {
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, deskerrors.ErrSessionBusy):
			status = http.StatusConflict
		case errors.Is(err, deskerrors.ErrInvalidInput), errors.Is(err, deskerrors.ErrInvalidTicketRequest):
			status = http.StatusBadRequest
		case errors.Is(err, deskerrors.ErrSessionNotFound), errors.Is(err, deskerrors.ErrNotFound):
			status = http.StatusNotFound
		}
		h.logger.Warn("turn rejected", "status", status, "error", err)
		Error(w, status, err.Error())
		return
	}
	JSON(w, http.StatusOK, turnResponse{TurnResult: res, ErrorKind: errorKind(res.Err)})
}

// errorKind maps a turn failure to its stable taxonomy name.
func errorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, deskerrors.ErrClarificationExhausted):
		return "clarification_exhausted"
	case errors.Is(err, deskerrors.ErrValidationExhausted):
		return "validation_exhausted"
	case errors.Is(err, deskerrors.ErrProviderTimeout):
		return "provider_timeout"
	case errors.Is(err, deskerrors.ErrProviderUnavailable):
		return "provider_unavailable"
	case errors.Is(err, deskerrors.ErrMalformedSummary):
		return "malformed_summary"
	case errors.Is(err, deskerrors.ErrInvalidTicketRequest):
		return "invalid_ticket_request"
	default:
		return "internal"
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]string{"error": msg})
}
