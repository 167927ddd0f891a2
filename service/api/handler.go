package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/viant/hitl/model"
	"github.com/viant/hitl/service/approval"
	"go.uber.org/zap"
)

type message struct {
	Error string `json:"error,omitempty"`
	State string `json:"status,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, &message{State: "ok"})
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	var filters []approval.PendingFilter
	query := r.URL.Query()
	if runIDs := query["run_id"]; len(runIDs) > 0 {
		filters = append(filters, approval.WithRunID(runIDs...))
	}
	if tools := query["tool"]; len(tools) > 0 {
		filters = append(filters, approval.WithTool(tools...))
	}
	pending, err := approval.ListPending(r.Context(), s.service, filters...)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pending)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	interrupt, err := s.service.Pending(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, interrupt)
}

func (s *Server) decide(w http.ResponseWriter, r *http.Request) {
	decision := &model.Decision{}
	if err := json.NewDecoder(r.Body).Decode(decision); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if reviewer := ReviewerFromContext(r.Context()); reviewer != "" {
		decision.Reviewer = reviewer
	}
	outcome, err := s.service.Decide(r.Context(), chi.URLParam(r, "id"), decision)
	switch {
	case err == nil:
	case outcome == nil:
		s.writeError(w, err)
		return
	default:
		// the decision was consumed; only the work after it failed
		outcome.RunError = err.Error()
		s.logger.Warn("decision applied, run failed", zap.String("checkpoint_id", chi.URLParam(r, "id")), zap.Error(err))
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) abandon(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Abandon(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeError maps error kinds to status codes: a refused decision is a
// conflict with the interrupt's policy, a storage failure is retryable.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrPolicyViolation):
		status = http.StatusConflict
	case errors.Is(err, model.ErrStorage):
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	writeMessage(w, status, err.Error())
}

func writeMessage(w http.ResponseWriter, status int, text string) {
	writeJSON(w, status, &message{Error: text})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
