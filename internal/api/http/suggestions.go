package apihttp

import (
	"log/slog"
	"net/http"
	"strings"

	"titlevault/internal/domain"
)

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	if s.suggestions == nil {
		writeError(w, http.StatusServiceUnavailable, "service_unavailable", "suggestions are not configured")
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.listSuggestions(w, r)
	case http.MethodPost:
		s.submitSuggestion(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) submitSuggestion(w http.ResponseWriter, r *http.Request) {
	var suggestion domain.Suggestion
	if err := decodeJSONBody(r, &suggestion); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	created, err := s.suggestions.Submit(r.Context(), s.caller(r), suggestion)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) listSuggestions(w http.ResponseWriter, r *http.Request) {
	caller := s.caller(r)
	if !caller.Privileged {
		writeError(w, http.StatusForbidden, "forbidden", "privileged caller required")
		return
	}
	items, err := s.suggestions.ListPending(r.Context(), caller)
	if err != nil {
		s.logger.Warn("list suggestions failed", slog.String("error", err.Error()))
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleApproveSuggestion(w http.ResponseWriter, r *http.Request) {
	s.reviewSuggestion(w, r, true)
}

func (s *Server) handleRejectSuggestion(w http.ResponseWriter, r *http.Request) {
	s.reviewSuggestion(w, r, false)
}

func (s *Server) reviewSuggestion(w http.ResponseWriter, r *http.Request, approve bool) {
	if s.suggestions == nil {
		writeError(w, http.StatusServiceUnavailable, "service_unavailable", "suggestions are not configured")
		return
	}
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "suggestion id is required")
		return
	}

	caller := s.caller(r)
	review := s.suggestions.Reject
	if approve {
		review = s.suggestions.Approve
	}
	updated, applied, err := review(r.Context(), caller, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !applied {
		writeError(w, http.StatusForbidden, "forbidden", "privileged caller required")
		return
	}
	s.logger.Info("suggestion reviewed",
		slog.String("id", updated.ID),
		slog.String("status", string(updated.Status)),
		slog.String("reviewer", caller.ID),
	)
	writeJSON(w, http.StatusOK, updated)
}
