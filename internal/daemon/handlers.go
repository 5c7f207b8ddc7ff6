package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/felixgeelhaar/oaspractice/internal/domain"
)

// Error codes returned in {error, message} bodies
const (
	codeNotFound       = "scenario_not_found"
	codeInvalidRequest = "invalid_request"
	codeInternal       = "internal_error"
)

// maxSolutionBytes bounds the validate request body
const maxSolutionBytes = 1 << 20

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type validateRequest struct {
	Solution string `json:"solution"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: code, Message: message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "healthy",
		"version":          s.version,
		"scenarios_loaded": s.registry.Count(),
	})
}

func (s *Server) handleListScenarios(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var topics []domain.Topic
	if raw := q.Get("topics"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			t := domain.Topic(strings.TrimSpace(part))
			if t == "" {
				continue
			}
			if !t.Valid() {
				writeError(w, http.StatusBadRequest, codeInvalidRequest, fmt.Sprintf("Unknown topic '%s'", t))
				return
			}
			topics = append(topics, t)
		}
	}

	difficulty := domain.Difficulty(q.Get("difficulty"))
	if difficulty != "" && !difficulty.Valid() {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, fmt.Sprintf("Unknown difficulty '%s'", difficulty))
		return
	}

	scenarios := s.registry.List(topics, difficulty)
	writeJSON(w, http.StatusOK, map[string]any{
		"scenarios": scenarios,
		"total":     len(scenarios),
		"topics":    domain.Topics,
	})
}

func (s *Server) handleListTopics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"topics": s.registry.Topics(),
	})
}

func (s *Server) handleGetScenario(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	f, err := s.registry.Get(id)
	if err != nil {
		s.notFound(w, id, err)
		return
	}
	writeJSON(w, http.StatusOK, f.Detail())
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	f, err := s.registry.Get(id)
	if err != nil {
		s.notFound(w, id, err)
		return
	}

	var req validateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSolutionBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "Request body must be JSON with a 'solution' string")
		return
	}

	result := s.checker.Check(f, req.Solution)

	outcome := "failed"
	switch {
	case len(result.SyntaxErrors) > 0:
		outcome = "syntax_error"
	case result.Valid:
		outcome = "passed"
	}
	s.metrics.validations.WithLabelValues(id, outcome).Inc()

	s.logger.Debug("solution validated",
		"correlation_id", GetCorrelationID(r.Context()),
		"scenario_id", id,
		"score", result.Score,
		"max_score", result.MaxScore,
		"outcome", outcome,
	)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) notFound(w http.ResponseWriter, id string, err error) {
	if !errors.Is(err, domain.ErrScenarioNotFound) {
		writeError(w, http.StatusInternalServerError, codeInternal, "Internal server error")
		return
	}
	writeError(w, http.StatusNotFound, codeNotFound, fmt.Sprintf("Scenario '%s' not found", id))
}
