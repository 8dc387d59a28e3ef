package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/coursechat/coursechat/internal/log"
	"github.com/coursechat/coursechat/internal/rag"
	"github.com/coursechat/coursechat/internal/session"
	"github.com/coursechat/coursechat/internal/tools"
)

const maxQueryBytes = 64 * 1024

// QueryService is the orchestrator surface the HTTP layer consumes.
type QueryService interface {
	Query(ctx context.Context, text string, sessionID *uuid.UUID) (string, []tools.Source, error)
	CreateSession(ctx context.Context) (uuid.UUID, error)
	CourseAnalytics(ctx context.Context) (rag.Analytics, error)
}

type queryHandler struct {
	service QueryService
	logger  log.Logger
}

type queryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

type queryResponse struct {
	Answer    string         `json:"answer"`
	Sources   []tools.Source `json:"sources"`
	SessionID string         `json:"session_id"`
}

// handleQuery answers one question. A missing session_id starts a new
// session whose ID is returned for follow-up questions.
func (h *queryHandler) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxQueryBytes))
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body", h.logger)
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "query is required", h.logger)
		return
	}

	var sessionID uuid.UUID
	if req.SessionID != "" {
		id, err := uuid.Parse(req.SessionID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "session_id is not a valid UUID", h.logger)
			return
		}
		sessionID = id
	} else {
		id, err := h.service.CreateSession(r.Context())
		if err != nil {
			h.logger.Error("failed to create session", "error", err)
			writeError(w, http.StatusInternalServerError, "processing_error", "failed to process query", h.logger)
			return
		}
		sessionID = id
	}

	answer, sources, err := h.service.Query(r.Context(), req.Query, &sessionID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session_not_found", "unknown session_id", h.logger)
			return
		}
		// Provider error details stay in the logs, not the response.
		h.logger.Error("query failed", "error", err, "session", sessionID)
		writeError(w, http.StatusInternalServerError, "processing_error", "failed to process query", h.logger)
		return
	}

	if sources == nil {
		sources = []tools.Source{}
	}
	writeJSON(w, http.StatusOK, queryResponse{
		Answer:    answer,
		Sources:   sources,
		SessionID: sessionID.String(),
	}, h.logger)
}

// handleCourses reports catalog statistics.
func (h *queryHandler) handleCourses(w http.ResponseWriter, r *http.Request) {
	analytics, err := h.service.CourseAnalytics(r.Context())
	if err != nil {
		h.logger.Error("failed to load course analytics", "error", err)
		writeError(w, http.StatusInternalServerError, "analytics_error", "failed to load course statistics", h.logger)
		return
	}
	if analytics.CourseTitles == nil {
		analytics.CourseTitles = []string{}
	}
	writeJSON(w, http.StatusOK, analytics, h.logger)
}
