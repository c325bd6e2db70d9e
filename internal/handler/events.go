package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	model "github.com/campushire/ranking-backend/internal/models"
	"github.com/campushire/ranking-backend/internal/utils"
)

type applyEventRequest struct {
	// ID is the caller's idempotency key; retries with the same id are safe.
	// Omitted, the engine mints one and the request must not be retried.
	ID         string                 `json:"id,omitempty"`
	UserID     string                 `json:"userId"`
	Kind       string                 `json:"kind"`
	OccurredAt *time.Time             `json:"occurredAt,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// ApplyEvent records a score-affecting action reported by a collaborator
// subsystem (assessments, placement verification, badges, community). The
// engine owns kind validation and XP computation; callers only name the
// action.
func (h *Handler) ApplyEvent(w http.ResponseWriter, r *http.Request) {
	var req applyEventRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.Error(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.UserID == "" || req.Kind == "" {
		utils.ErrorSimple(w, http.StatusBadRequest, "userId and kind are required")
		return
	}

	eventID := uuid.Nil
	if req.ID != "" {
		parsed, err := uuid.Parse(req.ID)
		if err != nil {
			utils.ErrorSimple(w, http.StatusBadRequest, "id must be a UUID")
			return
		}
		eventID = parsed
	}

	occurredAt := time.Time{}
	if req.OccurredAt != nil {
		occurredAt = *req.OccurredAt
	}

	state, err := h.engine.ApplyEvent(r.Context(), eventID, req.UserID, model.EventKind(req.Kind), occurredAt, req.Metadata)
	if err != nil {
		respondEngineError(w, "could not apply score event", err)
		return
	}

	utils.Success(w, state)
}

// RebuildUserScore replays a user's full event history, replacing the cached
// score state. Used for audits and after XP value corrections.
func (h *Handler) RebuildUserScore(w http.ResponseWriter, r *http.Request) {
	userID := userIDVar(r)

	state, err := h.engine.RebuildUserState(r.Context(), userID)
	if err != nil {
		respondEngineError(w, "could not rebuild score state", err)
		return
	}

	utils.Success(w, state)
}
