package handler

import (
	"net/http"

	"github.com/campushire/ranking-backend/internal/utils"
)

type updateScopeRequest struct {
	CollegeID string `json:"collegeId"`
	StateID   string `json:"stateId"`
}

// UpdateScopeMembership records a college/state affiliation change pushed by
// the profile-management collaborator. The engine does not resolve "which
// college"; it stores the fact and uses it at the next snapshot build.
func (h *Handler) UpdateScopeMembership(w http.ResponseWriter, r *http.Request) {
	userID := userIDVar(r)

	var req updateScopeRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.Error(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	m, err := h.engine.UpdateScopeMembership(r.Context(), userID, req.CollegeID, req.StateID)
	if err != nil {
		respondEngineError(w, "could not update scope membership", err)
		return
	}

	utils.Success(w, m)
}

// GetScopes returns the ranking scopes the user currently belongs to.
func (h *Handler) GetScopes(w http.ResponseWriter, r *http.Request) {
	userID := userIDVar(r)

	refs, err := h.engine.ResolveScopes(r.Context(), userID)
	if err != nil {
		respondEngineError(w, "could not resolve scopes", err)
		return
	}

	utils.Success(w, refs)
}
