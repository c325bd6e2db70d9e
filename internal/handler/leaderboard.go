package handler

import (
	"net/http"

	model "github.com/campushire/ranking-backend/internal/models"
	"github.com/campushire/ranking-backend/internal/utils"
	"github.com/gorilla/mux"
)

// GetLeaderboard returns the leaderboard view of one scope: bounded top
// entries, the requester's context window when they rank below the page, and
// the requester's own summary. Reads the last published snapshot; it is never
// blocked by a running rebuild.
func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	scope := model.Scope(vars["scope"])

	query := r.URL.Query()
	scopeKey := query.Get("scopeKey")
	if scope == model.ScopeNational && scopeKey == "" {
		scopeKey = model.NationalKey
	}
	if scopeKey == "" {
		utils.ErrorSimple(w, http.StatusBadRequest, "scopeKey is required for college and state scopes")
		return
	}

	metric := query.Get("metric")
	limit := utils.QueryInt(r, "limit", 0)
	requestingUserID := query.Get("userId")

	lb, err := h.engine.GetLeaderboard(r.Context(),
		model.ScopeRef{Scope: scope, Key: scopeKey}, metric, limit, requestingUserID)
	if err != nil {
		respondEngineError(w, "could not load leaderboard", err)
		return
	}

	utils.Success(w, lb)
}

// GetUserRankingSummary returns the user's live score plus their position in
// every scope they belong to.
func (h *Handler) GetUserRankingSummary(w http.ResponseWriter, r *http.Request) {
	userID := userIDVar(r)

	summary, err := h.engine.GetUserRankingSummary(r.Context(), userID)
	if err != nil {
		respondEngineError(w, "could not load ranking summary", err)
		return
	}

	utils.Success(w, summary)
}

func userIDVar(r *http.Request) string {
	return mux.Vars(r)["userId"]
}
