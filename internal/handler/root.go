package handler

import (
	"net/http"

	"github.com/campushire/ranking-backend/internal/utils"
)

// Root lists the available API routes.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	routes := map[string]interface{}{
		"name":    "CampusHire Ranking API",
		"version": "1.0.0",
		"status":  "running",
		"routes": map[string]interface{}{
			"events": []map[string]string{
				{"method": "POST", "path": "/events", "description": "Apply a score event"},
				{"method": "POST", "path": "/users/{userId}/score/rebuild", "description": "Replay a user's event history"},
			},
			"leaderboard": []map[string]string{
				{"method": "GET", "path": "/leaderboard/{scope}", "description": "Leaderboard view (scope: college, state, national)"},
				{"method": "GET", "path": "/users/{userId}/ranking", "description": "Cross-scope ranking summary"},
			},
			"scopes": []map[string]string{
				{"method": "GET", "path": "/users/{userId}/scopes", "description": "Scopes the user is ranked in"},
				{"method": "PUT", "path": "/users/{userId}/scope", "description": "Update college/state affiliation"},
			},
			"admin": []map[string]string{
				{"method": "POST", "path": "/admin/rebuild", "description": "Trigger a full rank table rebuild"},
				{"method": "GET", "path": "/health", "description": "Health check"},
			},
		},
	}

	utils.Success(w, routes)
}
