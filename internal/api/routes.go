package api

import (
	"net/http"

	"github.com/campushire/ranking-backend/internal/handler"
	"github.com/campushire/ranking-backend/internal/logger"
	"github.com/campushire/ranking-backend/internal/middleware"
	"github.com/fatih/color"
	"github.com/gorilla/mux"
)

func SetupRouter(h *handler.Handler) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.LoggerMiddleware)

	// Root - API documentation
	r.HandleFunc("/", h.Root).Methods(http.MethodGet)

	// Events (inbound collaborator interface)
	r.HandleFunc("/events", h.ApplyEvent).Methods(http.MethodPost)
	r.HandleFunc("/users/{userId}/score/rebuild", h.RebuildUserScore).Methods(http.MethodPost)

	// Leaderboard
	r.HandleFunc("/leaderboard/{scope}", h.GetLeaderboard).Methods(http.MethodGet)
	r.HandleFunc("/users/{userId}/ranking", h.GetUserRankingSummary).Methods(http.MethodGet)

	// Scope membership (pushed by the profile collaborator)
	r.HandleFunc("/users/{userId}/scopes", h.GetScopes).Methods(http.MethodGet)
	r.HandleFunc("/users/{userId}/scope", h.UpdateScopeMembership).Methods(http.MethodPut)

	// Admin
	r.HandleFunc("/admin/rebuild", h.TriggerRebuild).Methods(http.MethodPost)

	// Health check
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Warning("404 Not Found: %s %s", r.Method, r.URL.Path)
		color.Yellow("[404] %s %s", r.Method, r.URL.Path)
		http.Error(w, "Route not found", http.StatusNotFound)
	})

	return r
}
