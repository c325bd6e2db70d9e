package handler

import (
	"errors"
	"net/http"

	"github.com/campushire/ranking-backend/internal/ranking"
	"github.com/campushire/ranking-backend/internal/utils"
)

// Handler wires the HTTP surface to the ranking engine.
type Handler struct {
	engine *ranking.Engine
}

func New(engine *ranking.Engine) *Handler {
	return &Handler{engine: engine}
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	utils.Message(w, "ok")
}

// respondEngineError maps engine errors onto HTTP statuses. Integrity errors
// are the caller's to fix (4xx); anything else is a server problem.
func respondEngineError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, ranking.ErrUnknownUser):
		utils.Error(w, http.StatusNotFound, message, err)
	case errors.Is(err, ranking.ErrUnknownKind),
		errors.Is(err, ranking.ErrBadMetadata),
		errors.Is(err, ranking.ErrNegativeDelta),
		errors.Is(err, ranking.ErrUnknownScope),
		errors.Is(err, ranking.ErrUnknownMetric):
		utils.Error(w, http.StatusBadRequest, message, err)
	case errors.Is(err, ranking.ErrRebuildInProgress):
		utils.Error(w, http.StatusConflict, message, err)
	default:
		utils.Error(w, http.StatusInternalServerError, message, err)
	}
}
