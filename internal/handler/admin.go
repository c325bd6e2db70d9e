package handler

import (
	"context"
	"net/http"

	"github.com/campushire/ranking-backend/internal/logger"
	"github.com/campushire/ranking-backend/internal/utils"
)

// TriggerRebuild kicks off a full rank table rebuild outside the schedule.
// Fire-and-forget: the rebuild runs in the background and readers keep the
// previous snapshots until each scope publishes.
func (h *Handler) TriggerRebuild(w http.ResponseWriter, r *http.Request) {
	go func() {
		if err := h.engine.RebuildAll(context.Background()); err != nil {
			logger.Error("manual rebuild: %v", err)
		}
	}()

	utils.Accepted(w, "rebuild started")
}
