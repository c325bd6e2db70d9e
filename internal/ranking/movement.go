package ranking

import (
	"context"
	"fmt"

	model "github.com/campushire/ranking-backend/internal/models"
)

// ComputeMovement reports how the user's rank changed between the two most
// recent periods of a scope. A user missing from either side is "new" or
// "unranked"; a numeric delta is only ever derived from two real ranks.
func (e *Engine) ComputeMovement(ctx context.Context, userID string, ref model.ScopeRef) (*model.Movement, error) {
	batch, err := e.snapshots.LatestBatch(ctx, ref.Scope, ref.Key, model.MetricXP)
	if err != nil {
		return nil, fmt.Errorf("could not load latest snapshot: %w", err)
	}
	if batch == nil {
		return nil, ErrNoSnapshot
	}

	row, err := e.snapshots.RowForUser(ctx, batch.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("could not load snapshot row: %w", err)
	}

	rec, err := e.movements.Latest(ctx, userID, ref.Scope, ref.Key, model.MetricXP)
	if err != nil {
		return nil, fmt.Errorf("could not load movement record: %w", err)
	}

	return e.movementView(row, rec, batch.Period), nil
}

// movementView derives the presentation movement from the user's current
// snapshot row and their latest movement record. A record only counts if it
// was computed for the current period; older records mean the user dropped
// out of, or just entered, the ranking since.
func (e *Engine) movementView(row *model.RankSnapshot, rec *model.MovementRecord, period string) *model.Movement {
	if row == nil {
		return &model.Movement{Status: model.MovementUnranked, Message: "not in the current rankings"}
	}
	if rec == nil || rec.Period != period {
		return &model.Movement{Status: model.MovementNew, Message: "new to the rankings"}
	}
	delta := rec.Delta
	return &model.Movement{
		Status:  model.MovementRanked,
		Delta:   &delta,
		Message: e.movementMessage(delta),
	}
}

// movementMessage picks the qualitative label for a signed delta. Thresholds
// come from configuration, not from callers.
func (e *Engine) movementMessage(delta int) string {
	big := e.cfg.BigMoveThreshold
	switch {
	case delta >= big:
		return "climbing fast"
	case delta > 0:
		return "moving up"
	case delta == 0:
		return "holding steady"
	case delta > -big:
		return "slipping"
	default:
		return "falling fast"
	}
}
