package ranking

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/campushire/ranking-backend/internal/logger"
	model "github.com/campushire/ranking-backend/internal/models"
)

// ApplyEvent validates and appends a score event, then folds it into the
// user's score state. The update is visible immediately on the user's own
// profile; scope-wide rank deliberately waits for the next snapshot build.
//
// eventID is the caller's idempotency key: retrying with the same id after a
// partial failure re-folds the already-appended event instead of appending a
// duplicate. uuid.Nil lets the engine mint one, for callers that never retry.
//
// Integrity failures (unknown kind, unknown user, negative delta outside a
// correction, bad metadata) reject the event without writing anything.
func (e *Engine) ApplyEvent(ctx context.Context, eventID uuid.UUID, userID string, kind model.EventKind, occurredAt time.Time, metadata map[string]interface{}) (*model.UserScoreState, error) {
	if !model.KnownKind(kind) {
		logger.Warning("rejected event with unknown kind %q for user %s", kind, userID)
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	exists, err := e.users.Exists(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("could not check user %s: %w", userID, err)
	}
	if !exists {
		logger.Warning("rejected %s event for unknown user %s", kind, userID)
		return nil, fmt.Errorf("%w: %s", ErrUnknownUser, userID)
	}

	delta, category, err := e.xpDelta(kind, metadata)
	if err != nil {
		logger.Warning("rejected %s event for user %s: %v", kind, userID, err)
		return nil, err
	}
	if delta < 0 && kind != model.KindCorrection {
		logger.Warning("rejected %s event for user %s: negative delta %d", kind, userID, delta)
		return nil, ErrNegativeDelta
	}

	if occurredAt.IsZero() {
		occurredAt = e.now()
	}
	if eventID == uuid.Nil {
		eventID = uuid.New()
	}

	ev := &model.ScoreEvent{
		ID:         eventID,
		UserID:     userID,
		Kind:       kind,
		XPDelta:    delta,
		OccurredAt: occurredAt,
		Metadata:   metadata,
	}

	// Serialize per user: the ledger append and the state read-modify-write
	// must not interleave with a concurrent event for the same user.
	mu := e.lockUser(userID)
	mu.Lock()
	defer mu.Unlock()

	inserted, err := e.events.Append(ctx, ev)
	if err != nil {
		return nil, fmt.Errorf("could not append score event: %w", err)
	}
	if !inserted {
		// Retry of an event already in the ledger. The previous attempt may
		// have died before or after folding it, so replay the ledger rather
		// than guess: the fold is pure, replaying settles the state either way.
		logger.Info("event %s for user %s already ledgered, replaying", ev.ID, userID)
		return e.replayLocked(ctx, userID)
	}

	st, err := e.scores.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("could not load score state: %w", err)
	}
	if st == nil {
		st = model.NewUserScoreState(userID)
	}
	st.Apply(ev, category)

	if err := e.scores.Upsert(ctx, st); err != nil {
		return nil, fmt.Errorf("could not update score state: %w", err)
	}

	return st, nil
}

// RebuildUserState replays the user's full event history and replaces the
// cached state. Used for audits and after corrections to XP computation; the
// result is identical regardless of the stored order, since events are
// totally ordered by occurredAt, then id.
func (e *Engine) RebuildUserState(ctx context.Context, userID string) (*model.UserScoreState, error) {
	exists, err := e.users.Exists(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("could not check user %s: %w", userID, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownUser, userID)
	}

	mu := e.lockUser(userID)
	mu.Lock()
	defer mu.Unlock()

	return e.replayLocked(ctx, userID)
}

// replayLocked folds the user's full ledger into a fresh state and stores it.
// Callers must hold the user's lock.
func (e *Engine) replayLocked(ctx context.Context, userID string) (*model.UserScoreState, error) {
	events, err := e.events.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("could not load events for user %s: %w", userID, err)
	}

	sort.Slice(events, func(i, j int) bool {
		if !events[i].OccurredAt.Equal(events[j].OccurredAt) {
			return events[i].OccurredAt.Before(events[j].OccurredAt)
		}
		return events[i].ID.String() < events[j].ID.String()
	})

	st := model.NewUserScoreState(userID)
	for i := range events {
		ev := &events[i]
		category := ev.Kind.Category()
		if ev.Kind == model.KindCorrection {
			category, _ = ev.Metadata["category"].(string)
		}
		st.Apply(ev, category)
	}

	if err := e.scores.Upsert(ctx, st); err != nil {
		return nil, fmt.Errorf("could not store rebuilt state: %w", err)
	}

	logger.Info("rebuilt score state for user %s from %d events (xp=%d)", userID, len(events), st.XPTotal)
	return st, nil
}
