package database

import (
	"context"
	"encoding/json"
	"fmt"

	model "github.com/campushire/ranking-backend/internal/models"
	"github.com/campushire/ranking-backend/internal/scanner"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EventStore is the Postgres event ledger. Append-only: no UPDATE or DELETE
// statement exists for score_events anywhere in this codebase.
type EventStore struct {
	db *pgxpool.Pool
}

func NewEventStore(db *pgxpool.Pool) *EventStore {
	return &EventStore{db: db}
}

// Append inserts the event. The id is the caller's idempotency key: a
// conflicting id means a retry of an event already ledgered, reported as
// inserted=false so the aggregator can settle state by replay instead of
// double-counting.
func (s *EventStore) Append(ctx context.Context, ev *model.ScoreEvent) (bool, error) {
	var metadata *string
	if ev.Metadata != nil {
		raw, err := json.Marshal(ev.Metadata)
		if err != nil {
			return false, fmt.Errorf("could not serialize event metadata: %w", err)
		}
		str := string(raw)
		metadata = &str
	}

	ct, err := s.db.Exec(ctx, `
		INSERT INTO score_events (id, user_id, kind, xp_delta, occurred_at, metadata)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb)
		ON CONFLICT (id) DO NOTHING
	`, ev.ID, ev.UserID, string(ev.Kind), ev.XPDelta, ev.OccurredAt, metadata)
	if err != nil {
		return false, fmt.Errorf("could not insert score event: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

func (s *EventStore) ListByUser(ctx context.Context, userID string) ([]model.ScoreEvent, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, kind, xp_delta, occurred_at, metadata
		FROM score_events
		WHERE user_id = $1
		ORDER BY occurred_at, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("could not query score events: %w", err)
	}
	defer rows.Close()

	var events []model.ScoreEvent
	for rows.Next() {
		ev, err := scanner.ScanScoreEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan score event: %w", err)
		}
		events = append(events, *ev)
	}
	return events, rows.Err()
}
