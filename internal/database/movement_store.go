package database

import (
	"context"
	"errors"
	"fmt"

	model "github.com/campushire/ranking-backend/internal/models"
	"github.com/campushire/ranking-backend/internal/scanner"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MovementStore persists the rolling movement history.
type MovementStore struct {
	db *pgxpool.Pool
}

func NewMovementStore(db *pgxpool.Pool) *MovementStore {
	return &MovementStore{db: db}
}

// InsertAll writes one build cycle's movement records (all for the same scope
// and metric) and prunes that history beyond the given number of periods.
// Upsert on the period key makes a same-period re-publish overwrite rather
// than duplicate.
func (s *MovementStore) InsertAll(ctx context.Context, recs []model.MovementRecord, history int) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("could not begin movement transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, m := range recs {
		_, err = tx.Exec(ctx, `
			INSERT INTO movement_records
				(user_id, scope, scope_key, period, metric, from_rank, to_rank, delta, computed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (user_id, scope, scope_key, metric, period) DO UPDATE SET
				from_rank = EXCLUDED.from_rank,
				to_rank = EXCLUDED.to_rank,
				delta = EXCLUDED.delta,
				computed_at = EXCLUDED.computed_at
		`, m.UserID, string(m.Scope), m.ScopeKey, m.Period, m.Metric, m.FromRank, m.ToRank, m.Delta, m.ComputedAt)
		if err != nil {
			return fmt.Errorf("could not insert movement record: %w", err)
		}
	}

	// Period keys are zero-padded ISO weeks, so lexical order is build order.
	first := recs[0]
	_, err = tx.Exec(ctx, `
		DELETE FROM movement_records
		WHERE scope = $1 AND scope_key = $2 AND metric = $3
		AND period NOT IN (
			SELECT DISTINCT period FROM movement_records
			WHERE scope = $1 AND scope_key = $2 AND metric = $3
			ORDER BY period DESC
			LIMIT $4
		)
	`, string(first.Scope), first.ScopeKey, first.Metric, history)
	if err != nil {
		return fmt.Errorf("could not prune movement history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("could not commit movement records: %w", err)
	}
	return nil
}

func (s *MovementStore) Latest(ctx context.Context, userID string, scope model.Scope, key, metric string) (*model.MovementRecord, error) {
	row := s.db.QueryRow(ctx, `
		SELECT user_id, scope, scope_key, period, metric, from_rank, to_rank, delta, computed_at
		FROM movement_records
		WHERE user_id = $1 AND scope = $2 AND scope_key = $3 AND metric = $4
		ORDER BY computed_at DESC
		LIMIT 1
	`, userID, string(scope), key, metric)

	m, err := scanner.ScanMovement(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not scan movement record: %w", err)
	}
	return m, nil
}
