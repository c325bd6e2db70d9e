package database

import (
	"context"
	"errors"
	"fmt"

	model "github.com/campushire/ranking-backend/internal/models"
	"github.com/campushire/ranking-backend/internal/scanner"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SnapshotStore persists immutable rank snapshot batches.
type SnapshotStore struct {
	db *pgxpool.Pool
}

func NewSnapshotStore(db *pgxpool.Pool) *SnapshotStore {
	return &SnapshotStore{db: db}
}

const batchColumns = `id, scope, scope_key, period, metric, member_count, computed_at, published_at`

// Publish writes the batch, bulk-copies its rows, and flips published_at, all
// in one transaction. Readers filter on published_at, so they see either the
// fully-old or the fully-new batch, never a half-built one. A same-period
// re-publish supersedes the earlier batch (later published_at wins).
// Batches beyond the retention window are pruned in the same transaction.
func (s *SnapshotStore) Publish(ctx context.Context, batch *model.SnapshotBatch, rows []model.RankSnapshot, retention int) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("could not begin publish transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO rank_snapshot_batches
			(id, scope, scope_key, period, metric, member_count, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, batch.ID, string(batch.Scope), batch.ScopeKey, batch.Period, batch.Metric,
		batch.MemberCount, batch.ComputedAt)
	if err != nil {
		return fmt.Errorf("could not insert snapshot batch: %w", err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"rank_snapshots"},
		[]string{"batch_id", "user_id", "rank", "score", "percentile"},
		pgx.CopyFromSlice(len(rows), func(i int) ([]interface{}, error) {
			r := rows[i]
			return []interface{}{batch.ID, r.UserID, r.Rank, r.Score, r.Percentile}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("could not copy snapshot rows: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE rank_snapshot_batches SET published_at = NOW() WHERE id = $1
	`, batch.ID)
	if err != nil {
		return fmt.Errorf("could not publish snapshot batch: %w", err)
	}

	// Prune superseded and out-of-retention batches; cascade removes rows.
	_, err = tx.Exec(ctx, `
		DELETE FROM rank_snapshot_batches
		WHERE scope = $1 AND scope_key = $2 AND metric = $3
		AND id NOT IN (
			SELECT id FROM rank_snapshot_batches
			WHERE scope = $1 AND scope_key = $2 AND metric = $3
				AND published_at IS NOT NULL
			ORDER BY published_at DESC
			LIMIT $4
		)
		AND id <> $5
	`, string(batch.Scope), batch.ScopeKey, batch.Metric, retention, batch.ID)
	if err != nil {
		return fmt.Errorf("could not prune old snapshot batches: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("could not commit snapshot publish: %w", err)
	}
	return nil
}

func (s *SnapshotStore) LatestBatch(ctx context.Context, scope model.Scope, key, metric string) (*model.SnapshotBatch, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+batchColumns+`
		FROM rank_snapshot_batches
		WHERE scope = $1 AND scope_key = $2 AND metric = $3
			AND published_at IS NOT NULL
		ORDER BY published_at DESC
		LIMIT 1
	`, string(scope), key, metric)

	b, err := scanner.ScanBatch(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not scan snapshot batch: %w", err)
	}
	return b, nil
}

func (s *SnapshotStore) BatchForPeriod(ctx context.Context, scope model.Scope, key, period, metric string) (*model.SnapshotBatch, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+batchColumns+`
		FROM rank_snapshot_batches
		WHERE scope = $1 AND scope_key = $2 AND period = $3 AND metric = $4
			AND published_at IS NOT NULL
		ORDER BY published_at DESC
		LIMIT 1
	`, string(scope), key, period, metric)

	b, err := scanner.ScanBatch(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not scan snapshot batch: %w", err)
	}
	return b, nil
}

func (s *SnapshotStore) Rows(ctx context.Context, batchID uuid.UUID, fromRank, toRank int) ([]model.RankSnapshot, error) {
	rows, err := s.db.Query(ctx, `
		SELECT batch_id, user_id, rank, score, percentile
		FROM rank_snapshots
		WHERE batch_id = $1 AND rank BETWEEN $2 AND $3
		ORDER BY rank
	`, batchID, fromRank, toRank)
	if err != nil {
		return nil, fmt.Errorf("could not query snapshot rows: %w", err)
	}
	defer rows.Close()

	var result []model.RankSnapshot
	for rows.Next() {
		r, err := scanner.ScanSnapshotRow(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan snapshot row: %w", err)
		}
		result = append(result, *r)
	}
	return result, rows.Err()
}

func (s *SnapshotStore) RowForUser(ctx context.Context, batchID uuid.UUID, userID string) (*model.RankSnapshot, error) {
	row := s.db.QueryRow(ctx, `
		SELECT batch_id, user_id, rank, score, percentile
		FROM rank_snapshots
		WHERE batch_id = $1 AND user_id = $2
	`, batchID, userID)

	r, err := scanner.ScanSnapshotRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not scan snapshot row: %w", err)
	}
	return r, nil
}

func (s *SnapshotStore) AllRows(ctx context.Context, batchID uuid.UUID) ([]model.RankSnapshot, error) {
	rows, err := s.db.Query(ctx, `
		SELECT batch_id, user_id, rank, score, percentile
		FROM rank_snapshots
		WHERE batch_id = $1
		ORDER BY rank
	`, batchID)
	if err != nil {
		return nil, fmt.Errorf("could not query snapshot rows: %w", err)
	}
	defer rows.Close()

	var result []model.RankSnapshot
	for rows.Next() {
		r, err := scanner.ScanSnapshotRow(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan snapshot row: %w", err)
		}
		result = append(result, *r)
	}
	return result, rows.Err()
}
