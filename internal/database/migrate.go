package database

import (
	"context"
	"fmt"

	"github.com/campushire/ranking-backend/internal/logger"
	"github.com/jackc/pgx/v5/pgxpool"
)

// migrations run in order at startup; every statement is idempotent. The
// users table is owned by the profile service — it is created here only so a
// fresh local database works, and the engine never writes to it.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		avatar TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS score_events (
		id UUID PRIMARY KEY,
		user_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		xp_delta INTEGER NOT NULL,
		occurred_at TIMESTAMPTZ NOT NULL,
		metadata JSONB
	)`,
	`CREATE INDEX IF NOT EXISTS idx_score_events_user
		ON score_events (user_id, occurred_at, id)`,

	`CREATE TABLE IF NOT EXISTS user_score_state (
		user_id TEXT PRIMARY KEY,
		xp_total INTEGER NOT NULL DEFAULT 0,
		category_totals JSONB NOT NULL DEFAULT '{}',
		badges TEXT[] NOT NULL DEFAULT '{}',
		last_event_at TIMESTAMPTZ
	)`,

	`CREATE TABLE IF NOT EXISTS scope_memberships (
		user_id TEXT PRIMARY KEY,
		college_id TEXT,
		state_id TEXT,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_scope_memberships_college
		ON scope_memberships (college_id)`,
	`CREATE INDEX IF NOT EXISTS idx_scope_memberships_state
		ON scope_memberships (state_id)`,

	`CREATE TABLE IF NOT EXISTS rank_snapshot_batches (
		id UUID PRIMARY KEY,
		scope TEXT NOT NULL,
		scope_key TEXT NOT NULL,
		period TEXT NOT NULL,
		metric TEXT NOT NULL,
		member_count INTEGER NOT NULL,
		computed_at TIMESTAMPTZ NOT NULL,
		published_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_snapshot_batches_latest
		ON rank_snapshot_batches (scope, scope_key, metric, published_at DESC)`,

	`CREATE TABLE IF NOT EXISTS rank_snapshots (
		batch_id UUID NOT NULL REFERENCES rank_snapshot_batches(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL,
		rank INTEGER NOT NULL,
		score INTEGER NOT NULL,
		percentile INTEGER NOT NULL,
		PRIMARY KEY (batch_id, user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_rank_snapshots_rank
		ON rank_snapshots (batch_id, rank)`,

	`CREATE TABLE IF NOT EXISTS movement_records (
		user_id TEXT NOT NULL,
		scope TEXT NOT NULL,
		scope_key TEXT NOT NULL,
		period TEXT NOT NULL,
		metric TEXT NOT NULL,
		from_rank INTEGER NOT NULL,
		to_rank INTEGER NOT NULL,
		delta INTEGER NOT NULL,
		computed_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (user_id, scope, scope_key, metric, period)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_movement_records_scope
		ON movement_records (scope, scope_key, metric, period)`,
}

// Migrate applies the schema at startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	logger.Success("Database schema up to date")
	return nil
}
