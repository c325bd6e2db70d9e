package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	model "github.com/campushire/ranking-backend/internal/models"
	"github.com/campushire/ranking-backend/internal/scanner"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ScoreStore persists the derived per-user score state.
type ScoreStore struct {
	db *pgxpool.Pool
}

func NewScoreStore(db *pgxpool.Pool) *ScoreStore {
	return &ScoreStore{db: db}
}

const scoreStateColumns = `user_id, xp_total, category_totals, badges, last_event_at`

func (s *ScoreStore) Get(ctx context.Context, userID string) (*model.UserScoreState, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+scoreStateColumns+`
		FROM user_score_state
		WHERE user_id = $1
	`, userID)

	st, err := scanner.ScanScoreState(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not scan score state: %w", err)
	}
	return st, nil
}

func (s *ScoreStore) GetMany(ctx context.Context, userIDs []string) (map[string]*model.UserScoreState, error) {
	states := make(map[string]*model.UserScoreState, len(userIDs))
	if len(userIDs) == 0 {
		return states, nil
	}

	rows, err := s.db.Query(ctx, `
		SELECT `+scoreStateColumns+`
		FROM user_score_state
		WHERE user_id = ANY($1)
	`, userIDs)
	if err != nil {
		return nil, fmt.Errorf("could not query score states: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		st, err := scanner.ScanScoreState(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan score state: %w", err)
		}
		states[st.UserID] = st
	}
	return states, rows.Err()
}

func (s *ScoreStore) Upsert(ctx context.Context, st *model.UserScoreState) error {
	totals, err := json.Marshal(st.CategoryTotals)
	if err != nil {
		return fmt.Errorf("could not serialize category totals: %w", err)
	}

	badges := st.Badges
	if badges == nil {
		badges = []string{}
	}

	var lastEventAt interface{}
	if !st.LastEventAt.IsZero() {
		lastEventAt = st.LastEventAt
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO user_score_state (user_id, xp_total, category_totals, badges, last_event_at)
		VALUES ($1, $2, $3::jsonb, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			xp_total = EXCLUDED.xp_total,
			category_totals = EXCLUDED.category_totals,
			badges = EXCLUDED.badges,
			last_event_at = EXCLUDED.last_event_at
	`, st.UserID, st.XPTotal, string(totals), badges, lastEventAt)
	if err != nil {
		return fmt.Errorf("could not upsert score state: %w", err)
	}
	return nil
}
