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

// ScopeStore persists college/state affiliations and answers membership
// queries for the rank table builder.
type ScopeStore struct {
	db *pgxpool.Pool
}

func NewScopeStore(db *pgxpool.Pool) *ScopeStore {
	return &ScopeStore{db: db}
}

func (s *ScopeStore) Get(ctx context.Context, userID string) (*model.ScopeMembership, error) {
	row := s.db.QueryRow(ctx, `
		SELECT user_id, college_id, state_id, updated_at
		FROM scope_memberships
		WHERE user_id = $1
	`, userID)

	m, err := scanner.ScanMembership(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not scan scope membership: %w", err)
	}
	return m, nil
}

func (s *ScopeStore) Upsert(ctx context.Context, m *model.ScopeMembership) error {
	var college, state interface{}
	if m.CollegeID != "" {
		college = m.CollegeID
	}
	if m.StateID != "" {
		state = m.StateID
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO scope_memberships (user_id, college_id, state_id, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			college_id = EXCLUDED.college_id,
			state_id = EXCLUDED.state_id,
			updated_at = EXCLUDED.updated_at
	`, m.UserID, college, state, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("could not upsert scope membership: %w", err)
	}
	return nil
}

// Members lists the user ids ranked within a scope. The national scope ranks
// everyone with score state; college and state scopes rank whoever's
// membership currently points there (a point-in-time fact, so mid-period
// college changes simply land the user in the new scope at the next build).
func (s *ScopeStore) Members(ctx context.Context, ref model.ScopeRef) ([]string, error) {
	var query string
	var args []interface{}

	switch ref.Scope {
	case model.ScopeNational:
		query = `SELECT user_id FROM user_score_state`
	case model.ScopeCollege:
		query = `SELECT user_id FROM scope_memberships WHERE college_id = $1`
		args = []interface{}{ref.Key}
	case model.ScopeState:
		query = `SELECT user_id FROM scope_memberships WHERE state_id = $1`
		args = []interface{}{ref.Key}
	default:
		return nil, fmt.Errorf("unknown scope %q", ref.Scope)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("could not query scope members: %w", err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("could not scan member id: %w", err)
		}
		members = append(members, id)
	}
	return members, rows.Err()
}

// Keys lists the distinct college or state keys that currently have members.
func (s *ScopeStore) Keys(ctx context.Context, scope model.Scope) ([]string, error) {
	var column string
	switch scope {
	case model.ScopeCollege:
		column = "college_id"
	case model.ScopeState:
		column = "state_id"
	default:
		return nil, fmt.Errorf("scope %q has no enumerable keys", scope)
	}

	rows, err := s.db.Query(ctx, fmt.Sprintf(`
		SELECT DISTINCT %s FROM scope_memberships WHERE %s IS NOT NULL
	`, column, column))
	if err != nil {
		return nil, fmt.Errorf("could not query scope keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("could not scan scope key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
