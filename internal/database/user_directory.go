package database

import (
	"context"
	"fmt"

	model "github.com/campushire/ranking-backend/internal/models"
	"github.com/campushire/ranking-backend/internal/scanner"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserDirectory reads the externally-owned users table. The engine validates
// event subjects against it and decorates leaderboard rows with names and
// avatars; it never writes here.
type UserDirectory struct {
	db *pgxpool.Pool
}

func NewUserDirectory(db *pgxpool.Pool) *UserDirectory {
	return &UserDirectory{db: db}
}

func (d *UserDirectory) Exists(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := d.db.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)
	`, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("could not check user existence: %w", err)
	}
	return exists, nil
}

func (d *UserDirectory) Profiles(ctx context.Context, userIDs []string) (map[string]model.UserProfile, error) {
	profiles := make(map[string]model.UserProfile, len(userIDs))
	if len(userIDs) == 0 {
		return profiles, nil
	}

	rows, err := d.db.Query(ctx, `
		SELECT id, name, avatar FROM users WHERE id = ANY($1)
	`, userIDs)
	if err != nil {
		return nil, fmt.Errorf("could not query user profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanner.ScanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan user profile: %w", err)
		}
		profiles[p.ID] = *p
	}
	return profiles, rows.Err()
}
