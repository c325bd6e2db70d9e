package ranking

import (
	"context"
	"fmt"

	"github.com/campushire/ranking-backend/internal/logger"
	model "github.com/campushire/ranking-backend/internal/models"
)

// ResolveScopes returns the ranking scopes the user currently belongs to:
// always national, plus college and state when an affiliation is recorded.
func (e *Engine) ResolveScopes(ctx context.Context, userID string) ([]model.ScopeRef, error) {
	exists, err := e.users.Exists(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("could not check user %s: %w", userID, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownUser, userID)
	}

	m, err := e.scopes.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("could not load scope membership: %w", err)
	}
	return m.Scopes(), nil
}

// UpdateScopeMembership records a college/state affiliation change pushed by
// the profile collaborator. The fact is point-in-time: snapshots already built
// under the old college are left untouched, and the next build places the user
// wherever the membership points at build time.
func (e *Engine) UpdateScopeMembership(ctx context.Context, userID, collegeID, stateID string) (*model.ScopeMembership, error) {
	exists, err := e.users.Exists(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("could not check user %s: %w", userID, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownUser, userID)
	}
	if collegeID == "" && stateID != "" {
		return nil, fmt.Errorf("%w: state without college", ErrUnknownScope)
	}

	m := &model.ScopeMembership{
		UserID:    userID,
		CollegeID: collegeID,
		StateID:   stateID,
		UpdatedAt: e.now(),
	}
	if err := e.scopes.Upsert(ctx, m); err != nil {
		return nil, fmt.Errorf("could not update scope membership: %w", err)
	}

	logger.Info("scope membership updated for user %s (college=%s state=%s)", userID, collegeID, stateID)
	return m, nil
}
