package model

import "time"

// UserScoreState is the aggregator-owned cache of a user's current score. It is
// a pure fold over that user's ScoreEvents and can be rebuilt from the ledger
// at any time; the ledger, not this row, is the source of truth.
type UserScoreState struct {
	UserID         string         `json:"userId"`
	XPTotal        int            `json:"xpTotal"`
	CategoryTotals map[string]int `json:"categoryTotals"`
	Badges         []string       `json:"badges,omitempty"`
	LastEventAt    time.Time      `json:"lastEventAt"`
}

// NewUserScoreState returns an empty state for a user with no events yet.
func NewUserScoreState(userID string) *UserScoreState {
	return &UserScoreState{
		UserID:         userID,
		CategoryTotals: map[string]int{},
	}
}

// Apply folds one event into the state. Events must be applied in ledger order
// (occurredAt, then id) for LastEventAt to be meaningful.
func (s *UserScoreState) Apply(ev *ScoreEvent, category string) {
	s.XPTotal += ev.XPDelta
	if category != "" {
		if s.CategoryTotals == nil {
			s.CategoryTotals = map[string]int{}
		}
		s.CategoryTotals[category] += ev.XPDelta
	}
	if ev.Kind == KindBadgeEarned {
		if code, ok := ev.Metadata["badge"].(string); ok && code != "" {
			s.Badges = append(s.Badges, code)
		}
	}
	if ev.OccurredAt.After(s.LastEventAt) {
		s.LastEventAt = ev.OccurredAt
	}
}
