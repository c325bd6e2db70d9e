package model

import (
	"time"

	"github.com/google/uuid"
)

// EventKind identifies a score-affecting action. The enumeration is closed:
// events carrying any other kind are rejected as integrity errors.
type EventKind string

const (
	KindAssessmentCompleted EventKind = "assessment_completed"
	KindBadgeEarned         EventKind = "badge_earned"
	KindPlacementReported   EventKind = "placement_reported"
	KindPlacementVerified30 EventKind = "placement_verified_30"
	KindPlacementVerified90 EventKind = "placement_verified_90"
	KindPostCreated         EventKind = "post_created"
	KindPostUpvoted         EventKind = "post_upvoted"
	// KindCorrection offsets earlier events; the only kind allowed to carry a
	// negative delta. The ledger is append-only, so mistakes are corrected by
	// new events, never by editing old ones.
	KindCorrection EventKind = "correction"
)

// Scoring categories for per-category sub-totals.
const (
	CategoryAssessments = "assessments"
	CategoryBadges      = "badges"
	CategoryPlacements  = "placements"
	CategoryCommunity   = "community"
)

// kindCategories maps each event kind to the sub-total it feeds.
var kindCategories = map[EventKind]string{
	KindAssessmentCompleted: CategoryAssessments,
	KindBadgeEarned:         CategoryBadges,
	KindPlacementReported:   CategoryPlacements,
	KindPlacementVerified30: CategoryPlacements,
	KindPlacementVerified90: CategoryPlacements,
	KindPostCreated:         CategoryCommunity,
	KindPostUpvoted:         CategoryCommunity,
}

// KnownKind reports whether k belongs to the closed enumeration.
func KnownKind(k EventKind) bool {
	if k == KindCorrection {
		return true
	}
	_, ok := kindCategories[k]
	return ok
}

// Category returns the sub-total a kind feeds. Corrections name their category
// in metadata instead; for them this returns "".
func (k EventKind) Category() string {
	return kindCategories[k]
}

// ScoreEvent is one row of the append-only event ledger. Immutable once written.
type ScoreEvent struct {
	ID         uuid.UUID              `json:"id"`
	UserID     string                 `json:"userId"`
	Kind       EventKind              `json:"kind"`
	XPDelta    int                    `json:"xpDelta"`
	OccurredAt time.Time              `json:"occurredAt"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}
