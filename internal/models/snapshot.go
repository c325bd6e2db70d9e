package model

import (
	"time"

	"github.com/google/uuid"
)

// MetricXP is the overall-score metric every scope is snapshotted under.
// Category names (assessments, placements, ...) are valid metrics too when the
// builder is configured to snapshot them.
const MetricXP = "xp"

// SnapshotBatch is one immutable, fully-computed ranking of a scope. Rows are
// only visible to readers once PublishedAt is set; rows and the publish flag
// commit in a single transaction, so readers never observe a half-built batch.
type SnapshotBatch struct {
	ID          uuid.UUID `json:"id"`
	Scope       Scope     `json:"scope"`
	ScopeKey    string    `json:"scopeKey"`
	Period      string    `json:"period"`
	Metric      string    `json:"metric"`
	MemberCount int       `json:"memberCount"`
	ComputedAt  time.Time `json:"computedAt"`
	PublishedAt time.Time `json:"publishedAt"`
}

// RankSnapshot is one user's row within a batch. Ranks are dense 1..N over
// score descending with a total tie-break (earlier lastEventAt, then userId).
type RankSnapshot struct {
	BatchID    uuid.UUID `json:"-"`
	UserID     string    `json:"userId"`
	Rank       int       `json:"rank"`
	Score      int       `json:"score"`
	Percentile int       `json:"percentile"`
}

// MovementRecord is the signed rank change between two consecutive periods.
// Delta = FromRank - ToRank, so a positive delta is an improvement.
type MovementRecord struct {
	UserID     string    `json:"userId"`
	Scope      Scope     `json:"scope"`
	ScopeKey   string    `json:"scopeKey"`
	Period     string    `json:"period"`
	Metric     string    `json:"metric"`
	FromRank   int       `json:"fromRank"`
	ToRank     int       `json:"toRank"`
	Delta      int       `json:"delta"`
	ComputedAt time.Time `json:"computedAt"`
}
