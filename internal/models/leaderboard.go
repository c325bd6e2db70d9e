package model

import "time"

// Movement statuses. A numeric delta only exists for "ranked"; users missing
// from either of the two compared snapshots get "new" or "unranked" instead of
// a misleading zero.
const (
	MovementRanked   = "ranked"
	MovementNew      = "new"
	MovementUnranked = "unranked"
)

// Movement is the presentation view of a MovementRecord.
type Movement struct {
	Status  string `json:"status"`
	Delta   *int   `json:"delta,omitempty"`
	Message string `json:"message"`
}

// LeaderboardEntry is one row of a leaderboard view.
type LeaderboardEntry struct {
	UserID     string   `json:"userId"`
	UserName   string   `json:"userName"`
	Avatar     string   `json:"avatar,omitempty"`
	Rank       int      `json:"rank"`
	Score      int      `json:"score"`
	Percentile int      `json:"percentile"`
	Badges     []string `json:"badges,omitempty"`
	IsSelf     bool     `json:"isSelf,omitempty"`
}

// UserSummary is the requesting user's own position: always included, even
// when the user appears in neither topEntries nor the context window.
type UserSummary struct {
	UserID     string    `json:"userId"`
	Status     string    `json:"status"` // "ok" or "not_yet_ranked"
	Rank       int       `json:"rank,omitempty"`
	Score      int       `json:"score"`
	Percentile int       `json:"percentile,omitempty"`
	TotalUsers int       `json:"totalUsers"`
	Movement   *Movement `json:"movement,omitempty"`
}

// Leaderboard statuses.
const (
	LeaderboardOK           = "ok"
	LeaderboardNotYetRanked = "not_yet_ranked"
)

// Leaderboard is the response of the leaderboard query: a bounded top-N page
// plus, when the requester sits below it, a small contiguous window around
// their own rank so clients never need the full ranking.
type Leaderboard struct {
	Status        string             `json:"status"`
	Scope         Scope              `json:"scope"`
	ScopeKey      string             `json:"scopeKey"`
	Period        string             `json:"period,omitempty"`
	Metric        string             `json:"metric"`
	TotalUsers    int                `json:"totalUsers"`
	ComputedAt    *time.Time         `json:"computedAt,omitempty"`
	TopEntries    []LeaderboardEntry `json:"topEntries"`
	ContextWindow []LeaderboardEntry `json:"contextWindow,omitempty"`
	UserSummary   *UserSummary       `json:"userSummary,omitempty"`
}

// ScopeSummary is a user's position in one of their scopes, as returned by the
// cross-scope ranking summary endpoint.
type ScopeSummary struct {
	Scope    Scope        `json:"scope"`
	ScopeKey string       `json:"scopeKey"`
	Summary  *UserSummary `json:"summary"`
}

// RankingSummary combines a user's live score state with their last-snapshot
// position in every scope they belong to. The score is fresher than the ranks:
// rank lags until the next scheduled rebuild, which is the documented
// freshness trade-off of the engine.
type RankingSummary struct {
	UserID         string         `json:"userId"`
	XPTotal        int            `json:"xpTotal"`
	CategoryTotals map[string]int `json:"categoryTotals"`
	Badges         []string       `json:"badges,omitempty"`
	LastEventAt    *time.Time     `json:"lastEventAt,omitempty"`
	Scopes         []ScopeSummary `json:"scopes"`
}

// UserProfile is the slice of the external users table the engine reads for
// display names on leaderboard rows. The engine never writes it.
type UserProfile struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}
