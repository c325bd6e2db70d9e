// Package ranking implements the scoring and leaderboard engine: the event
// ledger fold, scope resolution, periodic rank snapshot builds, movement
// tracking and the bounded leaderboard read path.
//
// Consistency model: applying an event updates the user's own score
// immediately, but rank, percentile and movement only change when the rank
// table builder next publishes a snapshot for the scope. Recomputing a total
// order over a large scope on every event would make each write O(N log N) in
// scope size, so rank staleness is bounded by the rebuild interval on purpose.
// Do not "fix" this by reranking inside ApplyEvent.
package ranking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/campushire/ranking-backend/internal/config"
	model "github.com/campushire/ranking-backend/internal/models"
)

// Integrity and state errors surfaced to callers. Handlers map these onto
// HTTP statuses.
var (
	ErrUnknownKind       = errors.New("unknown event kind")
	ErrUnknownUser       = errors.New("unknown user")
	ErrNegativeDelta     = errors.New("negative xp delta on non-correction event")
	ErrBadMetadata       = errors.New("invalid event metadata")
	ErrUnknownScope      = errors.New("unknown scope")
	ErrUnknownMetric     = errors.New("unknown metric")
	ErrNoSnapshot        = errors.New("no snapshot published for scope")
	ErrRebuildInProgress = errors.New("rebuild already in progress for scope")
)

// EventStore is the append-only score event ledger.
type EventStore interface {
	// Append inserts the event, deduplicating on its id. Returns false when a
	// row with the same id already exists; the ledger is left unchanged then.
	Append(ctx context.Context, ev *model.ScoreEvent) (bool, error)
	// ListByUser returns the user's events ordered by occurredAt, then id.
	ListByUser(ctx context.Context, userID string) ([]model.ScoreEvent, error)
}

// ScoreStore holds the derived per-user score state.
type ScoreStore interface {
	// Get returns nil, nil when the user has no state yet.
	Get(ctx context.Context, userID string) (*model.UserScoreState, error)
	GetMany(ctx context.Context, userIDs []string) (map[string]*model.UserScoreState, error)
	Upsert(ctx context.Context, st *model.UserScoreState) error
}

// ScopeStore holds college/state affiliations and answers membership queries.
type ScopeStore interface {
	// Get returns nil, nil when the user has no recorded membership.
	Get(ctx context.Context, userID string) (*model.ScopeMembership, error)
	Upsert(ctx context.Context, m *model.ScopeMembership) error
	// Members lists the user ids ranked within the scope. For the national
	// scope that is every user with score state; for college and state scopes
	// it is the users whose membership currently points there.
	Members(ctx context.Context, ref model.ScopeRef) ([]string, error)
	// Keys lists the distinct scope keys that currently have members.
	Keys(ctx context.Context, scope model.Scope) ([]string, error)
}

// UserDirectory is a read-only view of the externally-owned users table, used
// to validate event subjects and decorate leaderboard rows.
type UserDirectory interface {
	Exists(ctx context.Context, userID string) (bool, error)
	Profiles(ctx context.Context, userIDs []string) (map[string]model.UserProfile, error)
}

// SnapshotStore persists immutable rank snapshot batches.
type SnapshotStore interface {
	// Publish writes the batch and its rows and marks the batch published, all
	// in one transaction, then prunes batches beyond the retention window.
	Publish(ctx context.Context, batch *model.SnapshotBatch, rows []model.RankSnapshot, retention int) error
	// LatestBatch returns the most recently published batch for the scope and
	// metric, or nil, nil when none exists.
	LatestBatch(ctx context.Context, scope model.Scope, key, metric string) (*model.SnapshotBatch, error)
	// BatchForPeriod returns the published batch for an exact period, or nil, nil.
	BatchForPeriod(ctx context.Context, scope model.Scope, key, period, metric string) (*model.SnapshotBatch, error)
	// Rows returns the rows of a batch with fromRank <= rank <= toRank.
	Rows(ctx context.Context, batchID uuid.UUID, fromRank, toRank int) ([]model.RankSnapshot, error)
	// RowForUser returns nil, nil when the user is not in the batch.
	RowForUser(ctx context.Context, batchID uuid.UUID, userID string) (*model.RankSnapshot, error)
	AllRows(ctx context.Context, batchID uuid.UUID) ([]model.RankSnapshot, error)
}

// MovementStore persists the rolling movement history.
type MovementStore interface {
	// InsertAll appends the records and prunes each affected scope's history
	// beyond the given number of periods.
	InsertAll(ctx context.Context, recs []model.MovementRecord, history int) error
	// Latest returns the user's most recent record in the scope for the
	// metric, or nil, nil.
	Latest(ctx context.Context, userID string, scope model.Scope, key, metric string) (*model.MovementRecord, error)
}

// Cache is the optional leaderboard page cache. Implementations must swallow
// their own failures: a cache outage degrades to Postgres reads, nothing more.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte)
	Del(ctx context.Context, key string)
}

// Stores bundles the persistence interfaces the engine runs on.
type Stores struct {
	Events    EventStore
	Scores    ScoreStore
	Scopes    ScopeStore
	Users     UserDirectory
	Snapshots SnapshotStore
	Movements MovementStore
}

// Engine is the ranking and leaderboard engine.
type Engine struct {
	cfg   *config.Config
	cache Cache

	events    EventStore
	scores    ScoreStore
	scopes    ScopeStore
	users     UserDirectory
	snapshots SnapshotStore
	movements MovementStore

	// userLocks serializes ApplyEvent per user so concurrent increments for
	// the same user never lose an update. Different users proceed in parallel.
	userLocks sync.Map // userID -> *sync.Mutex

	// rebuilds enforces mutual exclusion per (scope, key, period, metric).
	rebuilds sync.Map // string -> struct{}

	now func() time.Time
}

// New creates an engine over the given stores. cache may be nil.
func New(cfg *config.Config, st Stores, cache Cache) *Engine {
	return &Engine{
		cfg:       cfg,
		cache:     cache,
		events:    st.Events,
		scores:    st.Scores,
		scopes:    st.Scopes,
		users:     st.Users,
		snapshots: st.Snapshots,
		movements: st.Movements,
		now:       time.Now,
	}
}

// PeriodKey returns the ISO-week period key for t, e.g. "2026-W35".
func PeriodKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// previousPeriodKey returns the period key of the ISO week before t's.
func previousPeriodKey(t time.Time) string {
	return PeriodKey(t.AddDate(0, 0, -7))
}

func (e *Engine) lockUser(userID string) *sync.Mutex {
	mu, _ := e.userLocks.LoadOrStore(userID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// validMetric reports whether the metric is one the builder snapshots.
func (e *Engine) validMetric(metric string) bool {
	for _, m := range e.cfg.Metrics {
		if m == metric {
			return true
		}
	}
	return false
}

func pageCacheKey(ref model.ScopeRef, metric string) string {
	return fmt.Sprintf("lb:%s:%s:%s", ref.Scope, ref.Key, metric)
}
