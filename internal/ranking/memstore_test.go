package ranking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/campushire/ranking-backend/internal/config"
	model "github.com/campushire/ranking-backend/internal/models"
)

// In-memory store fakes so the engine's logic can be tested without Postgres.

type memData struct {
	mu          sync.Mutex
	events      map[string][]model.ScoreEvent
	states      map[string]*model.UserScoreState
	memberships map[string]*model.ScopeMembership
	users       map[string]model.UserProfile
	batches     []*model.SnapshotBatch
	rows        map[uuid.UUID][]model.RankSnapshot
	movements   []model.MovementRecord
}

func newMemData() *memData {
	return &memData{
		events:      map[string][]model.ScoreEvent{},
		states:      map[string]*model.UserScoreState{},
		memberships: map[string]*model.ScopeMembership{},
		users:       map[string]model.UserProfile{},
		rows:        map[uuid.UUID][]model.RankSnapshot{},
	}
}

func (d *memData) addUser(id string) {
	d.users[id] = model.UserProfile{ID: id, Name: "user " + id}
}

func (d *memData) setState(st *model.UserScoreState) {
	d.states[st.UserID] = st
}

func copyState(st *model.UserScoreState) *model.UserScoreState {
	cp := *st
	cp.CategoryTotals = map[string]int{}
	for k, v := range st.CategoryTotals {
		cp.CategoryTotals[k] = v
	}
	cp.Badges = append([]string(nil), st.Badges...)
	return &cp
}

type memEvents struct{ d *memData }

func (s *memEvents) Append(_ context.Context, ev *model.ScoreEvent) (bool, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, existing := range s.d.events[ev.UserID] {
		if existing.ID == ev.ID {
			return false, nil
		}
	}
	s.d.events[ev.UserID] = append(s.d.events[ev.UserID], *ev)
	return true, nil
}

func (s *memEvents) ListByUser(_ context.Context, userID string) ([]model.ScoreEvent, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	return append([]model.ScoreEvent(nil), s.d.events[userID]...), nil
}

type memScores struct{ d *memData }

func (s *memScores) Get(_ context.Context, userID string) (*model.UserScoreState, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	st, ok := s.d.states[userID]
	if !ok {
		return nil, nil
	}
	return copyState(st), nil
}

func (s *memScores) GetMany(_ context.Context, userIDs []string) (map[string]*model.UserScoreState, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	out := map[string]*model.UserScoreState{}
	for _, id := range userIDs {
		if st, ok := s.d.states[id]; ok {
			out[id] = copyState(st)
		}
	}
	return out, nil
}

func (s *memScores) Upsert(_ context.Context, st *model.UserScoreState) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	s.d.states[st.UserID] = copyState(st)
	return nil
}

type memScopes struct{ d *memData }

func (s *memScopes) Get(_ context.Context, userID string) (*model.ScopeMembership, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	m, ok := s.d.memberships[userID]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (s *memScopes) Upsert(_ context.Context, m *model.ScopeMembership) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	cp := *m
	s.d.memberships[m.UserID] = &cp
	return nil
}

func (s *memScopes) Members(_ context.Context, ref model.ScopeRef) ([]string, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	var members []string
	switch ref.Scope {
	case model.ScopeNational:
		for id := range s.d.states {
			members = append(members, id)
		}
	case model.ScopeCollege:
		for id, m := range s.d.memberships {
			if m.CollegeID == ref.Key {
				members = append(members, id)
			}
		}
	case model.ScopeState:
		for id, m := range s.d.memberships {
			if m.StateID == ref.Key {
				members = append(members, id)
			}
		}
	}
	sort.Strings(members)
	return members, nil
}

func (s *memScopes) Keys(_ context.Context, scope model.Scope) ([]string, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	seen := map[string]bool{}
	for _, m := range s.d.memberships {
		switch scope {
		case model.ScopeCollege:
			if m.CollegeID != "" {
				seen[m.CollegeID] = true
			}
		case model.ScopeState:
			if m.StateID != "" {
				seen[m.StateID] = true
			}
		}
	}
	var keys []string
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

type memUsers struct{ d *memData }

func (s *memUsers) Exists(_ context.Context, userID string) (bool, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	_, ok := s.d.users[userID]
	return ok, nil
}

func (s *memUsers) Profiles(_ context.Context, userIDs []string) (map[string]model.UserProfile, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	out := map[string]model.UserProfile{}
	for _, id := range userIDs {
		if p, ok := s.d.users[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type memSnapshots struct{ d *memData }

func (s *memSnapshots) Publish(_ context.Context, batch *model.SnapshotBatch, rows []model.RankSnapshot, _ int) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	cp := *batch
	cp.PublishedAt = time.Now()
	s.d.batches = append(s.d.batches, &cp)
	s.d.rows[batch.ID] = append([]model.RankSnapshot(nil), rows...)
	return nil
}

func (s *memSnapshots) LatestBatch(_ context.Context, scope model.Scope, key, metric string) (*model.SnapshotBatch, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	var latest *model.SnapshotBatch
	for _, b := range s.d.batches {
		if b.Scope != scope || b.ScopeKey != key || b.Metric != metric {
			continue
		}
		if latest == nil || b.PublishedAt.After(latest.PublishedAt) {
			latest = b
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (s *memSnapshots) BatchForPeriod(_ context.Context, scope model.Scope, key, period, metric string) (*model.SnapshotBatch, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	var latest *model.SnapshotBatch
	for _, b := range s.d.batches {
		if b.Scope != scope || b.ScopeKey != key || b.Period != period || b.Metric != metric {
			continue
		}
		if latest == nil || b.PublishedAt.After(latest.PublishedAt) {
			latest = b
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (s *memSnapshots) Rows(_ context.Context, batchID uuid.UUID, fromRank, toRank int) ([]model.RankSnapshot, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	var out []model.RankSnapshot
	for _, r := range s.d.rows[batchID] {
		if r.Rank >= fromRank && r.Rank <= toRank {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out, nil
}

func (s *memSnapshots) RowForUser(_ context.Context, batchID uuid.UUID, userID string) (*model.RankSnapshot, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, r := range s.d.rows[batchID] {
		if r.UserID == userID {
			cp := r
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memSnapshots) AllRows(_ context.Context, batchID uuid.UUID) ([]model.RankSnapshot, error) {
	return s.Rows(context.Background(), batchID, 1, 1<<30)
}

type memMovements struct{ d *memData }

func (s *memMovements) InsertAll(_ context.Context, recs []model.MovementRecord, _ int) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	s.d.movements = append(s.d.movements, recs...)
	return nil
}

func (s *memMovements) Latest(_ context.Context, userID string, scope model.Scope, key, metric string) (*model.MovementRecord, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	var latest *model.MovementRecord
	for i := range s.d.movements {
		m := &s.d.movements[i]
		if m.UserID != userID || m.Scope != scope || m.ScopeKey != key || m.Metric != metric {
			continue
		}
		if latest == nil || !m.ComputedAt.Before(latest.ComputedAt) {
			latest = m
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func testConfig() *config.Config {
	return &config.Config{
		RebuildInterval:   time.Hour,
		RebuildTimeout:    time.Minute,
		RebuildWorkers:    2,
		SnapshotRetention: 4,
		MovementHistory:   4,
		DefaultLimit:      20,
		MaxLimit:          100,
		ContextRadius:     2,
		BigMoveThreshold:  10,

		AssessmentBaseXP:    25,
		AssessmentPercentXP: 75,
		XPValues: map[model.EventKind]int{
			model.KindBadgeEarned:         40,
			model.KindPlacementReported:   100,
			model.KindPlacementVerified30: 250,
			model.KindPlacementVerified90: 500,
			model.KindPostCreated:         15,
			model.KindPostUpvoted:         5,
		},
		Metrics: []string{model.MetricXP},
	}
}

// newTestEngine returns an engine over fresh in-memory stores with the clock
// pinned to `now`.
func newTestEngine(cfg *config.Config, now time.Time) (*Engine, *memData) {
	d := newMemData()
	e := New(cfg, Stores{
		Events:    &memEvents{d},
		Scores:    &memScores{d},
		Scopes:    &memScopes{d},
		Users:     &memUsers{d},
		Snapshots: &memSnapshots{d},
		Movements: &memMovements{d},
	}, nil)
	e.now = func() time.Time { return now }
	return e, d
}
