package ranking

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	model "github.com/campushire/ranking-backend/internal/models"
)

// memCache is a map-backed Cache that counts hits so tests can tell whether a
// page came from the cache or the snapshot store.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	hits int
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if ok {
		c.hits++
	}
	return v, ok
}

func (c *memCache) Set(_ context.Context, key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = append([]byte(nil), value...)
}

func (c *memCache) Del(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

// seedLargeScope fills the national scope with n users where "u0001" is the
// strongest and ranks first.
func seedLargeScope(d *memData, n int) {
	scores := make(map[string]int, n)
	for i := 1; i <= n; i++ {
		scores[fmt.Sprintf("u%04d", i)] = 100000 - i
	}
	seedScope(d, "", "", scores)
}

func TestGetLeaderboard_TopPageAndContextWindow(t *testing.T) {
	e, d := newTestEngine(testConfig(), testTime)
	seedLargeScope(d, 1000)
	rebuildAt(t, e, testTime)

	lb, err := e.GetLeaderboard(context.Background(), national, model.MetricXP, 20, "u0547")
	if err != nil {
		t.Fatalf("GetLeaderboard: %v", err)
	}

	if lb.Status != model.LeaderboardOK {
		t.Fatalf("status = %q, want %q", lb.Status, model.LeaderboardOK)
	}
	if lb.TotalUsers != 1000 {
		t.Errorf("totalUsers = %d, want 1000", lb.TotalUsers)
	}
	if len(lb.TopEntries) != 20 {
		t.Fatalf("top page has %d entries, want 20", len(lb.TopEntries))
	}
	for i, entry := range lb.TopEntries {
		if entry.Rank != i+1 {
			t.Errorf("topEntries[%d].Rank = %d, want %d", i, entry.Rank, i+1)
		}
		if entry.IsSelf {
			t.Errorf("requester at rank 547 marked as self in the top page")
		}
	}

	// Requester is far below the page, so they get a window of radius 2.
	if len(lb.ContextWindow) != 5 {
		t.Fatalf("context window has %d entries, want 5", len(lb.ContextWindow))
	}
	for i, entry := range lb.ContextWindow {
		want := 545 + i
		if entry.Rank != want {
			t.Errorf("contextWindow[%d].Rank = %d, want %d", i, entry.Rank, want)
		}
		if (entry.UserID == "u0547") != entry.IsSelf {
			t.Errorf("isSelf wrong for %s", entry.UserID)
		}
	}

	if lb.UserSummary == nil {
		t.Fatal("missing user summary")
	}
	if lb.UserSummary.Rank != 547 {
		t.Errorf("summary rank = %d, want 547", lb.UserSummary.Rank)
	}
	if lb.UserSummary.Percentile != 45 { // round(453/1000*100)
		t.Errorf("summary percentile = %d, want 45", lb.UserSummary.Percentile)
	}
}

func TestGetLeaderboard_RequesterInsideTopPage(t *testing.T) {
	e, d := newTestEngine(testConfig(), testTime)
	seedLargeScope(d, 100)
	rebuildAt(t, e, testTime)

	lb, err := e.GetLeaderboard(context.Background(), national, model.MetricXP, 20, "u0005")
	if err != nil {
		t.Fatalf("GetLeaderboard: %v", err)
	}

	if lb.ContextWindow != nil {
		t.Errorf("got a context window for a requester already in the top page")
	}
	var foundSelf bool
	for _, entry := range lb.TopEntries {
		if entry.IsSelf {
			foundSelf = entry.Rank == 5 && entry.UserID == "u0005"
		}
	}
	if !foundSelf {
		t.Errorf("requester not marked as self at rank 5 in the top page")
	}
}

func TestGetLeaderboard_WindowClampedAtBottom(t *testing.T) {
	e, d := newTestEngine(testConfig(), testTime)
	seedLargeScope(d, 100)
	rebuildAt(t, e, testTime)

	lb, err := e.GetLeaderboard(context.Background(), national, model.MetricXP, 20, "u0100")
	if err != nil {
		t.Fatalf("GetLeaderboard: %v", err)
	}

	// Rank 100 of 100: radius 2 clamps to ranks 98..100.
	if len(lb.ContextWindow) != 3 {
		t.Fatalf("context window has %d entries, want 3", len(lb.ContextWindow))
	}
	if lb.ContextWindow[0].Rank != 98 || lb.ContextWindow[2].Rank != 100 {
		t.Errorf("window spans ranks %d..%d, want 98..100",
			lb.ContextWindow[0].Rank, lb.ContextWindow[2].Rank)
	}
	if !lb.ContextWindow[2].IsSelf {
		t.Errorf("last-ranked requester not marked as self")
	}
}

func TestGetLeaderboard_LimitNormalization(t *testing.T) {
	e, d := newTestEngine(testConfig(), testTime)
	seedLargeScope(d, 200)
	rebuildAt(t, e, testTime)

	ctx := context.Background()

	lb, err := e.GetLeaderboard(ctx, national, model.MetricXP, 0, "")
	if err != nil {
		t.Fatalf("GetLeaderboard(limit=0): %v", err)
	}
	if len(lb.TopEntries) != 20 { // DefaultLimit
		t.Errorf("limit 0 returned %d entries, want 20", len(lb.TopEntries))
	}

	lb, err = e.GetLeaderboard(ctx, national, model.MetricXP, 500, "")
	if err != nil {
		t.Fatalf("GetLeaderboard(limit=500): %v", err)
	}
	if len(lb.TopEntries) != 100 { // MaxLimit
		t.Errorf("limit 500 returned %d entries, want 100", len(lb.TopEntries))
	}
}

func TestGetLeaderboard_InvalidInputs(t *testing.T) {
	e, d := newTestEngine(testConfig(), testTime)
	seedLargeScope(d, 10)
	rebuildAt(t, e, testTime)

	ctx := context.Background()
	if _, err := e.GetLeaderboard(ctx, model.ScopeRef{Scope: "galaxy", Key: "milky-way"}, model.MetricXP, 20, ""); err == nil {
		t.Error("unknown scope accepted")
	}
	if _, err := e.GetLeaderboard(ctx, national, "charisma", 20, ""); err == nil {
		t.Error("unknown metric accepted")
	}
}

func TestGetLeaderboard_NotYetRanked(t *testing.T) {
	e, d := newTestEngine(testConfig(), testTime)
	d.addUser("u1")
	d.setState(&model.UserScoreState{UserID: "u1", XPTotal: 120, CategoryTotals: map[string]int{}, LastEventAt: testTime})

	// No rebuild has run for this scope yet.
	lb, err := e.GetLeaderboard(context.Background(),
		model.ScopeRef{Scope: model.ScopeCollege, Key: "iit-d"}, model.MetricXP, 20, "u1")
	if err != nil {
		t.Fatalf("GetLeaderboard: %v", err)
	}

	if lb.Status != model.LeaderboardNotYetRanked {
		t.Fatalf("status = %q, want %q", lb.Status, model.LeaderboardNotYetRanked)
	}
	if len(lb.TopEntries) != 0 {
		t.Errorf("got %d entries for an unbuilt scope", len(lb.TopEntries))
	}
	if lb.UserSummary == nil || lb.UserSummary.Score != 120 {
		t.Errorf("summary should carry the live score, got %+v", lb.UserSummary)
	}
	if lb.UserSummary.Status != model.LeaderboardNotYetRanked {
		t.Errorf("summary status = %q, want %q", lb.UserSummary.Status, model.LeaderboardNotYetRanked)
	}
}

func TestGetLeaderboard_SummaryScoreIsLive(t *testing.T) {
	e, d := newTestEngine(testConfig(), testTime)
	seedScope(d, "", "", map[string]int{"u1": 300, "u2": 200})
	rebuildAt(t, e, testTime)

	// Scored after the build: the summary shows it now, the rank waits.
	ctx := context.Background()
	if _, err := e.ApplyEvent(ctx, uuid.Nil, "u2", model.KindPlacementReported, testTime.Add(time.Minute), nil); err != nil {
		t.Fatalf("ApplyEvent: %v", err)
	}

	lb, err := e.GetLeaderboard(ctx, national, model.MetricXP, 20, "u2")
	if err != nil {
		t.Fatalf("GetLeaderboard: %v", err)
	}
	if lb.UserSummary.Score != 300 {
		t.Errorf("summary score = %d, want live 300", lb.UserSummary.Score)
	}
	if lb.UserSummary.Rank != 2 {
		t.Errorf("summary rank = %d, want stale 2 until the next build", lb.UserSummary.Rank)
	}
	// The ranked entries themselves stay at the snapshot's scores.
	for _, entry := range lb.TopEntries {
		if entry.UserID == "u2" && entry.Score != 200 {
			t.Errorf("snapshot entry score = %d, want 200", entry.Score)
		}
	}
}

func TestGetLeaderboard_UnrankedRequesterGetsLiveSummary(t *testing.T) {
	e, d := newTestEngine(testConfig(), testTime)
	seedLargeScope(d, 50)
	rebuildAt(t, e, testTime)

	// Joined after the build: has a score but no snapshot row yet.
	d.addUser("late")
	d.setState(&model.UserScoreState{UserID: "late", XPTotal: 60, CategoryTotals: map[string]int{}, LastEventAt: testTime})

	lb, err := e.GetLeaderboard(context.Background(), national, model.MetricXP, 20, "late")
	if err != nil {
		t.Fatalf("GetLeaderboard: %v", err)
	}
	if lb.Status != model.LeaderboardOK {
		t.Errorf("leaderboard status = %q, want %q", lb.Status, model.LeaderboardOK)
	}
	if lb.UserSummary.Status != model.LeaderboardNotYetRanked {
		t.Errorf("summary status = %q, want %q", lb.UserSummary.Status, model.LeaderboardNotYetRanked)
	}
	if lb.UserSummary.Score != 60 {
		t.Errorf("summary score = %d, want 60", lb.UserSummary.Score)
	}
	if lb.ContextWindow != nil {
		t.Errorf("unranked requester should not get a context window")
	}
}

func TestGetLeaderboard_CachedPage(t *testing.T) {
	cache := newMemCache()
	d := newMemData()
	e := New(testConfig(), Stores{
		Events:    &memEvents{d},
		Scores:    &memScores{d},
		Scopes:    &memScopes{d},
		Users:     &memUsers{d},
		Snapshots: &memSnapshots{d},
		Movements: &memMovements{d},
	}, cache)
	seedLargeScope(d, 30)
	rebuildAt(t, e, testTime)

	ctx := context.Background()
	first, err := e.GetLeaderboard(ctx, national, model.MetricXP, 20, "")
	if err != nil {
		t.Fatalf("first read: %v", err)
	}
	if cache.hits != 0 {
		t.Fatalf("first read hit the cache %d times", cache.hits)
	}

	second, err := e.GetLeaderboard(ctx, national, model.MetricXP, 20, "")
	if err != nil {
		t.Fatalf("second read: %v", err)
	}
	if cache.hits != 1 {
		t.Errorf("second read should be served from the cache, hits = %d", cache.hits)
	}
	if len(second.TopEntries) != len(first.TopEntries) {
		t.Fatalf("cached page has %d entries, direct read had %d", len(second.TopEntries), len(first.TopEntries))
	}
	for i := range first.TopEntries {
		a, b := first.TopEntries[i], second.TopEntries[i]
		if a.UserID != b.UserID || a.Rank != b.Rank || a.Score != b.Score {
			t.Errorf("entry %d differs between cached and direct reads: %+v vs %+v", i, a, b)
		}
	}

	// Publishing a new batch invalidates the page.
	rebuildAt(t, e, testTime.Add(time.Minute))
	if _, ok := cache.data[pageCacheKey(national, model.MetricXP)]; ok {
		t.Errorf("publish did not invalidate the cached page")
	}
}
