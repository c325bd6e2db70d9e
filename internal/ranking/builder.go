package ranking

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/campushire/ranking-backend/internal/logger"
	model "github.com/campushire/ranking-backend/internal/models"
)

// memberScore is one scope member's input to the sort.
type memberScore struct {
	userID      string
	score       int
	lastEventAt time.Time
}

// RebuildScope recomputes the full ranking of one scope for the current period
// and atomically swaps in the new snapshot batch. Returns the number of ranked
// members. An empty scope is not an error; it simply produces no batch.
//
// Any failure before the publish commit leaves the previous batch untouched:
// readers keep stale-but-correct data rather than seeing a partial ranking.
func (e *Engine) RebuildScope(ctx context.Context, ref model.ScopeRef, metric string) (int, error) {
	if !model.ValidScope(ref.Scope) {
		return 0, fmt.Errorf("%w: %q", ErrUnknownScope, ref.Scope)
	}
	if !e.validMetric(metric) {
		return 0, fmt.Errorf("%w: %q", ErrUnknownMetric, metric)
	}

	now := e.now()
	period := PeriodKey(now)

	// One builder per (scope, key, period, metric) at a time. Builders for
	// different scopes are independent and run in parallel.
	guard := fmt.Sprintf("%s|%s|%s|%s", ref.Scope, ref.Key, period, metric)
	if _, busy := e.rebuilds.LoadOrStore(guard, struct{}{}); busy {
		return 0, ErrRebuildInProgress
	}
	defer e.rebuilds.Delete(guard)

	ctx, cancel := context.WithTimeout(ctx, e.cfg.RebuildTimeout)
	defer cancel()

	members, err := e.scopes.Members(ctx, ref)
	if err != nil {
		return 0, fmt.Errorf("could not list members of %s/%s: %w", ref.Scope, ref.Key, err)
	}
	if len(members) == 0 {
		return 0, nil
	}

	states, err := e.scores.GetMany(ctx, members)
	if err != nil {
		return 0, fmt.Errorf("could not load score states for %s/%s: %w", ref.Scope, ref.Key, err)
	}

	scores := make([]memberScore, 0, len(members))
	for _, id := range members {
		ms := memberScore{userID: id}
		if st := states[id]; st != nil {
			ms.score = metricScore(st, metric)
			ms.lastEventAt = st.LastEventAt
		}
		scores = append(scores, ms)
	}

	// Score descending; ties broken by earlier last activity (rewards earlier
	// achievement), then userID. The order is total, so rebuilds are
	// deterministic for a fixed set of states.
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		if !scores[i].lastEventAt.Equal(scores[j].lastEventAt) {
			return scores[i].lastEventAt.Before(scores[j].lastEventAt)
		}
		return scores[i].userID < scores[j].userID
	})

	n := len(scores)
	batch := &model.SnapshotBatch{
		ID:          uuid.New(),
		Scope:       ref.Scope,
		ScopeKey:    ref.Key,
		Period:      period,
		Metric:      metric,
		MemberCount: n,
		ComputedAt:  now,
	}
	rows := make([]model.RankSnapshot, n)
	for i, ms := range scores {
		rank := i + 1
		rows[i] = model.RankSnapshot{
			BatchID:    batch.ID,
			UserID:     ms.userID,
			Rank:       rank,
			Score:      ms.score,
			Percentile: int(math.Round(float64(n-rank) / float64(n) * 100)),
		}
	}

	// Fail closed if the per-scope timeout fired during compute.
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("rebuild of %s/%s aborted: %w", ref.Scope, ref.Key, err)
	}

	if err := e.snapshots.Publish(ctx, batch, rows, e.cfg.SnapshotRetention); err != nil {
		return 0, fmt.Errorf("could not publish snapshot for %s/%s: %w", ref.Scope, ref.Key, err)
	}

	if e.cache != nil {
		e.cache.Del(ctx, pageCacheKey(ref, metric))
	}

	if err := e.trackMovement(ctx, batch, rows, now); err != nil {
		// The snapshot itself is committed; losing one period of movement is
		// an operational problem, not a reader-facing one.
		logger.Error("movement tracking failed for %s/%s %s: %v", ref.Scope, ref.Key, period, err)
	}

	return n, nil
}

// trackMovement diffs the freshly published batch against the immediately
// preceding period's and records a signed delta for every user present in
// both. Users present in only one side get no record; the read path reports
// them as new or unranked instead of a fabricated zero.
func (e *Engine) trackMovement(ctx context.Context, batch *model.SnapshotBatch, rows []model.RankSnapshot, now time.Time) error {
	prev, err := e.snapshots.BatchForPeriod(ctx, batch.Scope, batch.ScopeKey, previousPeriodKey(now), batch.Metric)
	if err != nil {
		return err
	}
	if prev == nil {
		return nil
	}

	prevRows, err := e.snapshots.AllRows(ctx, prev.ID)
	if err != nil {
		return err
	}
	prevRanks := make(map[string]int, len(prevRows))
	for _, r := range prevRows {
		prevRanks[r.UserID] = r.Rank
	}

	var recs []model.MovementRecord
	for _, r := range rows {
		from, ok := prevRanks[r.UserID]
		if !ok {
			continue
		}
		recs = append(recs, model.MovementRecord{
			UserID:     r.UserID,
			Scope:      batch.Scope,
			ScopeKey:   batch.ScopeKey,
			Period:     batch.Period,
			Metric:     batch.Metric,
			FromRank:   from,
			ToRank:     r.Rank,
			Delta:      from - r.Rank,
			ComputedAt: now,
		})
	}
	if len(recs) == 0 {
		return nil
	}
	return e.movements.InsertAll(ctx, recs, e.cfg.MovementHistory)
}

// RebuildAll rebuilds every scope that currently has members: national, each
// college and each state, across every configured metric. Scopes rebuild
// concurrently on a bounded worker pool; one scope failing never stops the
// others, it just keeps its previous snapshot.
func (e *Engine) RebuildAll(ctx context.Context) error {
	refs := []model.ScopeRef{{Scope: model.ScopeNational, Key: model.NationalKey}}
	for _, scope := range []model.Scope{model.ScopeCollege, model.ScopeState} {
		keys, err := e.scopes.Keys(ctx, scope)
		if err != nil {
			return fmt.Errorf("could not list %s scopes: %w", scope, err)
		}
		for _, key := range keys {
			refs = append(refs, model.ScopeRef{Scope: scope, Key: key})
		}
	}

	type job struct {
		ref    model.ScopeRef
		metric string
	}
	jobs := make(chan job)
	var wg sync.WaitGroup
	var failures int64
	var mu sync.Mutex

	workers := e.cfg.RebuildWorkers
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				n, err := e.RebuildScope(ctx, j.ref, j.metric)
				if err != nil {
					mu.Lock()
					failures++
					mu.Unlock()
					logger.Error("rebuild failed for %s/%s (%s): %v", j.ref.Scope, j.ref.Key, j.metric, err)
					continue
				}
				if n > 0 {
					logger.Debug("rebuilt %s/%s (%s): %d members", j.ref.Scope, j.ref.Key, j.metric, n)
				}
			}
		}()
	}

	start := e.now()
	for _, ref := range refs {
		for _, metric := range e.cfg.Metrics {
			jobs <- job{ref: ref, metric: metric}
		}
	}
	close(jobs)
	wg.Wait()

	if failures > 0 {
		return fmt.Errorf("rebuild finished with %d failed scopes", failures)
	}
	logger.Success("rebuilt %d scopes in %s", len(refs), time.Since(start).Round(time.Millisecond))
	return nil
}

// StartScheduler launches the periodic rebuild loop. It runs one build
// immediately, then on every tick until ctx is cancelled. Rebuild failures are
// operational: they are logged for follow-up, never surfaced to readers, who
// keep the last good snapshot.
func (e *Engine) StartScheduler(ctx context.Context) {
	go func() {
		if err := e.RebuildAll(ctx); err != nil {
			logger.Error("initial rebuild: %v", err)
		}
		ticker := time.NewTicker(e.cfg.RebuildInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := e.RebuildAll(ctx); err != nil {
					logger.Error("scheduled rebuild: %v", err)
				}
			}
		}
	}()
	logger.Info("rank table builder scheduled every %s", e.cfg.RebuildInterval)
}

// metricScore extracts the score a metric ranks on.
func metricScore(st *model.UserScoreState, metric string) int {
	if metric == model.MetricXP {
		return st.XPTotal
	}
	return st.CategoryTotals[metric]
}
