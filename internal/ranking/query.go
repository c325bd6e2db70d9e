package ranking

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/campushire/ranking-backend/internal/logger"
	model "github.com/campushire/ranking-backend/internal/models"
)

// cachedPage is the serialized top page of a published batch. The batch id
// guards against serving a page that predates the latest publish.
type cachedPage struct {
	BatchID string               `json:"batchId"`
	Rows    []model.RankSnapshot `json:"rows"`
}

// GetLeaderboard returns the bounded leaderboard view for a scope: the top
// `limit` rows, a small context window around the requester when they fall
// outside the top, and the requester's own summary. The view reads the latest
// published snapshot only; it never blocks on, or observes, a running rebuild.
func (e *Engine) GetLeaderboard(ctx context.Context, ref model.ScopeRef, metric string, limit int, requestingUserID string) (*model.Leaderboard, error) {
	if !model.ValidScope(ref.Scope) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScope, ref.Scope)
	}
	if metric == "" {
		metric = model.MetricXP
	}
	if !e.validMetric(metric) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, metric)
	}
	if limit <= 0 {
		limit = e.cfg.DefaultLimit
	}
	if limit > e.cfg.MaxLimit {
		limit = e.cfg.MaxLimit
	}

	lb := &model.Leaderboard{
		Status:     model.LeaderboardOK,
		Scope:      ref.Scope,
		ScopeKey:   ref.Key,
		Metric:     metric,
		TopEntries: []model.LeaderboardEntry{},
	}

	batch, err := e.snapshots.LatestBatch(ctx, ref.Scope, ref.Key, metric)
	if err != nil {
		return nil, fmt.Errorf("could not load latest snapshot: %w", err)
	}
	if batch == nil {
		// Brand-new scope with no completed build yet. An explicit state, not
		// an error and not an ambiguous empty list.
		lb.Status = model.LeaderboardNotYetRanked
		if requestingUserID != "" {
			lb.UserSummary, err = e.liveSummary(ctx, requestingUserID, metric, 0)
			if err != nil {
				return nil, err
			}
		}
		return lb, nil
	}

	lb.Period = batch.Period
	lb.TotalUsers = batch.MemberCount
	computedAt := batch.ComputedAt
	lb.ComputedAt = &computedAt

	topRows, err := e.topRows(ctx, ref, metric, batch)
	if err != nil {
		return nil, err
	}
	if len(topRows) > limit {
		topRows = topRows[:limit]
	}

	var windowRows []model.RankSnapshot
	var selfRow *model.RankSnapshot

	if requestingUserID != "" {
		selfRow, err = e.snapshots.RowForUser(ctx, batch.ID, requestingUserID)
		if err != nil {
			return nil, fmt.Errorf("could not load requester row: %w", err)
		}
		// The context window exists only when the requester is below the top
		// page; inside it, the page itself already shows them.
		if selfRow != nil && selfRow.Rank > limit {
			from := selfRow.Rank - e.cfg.ContextRadius
			if from < 1 {
				from = 1
			}
			to := selfRow.Rank + e.cfg.ContextRadius
			if to > batch.MemberCount {
				to = batch.MemberCount
			}
			windowRows, err = e.snapshots.Rows(ctx, batch.ID, from, to)
			if err != nil {
				return nil, fmt.Errorf("could not load context window: %w", err)
			}
		}
	}

	lb.TopEntries, err = e.decorate(ctx, topRows, requestingUserID)
	if err != nil {
		return nil, err
	}
	if len(windowRows) > 0 {
		lb.ContextWindow, err = e.decorate(ctx, windowRows, requestingUserID)
		if err != nil {
			return nil, err
		}
	}

	if requestingUserID != "" {
		if selfRow == nil {
			lb.UserSummary, err = e.liveSummary(ctx, requestingUserID, metric, batch.MemberCount)
			if err != nil {
				return nil, err
			}
		} else {
			rec, err := e.movements.Latest(ctx, requestingUserID, ref.Scope, ref.Key, metric)
			if err != nil {
				return nil, fmt.Errorf("could not load movement record: %w", err)
			}
			// Rank and percentile come from the snapshot, the score is live:
			// events applied since the last build show up immediately even
			// though the rank lags until the next one.
			score := selfRow.Score
			st, err := e.scores.Get(ctx, requestingUserID)
			if err != nil {
				return nil, fmt.Errorf("could not load score state: %w", err)
			}
			if st != nil {
				score = metricScore(st, metric)
			}
			lb.UserSummary = &model.UserSummary{
				UserID:     requestingUserID,
				Status:     model.LeaderboardOK,
				Rank:       selfRow.Rank,
				Score:      score,
				Percentile: selfRow.Percentile,
				TotalUsers: batch.MemberCount,
				Movement:   e.movementView(selfRow, rec, batch.Period),
			}
		}
	}

	return lb, nil
}

// GetUserRankingSummary returns the user's live score state together with
// their last-snapshot position in every scope they belong to. The score is
// fresher than the ranks: rank lags until the next scheduled rebuild.
func (e *Engine) GetUserRankingSummary(ctx context.Context, userID string) (*model.RankingSummary, error) {
	refs, err := e.ResolveScopes(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary := &model.RankingSummary{
		UserID:         userID,
		CategoryTotals: map[string]int{},
		Scopes:         []model.ScopeSummary{},
	}

	st, err := e.scores.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("could not load score state: %w", err)
	}
	if st != nil {
		summary.XPTotal = st.XPTotal
		summary.CategoryTotals = st.CategoryTotals
		summary.Badges = st.Badges
		if !st.LastEventAt.IsZero() {
			t := st.LastEventAt
			summary.LastEventAt = &t
		}
	}

	for _, ref := range refs {
		s, err := e.scopeSummary(ctx, userID, ref, st)
		if err != nil {
			return nil, err
		}
		summary.Scopes = append(summary.Scopes, model.ScopeSummary{
			Scope:    ref.Scope,
			ScopeKey: ref.Key,
			Summary:  s,
		})
	}

	return summary, nil
}

func (e *Engine) scopeSummary(ctx context.Context, userID string, ref model.ScopeRef, st *model.UserScoreState) (*model.UserSummary, error) {
	batch, err := e.snapshots.LatestBatch(ctx, ref.Scope, ref.Key, model.MetricXP)
	if err != nil {
		return nil, fmt.Errorf("could not load latest snapshot: %w", err)
	}

	s := &model.UserSummary{
		UserID: userID,
		Status: model.LeaderboardNotYetRanked,
	}
	if st != nil {
		s.Score = st.XPTotal
	}
	if batch == nil {
		return s, nil
	}

	s.TotalUsers = batch.MemberCount
	row, err := e.snapshots.RowForUser(ctx, batch.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("could not load snapshot row: %w", err)
	}
	if row == nil {
		s.Movement = e.movementView(nil, nil, batch.Period)
		return s, nil
	}

	rec, err := e.movements.Latest(ctx, userID, ref.Scope, ref.Key, model.MetricXP)
	if err != nil {
		return nil, fmt.Errorf("could not load movement record: %w", err)
	}

	s.Status = model.LeaderboardOK
	s.Rank = row.Rank
	s.Percentile = row.Percentile
	s.Movement = e.movementView(row, rec, batch.Period)
	return s, nil
}

// liveSummary builds a summary for a user absent from the snapshot, using
// their live score so the response still explains where they stand.
func (e *Engine) liveSummary(ctx context.Context, userID, metric string, totalUsers int) (*model.UserSummary, error) {
	s := &model.UserSummary{
		UserID:     userID,
		Status:     model.LeaderboardNotYetRanked,
		TotalUsers: totalUsers,
		Movement:   &model.Movement{Status: model.MovementUnranked, Message: "not in the current rankings"},
	}
	st, err := e.scores.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("could not load score state: %w", err)
	}
	if st != nil {
		s.Score = metricScore(st, metric)
	}
	return s, nil
}

// topRows loads the top page of a batch, through the cache when configured.
// Cache problems only cost the detour to Postgres.
func (e *Engine) topRows(ctx context.Context, ref model.ScopeRef, metric string, batch *model.SnapshotBatch) ([]model.RankSnapshot, error) {
	key := pageCacheKey(ref, metric)

	if e.cache != nil {
		if raw, ok := e.cache.Get(ctx, key); ok {
			var page cachedPage
			if err := json.Unmarshal(raw, &page); err == nil && page.BatchID == batch.ID.String() {
				return page.Rows, nil
			}
		}
	}

	rows, err := e.snapshots.Rows(ctx, batch.ID, 1, e.cfg.MaxLimit)
	if err != nil {
		return nil, fmt.Errorf("could not load top snapshot rows: %w", err)
	}

	if e.cache != nil {
		raw, err := json.Marshal(cachedPage{BatchID: batch.ID.String(), Rows: rows})
		if err == nil {
			e.cache.Set(ctx, key, raw)
		} else {
			logger.Debug("could not serialize leaderboard page: %v", err)
		}
	}

	return rows, nil
}

// decorate turns snapshot rows into presentation entries with names, avatars
// and badges, marking the requester's own row.
func (e *Engine) decorate(ctx context.Context, rows []model.RankSnapshot, selfID string) ([]model.LeaderboardEntry, error) {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.UserID
	}

	profiles, err := e.users.Profiles(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("could not load user profiles: %w", err)
	}
	states, err := e.scores.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("could not load score states: %w", err)
	}

	entries := make([]model.LeaderboardEntry, len(rows))
	for i, r := range rows {
		entry := model.LeaderboardEntry{
			UserID:     r.UserID,
			Rank:       r.Rank,
			Score:      r.Score,
			Percentile: r.Percentile,
			IsSelf:     r.UserID == selfID,
		}
		if p, ok := profiles[r.UserID]; ok {
			entry.UserName = p.Name
			entry.Avatar = p.Avatar
		}
		if st := states[r.UserID]; st != nil {
			entry.Badges = st.Badges
		}
		entries[i] = entry
	}
	return entries, nil
}
