package scanner

import (
	"database/sql"
	"encoding/json"

	model "github.com/campushire/ranking-backend/internal/models"
	"github.com/campushire/ranking-backend/internal/utils"
	"github.com/lib/pq"
)

// Row is satisfied by pgx.Row and pgx.Rows.
type Row interface {
	Scan(dest ...interface{}) error
}

// ScanScoreState scans one user_score_state row.
func ScanScoreState(row Row) (*model.UserScoreState, error) {
	var st model.UserScoreState
	var totals []byte
	var badges []string
	var lastEventAt sql.NullTime

	err := row.Scan(&st.UserID, &st.XPTotal, &totals, pq.Array(&badges), &lastEventAt)
	if err != nil {
		return nil, err
	}

	st.CategoryTotals = map[string]int{}
	if len(totals) > 0 {
		if err := json.Unmarshal(totals, &st.CategoryTotals); err != nil {
			return nil, err
		}
	}
	st.Badges = badges
	st.LastEventAt = utils.NullTimeToTime(lastEventAt)

	return &st, nil
}

// ScanScoreEvent scans one score_events row.
func ScanScoreEvent(row Row) (*model.ScoreEvent, error) {
	var ev model.ScoreEvent
	var metadata []byte

	err := row.Scan(&ev.ID, &ev.UserID, &ev.Kind, &ev.XPDelta, &ev.OccurredAt, &metadata)
	if err != nil {
		return nil, err
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &ev.Metadata); err != nil {
			return nil, err
		}
	}

	return &ev, nil
}

// ScanMembership scans one scope_memberships row.
func ScanMembership(row Row) (*model.ScopeMembership, error) {
	var m model.ScopeMembership
	var college, state sql.NullString

	err := row.Scan(&m.UserID, &college, &state, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}

	m.CollegeID = utils.NullStringToString(college)
	m.StateID = utils.NullStringToString(state)

	return &m, nil
}

// ScanBatch scans one rank_snapshot_batches row.
func ScanBatch(row Row) (*model.SnapshotBatch, error) {
	var b model.SnapshotBatch
	var publishedAt sql.NullTime

	err := row.Scan(&b.ID, &b.Scope, &b.ScopeKey, &b.Period, &b.Metric,
		&b.MemberCount, &b.ComputedAt, &publishedAt)
	if err != nil {
		return nil, err
	}

	b.PublishedAt = utils.NullTimeToTime(publishedAt)

	return &b, nil
}

// ScanSnapshotRow scans one rank_snapshots row.
func ScanSnapshotRow(row Row) (*model.RankSnapshot, error) {
	var r model.RankSnapshot

	err := row.Scan(&r.BatchID, &r.UserID, &r.Rank, &r.Score, &r.Percentile)
	if err != nil {
		return nil, err
	}

	return &r, nil
}

// ScanMovement scans one movement_records row.
func ScanMovement(row Row) (*model.MovementRecord, error) {
	var m model.MovementRecord

	err := row.Scan(&m.UserID, &m.Scope, &m.ScopeKey, &m.Period, &m.Metric,
		&m.FromRank, &m.ToRank, &m.Delta, &m.ComputedAt)
	if err != nil {
		return nil, err
	}

	return &m, nil
}

// ScanProfile scans an id/name/avatar projection of the users table.
func ScanProfile(row Row) (*model.UserProfile, error) {
	var p model.UserProfile
	var avatar sql.NullString

	err := row.Scan(&p.ID, &p.Name, &avatar)
	if err != nil {
		return nil, err
	}

	p.Avatar = utils.NullStringToString(avatar)

	return &p, nil
}
