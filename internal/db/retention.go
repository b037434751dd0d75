package db

import (
	"context"
	"fmt"
	"time"
)

// RetentionPolicy controls journal cleanup. KeepLast counts events per member.
type RetentionPolicy struct {
	KeepLast int
	KeepDays int
}

// PruneResult summarizes a prune operation.
type PruneResult struct {
	Considered int
	Kept       int
	Deleted    int
}

// Prune deletes journal events outside the policy. An event is kept when it is among
// the member's KeepLast newest or younger than KeepDays. A zero policy keeps everything.
func (j *Journal) Prune(ctx context.Context, policy RetentionPolicy, dryRun bool) (PruneResult, error) {
	if policy.KeepLast <= 0 && policy.KeepDays <= 0 {
		return PruneResult{}, nil
	}
	cutoff := time.Time{}
	if policy.KeepDays > 0 {
		cutoff = time.Now().UTC().Add(-time.Duration(policy.KeepDays) * 24 * time.Hour)
	}

	rows, err := j.db.QueryContext(ctx, `SELECT member_id, seq, ts FROM events ORDER BY member_id, seq DESC`)
	if err != nil {
		return PruneResult{}, fmt.Errorf("list events: %w", err)
	}
	type eventRow struct {
		memberID string
		seq      int
		ts       time.Time
		parseErr error
	}
	var events []eventRow
	for rows.Next() {
		var row eventRow
		var ts string
		if err := rows.Scan(&row.memberID, &row.seq, &ts); err != nil {
			_ = rows.Close()
			return PruneResult{}, fmt.Errorf("scan event: %w", err)
		}
		row.ts, row.parseErr = time.Parse(time.RFC3339, ts)
		events = append(events, row)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return PruneResult{}, fmt.Errorf("iterate events: %w", err)
	}
	_ = rows.Close()

	res := PruneResult{Considered: len(events)}
	rank := 0
	prevMember := ""
	for _, row := range events {
		if row.memberID != prevMember {
			prevMember, rank = row.memberID, 0
		}
		rank++

		keep := policy.KeepLast > 0 && rank <= policy.KeepLast
		if !keep && policy.KeepDays > 0 {
			keep = row.parseErr != nil || row.ts.After(cutoff)
		}
		if keep {
			res.Kept++
			continue
		}
		if !dryRun {
			if _, err := j.db.ExecContext(ctx, `DELETE FROM events WHERE member_id=? AND seq=?`, row.memberID, row.seq); err != nil {
				return res, fmt.Errorf("delete event %s/%d: %w", row.memberID, row.seq, err)
			}
		}
		res.Deleted++
	}
	return res, nil
}
