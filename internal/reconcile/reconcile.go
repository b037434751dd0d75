// Package reconcile repairs persisted progress that the engine cannot represent:
// mutually exclusive tasks that were both recorded as completed.
package reconcile

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/metalagman/questgraph/internal/engine"
	"github.com/metalagman/questgraph/internal/graph"
	"github.com/metalagman/questgraph/internal/model"
)

// Store is the slice of the progress store reconciliation needs.
type Store interface {
	Members(ctx context.Context, mode model.GameMode) ([]engine.Member, error)
	PutTask(ctx context.Context, id string, mode model.GameMode, taskID string, rec model.CompletionRecord) (bool, error)
}

// Repair is one alternative pair fixed for one member.
type Repair struct {
	MemberID string `json:"member"`
	Kept     string `json:"kept"`
	Failed   string `json:"failed"`
}

// Report summarizes a reconciliation pass.
type Report struct {
	Mode    model.GameMode `json:"mode"`
	Members int            `json:"members"`
	Repairs []Repair       `json:"repairs"`
}

// Run scans every member's records in mode for alternative pairs completed on both
// sides and marks the later completion as failed. On equal timestamps the task that
// holds the recorded alternative is kept. Running it again finds nothing to do.
func Run(ctx context.Context, store Store, g *graph.TaskGraph, mode model.GameMode) (Report, error) {
	members, err := store.Members(ctx, mode)
	if err != nil {
		return Report{}, fmt.Errorf("load members: %w", err)
	}
	report := Report{Mode: mode, Members: len(members)}

	alts := g.AlternativeMap()
	for i := range members {
		m := &members[i]
		for _, t := range g.Tasks() {
			for _, alt := range alts[t.ID] {
				kept, lost, ok := conflict(m, t.ID, alt)
				if !ok {
					continue
				}
				rec := m.Tasks[lost]
				rec.Complete, rec.Failed = true, true
				if _, err := store.PutTask(ctx, m.ID, mode, lost, rec); err != nil {
					return report, fmt.Errorf("repair task %s for member %s: %w", lost, m.ID, err)
				}
				m.Tasks[lost] = rec
				log.Warn().
					Str("member", m.ID).
					Str("mode", string(mode)).
					Str("kept", kept).
					Str("failed", lost).
					Msg("both alternatives completed, marked the later one failed")
				report.Repairs = append(report.Repairs, Repair{MemberID: m.ID, Kept: kept, Failed: lost})
			}
		}
	}
	return report, nil
}

// conflict reports which side of a doubly completed pair to keep.
func conflict(m *engine.Member, trigger, alt string) (kept, lost string, ok bool) {
	a, okA := m.Tasks[trigger]
	b, okB := m.Tasks[alt]
	if !okA || !okB || !a.Succeeded() || !b.Succeeded() {
		return "", "", false
	}
	if b.Timestamp < a.Timestamp {
		return alt, trigger, true
	}
	return trigger, alt, true
}
