package engine

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/metalagman/questgraph/internal/graph"
)

// TaskState is the display state of a task for one member.
type TaskState string

const (
	StateLocked    TaskState = "locked"
	StateAvailable TaskState = "available"
	StateCompleted TaskState = "completed"
	StateFailed    TaskState = "failed"
	StateInvalid   TaskState = "invalid"
)

// Result is one full resolution pass. Every map is keyed id -> memberID and has an
// entry for every task (or objective, or hideout module) and every member.
type Result struct {
	Members           []string
	Available         map[string]map[string]bool
	Complete          map[string]map[string]bool
	Failed            map[string]map[string]bool
	InvalidTasks      map[string]map[string]bool
	InvalidObjectives map[string]map[string]bool
	HideoutAvailable  map[string]map[string]bool
}

type memberResult struct {
	available  map[string]bool
	invalidity Invalidity
	hideout    map[string]bool
}

// Resolve runs availability and invalidation for every member against g.
// Members are evaluated concurrently up to the configured parallelism, each with
// its own memo tables. The context only stops scheduling of further members.
func Resolve(ctx context.Context, g *graph.TaskGraph, members []Member, opts ...Option) (*Result, error) {
	o := newOptions(opts)
	results := make([]memberResult, len(members))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(o.parallelism)
	for i := range members {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			m := &members[i]
			r := memberResult{
				available:  NewAvailability(g, m, WithLogger(o.logger)).All(),
				invalidity: Invalidate(g, m),
			}
			if o.hideout != nil {
				r.hideout = HideoutAvailability(o.hideout, m)
			}
			results[i] = r
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("resolve members: %w", err)
	}

	res := newResult(g, o.hideout, members)
	for i := range members {
		m := &members[i]
		r := results[i]
		for taskID, v := range r.available {
			res.Available[taskID][m.ID] = v
			res.Complete[taskID][m.ID] = m.succeeded(taskID)
			res.Failed[taskID][m.ID] = m.failed(taskID)
		}
		for taskID, v := range r.invalidity.Tasks {
			res.InvalidTasks[taskID][m.ID] = v
		}
		for objID, v := range r.invalidity.Objectives {
			res.InvalidObjectives[objID][m.ID] = v
		}
		for moduleID, v := range r.hideout {
			res.HideoutAvailable[moduleID][m.ID] = v
		}
	}

	o.logger.Debug().
		Int("tasks", g.Len()).
		Int("members", len(members)).
		Msg("resolution pass finished")
	return res, nil
}

func newResult(g *graph.TaskGraph, h *graph.HideoutGraph, members []Member) *Result {
	res := &Result{
		Members:           make([]string, 0, len(members)),
		Available:         make(map[string]map[string]bool),
		Complete:          make(map[string]map[string]bool),
		Failed:            make(map[string]map[string]bool),
		InvalidTasks:      make(map[string]map[string]bool),
		InvalidObjectives: make(map[string]map[string]bool),
		HideoutAvailable:  make(map[string]map[string]bool),
	}
	for i := range members {
		res.Members = append(res.Members, members[i].ID)
	}
	tasks := g.Tasks()
	for i := range tasks {
		t := &tasks[i]
		res.Available[t.ID] = make(map[string]bool, len(members))
		res.Complete[t.ID] = make(map[string]bool, len(members))
		res.Failed[t.ID] = make(map[string]bool, len(members))
		res.InvalidTasks[t.ID] = make(map[string]bool, len(members))
		for _, objID := range t.ObjectiveIDs() {
			res.InvalidObjectives[objID] = make(map[string]bool, len(members))
		}
	}
	if h != nil {
		for _, mod := range h.Modules() {
			res.HideoutAvailable[mod.ID] = make(map[string]bool, len(members))
		}
	}
	return res
}

// State folds the maps into one display state, with failed taking precedence over
// completed, completed over invalid, invalid over available.
func (r *Result) State(taskID, memberID string) TaskState {
	switch {
	case r.Failed[taskID][memberID]:
		return StateFailed
	case r.Complete[taskID][memberID]:
		return StateCompleted
	case r.InvalidTasks[taskID][memberID]:
		return StateInvalid
	case r.Available[taskID][memberID]:
		return StateAvailable
	default:
		return StateLocked
	}
}

// Obtainable reports whether the member can still take the task: available and not invalid.
func (r *Result) Obtainable(taskID, memberID string) bool {
	return r.Available[taskID][memberID] && !r.InvalidTasks[taskID][memberID]
}

// TeamView is a Result collapsed over the team with one policy.
type TeamView struct {
	Policy           Policy          `json:"policy"`
	Available        map[string]bool `json:"available"`
	Complete         map[string]bool `json:"complete"`
	Invalid          map[string]bool `json:"invalid"`
	HideoutAvailable map[string]bool `json:"hideoutAvailable,omitempty"`
}

// Team aggregates the result for the given members.
func (r *Result) Team(policy Policy, g *graph.TaskGraph, members []Member) TeamView {
	view := TeamView{
		Policy:    policy,
		Available: AggregateTasks(policy, g, r.Available, members),
		Complete:  AggregateTasks(policy, g, r.Complete, members),
		Invalid:   AggregateTasks(policy, g, r.InvalidTasks, members),
	}
	if len(r.HideoutAvailable) > 0 {
		view.HideoutAvailable = AggregateHideout(policy, r.HideoutAvailable, members)
	}
	return view
}
