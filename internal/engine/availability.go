package engine

import (
	"github.com/rs/zerolog"

	"github.com/metalagman/questgraph/internal/graph"
	"github.com/metalagman/questgraph/internal/model"
)

const (
	modeOpen       = 0 // completed tasks are not available
	modeUnlockable = 1 // completed tasks may still count as unlockable
)

// Availability answers "is this task obtainable right now" for one member.
// It memoizes per traversal mode and must not be shared between members or passes.
type Availability struct {
	graph    *graph.TaskGraph
	member   *Member
	logger   zerolog.Logger
	memo     [2]map[string]bool
	visiting [2]map[string]bool
}

// NewAvailability returns a resolver for one member over g.
func NewAvailability(g *graph.TaskGraph, member *Member, opts ...Option) *Availability {
	o := newOptions(opts)
	a := &Availability{
		graph:  g,
		member: member,
		logger: o.logger.With().Str("member", member.ID).Logger(),
	}
	for i := range a.memo {
		a.memo[i] = make(map[string]bool)
		a.visiting[i] = make(map[string]bool)
	}
	return a
}

// Task reports whether the task is available. With allowCompleted false a completed
// or failed task is never available.
func (a *Availability) Task(id string, allowCompleted bool) bool {
	mode := modeOpen
	if allowCompleted {
		mode = modeUnlockable
	}
	if v, ok := a.memo[mode][id]; ok {
		return v
	}
	if a.visiting[mode][id] {
		a.logger.Warn().Str("task_id", id).Msg("requirement cycle reached while resolving availability")
		return false
	}
	t, ok := a.graph.Task(id)
	if !ok {
		return false
	}

	a.visiting[mode][id] = true
	v := a.evaluate(t, allowCompleted)
	delete(a.visiting[mode], id)
	a.memo[mode][id] = v
	return v
}

// All returns availability of every task with completed tasks excluded.
func (a *Availability) All() map[string]bool {
	tasks := a.graph.Tasks()
	out := make(map[string]bool, len(tasks))
	for i := range tasks {
		out[tasks[i].ID] = a.Task(tasks[i].ID, false)
	}
	return out
}

func (a *Availability) evaluate(t *model.Task, allowCompleted bool) bool {
	if !allowCompleted && a.member.done(t.ID) {
		return false
	}
	for _, req := range t.FailedRequirements {
		if a.member.failed(req.TaskID) {
			return false
		}
	}
	if a.member.Level < t.MinPlayerLevel {
		return false
	}
	for _, tr := range t.TraderLevelRequirements {
		if a.member.traderLevel(tr.TraderID) < tr.Level {
			return false
		}
	}
	for _, req := range t.TaskRequirements {
		if !a.satisfied(t.ID, req) {
			return false
		}
	}
	return t.AvailableToFaction(a.member.Faction)
}

// satisfied checks a single requirement edge. Edges to unknown tasks and self edges
// were dropped from the graph and are ignored here as well.
func (a *Availability) satisfied(ownerID string, req model.TaskRequirement) bool {
	if req.TaskID == ownerID || !a.graph.Has(req.TaskID) {
		return true
	}
	switch req.Kind() {
	case model.RequireFailed:
		return a.member.failed(req.TaskID)
	case model.RequireActive:
		rec, ok := a.member.task(req.TaskID)
		if ok {
			return rec.InProgress() || rec.Succeeded()
		}
		// Active is not persisted; an untouched task counts as active once it can be accepted.
		return a.Task(req.TaskID, true)
	default:
		return a.member.succeeded(req.TaskID)
	}
}
