package engine

import (
	"github.com/metalagman/questgraph/internal/graph"
	"github.com/metalagman/questgraph/internal/model"
)

// Invalidity holds the tasks and objectives a member can never complete.
// Both maps carry an entry for every known id.
type Invalidity struct {
	Tasks      map[string]bool
	Objectives map[string]bool
}

type cascadeMode int

const (
	cascadeNone cascadeMode = iota
	cascadeTasks
	cascadeWithObjectives
)

type invalidator struct {
	graph      *graph.TaskGraph
	member     *Member
	requiredBy map[string][]string
	visited    map[string]cascadeMode
	out        Invalidity
}

// Invalidate computes the invalid task and objective sets for one member.
//
// A task is invalid when it is restricted to another faction, when it needs a task
// to have failed that was completed, when it needs a task that has failed, or when a
// mutually exclusive alternative was completed. All but the faction rule cascade to
// dependents. Tasks the member already completed are never invalidated.
func Invalidate(g *graph.TaskGraph, m *Member) Invalidity {
	tasks := g.Tasks()
	inv := &invalidator{
		graph:      g,
		member:     m,
		requiredBy: make(map[string][]string, len(tasks)),
		visited:    make(map[string]cascadeMode),
		out: Invalidity{
			Tasks:      make(map[string]bool, len(tasks)),
			Objectives: make(map[string]bool),
		},
	}

	for i := range tasks {
		t := &tasks[i]
		inv.out.Tasks[t.ID] = false
		for _, id := range t.ObjectiveIDs() {
			inv.out.Objectives[id] = false
		}
		for _, req := range t.TaskRequirements {
			if req.TaskID == t.ID || !g.Has(req.TaskID) || req.Kind() == model.RequireFailed {
				continue
			}
			inv.requiredBy[req.TaskID] = append(inv.requiredBy[req.TaskID], t.ID)
		}
	}

	for i := range tasks {
		t := &tasks[i]
		if m.Faction != "" && !t.AvailableToFaction(m.Faction) && !m.succeeded(t.ID) {
			inv.mark(t, true)
		}
		if inv.blockedByRequirement(t) {
			inv.invalidate(t.ID, cascadeWithObjectives, true)
		}
	}

	for _, t := range tasks {
		for _, alt := range g.Alternatives(t.ID) {
			if m.succeeded(t.ID) {
				inv.invalidate(alt, cascadeTasks, true)
			}
			if m.succeeded(alt) {
				inv.invalidate(t.ID, cascadeTasks, true)
			}
		}
	}

	return inv.out
}

// blockedByRequirement reports whether a requirement of t can no longer be met.
func (inv *invalidator) blockedByRequirement(t *model.Task) bool {
	for _, req := range t.TaskRequirements {
		if req.TaskID == t.ID || !inv.graph.Has(req.TaskID) {
			continue
		}
		if req.Kind() == model.RequireFailed {
			if inv.member.succeeded(req.TaskID) {
				return true
			}
			continue
		}
		if inv.member.failed(req.TaskID) {
			return true
		}
	}
	return false
}

// invalidate marks id and walks its dependents. The objectives of id itself are
// marked when withObjectives is set; dependents get their objectives marked only in
// cascadeWithObjectives mode.
func (inv *invalidator) invalidate(id string, mode cascadeMode, withObjectives bool) {
	if inv.member.succeeded(id) {
		return
	}
	t, ok := inv.graph.Task(id)
	if !ok {
		return
	}
	inv.mark(t, withObjectives)
	inv.cascade(id, mode)
}

func (inv *invalidator) cascade(id string, mode cascadeMode) {
	if inv.visited[id] >= mode {
		return
	}
	inv.visited[id] = mode
	for _, dep := range inv.requiredBy[id] {
		if inv.member.succeeded(dep) {
			continue
		}
		t, ok := inv.graph.Task(dep)
		if !ok {
			continue
		}
		inv.mark(t, mode == cascadeWithObjectives)
		inv.cascade(dep, mode)
	}
}

func (inv *invalidator) mark(t *model.Task, withObjectives bool) {
	inv.out.Tasks[t.ID] = true
	if !withObjectives {
		return
	}
	for _, id := range t.ObjectiveIDs() {
		inv.out.Objectives[id] = true
	}
}
