package graph

import (
	"github.com/metalagman/questgraph/internal/model"
)

// TaskGraph is the prerequisite graph of a task list together with the enriched tasks.
// It is immutable after BuildTasks returns and safe for concurrent readers.
type TaskGraph struct {
	graph        *Digraph
	tasks        []model.Task
	index        map[string]int
	alternatives map[string][]string
	diagnostics  []Diagnostic
}

type deferredRequirement struct {
	taskID     string
	requiredID string
}

// BuildTasks builds the task graph and returns enriched copies of the tasks.
// The input slice is not modified.
//
// Requirements that only ask for the target to be active do not become direct edges:
// the dependent is wired to the target's own predecessors instead, because it unlocks
// as soon as the target can be accepted.
func BuildTasks(tasks []model.Task, opts ...Option) *TaskGraph {
	o := newOptions(opts)
	rep := &reporter{logger: o.logger}

	g := &TaskGraph{
		graph: NewDigraph(),
		index: make(map[string]int, len(tasks)),
	}

	for i := range tasks {
		t := tasks[i].Clone()
		if t.ID == "" {
			continue
		}
		if !g.graph.AddNode(t.ID) {
			rep.warn(Diagnostic{
				Kind:    DiagDuplicateID,
				NodeID:  t.ID,
				Message: "duplicate task id, keeping the first definition",
			})
			continue
		}
		t.Normalize()
		t.Predecessors, t.Successors, t.Alternatives = nil, nil, nil
		g.index[t.ID] = len(g.tasks)
		g.tasks = append(g.tasks, t)
	}

	var deferred []deferredRequirement
	for i := range g.tasks {
		t := &g.tasks[i]
		for _, req := range t.TaskRequirements {
			if req.TaskID == t.ID {
				rep.warn(Diagnostic{
					Kind:    DiagSelfReference,
					NodeID:  t.ID,
					Ref:     req.TaskID,
					Message: "task requires itself, requirement dropped",
				})
				continue
			}
			if !g.graph.HasNode(req.TaskID) {
				rep.warn(Diagnostic{
					Kind:    DiagMissingTask,
					NodeID:  t.ID,
					Ref:     req.TaskID,
					Message: "requirement references unknown task, edge dropped",
				})
				continue
			}
			if model.IsActiveOnly(req.Status) {
				deferred = append(deferred, deferredRequirement{taskID: t.ID, requiredID: req.TaskID})
				continue
			}
			g.graph.AddEdge(req.TaskID, t.ID)
		}
	}

	for _, d := range deferred {
		for _, pred := range g.graph.Predecessors(d.requiredID) {
			g.graph.AddEdge(pred, d.taskID)
		}
	}

	g.alternatives = extractAlternatives(g.tasks, g.graph.HasNode, rep)

	for i := range g.tasks {
		t := &g.tasks[i]
		t.Predecessors = g.graph.Predecessors(t.ID)
		t.Successors = g.graph.Successors(t.ID)
		t.Alternatives = append([]string(nil), g.alternatives[t.ID]...)
	}

	if cycle := g.graph.DetectCycle(); cycle != nil {
		rep.warn(Diagnostic{
			Kind:    DiagCycle,
			NodeID:  cycle[0],
			Path:    cycle,
			Message: "task prerequisites form a cycle",
		})
	}

	g.diagnostics = rep.diags
	return g
}

// Tasks returns the enriched tasks in input order. Callers must not modify them.
func (g *TaskGraph) Tasks() []model.Task {
	return g.tasks
}

// Task returns the enriched task with the given id.
func (g *TaskGraph) Task(id string) (*model.Task, bool) {
	i, ok := g.index[id]
	if !ok {
		return nil, false
	}
	return &g.tasks[i], true
}

// Has reports whether the task id is known.
func (g *TaskGraph) Has(id string) bool {
	_, ok := g.index[id]
	return ok
}

// Len returns the number of tasks.
func (g *TaskGraph) Len() int {
	return len(g.tasks)
}

// Graph exposes the underlying digraph.
func (g *TaskGraph) Graph() *Digraph {
	return g.graph
}

// Predecessors returns the direct prerequisites of a task.
func (g *TaskGraph) Predecessors(id string) []string {
	return g.graph.Predecessors(id)
}

// Successors returns the tasks directly unlocked by a task.
func (g *TaskGraph) Successors(id string) []string {
	return g.graph.Successors(id)
}

// Parents is an alias of Predecessors.
func (g *TaskGraph) Parents(id string) []string {
	return g.Predecessors(id)
}

// Children is an alias of Successors.
func (g *TaskGraph) Children(id string) []string {
	return g.Successors(id)
}

// Ancestors returns every transitive prerequisite of a task.
func (g *TaskGraph) Ancestors(id string) []string {
	return g.graph.Ancestors(id)
}

// Descendants returns every task transitively blocked by a task.
func (g *TaskGraph) Descendants(id string) []string {
	return g.graph.Descendants(id)
}

// Roots returns tasks without prerequisites.
func (g *TaskGraph) Roots() []string {
	return g.graph.Roots()
}

// Leaves returns tasks that unlock nothing.
func (g *TaskGraph) Leaves() []string {
	return g.graph.Leaves()
}

// Cycles returns the requirement cycles reported while building.
func (g *TaskGraph) Cycles() [][]string {
	var out [][]string
	for _, d := range g.diagnostics {
		if d.Kind == DiagCycle {
			out = append(out, append([]string(nil), d.Path...))
		}
	}
	return out
}

// Alternatives returns the tasks foreclosed when id is completed, as recorded in the
// source data. The relation is directional here; consumers treat it as symmetric.
func (g *TaskGraph) Alternatives(id string) []string {
	return append([]string(nil), g.alternatives[id]...)
}

// AlternativeMap returns a copy of the whole alternatives relation.
func (g *TaskGraph) AlternativeMap() map[string][]string {
	out := make(map[string][]string, len(g.alternatives))
	for k, v := range g.alternatives {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Conflicts returns every task mutually exclusive with id, in either recorded direction.
func (g *TaskGraph) Conflicts(id string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(other string) {
		if other == id || seen[other] {
			return
		}
		seen[other] = true
		out = append(out, other)
	}
	for _, alt := range g.alternatives[id] {
		add(alt)
	}
	for i := range g.tasks {
		src := g.tasks[i].ID
		for _, alt := range g.alternatives[src] {
			if alt == id {
				add(src)
			}
		}
	}
	return out
}

// Diagnostics returns data-quality problems found while building.
func (g *TaskGraph) Diagnostics() []Diagnostic {
	return append([]Diagnostic(nil), g.diagnostics...)
}
