package graph

import (
	"github.com/metalagman/questgraph/internal/model"
)

// ExtractAlternatives derives the alternatives relation from a task list.
//
// Task B is recorded as an alternative of task A when B requires A to have failed, or
// when B has a fail condition "A completed". Only A gets the entry; completing either
// side still forecloses the other.
func ExtractAlternatives(tasks []model.Task, opts ...Option) map[string][]string {
	o := newOptions(opts)
	rep := &reporter{logger: o.logger}
	known := make(map[string]bool, len(tasks))
	for i := range tasks {
		known[tasks[i].ID] = true
	}
	return extractAlternatives(tasks, func(id string) bool { return known[id] }, rep)
}

func extractAlternatives(tasks []model.Task, known func(string) bool, rep *reporter) map[string][]string {
	alts := make(map[string][]string)
	seen := make(map[[2]string]bool)
	record := func(trigger, foreclosed string) {
		if trigger == "" || trigger == foreclosed {
			return
		}
		if !known(trigger) {
			rep.warn(Diagnostic{
				Kind:    DiagMissingTask,
				NodeID:  foreclosed,
				Ref:     trigger,
				Message: "alternative references unknown task, ignored",
			})
			return
		}
		key := [2]string{trigger, foreclosed}
		if seen[key] {
			return
		}
		seen[key] = true
		alts[trigger] = append(alts[trigger], foreclosed)
	}

	for i := range tasks {
		t := &tasks[i]
		for _, req := range t.TaskRequirements {
			if model.IsFailedOnly(req.Status) {
				record(req.TaskID, t.ID)
			}
		}
		for _, fc := range t.FailConditions {
			if fc.TaskID != "" && model.RequiresCompletion(fc.Status) {
				record(fc.TaskID, t.ID)
			}
		}
	}
	return alts
}
