package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/metalagman/questgraph/internal/graph"
	"github.com/metalagman/questgraph/internal/model"
)

// Policy collapses per-member values into one team-level answer.
type Policy string

const (
	// PolicyAny is true when at least one relevant member satisfies the predicate.
	PolicyAny Policy = "any"
	// PolicyAll is true only when every relevant member satisfies the predicate.
	PolicyAll Policy = "all"
)

// ErrUnknownPolicy is returned by ParsePolicy for unsupported values.
var ErrUnknownPolicy = errors.New("unknown aggregation policy")

// ParsePolicy parses "any" or "all". An empty value means any.
func ParsePolicy(value string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(PolicyAny):
		return PolicyAny, nil
	case string(PolicyAll):
		return PolicyAll, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, value)
	}
}

// Relevant returns the visible members whose faction may take the task.
func Relevant(t *model.Task, members []Member) []string {
	var ids []string
	for i := range members {
		m := &members[i]
		if m.Hidden || !t.AvailableToFaction(m.Faction) {
			continue
		}
		ids = append(ids, m.ID)
	}
	return ids
}

func visible(members []Member) []string {
	var ids []string
	for i := range members {
		if !members[i].Hidden {
			ids = append(ids, members[i].ID)
		}
	}
	return ids
}

// Aggregate folds the per-member values of one task. Members outside the task's
// faction and hidden members are ignored; with no relevant member the answer is false.
func Aggregate(policy Policy, t *model.Task, values map[string]bool, members []Member) bool {
	return fold(policy, Relevant(t, members), values)
}

// AggregateTasks folds a taskID -> memberID -> bool map for every task of g.
func AggregateTasks(policy Policy, g *graph.TaskGraph, values map[string]map[string]bool, members []Member) map[string]bool {
	tasks := g.Tasks()
	out := make(map[string]bool, len(tasks))
	for i := range tasks {
		t := &tasks[i]
		out[t.ID] = Aggregate(policy, t, values[t.ID], members)
	}
	return out
}

// AggregateHideout folds a moduleID -> memberID -> bool map over the visible members.
func AggregateHideout(policy Policy, values map[string]map[string]bool, members []Member) map[string]bool {
	ids := visible(members)
	out := make(map[string]bool, len(values))
	for moduleID, perMember := range values {
		out[moduleID] = fold(policy, ids, perMember)
	}
	return out
}

func fold(policy Policy, ids []string, values map[string]bool) bool {
	if len(ids) == 0 {
		return false
	}
	for _, id := range ids {
		v := values[id]
		if policy == PolicyAll && !v {
			return false
		}
		if policy != PolicyAll && v {
			return true
		}
	}
	return policy == PolicyAll
}
