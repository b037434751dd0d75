package graph

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metalagman/questgraph/internal/model"
)

func req(id string, status ...string) model.TaskRequirement {
	return model.TaskRequirement{TaskID: id, Status: status}
}

func quiet() Option {
	return WithLogger(zerolog.Nop())
}

func kinds(diags []Diagnostic) []DiagnosticKind {
	out := make([]DiagnosticKind, 0, len(diags))
	for _, d := range diags {
		out = append(out, d.Kind)
	}
	return out
}

func TestBuildTasks_CompletionRequirementsBecomeDirectEdges(t *testing.T) {
	t.Parallel()

	g := BuildTasks([]model.Task{
		{ID: "a"},
		{ID: "b", TaskRequirements: []model.TaskRequirement{req("a")}},
		{ID: "c", TaskRequirements: []model.TaskRequirement{req("b", "Complete")}},
	}, quiet())

	assert.True(t, g.Graph().HasEdge("a", "b"))
	assert.True(t, g.Graph().HasEdge("b", "c"))
	assert.Equal(t, []string{"a"}, g.Predecessors("b"))
	assert.Equal(t, []string{"c"}, g.Successors("b"))
	assert.Equal(t, g.Predecessors("b"), g.Parents("b"))
	assert.Equal(t, g.Successors("b"), g.Children("b"))

	b, ok := g.Task("b")
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, b.Predecessors)
	assert.Equal(t, b.Predecessors, b.Parents())
	assert.Equal(t, b.Successors, b.Children())
	assert.Empty(t, g.Diagnostics())
}

func TestBuildTasks_ActiveRequirementWiresTargetPredecessors(t *testing.T) {
	t.Parallel()

	g := BuildTasks([]model.Task{
		{ID: "root"},
		{ID: "a", TaskRequirements: []model.TaskRequirement{req("root")}},
		{ID: "b", TaskRequirements: []model.TaskRequirement{req("a", "active")}},
	}, quiet())

	assert.False(t, g.Graph().HasEdge("a", "b"))
	assert.True(t, g.Graph().HasEdge("root", "b"))
	assert.Equal(t, []string{"root"}, g.Predecessors("b"))
}

func TestBuildTasks_ActiveRequirementOnRootHasNoEdges(t *testing.T) {
	t.Parallel()

	g := BuildTasks([]model.Task{
		{ID: "a"},
		{ID: "b", TaskRequirements: []model.TaskRequirement{req("a", "accepted")}},
	}, quiet())

	assert.Empty(t, g.Predecessors("b"))
	assert.ElementsMatch(t, []string{"a", "b"}, g.Roots())
}

func TestBuildTasks_FailedRequirementIsDirectEdge(t *testing.T) {
	t.Parallel()

	g := BuildTasks([]model.Task{
		{ID: "a"},
		{ID: "b", TaskRequirements: []model.TaskRequirement{req("a", "failed")}},
	}, quiet())

	assert.True(t, g.Graph().HasEdge("a", "b"))
	assert.Equal(t, []string{"b"}, g.Alternatives("a"))
}

func TestBuildTasks_DanglingAndSelfReferencesAreDropped(t *testing.T) {
	t.Parallel()

	g := BuildTasks([]model.Task{
		{ID: "a", TaskRequirements: []model.TaskRequirement{req("ghost"), req("a")}},
		{ID: "a"},
	}, quiet())

	assert.Equal(t, 1, g.Len())
	assert.Empty(t, g.Predecessors("a"))
	assert.ElementsMatch(t,
		[]DiagnosticKind{DiagDuplicateID, DiagMissingTask, DiagSelfReference},
		kinds(g.Diagnostics()))
}

func TestBuildTasks_DoesNotModifyInput(t *testing.T) {
	t.Parallel()

	tasks := []model.Task{
		{ID: "a"},
		{ID: "b", TaskRequirements: []model.TaskRequirement{req("a")}, Objectives: []model.Objective{{ID: "o1"}}},
	}
	BuildTasks(tasks, quiet())

	assert.Empty(t, tasks[0].FactionName)
	assert.Empty(t, tasks[1].Predecessors)
	assert.Zero(t, tasks[1].Objectives[0].Count)
}

func TestBuildTasks_NormalizesMissingFields(t *testing.T) {
	t.Parallel()

	g := BuildTasks([]model.Task{
		{ID: "a", Objectives: []model.Objective{{ID: "o1"}}},
	}, quiet())

	a, ok := g.Task("a")
	require.True(t, ok)
	assert.Equal(t, model.FactionAny, a.FactionName)
	assert.Equal(t, 1, a.Objectives[0].Count)
}

func TestBuildTasks_ReportsCycles(t *testing.T) {
	t.Parallel()

	g := BuildTasks([]model.Task{
		{ID: "a", TaskRequirements: []model.TaskRequirement{req("c")}},
		{ID: "b", TaskRequirements: []model.TaskRequirement{req("a")}},
		{ID: "c", TaskRequirements: []model.TaskRequirement{req("b")}},
	}, quiet())

	cycles := g.Cycles()
	require.Len(t, cycles, 1)
	assert.Len(t, cycles[0], 4)
	assert.Equal(t, cycles[0][0], cycles[0][3])
	assert.ElementsMatch(t, []string{"a", "b", "c"}, cycles[0][:3])
}

func TestTaskGraph_Closures(t *testing.T) {
	t.Parallel()

	g := BuildTasks([]model.Task{
		{ID: "a"},
		{ID: "b", TaskRequirements: []model.TaskRequirement{req("a")}},
		{ID: "c", TaskRequirements: []model.TaskRequirement{req("b")}},
		{ID: "d", TaskRequirements: []model.TaskRequirement{req("a")}},
	}, quiet())

	assert.Equal(t, []string{"b", "c", "d"}, g.Descendants("a"))
	assert.Equal(t, []string{"a", "b"}, g.Ancestors("c"))
	assert.Equal(t, []string{"a"}, g.Roots())
	assert.Equal(t, []string{"c", "d"}, g.Leaves())
	assert.Nil(t, g.Descendants("missing"))
}

func TestExtractAlternatives(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		tasks []model.Task
		want  map[string][]string
	}{
		{
			name: "failed-only requirement",
			tasks: []model.Task{
				{ID: "a"},
				{ID: "b", TaskRequirements: []model.TaskRequirement{req("a", "FAILED")}},
			},
			want: map[string][]string{"a": {"b"}},
		},
		{
			name: "fail condition on completion",
			tasks: []model.Task{
				{ID: "a"},
				{ID: "b", FailConditions: []model.FailCondition{{ID: "fc", TaskID: "a", Status: []string{"complete"}}}},
			},
			want: map[string][]string{"a": {"b"}},
		},
		{
			name: "both signals are deduplicated",
			tasks: []model.Task{
				{ID: "a"},
				{
					ID:               "b",
					TaskRequirements: []model.TaskRequirement{req("a", "failed")},
					FailConditions:   []model.FailCondition{{ID: "fc", TaskID: "a", Status: []string{"completed"}}},
				},
			},
			want: map[string][]string{"a": {"b"}},
		},
		{
			name: "mixed status is not failed-only",
			tasks: []model.Task{
				{ID: "a"},
				{ID: "b", TaskRequirements: []model.TaskRequirement{req("a", "active", "failed")}},
			},
			want: map[string][]string{},
		},
		{
			name: "fail condition on failure is ignored",
			tasks: []model.Task{
				{ID: "a"},
				{ID: "b", FailConditions: []model.FailCondition{{ID: "fc", TaskID: "a", Status: []string{"failed"}}}},
			},
			want: map[string][]string{},
		},
		{
			name: "self and unknown references are ignored",
			tasks: []model.Task{
				{ID: "a", FailConditions: []model.FailCondition{
					{ID: "fc1", TaskID: "a", Status: []string{"complete"}},
					{ID: "fc2", TaskID: "ghost", Status: []string{"complete"}},
				}},
			},
			want: map[string][]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ExtractAlternatives(tt.tasks, quiet()))
		})
	}
}

func TestTaskGraph_ConflictsAreSymmetric(t *testing.T) {
	t.Parallel()

	g := BuildTasks([]model.Task{
		{ID: "a"},
		{ID: "b", TaskRequirements: []model.TaskRequirement{req("a", "failed")}},
	}, quiet())

	assert.Equal(t, []string{"b"}, g.Conflicts("a"))
	assert.Equal(t, []string{"a"}, g.Conflicts("b"))
	assert.Empty(t, g.Alternatives("b"))

	b, ok := g.Task("b")
	require.True(t, ok)
	assert.Empty(t, b.Alternatives)
}

func TestBuildHideout(t *testing.T) {
	t.Parallel()

	h := BuildHideout([]model.HideoutStation{
		{ID: "generator", Levels: []model.HideoutLevel{{ID: "gen-1", Level: 1}, {ID: "gen-2", Level: 2}}},
		{ID: "medstation", Levels: []model.HideoutLevel{{
			ID:    "med-1",
			Level: 1,
			StationLevelRequirements: []model.StationLevelRequirement{
				{StationID: "generator", Level: 2},
				{StationID: "vents", Level: 1},
			},
		}}},
	}, quiet())

	assert.Equal(t, []string{"gen-2"}, h.Predecessors("med-1"))
	assert.Equal(t, []string{"med-1"}, h.Successors("gen-2"))

	mod, ok := h.ModuleAt("medstation", 1)
	require.True(t, ok)
	assert.Equal(t, "medstation", mod.StationID)
	assert.Equal(t, mod.Predecessors, mod.Parents())

	diags := h.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, DiagMissingHideoutLevel, diags[0].Kind)
	assert.Equal(t, "vents@1", diags[0].Ref)
}

func TestDigraph_AddEdgeIgnoresInvalidEdges(t *testing.T) {
	t.Parallel()

	g := NewDigraph()
	require.True(t, g.AddNode("a"))
	require.True(t, g.AddNode("b"))
	require.False(t, g.AddNode("a"))

	assert.True(t, g.AddEdge("a", "b"))
	assert.False(t, g.AddEdge("a", "b"))
	assert.False(t, g.AddEdge("a", "a"))
	assert.False(t, g.AddEdge("a", "x"))
	assert.Equal(t, []string{"b"}, g.Successors("a"))
	assert.Nil(t, g.DetectCycle())
}

func TestBuildTasks_LogsDanglingRequirementAtWarn(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	g := BuildTasks([]model.Task{
		{ID: "a"},
		{ID: "b", TaskRequirements: []model.TaskRequirement{req("ghost")}},
	}, WithLogger(zerolog.New(&buf)))
	assert.Empty(t, g.Predecessors("b"))

	var found bool
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		if entry["kind"] == string(DiagMissingTask) {
			found = true
			assert.Equal(t, "warn", entry["level"])
			assert.Equal(t, "b", entry["node"])
			assert.Equal(t, "ghost", entry["ref"])
		}
	}
	assert.True(t, found, buf.String())
}
