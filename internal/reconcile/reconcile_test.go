package reconcile

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbpkg "github.com/metalagman/questgraph/internal/db"
	"github.com/metalagman/questgraph/internal/graph"
	"github.com/metalagman/questgraph/internal/model"
	"github.com/metalagman/questgraph/internal/progress"
)

func alternatives() *graph.TaskGraph {
	return graph.BuildTasks([]model.Task{
		{ID: "a"},
		{ID: "b", TaskRequirements: []model.TaskRequirement{{TaskID: "a", Status: []string{"failed"}}}},
		{ID: "c"},
	}, graph.WithLogger(zerolog.Nop()))
}

func TestRunMarksLaterAlternativeFailed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	database, err := dbpkg.Open(ctx, filepath.Join(t.TempDir(), "questgraph.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	store := progress.NewStore(database)
	id, err := store.AddMember(ctx, "alice")
	require.NoError(t, err)
	for taskID, ts := range map[string]int64{"a": 20, "b": 10, "c": 5} {
		_, err := store.PutTask(ctx, id, model.GameModePvP, taskID, model.CompletionRecord{Complete: true, Timestamp: ts})
		require.NoError(t, err)
	}

	g := alternatives()
	report, err := Run(ctx, store, g, model.GameModePvP)
	require.NoError(t, err)
	require.Len(t, report.Repairs, 1)
	assert.Equal(t, Repair{MemberID: id, Kept: "b", Failed: "a"}, report.Repairs[0])

	m, err := store.Member(ctx, id, model.GameModePvP)
	require.NoError(t, err)
	assert.Equal(t, model.CompletionRecord{Complete: true, Failed: true, Timestamp: 20}, m.Tasks["a"])
	assert.True(t, m.Tasks["b"].Succeeded())
	assert.True(t, m.Tasks["c"].Succeeded())

	// Re-running reconciliation should be idempotent.
	report, err = Run(ctx, store, g, model.GameModePvP)
	require.NoError(t, err)
	assert.Empty(t, report.Repairs)
}

func TestRunTieKeepsRecordedTrigger(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	database, err := dbpkg.Open(ctx, dbpkg.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	store := progress.NewStore(database)
	id, err := store.AddMember(ctx, "bob")
	require.NoError(t, err)
	for _, taskID := range []string{"a", "b"} {
		_, err := store.PutTask(ctx, id, model.GameModePvE, taskID, model.CompletionRecord{Complete: true, Timestamp: 7})
		require.NoError(t, err)
	}

	report, err := Run(ctx, store, alternatives(), model.GameModePvE)
	require.NoError(t, err)
	require.Len(t, report.Repairs, 1)
	assert.Equal(t, "a", report.Repairs[0].Kept)
	assert.Equal(t, "b", report.Repairs[0].Failed)

	other, err := Run(ctx, store, alternatives(), model.GameModePvP)
	require.NoError(t, err)
	assert.Empty(t, other.Repairs)
	assert.Equal(t, 1, other.Members)
}
