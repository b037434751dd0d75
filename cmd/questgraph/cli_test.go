package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metalagman/questgraph/internal/config"
)

const testSnapshot = `{
  "gameMode": "pvp",
  "tasks": [
    {"id": "debut", "name": "Debut", "trader": "prapor",
     "objectives": [{"id": "debut-1", "count": 2}]},
    {"id": "checking", "name": "Checking", "trader": "prapor",
     "taskRequirements": [{"task": "debut", "status": ["complete"]}]},
    {"id": "shootout", "name": "Shootout Picnic", "trader": "prapor",
     "taskRequirements": [{"task": "debut", "status": ["complete"]}]},
    {"id": "bad-rep", "name": "Bad Rep Evidence", "trader": "prapor",
     "failConditions": [{"id": "fc1", "task": "shootout", "status": ["complete"]}]}
  ],
  "hideoutStations": [
    {"id": "gen", "name": "Generator", "levels": [{"id": "gen-1", "level": 1}]}
  ]
}`

// workspace writes a config using the file provider and returns its path.
func workspace(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	snapshot := filepath.Join(dir, "gamedata.json")
	require.NoError(t, os.WriteFile(snapshot, []byte(testSnapshot), 0o644))

	cfg := config.Default()
	cfg.Database = filepath.Join(dir, "questgraph.db")
	cfg.Provider.Kind = config.ProviderFile
	cfg.Provider.File = snapshot
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, config.Write(path, cfg))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "none.env")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	require.NoError(t, err, out)
	return out
}

func TestInit_WritesConfigAndDatabase(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("QUESTGRAPH_DATABASE", filepath.Join(dir, "db", "questgraph.db"))
	cfgPath := filepath.Join(dir, config.Dir, "config.yaml")

	out := mustRun(t, "--config", cfgPath, "--mode", "pve", "init")
	assert.Contains(t, out, "initialized")
	assert.FileExists(t, cfgPath)
	assert.FileExists(t, filepath.Join(dir, "db", "questgraph.db"))

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "pve", cfg.GameMode)

	mustRun(t, "--config", cfgPath, "init")
	cfg, err = config.Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "pve", cfg.GameMode, "existing config must be kept")
}

func TestLoadConfig_ModeOverride(t *testing.T) {
	cfgFile = filepath.Join(t.TempDir(), "missing.yaml")
	modeFlag = "regular"
	t.Cleanup(func() { cfgFile, modeFlag = config.DefaultPath, "" })

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "pvp", cfg.GameMode)

	modeFlag = "arena"
	_, err = loadConfig()
	require.Error(t, err)
}

func TestMemberAndProgressFlow(t *testing.T) {
	cfgPath := workspace(t)

	id := strings.TrimSpace(mustRun(t, "--config", cfgPath, "member", "add", "alice", "--level", "10", "--faction", "usec"))
	require.NotEmpty(t, id)

	_, err := run(t, "--config", cfgPath, "member", "faction", "alice", "scav")
	require.Error(t, err)

	list := mustRun(t, "--config", cfgPath, "member", "list")
	assert.Contains(t, list, "alice")
	assert.Contains(t, list, id)

	status := mustRun(t, "--config", cfgPath, "status", "--member", "alice")
	assert.Contains(t, status, "Debut")
	assert.NotContains(t, status, "Checking")

	mustRun(t, "--config", cfgPath, "progress", "complete", "alice", "debut")
	mustRun(t, "--config", cfgPath, "progress", "complete", id, "shootout")

	status = mustRun(t, "--config", cfgPath, "status", "--member", "alice", "--all")
	assert.Contains(t, status, "completed")
	assert.Contains(t, status, "available")
	assert.Contains(t, status, "invalid")

	hideout := mustRun(t, "--config", cfgPath, "status", "--hideout")
	assert.Contains(t, hideout, "gen-1")
	assert.Contains(t, hideout, "available")

	_, err = run(t, "--config", cfgPath, "progress", "complete", "bob", "debut")
	require.Error(t, err)
}

func TestGraphCommand(t *testing.T) {
	cfgPath := workspace(t)

	summary := mustRun(t, "--config", cfgPath, "graph")
	assert.Contains(t, summary, "4 tasks")

	detail := mustRun(t, "--config", cfgPath, "graph", "debut")
	assert.Contains(t, detail, "Checking (checking)")
	assert.Contains(t, detail, "Shootout Picnic (shootout)")

	conflicts := mustRun(t, "--config", cfgPath, "graph", "shootout")
	assert.Contains(t, conflicts, "Bad Rep Evidence (bad-rep)")

	_, err := run(t, "--config", cfgPath, "graph", "nope")
	require.Error(t, err)

	assert.Contains(t, mustRun(t, "--config", cfgPath, "graph", "--diagnostics"), "no diagnostics")
}

func TestReconcileCommand(t *testing.T) {
	cfgPath := workspace(t)

	mustRun(t, "--config", cfgPath, "member", "add", "alice")
	mustRun(t, "--config", cfgPath, "progress", "complete", "alice", "shootout")
	mustRun(t, "--config", cfgPath, "progress", "complete", "alice", "bad-rep")

	out := mustRun(t, "--config", cfgPath, "reconcile")
	assert.Contains(t, out, "bad-rep")

	out = mustRun(t, "--config", cfgPath, "reconcile")
	assert.Contains(t, out, "nothing to repair")
}

func TestFetch_RefusesToOverwriteProviderFile(t *testing.T) {
	cfgPath := workspace(t)

	_, err := run(t, "--config", cfgPath, "fetch")
	require.Error(t, err)

	out := filepath.Join(t.TempDir(), "copy.yaml")
	mustRun(t, "--config", cfgPath, "fetch", "--out", out)
	assert.FileExists(t, out)
}
