package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metalagman/questgraph/internal/model"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoad_DefaultsWhenFileIsMissing(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, model.GameModePvP, cfg.Mode())
}

func TestLoad_MergesFileOverDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, `
game_mode: pve
provider:
  kind: file
  file: data/gamedata.yaml
  timeout: 5s
engine:
  parallelism: 8
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, model.GameModePvE, cfg.Mode())
	assert.Equal(t, ProviderFile, cfg.Provider.Kind)
	assert.Equal(t, "data/gamedata.yaml", cfg.Provider.File)
	assert.Equal(t, 5*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, "en", cfg.Provider.Lang)
	assert.Equal(t, 8, cfg.Engine.Parallelism)
	assert.Equal(t, Default().Server.Addr, cfg.Server.Addr)
}

func TestLoad_RejectsSchemaViolations(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"unknown key":      "agents: {}\n",
		"unknown list":     "agents: []\n",
		"unknown null":     "agents:\n",
		"bad game mode":    "game_mode: arena\n",
		"bad provider":     "provider:\n  kind: ftp\n",
		"zero parallelism": "engine:\n  parallelism: 0\n",
		"bad timeout":      "provider:\n  timeout: soon\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "config.yaml")
			writeFile(t, path, content)
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "config schema validation failed")
		})
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Provider.Kind = ProviderFile
	cfg.Provider.File = ""
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.GameMode = "arena"
	require.ErrorIs(t, cfg.Validate(), model.ErrUnknownGameMode)

	require.NoError(t, Default().Validate())
}

func TestWriteThenLoad(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.GameMode = "pve"
	cfg.Server.Addr = ":9090"
	cfg.Provider.Timeout = time.Minute

	path := filepath.Join(t.TempDir(), Dir, "config.yaml")
	require.NoError(t, Write(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}
