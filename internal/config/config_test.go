package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileAbsent(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "maestro", cfg.Name)
	assert.Equal(t, ".maestro/world_model.json", cfg.World.SnapshotPath)
	assert.Equal(t, 20, cfg.Incidents.LogExcerpt)
	assert.Equal(t, 5*time.Minute, cfg.PhaseTimeout())
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	ws := t.TempDir()
	dir := filepath.Join(ws, ".maestro")
	require.NoError(t, os.MkdirAll(dir, 0755))

	yaml := `
engine:
  phase_timeout: 30s
  max_concurrent_runs: 2
logging:
  debug_mode: true
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load(ws)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.PhaseTimeout())
	assert.Equal(t, 2, cfg.Engine.MaxConcurrentRuns)
	assert.True(t, cfg.Logging.DebugMode)
	// Untouched sections keep defaults.
	assert.Equal(t, ".maestro/tracker.db", cfg.Tracker.DatabasePath)
}

func TestLoadRejectsInvalidTimeout(t *testing.T) {
	ws := t.TempDir()
	dir := filepath.Join(ws, ".maestro")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"),
		[]byte("engine:\n  phase_timeout: never\n"), 0644))

	_, err := Load(ws)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MAESTRO_PHASE_TIMEOUT", "90s")
	t.Setenv("MAESTRO_DEBUG", "true")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 90*time.Second, cfg.PhaseTimeout())
	assert.True(t, cfg.Logging.DebugMode)
}
