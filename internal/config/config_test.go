package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfigValues(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "glimpse", cfg.Logger.ServiceName)

	assert.Equal(t, "ollama", cfg.Inference.Provider)
	assert.Equal(t, 60*time.Second, cfg.Inference.RequestTimeout)

	assert.Equal(t, "qdrant", cfg.Memory.Backend)
	assert.Equal(t, "glimpse_memory", cfg.Memory.Collection)
	assert.Equal(t, 768, cfg.Memory.VectorSize)

	assert.InDelta(t, 0.88, cfg.Agent.ExecuteConfidence, 1e-9)
	assert.InDelta(t, 0.85, cfg.Agent.KnownStepConfidence, 1e-9)
	assert.InDelta(t, 0.82, cfg.Agent.FuzzyMatchThreshold, 1e-9)
	assert.Equal(t, 5, cfg.Agent.RecallTopK)
	assert.Equal(t, 25, cfg.Agent.ContextScanTopK)

	assert.True(t, cfg.Idle.Enabled)
	assert.Equal(t, 45*time.Second, cfg.Idle.Threshold)
	assert.Equal(t, 5*time.Minute, cfg.Idle.Cooldown)

	assert.Equal(t, 2*time.Second, cfg.Sequence.StepDelay)
	assert.InDelta(t, 0.95, cfg.Sequence.UnchangedJaccard, 1e-9)
	assert.Equal(t, 500*time.Millisecond, cfg.Sequence.WaitPollInterval)
}

func TestLoadOverridesDefaultsFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
logger:
  level: debug
agent:
  execute_confidence: 0.9
memory:
  backend: pgvector
  postgres_dsn: postgres://localhost/glimpse
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.InDelta(t, 0.9, cfg.Agent.ExecuteConfidence, 1e-9)
	assert.Equal(t, "pgvector", cfg.Memory.Backend)
	// Untouched keys keep their defaults.
	assert.InDelta(t, 0.85, cfg.Agent.KnownStepConfidence, 1e-9)
	assert.Equal(t, "ollama", cfg.Inference.Provider)
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains: it changes
// the working directory and restores it when the test ends.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Errorf("restoring working directory: %v", err)
		}
	})
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.InDelta(t, 0.88, cfg.Agent.ExecuteConfidence, 1e-9)
}

func TestLoadEnvironmentOverride(t *testing.T) {
	t.Setenv("GLIMPSE_MEMORY_QDRANT_URL", "http://qdrant.internal:6333")
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://qdrant.internal:6333", cfg.Memory.QdrantURL)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logger: [not-a-map"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
