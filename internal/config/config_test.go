package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/symptrack/internal/engine"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, engine.DefaultPolicy(), cfg.Policy)
	assert.Equal(t, slog.LevelInfo, cfg.Level())
	assert.Contains(t, cfg.DBPath, "symptrack.db")
	assert.Empty(t, cfg.Narrative.Provider)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "symptrack.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
db_path: /tmp/file.db
device_id: phone-1
log_level: debug
policy:
  day_threshold: 5
narrative:
  provider: ollama
  model: tiny
`), 0o644))

	t.Setenv("SYMPTRACK_DB_PATH", "/tmp/env.db")
	t.Setenv("SYMPTRACK_POLICY__REOPEN_GAP", "2")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/env.db", cfg.DBPath, "env overrides file")
	assert.Equal(t, "phone-1", cfg.DeviceID)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
	assert.Equal(t, 5, cfg.Policy.DayThreshold)
	assert.Equal(t, 2, cfg.Policy.ReopenGap)
	assert.Equal(t, engine.DefaultTemporalOnlyGap, cfg.Policy.TemporalOnlyGap)
	assert.Equal(t, "ollama", cfg.Narrative.Provider)
	assert.Equal(t, "tiny", cfg.Narrative.Model)
}

func TestLoadRejectsNegativePolicy(t *testing.T) {
	t.Setenv("SYMPTRACK_POLICY__DAY_THRESHOLD", "-1")
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, engine.ErrInvalidThreshold)
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLogLevel(in), in)
	}
}

func TestSetupLoggerWithWriters(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("episode classified", "episode_id", "ep1")

	assert.Contains(t, stderr.String(), "episode classified")
	assert.NotContains(t, stderr.String(), "hidden")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(file.Bytes(), &rec))
	assert.Equal(t, "ep1", rec["episode_id"])
}

func TestSetupLoggerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "symptrack.log")
	logger, cleanup := SetupLogger(path, slog.LevelInfo)
	logger.Info("hello")
	require.NoError(t, cleanup())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"msg":"hello"`)
}
