package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validYAML = `
env: "development"

log:
  level: "debug"
  format: "console"

backend:
  base_url: "https://tracking.example.com/api/trackingdata"
  timeout: 10

user:
  id: "alice@example.com"

tracking:
  idle_threshold: 120
  idle_check_interval: 2
  annotation_min_idle: 30
  window_poll_interval: 10

upload:
  interval: 60
  screenshot_retry_sweep: 30
  screenshot_max_retries: 5

screenshot:
  enabled: false
  interval: 300
  jpeg_quality: 60

tray:
  enabled: true

activity_log_path: "logs/activity.txt"
storage_path: "data/agent.db"
`

func TestLoadConfigFromYAML(t *testing.T) {
	path := writeYAML(t, validYAML)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "https://tracking.example.com/api/trackingdata", cfg.Backend.BaseURL)
	assert.Equal(t, 10, cfg.Backend.Timeout)
	assert.Equal(t, "alice@example.com", cfg.User.ID)
	assert.Equal(t, 120, cfg.Tracking.IdleThreshold)
	assert.Equal(t, 2, cfg.Tracking.IdleCheckInterval)
	assert.Equal(t, 30, cfg.Tracking.AnnotationMinIdle)
	assert.Equal(t, 10, cfg.Tracking.WindowPollInterval)
	assert.Equal(t, 60, cfg.Upload.Interval)
	assert.Equal(t, 30, cfg.Upload.ScreenshotRetrySweep)
	assert.Equal(t, 5, cfg.Upload.ScreenshotMaxRetries)
	assert.False(t, cfg.Screenshot.Enabled)
	assert.Equal(t, 300, cfg.Screenshot.Interval)
	assert.Equal(t, 60, cfg.Screenshot.JPEGQuality)
	assert.True(t, cfg.Tray.Enabled)
	assert.Equal(t, "logs/activity.txt", cfg.ActivityLogPath)
	assert.Equal(t, "data/agent.db", cfg.StoragePath)
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "https://localhost:7001/api/trackingdata", cfg.Backend.BaseURL)
	assert.Equal(t, 300, cfg.Tracking.IdleThreshold)
	assert.Equal(t, 1, cfg.Tracking.IdleCheckInterval)
	assert.Equal(t, 60, cfg.Tracking.AnnotationMinIdle)
	assert.Equal(t, 5, cfg.Tracking.WindowPollInterval)
	assert.Equal(t, 300, cfg.Upload.Interval)
	assert.Equal(t, 600, cfg.Screenshot.Interval)
	assert.Equal(t, 80, cfg.Screenshot.JPEGQuality)
	assert.Equal(t, "activity_log.txt", cfg.ActivityLogPath)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeYAML(t, validYAML)
	t.Setenv("IDLE_THRESHOLD", "45")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 45, cfg.Tracking.IdleThreshold)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestNonPositiveValuesFallBackToDefaults(t *testing.T) {
	path := writeYAML(t, `
backend:
  timeout: 0

tracking:
  idle_threshold: -5
  idle_check_interval: 0
  annotation_min_idle: -1
  window_poll_interval: 0

upload:
  interval: -300

screenshot:
  interval: 0
  jpeg_quality: 150
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Backend.Timeout)
	assert.Equal(t, 300, cfg.Tracking.IdleThreshold)
	assert.Equal(t, 1, cfg.Tracking.IdleCheckInterval)
	assert.Equal(t, 60, cfg.Tracking.AnnotationMinIdle)
	assert.Equal(t, 5, cfg.Tracking.WindowPollInterval)
	assert.Equal(t, 300, cfg.Upload.Interval)
	assert.Equal(t, 600, cfg.Screenshot.Interval)
	assert.Equal(t, 80, cfg.Screenshot.JPEGQuality)
}

func TestInvalidYAMLFails(t *testing.T) {
	path := writeYAML(t, `{{{not yaml`)

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
