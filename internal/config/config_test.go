package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwsmith1983/actorrelay/internal/orchestrator"
	"github.com/dwsmith1983/actorrelay/internal/platform"
	"github.com/dwsmith1983/actorrelay/pkg/types"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644))
	return dir
}

func TestLoad(t *testing.T) {
	dir := writeConfig(t, `accountKey: apify_api_file
platform:
  baseUrl: https://api.example.com
  consoleUrl: https://console.example.com
  requestTimeout: 20s
orchestrator:
  pollInterval: 2s
  maxAttempts: 30
  deadline: 5m
retry:
  maxRetries: 3
  backoff: 250ms
  backoffMultiplier: 1.5
  maxBackoff: 4s
breaker:
  failThreshold: 10
  cooldown: 1m
server:
  addr: ":3000"
  staticDir: ./public
`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "apify_api_file", cfg.AccountKey)
	assert.Equal(t, "https://api.example.com", cfg.Platform.BaseURL)
	assert.Equal(t, ":3000", cfg.Server.Addr)
	assert.Equal(t, "./public", cfg.Server.StaticDir)

	run, err := RunConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, orchestrator.Config{
		PollInterval: 2 * time.Second,
		MaxAttempts:  30,
		Deadline:     5 * time.Minute,
	}, run)

	retry, err := RetryPolicy(cfg)
	require.NoError(t, err)
	assert.Equal(t, platform.RetryPolicy{
		MaxRetries: 3,
		Backoff:    250 * time.Millisecond,
		Multiplier: 1.5,
		MaxBackoff: 4 * time.Second,
	}, retry)

	breaker, err := BreakerConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, 10, breaker.FailThreshold)
	assert.Equal(t, time.Minute, breaker.Cooldown)
	assert.Equal(t, platform.DefaultBreakerConfig().FailWindow, breaker.FailWindow)

	opts, err := PlatformOptions(cfg)
	require.NoError(t, err)
	assert.Len(t, opts, 5)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent")
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := writeConfig(t, "invalid: [yaml")
	_, err := Load(dir)
	assert.Error(t, err)
}

func TestLoadOptional_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := LoadOptional(t.TempDir())
	require.NoError(t, err)

	run, err := RunConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, orchestrator.DefaultConfig(), run)

	retry, err := RetryPolicy(cfg)
	require.NoError(t, err)
	assert.Equal(t, platform.DefaultRetryPolicy(), retry)
}

func TestLoadOptional_InvalidFileStillFails(t *testing.T) {
	dir := writeConfig(t, "orchestrator:\n  maxAttempts: -1\n")
	_, err := LoadOptional(dir)
	assert.ErrorIs(t, err, orchestrator.ErrInvalidConfig)
}

func TestEnvOverrides(t *testing.T) {
	dir := writeConfig(t, "orchestrator:\n  maxAttempts: 5\n")
	t.Setenv("RELAY_ACCOUNT_KEY", "apify_api_env")
	t.Setenv("RELAY_PLATFORM_BASE_URL", "http://localhost:9999")
	t.Setenv("RELAY_SERVER_ADDR", ":8081")
	t.Setenv("RELAY_POLL_INTERVAL", "500ms")
	t.Setenv("RELAY_MAX_ATTEMPTS", "12")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "apify_api_env", cfg.AccountKey)
	assert.Equal(t, "http://localhost:9999", cfg.Platform.BaseURL)
	assert.Equal(t, ":8081", cfg.Server.Addr)

	run, err := RunConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, run.PollInterval)
	assert.Equal(t, 12, run.MaxAttempts)
}

func TestEnvOverrides_BadMaxAttempts(t *testing.T) {
	t.Setenv("RELAY_MAX_ATTEMPTS", "lots")
	_, err := LoadOptional(t.TempDir())
	assert.Error(t, err)
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"relative base url", "platform:\n  baseUrl: /v2\n", "platform.baseUrl"},
		{"bad poll interval", "orchestrator:\n  pollInterval: soon\n", "orchestrator.pollInterval"},
		{"negative deadline", "orchestrator:\n  deadline: -1m\n", "orchestrator.deadline"},
		{"negative retries", "retry:\n  maxRetries: -2\n", "retry.maxRetries"},
		{"bad backoff", "retry:\n  backoff: x\n", "retry.backoff"},
		{"negative threshold", "breaker:\n  failThreshold: -1\n", "breaker.failThreshold"},
		{"negative body", "server:\n  maxRequestBody: -1\n", "server.maxRequestBody"},
		{"telemetry without endpoint", "telemetry:\n  enabled: true\n", "telemetry.endpoint"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRunConfig_DeadlineOnly(t *testing.T) {
	run, err := RunConfig(&types.ProjectConfig{Orchestrator: &types.OrchestratorConfig{Deadline: "2m"}})
	require.NoError(t, err)
	assert.Zero(t, run.MaxAttempts)
	assert.Equal(t, 2*time.Minute, run.Deadline)
	assert.Equal(t, orchestrator.DefaultPollInterval, run.PollInterval)
}
