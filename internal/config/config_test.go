package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "openai", cfg.Generation.Primary)
	assert.Equal(t, []string{"anthropic", "gemini"}, cfg.Generation.Fallbacks)
	assert.True(t, cfg.Generation.FallbackEnabledOrDefault())
	assert.Equal(t, 5*time.Minute, cfg.Health.Interval.Std())
	assert.Equal(t, 10*time.Second, cfg.Health.StartupDelay.Std())
	assert.Equal(t, 30*time.Second, cfg.Health.ProbeTimeout.Std())
	assert.Equal(t, 10, cfg.RateLimit.Limit)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
  debug: true
backends:
  openai:
    model: gpt-4o-mini
    max_tokens: 2048
    timeout: 45s
    max_retries: 5
    base_delay: 500ms
generation:
  primary: anthropic
  fallbacks: [openai]
  fallback_enabled: false
  temperature: 0.9
  health_gate: enforcing
health:
  interval: 1m
  startup_delay: 2s
  probe_timeout: 10s
rate_limit:
  enabled: true
  redis_addr: "redis:6379"
  limit: 25
  window: 30m
history:
  enabled: true
  path: /tmp/history.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.True(t, cfg.Server.Debug)

	openai := cfg.Backends["openai"]
	assert.Equal(t, "gpt-4o-mini", openai.Model)
	assert.Equal(t, 2048, openai.MaxTokens)
	assert.Equal(t, 45*time.Second, openai.Timeout.Std())
	assert.Equal(t, 5, openai.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, openai.BaseDelay.Std())

	assert.Equal(t, "anthropic", cfg.Generation.Primary)
	assert.Equal(t, []string{"openai"}, cfg.Generation.Fallbacks)
	assert.False(t, cfg.Generation.FallbackEnabledOrDefault())
	assert.Equal(t, 0.9, cfg.Generation.Temperature)
	assert.Equal(t, "enforcing", cfg.Generation.HealthGate)

	assert.Equal(t, time.Minute, cfg.Health.Interval.Std())
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, "redis:6379", cfg.RateLimit.RedisAddr)
	assert.Equal(t, 25, cfg.RateLimit.Limit)
	assert.Equal(t, 30*time.Minute, cfg.RateLimit.Window.Std())
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, "/tmp/history.db", cfg.History.Path)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeConfig(t, "health:\n  interval: soon\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PARLAYGEN_ADDR", ":7070")
	t.Setenv("PARLAYGEN_PRIMARY", "gemini")
	t.Setenv("REDIS_ADDR", "override:6379")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, "gemini", cfg.Generation.Primary)
	assert.Equal(t, "override:6379", cfg.RateLimit.RedisAddr)
}

func TestFallbackEnabledOrDefault(t *testing.T) {
	var g GenerationConfig
	assert.True(t, g.FallbackEnabledOrDefault())

	enabled := false
	g.FallbackEnabled = &enabled
	assert.False(t, g.FallbackEnabledOrDefault())
}
