// Package config loads the service configuration from YAML with
// environment overrides. Core components never read the environment
// themselves; everything reaches them as explicit constructor parameters.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration for YAML strings like "5m" or "30s".
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// ServerConfig controls the HTTP boundary.
type ServerConfig struct {
	Addr  string `yaml:"addr"`
	Debug bool   `yaml:"debug"`
}

// BackendConfig configures one generation backend. The map key in
// Config.Backends is the backend kind (openai, anthropic, gemini).
type BackendConfig struct {
	APIKey     string   `yaml:"api_key"`
	BaseURL    string   `yaml:"base_url"`
	Model      string   `yaml:"model"`
	MaxTokens  int      `yaml:"max_tokens"`
	Timeout    Duration `yaml:"timeout"`
	MaxRetries int      `yaml:"max_retries"`
	BaseDelay  Duration `yaml:"base_delay"`
}

// GenerationConfig controls the orchestration engine.
type GenerationConfig struct {
	Primary         string   `yaml:"primary"`
	Fallbacks       []string `yaml:"fallbacks"`
	FallbackEnabled *bool    `yaml:"fallback_enabled"`
	Temperature     float64  `yaml:"temperature"`
	HealthGate      string   `yaml:"health_gate"`
}

// HealthConfig controls the background probe.
type HealthConfig struct {
	Interval     Duration `yaml:"interval"`
	StartupDelay Duration `yaml:"startup_delay"`
	ProbeTimeout Duration `yaml:"probe_timeout"`
}

// RateLimitConfig controls the Redis request counter.
type RateLimitConfig struct {
	Enabled   bool     `yaml:"enabled"`
	RedisAddr string   `yaml:"redis_addr"`
	Limit     int      `yaml:"limit"`
	Window    Duration `yaml:"window"`
}

// HistoryConfig controls the SQLite history store.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Config is the full service configuration.
type Config struct {
	Server     ServerConfig             `yaml:"server"`
	Backends   map[string]BackendConfig `yaml:"backends"`
	Generation GenerationConfig         `yaml:"generation"`
	Health     HealthConfig             `yaml:"health"`
	RateLimit  RateLimitConfig          `yaml:"rate_limit"`
	History    HistoryConfig            `yaml:"history"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080"},
		Generation: GenerationConfig{
			Primary:     "openai",
			Fallbacks:   []string{"anthropic", "gemini"},
			Temperature: 0.7,
			HealthGate:  "advisory",
		},
		Health: HealthConfig{
			Interval:     Duration(5 * time.Minute),
			StartupDelay: Duration(10 * time.Second),
			ProbeTimeout: Duration(30 * time.Second),
		},
		RateLimit: RateLimitConfig{
			RedisAddr: "localhost:6379",
			Limit:     10,
			Window:    Duration(time.Hour),
		},
		History: HistoryConfig{
			Path: "parlaygen.db",
		},
	}
}

// FallbackEnabledOrDefault returns the configured flag, defaulting to true.
func (g GenerationConfig) FallbackEnabledOrDefault() bool {
	if g.FallbackEnabled == nil {
		return true
	}
	return *g.FallbackEnabled
}

// Load reads path (when non-empty) over the defaults, then applies
// environment overrides. A missing file is an error only when a path was
// given explicitly.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides lets deployment-level settings win over the file.
// Backend API keys are resolved later by the provider factory
// (config value first, then the provider's own env var).
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PARLAYGEN_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("PARLAYGEN_PRIMARY"); v != "" {
		cfg.Generation.Primary = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RateLimit.RedisAddr = v
	}
}
