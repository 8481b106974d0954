package provider

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
)

// Kind names a concrete backend implementation.
type Kind string

const (
	KindOpenAI    Kind = "openai"
	KindAnthropic Kind = "anthropic"
	KindGemini    Kind = "gemini"
)

// BackendConfig is the factory input for one backend.
type BackendConfig struct {
	Kind       Kind
	APIKey     string
	BaseURL    string
	Model      string
	MaxTokens  int
	Timeout    time.Duration
	MaxRetries int
	BaseDelay  time.Duration
}

// apiKeyEnvVars maps each backend kind to its environment variable,
// checked when no key is configured explicitly.
var apiKeyEnvVars = map[Kind]string{
	KindOpenAI:    "OPENAI_API_KEY",
	KindAnthropic: "ANTHROPIC_API_KEY",
	KindGemini:    "GEMINI_API_KEY",
}

// ResolveAPIKey returns the configured key, falling back to the
// environment. Config takes priority over env.
func ResolveAPIKey(kind Kind, configured string) string {
	if configured != "" {
		return configured
	}
	if envVar, ok := apiKeyEnvVars[kind]; ok {
		return os.Getenv(envVar)
	}
	return ""
}

// NewBackend constructs a backend from config. The API key must already be
// resolved; a missing key is a configuration error.
func NewBackend(ctx context.Context, cfg BackendConfig, logger *zap.Logger) (Backend, error) {
	apiKey := ResolveAPIKey(cfg.Kind, cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("no API key for backend %q; set it in config or %s", cfg.Kind, apiKeyEnvVars[cfg.Kind])
	}

	switch cfg.Kind {
	case KindOpenAI:
		c := DefaultOpenAIConfig(apiKey)
		applyOverrides(&c.BaseURL, cfg.BaseURL, &c.Model, cfg.Model)
		c.MaxTokens, c.Timeout = orDefaults(cfg.MaxTokens, c.MaxTokens, cfg.Timeout, c.Timeout)
		c.MaxRetries, c.BaseDelay = cfg.MaxRetries, cfg.BaseDelay
		return NewOpenAIBackend(c, logger), nil

	case KindAnthropic:
		c := DefaultAnthropicConfig(apiKey)
		applyOverrides(&c.BaseURL, cfg.BaseURL, &c.Model, cfg.Model)
		c.MaxTokens, c.Timeout = orDefaults(cfg.MaxTokens, c.MaxTokens, cfg.Timeout, c.Timeout)
		c.MaxRetries, c.BaseDelay = cfg.MaxRetries, cfg.BaseDelay
		return NewAnthropicBackend(c, logger), nil

	case KindGemini:
		c := DefaultGeminiConfig(apiKey)
		if cfg.Model != "" {
			c.Model = cfg.Model
		}
		c.MaxTokens, c.Timeout = orDefaults(cfg.MaxTokens, c.MaxTokens, cfg.Timeout, c.Timeout)
		c.MaxRetries, c.BaseDelay = cfg.MaxRetries, cfg.BaseDelay
		return NewGeminiBackend(ctx, c, logger)

	default:
		return nil, fmt.Errorf("unknown backend kind: %s", cfg.Kind)
	}
}

func applyOverrides(baseURL *string, newBaseURL string, model *string, newModel string) {
	if newBaseURL != "" {
		*baseURL = newBaseURL
	}
	if newModel != "" {
		*model = newModel
	}
}

func orDefaults(maxTokens, defTokens int, timeout, defTimeout time.Duration) (int, time.Duration) {
	if maxTokens <= 0 {
		maxTokens = defTokens
	}
	if timeout <= 0 {
		timeout = defTimeout
	}
	return maxTokens, timeout
}
