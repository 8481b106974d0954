package provider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestResolveAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")

	assert.Equal(t, "config-key", ResolveAPIKey(KindOpenAI, "config-key"), "config wins over env")
	assert.Equal(t, "env-key", ResolveAPIKey(KindOpenAI, ""))
	assert.Equal(t, "", ResolveAPIKey(Kind("mystery"), ""))
}

func TestNewBackend_MissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := NewBackend(context.Background(), BackendConfig{Kind: KindOpenAI}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestNewBackend_UnknownKind(t *testing.T) {
	_, err := NewBackend(context.Background(), BackendConfig{Kind: "cohere", APIKey: "k"}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown backend kind")
}

func TestNewBackend_OpenAIOverrides(t *testing.T) {
	b, err := NewBackend(context.Background(), BackendConfig{
		Kind:    KindOpenAI,
		APIKey:  "k",
		Model:   "gpt-4o-mini",
		BaseURL: "http://localhost:9999/v1",
		Timeout: 5 * time.Second,
	}, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "openai", b.Name())
	assert.Equal(t, "gpt-4o-mini", b.DescribeModel().Name)
}

func TestNewBackend_AnthropicDefaults(t *testing.T) {
	b, err := NewBackend(context.Background(), BackendConfig{Kind: KindAnthropic, APIKey: "k"}, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "anthropic", b.Name())
	assert.NotEmpty(t, b.DescribeModel().Name)
}
