package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"parlaygen/internal/types"
)

func anthropicTestBackend(url string) *AnthropicBackend {
	cfg := DefaultAnthropicConfig("test-key")
	cfg.BaseURL = url
	cfg.MaxRetries = 2
	cfg.BaseDelay = time.Millisecond
	return NewAnthropicBackend(cfg, zap.NewNop())
}

func anthropicCompletion(text string) string {
	resp := map[string]interface{}{
		"id":    "msg_1",
		"type":  "message",
		"role":  "assistant",
		"model": "claude-sonnet-4-20250514",
		"content": []map[string]string{
			{"type": "text", "text": text},
		},
		"stop_reason": "end_turn",
		"usage":       map[string]int{"input_tokens": 100, "output_tokens": 200},
	}
	out, _ := json.Marshal(resp)
	return string(out)
}

func TestAnthropicGenerate_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))

		var body anthropicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, systemPrompt, body.System)
		require.Len(t, body.Messages, 1)
		assert.Equal(t, "user", body.Messages[0].Role)

		_, _ = w.Write([]byte(anthropicCompletion(validOutput)))
	}))
	defer srv.Close()

	b := anthropicTestBackend(srv.URL)
	set, err := b.Generate(context.Background(), promptRequest(), &types.GenerationContext{Strategy: "balanced", Temperature: 0.7})
	require.NoError(t, err)
	assert.Len(t, set.Legs, 3)
}

func TestAnthropicGenerate_RateLimitRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(anthropicCompletion(validOutput)))
	}))
	defer srv.Close()

	b := anthropicTestBackend(srv.URL)
	set, err := b.Generate(context.Background(), promptRequest(), &types.GenerationContext{Strategy: "balanced", Temperature: 0.7})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Len(t, set.Legs, 3)
}

func TestAnthropicGenerate_QuotaNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error": {"type": "invalid_request_error", "message": "Your credit balance is too low"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	b := anthropicTestBackend(srv.URL)
	_, err := b.Generate(context.Background(), promptRequest(), &types.GenerationContext{Strategy: "balanced", Temperature: 0.7})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	be, ok := AsBackendError(err)
	require.True(t, ok)
	assert.Equal(t, KindQuota, be.Kind)
}

func TestAnthropicGenerate_FencedCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(anthropicCompletion("```json\n" + validOutput + "\n```")))
	}))
	defer srv.Close()

	b := anthropicTestBackend(srv.URL)
	set, err := b.Generate(context.Background(), promptRequest(), &types.GenerationContext{Strategy: "balanced", Temperature: 0.7})
	require.NoError(t, err)
	assert.Len(t, set.Legs, 3)
}

func TestAnthropicValidateConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(anthropicCompletion("pong")))
	}))
	defer srv.Close()

	b := anthropicTestBackend(srv.URL)
	assert.NoError(t, b.ValidateConnection(context.Background()))
}

func TestAnthropicValidateConnection_EmptyReplyStillHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(anthropicCompletion("")))
	}))
	defer srv.Close()

	// An empty completion proves the credentials work.
	b := anthropicTestBackend(srv.URL)
	assert.NoError(t, b.ValidateConnection(context.Background()))
}

func TestAnthropicValidateConnection_BadKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid x-api-key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	b := anthropicTestBackend(srv.URL)
	err := b.ValidateConnection(context.Background())
	be, ok := AsBackendError(err)
	require.True(t, ok)
	assert.Equal(t, KindAuth, be.Kind)
}
