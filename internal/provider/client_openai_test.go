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

func openAITestBackend(url string) *OpenAIBackend {
	cfg := DefaultOpenAIConfig("test-key")
	cfg.BaseURL = url
	cfg.MaxRetries = 2
	cfg.BaseDelay = time.Millisecond
	return NewOpenAIBackend(cfg, zap.NewNop())
}

func openAICompletion(content string) string {
	resp := map[string]interface{}{
		"id":    "chatcmpl-1",
		"model": "gpt-4o",
		"choices": []map[string]interface{}{
			{"index": 0, "message": map[string]string{"role": "assistant", "content": content}, "finish_reason": "stop"},
		},
		"usage": map[string]int{"prompt_tokens": 100, "completion_tokens": 200, "total_tokens": 300},
	}
	out, _ := json.Marshal(resp)
	return string(out)
}

func TestOpenAIGenerate_Success(t *testing.T) {
	var sawAuth atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		sawAuth.Store(r.Header.Get("Authorization") == "Bearer test-key")

		var body openAIRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "system", body.Messages[0].Role)
		require.NotNil(t, body.ResponseFormat)
		assert.Equal(t, "json_object", body.ResponseFormat.Type)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(openAICompletion(validOutput)))
	}))
	defer srv.Close()

	b := openAITestBackend(srv.URL)
	req := promptRequest()
	genCtx := &types.GenerationContext{Strategy: "balanced", Temperature: 0.7}

	set, err := b.Generate(context.Background(), req, genCtx)
	require.NoError(t, err)
	assert.True(t, sawAuth.Load())
	assert.Len(t, set.Legs, 3)
}

func TestOpenAIGenerate_RetriesServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "overloaded", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(openAICompletion(validOutput)))
	}))
	defer srv.Close()

	b := openAITestBackend(srv.URL)
	set, err := b.Generate(context.Background(), promptRequest(), &types.GenerationContext{Strategy: "balanced", Temperature: 0.7})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Len(t, set.Legs, 3)
}

func TestOpenAIGenerate_AuthErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error": {"message": "Incorrect API key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	b := openAITestBackend(srv.URL)
	_, err := b.Generate(context.Background(), promptRequest(), &types.GenerationContext{Strategy: "balanced", Temperature: 0.7})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	be, ok := AsBackendError(err)
	require.True(t, ok)
	assert.Equal(t, KindAuth, be.Kind)
}

func TestOpenAIGenerate_MalformedOutputNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(openAICompletion("not a parlay")))
	}))
	defer srv.Close()

	b := openAITestBackend(srv.URL)
	_, err := b.Generate(context.Background(), promptRequest(), &types.GenerationContext{Strategy: "balanced", Temperature: 0.7})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	be, ok := AsBackendError(err)
	require.True(t, ok)
	assert.Equal(t, KindMalformedOutput, be.Kind)
}

func TestOpenAIGenerate_MissingKey(t *testing.T) {
	cfg := DefaultOpenAIConfig("")
	b := NewOpenAIBackend(cfg, zap.NewNop())

	_, err := b.Generate(context.Background(), promptRequest(), &types.GenerationContext{Strategy: "balanced", Temperature: 0.7})
	be, ok := AsBackendError(err)
	require.True(t, ok)
	assert.Equal(t, KindAuth, be.Kind)
}

func TestOpenAIGenerate_InvalidRequestRejectedLocally(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not reach the API")
	}))
	defer srv.Close()

	b := openAITestBackend(srv.URL)
	_, err := b.Generate(context.Background(), &types.GenerationRequest{}, &types.GenerationContext{})
	_, ok := types.AsValidationError(err)
	assert.True(t, ok)
}

func TestOpenAIValidateConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/models", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	b := openAITestBackend(srv.URL)
	assert.NoError(t, b.ValidateConnection(context.Background()))
}

func TestOpenAIValidateConnection_BadKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	b := openAITestBackend(srv.URL)
	err := b.ValidateConnection(context.Background())
	be, ok := AsBackendError(err)
	require.True(t, ok)
	assert.Equal(t, KindAuth, be.Kind)
}
