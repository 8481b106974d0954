package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"parlaygen/internal/types"
)

// OpenAIBackend implements Backend against the OpenAI chat completions API.
type OpenAIBackend struct {
	name       string
	apiKey     string
	baseURL    string
	model      string
	maxTokens  int
	retry      RetryConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// OpenAIConfig holds configuration for the OpenAI backend.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxTokens  int
	Timeout    time.Duration
	MaxRetries int
	BaseDelay  time.Duration
}

// DefaultOpenAIConfig returns sensible defaults.
func DefaultOpenAIConfig(apiKey string) OpenAIConfig {
	return OpenAIConfig{
		APIKey:    apiKey,
		BaseURL:   "https://api.openai.com/v1",
		Model:     "gpt-4o",
		MaxTokens: 2048,
		Timeout:   2 * time.Minute,
	}
}

// NewOpenAIBackend creates an OpenAI backend.
func NewOpenAIBackend(cfg OpenAIConfig, logger *zap.Logger) *OpenAIBackend {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2048
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return &OpenAIBackend{
		name:      "openai",
		apiKey:    cfg.APIKey,
		baseURL:   cfg.BaseURL,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		retry:     RetryConfig{MaxRetries: cfg.MaxRetries, BaseDelay: cfg.BaseDelay},
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// Name returns the registry name for this backend.
func (b *OpenAIBackend) Name() string { return b.name }

// DescribeModel reports the configured model.
func (b *OpenAIBackend) DescribeModel() types.ModelInfo {
	return types.ModelInfo{
		Name:         b.model,
		Version:      "chat-completions-v1",
		Capabilities: []string{"json_output", "parlay_generation"},
	}
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponseFormat struct {
	Type string `json:"type"`
}

type openAIRequest struct {
	Model          string                `json:"model"`
	Messages       []openAIMessage       `json:"messages"`
	MaxTokens      int                   `json:"max_tokens,omitempty"`
	Temperature    float64               `json:"temperature,omitempty"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

type openAIResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// Generate builds the prompt, calls the chat completions endpoint with
// retry/backoff, and strictly decodes the output.
func (b *OpenAIBackend) Generate(ctx context.Context, req *types.GenerationRequest, genCtx *types.GenerationContext) (*types.GeneratedSet, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if b.apiKey == "" {
		return nil, &BackendError{Backend: b.name, Kind: KindAuth, Err: fmt.Errorf("API key not configured")}
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.httpClient.Timeout)
		defer cancel()
	}

	startTime := time.Now()
	body := openAIRequest{
		Model: b.model,
		Messages: []openAIMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildUserPrompt(req, genCtx)},
		},
		MaxTokens:      b.maxTokens,
		Temperature:    genCtx.Temperature,
		ResponseFormat: &openAIResponseFormat{Type: "json_object"},
	}

	var set *types.GeneratedSet
	err := WithRetry(ctx, b.name, retryConfigFor(b.retry, req), func(ctx context.Context) error {
		completion, err := b.doChatCompletion(ctx, body)
		if err != nil {
			return err
		}
		set, err = DecodeGeneratedSet(b.name, completion)
		return err
	})
	if err != nil {
		b.logger.Warn("openai generation failed",
			zap.Duration("elapsed", time.Since(startTime)),
			zap.Error(err))
		return nil, err
	}

	b.logger.Debug("openai generation complete",
		zap.String("model", b.model),
		zap.Duration("elapsed", time.Since(startTime)),
		zap.Int("legs", len(set.Legs)))
	return set, nil
}

func (b *OpenAIBackend) doChatCompletion(ctx context.Context, body openAIRequest) (string, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", &BackendError{Backend: b.name, Kind: KindBadRequest, Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", &BackendError{Backend: b.name, Kind: KindBadRequest, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+b.apiKey)

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(b.name, resp.StatusCode, string(respBody))
	}

	var parsed openAIResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", &BackendError{Backend: b.name, Kind: KindMalformedOutput, Err: fmt.Errorf("failed to parse response: %w", err)}
	}
	if parsed.Error != nil {
		return "", Classify(b.name, fmt.Errorf("API error: %s", parsed.Error.Message))
	}
	if len(parsed.Choices) == 0 {
		return "", &BackendError{Backend: b.name, Kind: KindNoResponse, Err: fmt.Errorf("no completion returned")}
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// ValidateConnection checks credentials against the models endpoint.
func (b *OpenAIBackend) ValidateConnection(ctx context.Context) error {
	if b.apiKey == "" {
		return &BackendError{Backend: b.name, Kind: KindAuth, Err: fmt.Errorf("API key not configured")}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/models", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+b.apiKey)

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return Classify(b.name, fmt.Errorf("connection check failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return classifyStatus(b.name, resp.StatusCode, string(respBody))
	}
	return nil
}
