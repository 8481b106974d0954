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

const anthropicVersion = "2023-06-01"

// AnthropicBackend implements Backend against the Anthropic messages API.
type AnthropicBackend struct {
	name       string
	apiKey     string
	baseURL    string
	model      string
	maxTokens  int
	retry      RetryConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// AnthropicConfig holds configuration for the Anthropic backend.
type AnthropicConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxTokens  int
	Timeout    time.Duration
	MaxRetries int
	BaseDelay  time.Duration
}

// DefaultAnthropicConfig returns sensible defaults.
func DefaultAnthropicConfig(apiKey string) AnthropicConfig {
	return AnthropicConfig{
		APIKey:    apiKey,
		BaseURL:   "https://api.anthropic.com/v1",
		Model:     "claude-sonnet-4-20250514",
		MaxTokens: 2048,
		Timeout:   2 * time.Minute,
	}
}

// NewAnthropicBackend creates an Anthropic backend.
func NewAnthropicBackend(cfg AnthropicConfig, logger *zap.Logger) *AnthropicBackend {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-20250514"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2048
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return &AnthropicBackend{
		name:      "anthropic",
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
func (b *AnthropicBackend) Name() string { return b.name }

// DescribeModel reports the configured model.
func (b *AnthropicBackend) DescribeModel() types.ModelInfo {
	return types.ModelInfo{
		Name:         b.model,
		Version:      anthropicVersion,
		Capabilities: []string{"json_output", "parlay_generation"},
	}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature float64            `json:"temperature,omitempty"`
}

type anthropicResponse struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Role    string `json:"role"`
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate builds the prompt, calls the messages endpoint with
// retry/backoff, and strictly decodes the output.
func (b *AnthropicBackend) Generate(ctx context.Context, req *types.GenerationRequest, genCtx *types.GenerationContext) (*types.GeneratedSet, error) {
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
	body := anthropicRequest{
		Model:     b.model,
		MaxTokens: b.maxTokens,
		System:    systemPrompt,
		Messages: []anthropicMessage{
			{Role: "user", Content: buildUserPrompt(req, genCtx)},
		},
		Temperature: genCtx.Temperature,
	}

	var set *types.GeneratedSet
	err := WithRetry(ctx, b.name, retryConfigFor(b.retry, req), func(ctx context.Context) error {
		completion, err := b.doMessage(ctx, body)
		if err != nil {
			return err
		}
		set, err = DecodeGeneratedSet(b.name, completion)
		return err
	})
	if err != nil {
		b.logger.Warn("anthropic generation failed",
			zap.Duration("elapsed", time.Since(startTime)),
			zap.Error(err))
		return nil, err
	}

	b.logger.Debug("anthropic generation complete",
		zap.String("model", b.model),
		zap.Duration("elapsed", time.Since(startTime)),
		zap.Int("legs", len(set.Legs)))
	return set, nil
}

func (b *AnthropicBackend) doMessage(ctx context.Context, body anthropicRequest) (string, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", &BackendError{Backend: b.name, Kind: KindBadRequest, Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/messages", bytes.NewReader(jsonData))
	if err != nil {
		return "", &BackendError{Backend: b.name, Kind: KindBadRequest, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", b.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

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

	var parsed anthropicResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", &BackendError{Backend: b.name, Kind: KindMalformedOutput, Err: fmt.Errorf("failed to parse response: %w", err)}
	}
	if parsed.Error != nil {
		return "", Classify(b.name, fmt.Errorf("API error: %s", parsed.Error.Message))
	}

	for _, block := range parsed.Content {
		if block.Type == "text" && strings.TrimSpace(block.Text) != "" {
			return strings.TrimSpace(block.Text), nil
		}
	}
	return "", &BackendError{Backend: b.name, Kind: KindNoResponse, Err: fmt.Errorf("no text content returned")}
}

// ValidateConnection issues a minimal message to verify credentials.
func (b *AnthropicBackend) ValidateConnection(ctx context.Context) error {
	if b.apiKey == "" {
		return &BackendError{Backend: b.name, Kind: KindAuth, Err: fmt.Errorf("API key not configured")}
	}

	body := anthropicRequest{
		Model:     b.model,
		MaxTokens: 8,
		Messages: []anthropicMessage{
			{Role: "user", Content: "ping"},
		},
	}
	_, err := b.doMessage(ctx, body)
	if err != nil {
		if be, ok := AsBackendError(err); ok && be.Kind == KindNoResponse {
			return nil
		}
		return Classify(b.name, err)
	}
	return nil
}
