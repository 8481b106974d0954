package provider

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"parlaygen/internal/types"
)

// GeminiBackend implements Backend using the official GenAI SDK.
type GeminiBackend struct {
	name      string
	client    *genai.Client
	model     string
	maxTokens int
	retry     RetryConfig
	timeout   time.Duration
	logger    *zap.Logger
}

// GeminiConfig holds configuration for the Gemini backend.
type GeminiConfig struct {
	APIKey     string
	Model      string
	MaxTokens  int
	Timeout    time.Duration
	MaxRetries int
	BaseDelay  time.Duration
}

// DefaultGeminiConfig returns sensible defaults.
func DefaultGeminiConfig(apiKey string) GeminiConfig {
	return GeminiConfig{
		APIKey:    apiKey,
		Model:     "gemini-2.0-flash",
		MaxTokens: 2048,
		Timeout:   2 * time.Minute,
	}
}

// NewGeminiBackend creates a Gemini backend.
func NewGeminiBackend(ctx context.Context, cfg GeminiConfig, logger *zap.Logger) (*GeminiBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2048
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiBackend{
		name:      "gemini",
		client:    client,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		retry:     RetryConfig{MaxRetries: cfg.MaxRetries, BaseDelay: cfg.BaseDelay},
		timeout:   cfg.Timeout,
		logger:    logger,
	}, nil
}

// Name returns the registry name for this backend.
func (b *GeminiBackend) Name() string { return b.name }

// DescribeModel reports the configured model.
func (b *GeminiBackend) DescribeModel() types.ModelInfo {
	return types.ModelInfo{
		Name:         b.model,
		Version:      "genai-sdk",
		Capabilities: []string{"json_output", "parlay_generation"},
	}
}

// Generate builds the prompt, calls GenerateContent with retry/backoff, and
// strictly decodes the output.
func (b *GeminiBackend) Generate(ctx context.Context, req *types.GenerationRequest, genCtx *types.GenerationContext) (*types.GeneratedSet, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	startTime := time.Now()
	genConfig := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(float32(genCtx.Temperature)),
		MaxOutputTokens:   int32(b.maxTokens),
		ResponseMIMEType:  "application/json",
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
	}
	contents := genai.Text(buildUserPrompt(req, genCtx))

	var set *types.GeneratedSet
	err := WithRetry(ctx, b.name, retryConfigFor(b.retry, req), func(ctx context.Context) error {
		resp, err := b.client.Models.GenerateContent(ctx, b.model, contents, genConfig)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		text := resp.Text()
		if text == "" {
			return &BackendError{Backend: b.name, Kind: KindNoResponse, Err: fmt.Errorf("no completion returned")}
		}
		set, err = DecodeGeneratedSet(b.name, text)
		return err
	})
	if err != nil {
		b.logger.Warn("gemini generation failed",
			zap.Duration("elapsed", time.Since(startTime)),
			zap.Error(err))
		return nil, err
	}

	b.logger.Debug("gemini generation complete",
		zap.String("model", b.model),
		zap.Duration("elapsed", time.Since(startTime)),
		zap.Int("legs", len(set.Legs)))
	return set, nil
}

// ValidateConnection issues a minimal completion to verify credentials.
func (b *GeminiBackend) ValidateConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := b.client.Models.GenerateContent(ctx, b.model, genai.Text("ping"), &genai.GenerateContentConfig{
		MaxOutputTokens: 8,
	})
	if err != nil {
		return Classify(b.name, fmt.Errorf("connection check failed: %w", err))
	}
	return nil
}
