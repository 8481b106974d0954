// Package provider implements the backend contract: interchangeable parlay
// generation backends with a shared retry/backoff helper, error
// classification, and strict output decoding.
package provider

import (
	"context"

	"parlaygen/internal/types"
)

// Backend is the contract every generation backend implements. Generate
// validates its inputs once before any retry loop, wraps the external call
// in retry-with-backoff, and returns a schema-validated set. Backends do not
// touch health state; that is the orchestration engine's responsibility.
type Backend interface {
	Name() string
	Generate(ctx context.Context, req *types.GenerationRequest, genCtx *types.GenerationContext) (*types.GeneratedSet, error)
	ValidateConnection(ctx context.Context) error
	DescribeModel() types.ModelInfo
}

// retryConfigFor merges a request-level MaxRetries override into the
// backend's configured retry settings.
func retryConfigFor(base RetryConfig, req *types.GenerationRequest) RetryConfig {
	if req.Options.MaxRetries > 0 {
		base.MaxRetries = req.Options.MaxRetries
	}
	return base
}
