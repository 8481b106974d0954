// Package orchestrator routes generation requests across registered
// backends: context construction, try-order computation, sequential
// attempts with fallback, and health bookkeeping.
package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"parlaygen/internal/metrics"
	"parlaygen/internal/promptctx"
	"parlaygen/internal/registry"
	"parlaygen/internal/types"
)

// HealthGate names the policy for unhealthy candidates in the try-order.
type HealthGate int

const (
	// GateAdvisory logs a warning for unhealthy candidates but still tries
	// them. This is the default: health is telemetry, not an enforcement gate.
	GateAdvisory HealthGate = iota

	// GateEnforcing skips candidates whose record is currently unhealthy.
	GateEnforcing
)

// ParseHealthGate maps a config string to a policy. Unknown values fall
// back to advisory.
func ParseHealthGate(s string) HealthGate {
	if s == "enforcing" {
		return GateEnforcing
	}
	return GateAdvisory
}

// Options are the engine's explicit constructor parameters. The engine
// never reads ambient environment state.
type Options struct {
	Primary            string
	Fallbacks          []string
	FallbackEnabled    bool
	DefaultTemperature float64
	Gate               HealthGate
}

// Engine is the orchestration core.
type Engine struct {
	registry *registry.Registry
	opts     Options
	logger   *zap.Logger
}

// New creates an engine over the given registry.
func New(reg *registry.Registry, opts Options, logger *zap.Logger) *Engine {
	return &Engine{registry: reg, opts: opts, logger: logger}
}

// Generate runs one request: build context, compute try-order, attempt
// candidates sequentially (never in parallel; at most one successful
// generation per request), update health after every real attempt, and
// return the first success or an aggregated failure.
func (e *Engine) Generate(ctx context.Context, req *types.GenerationRequest) (*types.GenerationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	genCtx := promptctx.Build(req, e.opts.DefaultTemperature)

	tryOrder, explicit, err := e.tryOrder(req.Options.BackendChoice)
	if err != nil {
		return nil, err
	}

	attemptCount := 0
	var lastErr error

	// Try-order is snapshotted above; registry mutation mid-request cannot
	// affect this iteration.
	for _, name := range tryOrder {
		backend, ok := e.registry.Get(name)
		if !ok {
			continue
		}

		if rec, ok := e.registry.HealthFor(name); ok && !rec.Healthy {
			if e.opts.Gate == GateEnforcing {
				e.logger.Warn("skipping unhealthy backend",
					zap.String("backend", name),
					zap.String("lastError", rec.LastError))
				continue
			}
			e.logger.Warn("trying unhealthy backend",
				zap.String("backend", name),
				zap.String("lastError", rec.LastError))
		}

		attemptCount++
		start := time.Now()
		set, genErr := backend.Generate(ctx, req, genCtx)
		latency := time.Since(start)

		if genErr == nil {
			e.registry.UpdateHealth(name, true, latency, "")
			metrics.ObserveGeneration(name, latency, metrics.OutcomeSuccess)
			if attemptCount > 1 {
				metrics.IncFallback(name)
			}
			e.logger.Info("generation succeeded",
				zap.String("backend", name),
				zap.Duration("latency", latency),
				zap.Int("attemptCount", attemptCount))
			return &types.GenerationResult{
				Set: set,
				Metadata: types.Metadata{
					BackendName:  name,
					Model:        backend.DescribeModel().Name,
					Latency:      latency,
					AttemptCount: attemptCount,
					FallbackUsed: attemptCount > 1,
				},
			}, nil
		}

		e.registry.UpdateHealth(name, false, latency, genErr.Error())
		metrics.ObserveGeneration(name, latency, metrics.OutcomeError)
		e.logger.Warn("backend attempt failed",
			zap.String("backend", name),
			zap.Duration("latency", latency),
			zap.Error(genErr))
		lastErr = genErr

		if explicit && !e.opts.FallbackEnabled {
			return nil, genErr
		}
	}

	if attemptCount == 0 {
		// Every candidate was gated out before a real attempt.
		return nil, &NoSuitableBackendError{Requested: req.Options.BackendChoice}
	}
	return nil, &AllBackendsFailedError{Attempts: attemptCount, LastErr: lastErr}
}

// tryOrder computes the ordered candidate list. Explicit choice yields a
// single-element order; auto yields the de-duplicated primary+fallback
// chain filtered to registered names.
func (e *Engine) tryOrder(choice string) ([]string, bool, error) {
	if e.registry.Len() == 0 {
		return nil, false, ErrNoBackends
	}

	if choice != "" && choice != types.BackendAuto {
		if _, ok := e.registry.Get(choice); !ok {
			return nil, true, &NoSuitableBackendError{Requested: choice}
		}
		return []string{choice}, true, nil
	}

	seen := make(map[string]struct{})
	var order []string
	for _, name := range append([]string{e.opts.Primary}, e.opts.Fallbacks...) {
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		if _, ok := e.registry.Get(name); ok {
			order = append(order, name)
		}
	}
	if len(order) == 0 {
		return nil, false, &NoSuitableBackendError{}
	}
	return order, false, nil
}
