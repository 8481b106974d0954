package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"parlaygen/internal/metrics"
)

// Target is the slice of the backend contract the monitor needs.
type Target interface {
	Name() string
	ValidateConnection(ctx context.Context) error
}

// Registry is the slice of the backend registry the monitor needs.
type Registry interface {
	ProbeTargets() []Target
	UpdateHealth(name string, healthy bool, latency time.Duration, lastErr string)
}

// Monitor probes every registered backend on a fixed interval, plus once
// shortly after startup. Probes for different backends run concurrently and
// are isolated: one backend's failure never blocks or fails another's.
type Monitor struct {
	registry     Registry
	interval     time.Duration
	startupDelay time.Duration
	probeTimeout time.Duration
	logger       *zap.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

// MonitorOption customizes a Monitor.
type MonitorOption func(*Monitor)

// WithInterval overrides the probe interval (default 5 minutes).
func WithInterval(d time.Duration) MonitorOption {
	return func(m *Monitor) { m.interval = d }
}

// WithStartupDelay overrides the delay before the first probe (default 10s).
func WithStartupDelay(d time.Duration) MonitorOption {
	return func(m *Monitor) { m.startupDelay = d }
}

// WithProbeTimeout overrides the per-probe timeout (default 30s).
func WithProbeTimeout(d time.Duration) MonitorOption {
	return func(m *Monitor) { m.probeTimeout = d }
}

// NewMonitor creates a monitor over the given registry.
func NewMonitor(registry Registry, logger *zap.Logger, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		registry:     registry,
		interval:     5 * time.Minute,
		startupDelay: 10 * time.Second,
		probeTimeout: 30 * time.Second,
		logger:       logger,
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start launches the background probe loop. Safe to call once; use Stop to
// cancel it.
func (m *Monitor) Start() {
	m.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		m.cancel = cancel
		go m.run(ctx)
	})
}

// Stop cancels the probe loop and waits for it to exit.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		if m.cancel != nil {
			m.cancel()
			<-m.done
		} else {
			close(m.done)
		}
	})
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)

	startup := time.NewTimer(m.startupDelay)
	defer startup.Stop()
	select {
	case <-startup.C:
		m.ProbeAll(ctx)
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.ProbeAll(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// ProbeAll runs one probe cycle over every registered backend. Each probe
// failure is recorded in that backend's health record and never propagated.
func (m *Monitor) ProbeAll(ctx context.Context) {
	targets := m.registry.ProbeTargets()
	if len(targets) == 0 {
		return
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, target := range targets {
		target := target
		g.Go(func() error {
			probeCtx, cancel := context.WithTimeout(ctx, m.probeTimeout)
			defer cancel()

			start := time.Now()
			err := target.ValidateConnection(probeCtx)
			latency := time.Since(start)

			if err != nil {
				m.logger.Warn("backend probe failed",
					zap.String("backend", target.Name()),
					zap.Duration("latency", latency),
					zap.Error(err))
				m.registry.UpdateHealth(target.Name(), false, latency, err.Error())
				metrics.IncProbeFailure(target.Name())
				return nil
			}

			m.registry.UpdateHealth(target.Name(), true, latency, "")
			return nil
		})
	}
	_ = g.Wait()
}
