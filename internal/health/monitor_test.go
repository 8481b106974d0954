package health

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeTarget struct {
	name string
	err  error
	wait time.Duration
}

func (f *fakeTarget) Name() string { return f.name }

func (f *fakeTarget) ValidateConnection(ctx context.Context) error {
	if f.wait > 0 {
		select {
		case <-time.After(f.wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.err
}

type fakeRegistry struct {
	mu      sync.Mutex
	targets []Target
	updates map[string]bool
	errs    map[string]string
}

func newFakeRegistry(targets ...Target) *fakeRegistry {
	return &fakeRegistry{
		targets: targets,
		updates: make(map[string]bool),
		errs:    make(map[string]string),
	}
}

func (f *fakeRegistry) ProbeTargets() []Target {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Target(nil), f.targets...)
}

func (f *fakeRegistry) UpdateHealth(name string, healthy bool, latency time.Duration, lastErr string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates[name] = healthy
	f.errs[name] = lastErr
}

func (f *fakeRegistry) healthOf(name string) (bool, string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	healthy, ok := f.updates[name]
	return healthy, f.errs[name], ok
}

func TestProbeAll_UpdatesRecords(t *testing.T) {
	reg := newFakeRegistry(
		&fakeTarget{name: "good"},
		&fakeTarget{name: "bad", err: errors.New("connection refused")},
	)
	m := NewMonitor(reg, zap.NewNop())

	m.ProbeAll(context.Background())

	healthy, lastErr, ok := reg.healthOf("good")
	require.True(t, ok)
	assert.True(t, healthy)
	assert.Empty(t, lastErr)

	healthy, lastErr, ok = reg.healthOf("bad")
	require.True(t, ok)
	assert.False(t, healthy)
	assert.Contains(t, lastErr, "connection refused")
}

func TestProbeAll_FailureIsolation(t *testing.T) {
	// Every target fails; each failure stays in its own record.
	reg := newFakeRegistry(
		&fakeTarget{name: "a", err: errors.New("a down")},
		&fakeTarget{name: "b"},
		&fakeTarget{name: "c", err: errors.New("c down")},
	)
	m := NewMonitor(reg, zap.NewNop())

	m.ProbeAll(context.Background())

	healthy, _, ok := reg.healthOf("b")
	require.True(t, ok, "sibling failures must not skip b's probe")
	assert.True(t, healthy)
}

func TestProbeAll_Timeout(t *testing.T) {
	reg := newFakeRegistry(&fakeTarget{name: "slow", wait: time.Hour})
	m := NewMonitor(reg, zap.NewNop(), WithProbeTimeout(5*time.Millisecond))

	m.ProbeAll(context.Background())

	healthy, lastErr, ok := reg.healthOf("slow")
	require.True(t, ok)
	assert.False(t, healthy)
	assert.Contains(t, lastErr, "deadline")
}

func TestProbeAll_NoTargets(t *testing.T) {
	m := NewMonitor(newFakeRegistry(), zap.NewNop())
	m.ProbeAll(context.Background()) // must not panic
}

func TestMonitorStartStop(t *testing.T) {
	reg := newFakeRegistry(&fakeTarget{name: "good"})
	m := NewMonitor(reg, zap.NewNop(),
		WithStartupDelay(time.Millisecond),
		WithInterval(5*time.Millisecond))

	m.Start()
	assert.Eventually(t, func() bool {
		_, _, ok := reg.healthOf("good")
		return ok
	}, time.Second, time.Millisecond, "startup probe should fire")
	m.Stop()

	// Idempotent.
	m.Stop()
}

func TestMonitorStopWithoutStart(t *testing.T) {
	m := NewMonitor(newFakeRegistry(), zap.NewNop())
	m.Stop()
}
