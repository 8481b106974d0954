package provider

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"parlaygen/internal/types"
)

// MockBackend is a scriptable backend used in tests and local development.
// Results are consumed in FIFO order; when the queue is empty it returns a
// valid sample set.
type MockBackend struct {
	name string

	mu          sync.Mutex
	results     []mockResult
	validateErr error
	calls       int
	delay       time.Duration
}

type mockResult struct {
	set *types.GeneratedSet
	err error
}

// NewMockBackend creates a mock backend with the given registry name.
func NewMockBackend(name string) *MockBackend {
	return &MockBackend{name: name}
}

// QueueSet scripts the next Generate call to succeed with set.
func (m *MockBackend) QueueSet(set *types.GeneratedSet) *MockBackend {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, mockResult{set: set})
	return m
}

// QueueError scripts the next Generate call to fail with err.
func (m *MockBackend) QueueError(err error) *MockBackend {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, mockResult{err: err})
	return m
}

// FailValidation makes ValidateConnection return err.
func (m *MockBackend) FailValidation(err error) *MockBackend {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.validateErr = err
	return m
}

// WithDelay makes every call sleep for d before responding.
func (m *MockBackend) WithDelay(d time.Duration) *MockBackend {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// Calls returns how many times Generate has been invoked.
func (m *MockBackend) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Name returns the registry name for this backend.
func (m *MockBackend) Name() string { return m.name }

// DescribeModel reports a static mock model.
func (m *MockBackend) DescribeModel() types.ModelInfo {
	return types.ModelInfo{Name: "mock-model", Version: "1", Capabilities: []string{"parlay_generation"}}
}

// Generate pops the next scripted result.
func (m *MockBackend) Generate(ctx context.Context, req *types.GenerationRequest, genCtx *types.GenerationContext) (*types.GeneratedSet, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.calls++
	var res mockResult
	if len(m.results) > 0 {
		res = m.results[0]
		m.results = m.results[1:]
	} else {
		res = mockResult{set: SampleSet()}
	}
	delay := m.delay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, Classify(m.name, ctx.Err())
		}
	}

	if res.err != nil {
		return nil, Classify(m.name, res.err)
	}
	return res.set, nil
}

// ValidateConnection returns the scripted validation error, if any.
func (m *MockBackend) ValidateConnection(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.validateErr != nil {
		return Classify(m.name, m.validateErr)
	}
	return nil
}

// SampleSet returns a valid three-leg set for tests and the mock backend.
func SampleSet() *types.GeneratedSet {
	return &types.GeneratedSet{
		ID: uuid.NewString(),
		Legs: []types.Leg{
			{
				ID:         uuid.NewString(),
				BetType:    types.BetSpread,
				Selection:  "Kansas City Chiefs",
				Target:     "-3.5",
				Reasoning:  "Home favorite off a bye with a healthy offensive line.",
				Confidence: 7,
				Odds:       "-110",
			},
			{
				ID:         uuid.NewString(),
				BetType:    types.BetPlayerReceiving,
				Selection:  "Travis Kelce",
				Target:     "over 62.5 receiving yards",
				Reasoning:  "Opposing defense ranks last against tight ends.",
				Confidence: 6,
				Odds:       "-115",
			},
			{
				ID:         uuid.NewString(),
				BetType:    types.BetTotal,
				Selection:  "game total",
				Target:     "over 47.5",
				Reasoning:  "Both offenses trend up indoors.",
				Confidence: 6,
				Odds:       "-105",
			},
		},
		EventContext:      "Divisional matchup with playoff seeding implications.",
		Reasoning:         "Correlated game script: home team leads, tight end feeds the chains, total climbs.",
		OverallConfidence: 6,
		CombinedOdds:      "+597",
	}
}
