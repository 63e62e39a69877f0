// Package testutil provides shared testing utilities, mocks, and fixtures
// for use across the orchestrator-kit test suite.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cecil-the-coder/orchestrator-kit/pkg/types"
)

// MockProvider is a Provider implementation with configurable behavior.
// It allows tests to simulate success, failure, slowness, validation
// rejections and health states, and tracks how often it was invoked.
type MockProvider struct {
	mu sync.Mutex

	// Identity
	name         string
	priority     int
	qualityScore float64

	// Behavior control
	fail         bool
	failError    string
	invalidInput bool
	health       types.HealthState
	estimate     decimal.Decimal
	cost         decimal.Decimal
	data         any
	delay        time.Duration
	blockOnCtx   bool

	// Call tracking
	processCalls  int
	validateCalls int
	healthCalls   int
}

// NewMockProvider creates a mock that succeeds with empty data and zero cost.
func NewMockProvider(name string) *MockProvider {
	return &MockProvider{
		name:         name,
		priority:     100,
		qualityScore: 0.5,
		health:       types.HealthAvailable,
		data:         "ok",
	}
}

// WithPriority sets the static priority and returns the mock for chaining.
func (m *MockProvider) WithPriority(p int) *MockProvider {
	m.priority = p
	return m
}

// WithQuality sets the static quality score.
func (m *MockProvider) WithQuality(q float64) *MockProvider {
	m.qualityScore = q
	return m
}

// WithEstimate sets the cost estimate returned by EstimateCost.
func (m *MockProvider) WithEstimate(cost decimal.Decimal) *MockProvider {
	m.estimate = cost
	return m
}

// WithCost sets the cost reported on successful results.
func (m *MockProvider) WithCost(cost decimal.Decimal) *MockProvider {
	m.cost = cost
	return m
}

// WithData sets the payload attached to successful results.
func (m *MockProvider) WithData(data any) *MockProvider {
	m.data = data
	return m
}

// WithDelay makes Process sleep before returning.
func (m *MockProvider) WithDelay(d time.Duration) *MockProvider {
	m.delay = d
	return m
}

// BlockUntilCancelled makes Process wait for context cancellation and then
// report a timeout failure, simulating a hung upstream.
func (m *MockProvider) BlockUntilCancelled() *MockProvider {
	m.blockOnCtx = true
	return m
}

// SetFail configures the mock to return a failed result with the given error.
func (m *MockProvider) SetFail(errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = true
	m.failError = errMsg
}

// SetSucceed restores successful processing.
func (m *MockProvider) SetSucceed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = false
}

// SetInvalidInput makes ValidateInput return false.
func (m *MockProvider) SetInvalidInput(invalid bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidInput = invalid
}

// SetHealth overrides the health state reported by HealthCheck.
func (m *MockProvider) SetHealth(h types.HealthState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.health = h
}

// ProcessCalls returns how many times Process was invoked.
func (m *MockProvider) ProcessCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.processCalls
}

// ValidateCalls returns how many times ValidateInput was invoked.
func (m *MockProvider) ValidateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.validateCalls
}

// HealthCalls returns how many times HealthCheck was invoked.
func (m *MockProvider) HealthCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.healthCalls
}

func (m *MockProvider) Name() string          { return m.name }
func (m *MockProvider) Priority() int         { return m.priority }
func (m *MockProvider) QualityScore() float64 { return m.qualityScore }

func (m *MockProvider) Process(ctx context.Context, req types.Request) types.Result {
	m.mu.Lock()
	m.processCalls++
	fail := m.fail
	failError := m.failError
	data := m.data
	cost := m.cost
	delay := m.delay
	block := m.blockOnCtx
	m.mu.Unlock()

	start := time.Now()

	if block {
		<-ctx.Done()
		return types.Result{
			Success:  false,
			Provider: m.name,
			Latency:  time.Since(start),
			Error:    types.NewProviderError(m.name, types.ErrCodeTimeout, ctx.Err().Error()).Error(),
		}
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return types.Result{
				Success:  false,
				Provider: m.name,
				Latency:  time.Since(start),
				Error:    types.NewProviderError(m.name, types.ErrCodeTimeout, ctx.Err().Error()).Error(),
			}
		}
	}

	if fail {
		return types.Result{
			Success:  false,
			Provider: m.name,
			Latency:  time.Since(start),
			Error:    failError,
		}
	}

	return types.Result{
		Success:  true,
		Data:     data,
		Provider: m.name,
		Cost:     cost,
		Latency:  time.Since(start),
		Metadata: map[string]any{"mock": true},
	}
}

func (m *MockProvider) ValidateInput(req types.Request) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.validateCalls++
	return !m.invalidInput
}

func (m *MockProvider) EstimateCost(req types.Request) decimal.Decimal {
	return m.estimate
}

func (m *MockProvider) HealthCheck(ctx context.Context) types.HealthState {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthCalls++
	return m.health
}
