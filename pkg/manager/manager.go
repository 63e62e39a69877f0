// Package manager implements the orchestrator that routes one logical
// operation across multiple interchangeable providers.
//
// For each request the manager consults the result cache, asks the selection
// strategy for a candidate order, and walks the fallback chain: candidates
// with an open circuit, failed input validation or an unavailable health
// state are skipped; the rest are invoked in order until one succeeds. Call
// outcomes feed the per-provider circuit breakers and the cost ledger. When
// every candidate was skipped or failed the caller gets a single aggregate
// error enumerating what happened.
package manager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/cecil-the-coder/orchestrator-kit/pkg/breaker"
	"github.com/cecil-the-coder/orchestrator-kit/pkg/cache"
	"github.com/cecil-the-coder/orchestrator-kit/pkg/costs"
	"github.com/cecil-the-coder/orchestrator-kit/pkg/strategy"
	"github.com/cecil-the-coder/orchestrator-kit/pkg/types"
)

// DefaultCallTimeout bounds a single provider invocation when the
// configuration does not say otherwise.
const DefaultCallTimeout = 30 * time.Second

// Config assembles a Manager. Providers and their registration order are
// fixed at construction; everything else has a usable zero value.
type Config struct {
	// Name identifies the logical service in logs.
	Name string

	// Providers in registration order. Required.
	Providers []types.Provider

	// Strategy orders candidates per request. Defaults to priority.
	Strategy strategy.Strategy

	// Breakers holds per-provider circuit state. A fresh registry with
	// default thresholds is created when nil.
	Breakers *breaker.Registry

	// Cache memoizes successful results. Nil disables caching.
	Cache *cache.ResultCache

	// Costs receives one record per attempted provider. A private tracker
	// is created when nil.
	Costs *costs.Tracker

	// Logger for structured attempt logging. Defaults to a nop logger.
	Logger *zap.Logger

	// CallTimeout bounds each provider invocation.
	CallTimeout time.Duration
}

// Manager orchestrates provider selection, fallback, failure isolation,
// memoization and cost accounting for one logical service. It is safe for
// concurrent use; independently constructed managers share no state.
type Manager struct {
	name        string
	providers   []types.Provider
	strategy    strategy.Strategy
	breakers    *breaker.Registry
	cache       *cache.ResultCache
	costs       *costs.Tracker
	logger      *zap.Logger
	callTimeout time.Duration
	group       singleflight.Group
}

// New validates the configuration and builds a Manager.
func New(cfg Config) (*Manager, error) {
	if len(cfg.Providers) == 0 {
		return nil, errors.New("manager: at least one provider is required")
	}
	seen := make(map[string]struct{}, len(cfg.Providers))
	for _, p := range cfg.Providers {
		if _, dup := seen[p.Name()]; dup {
			return nil, fmt.Errorf("manager: duplicate provider name %q", p.Name())
		}
		seen[p.Name()] = struct{}{}
	}

	m := &Manager{
		name:        cfg.Name,
		providers:   append([]types.Provider(nil), cfg.Providers...),
		strategy:    cfg.Strategy,
		breakers:    cfg.Breakers,
		cache:       cfg.Cache,
		costs:       cfg.Costs,
		logger:      cfg.Logger,
		callTimeout: cfg.CallTimeout,
	}
	if m.strategy == nil {
		m.strategy = strategy.Priority{}
	}
	if m.breakers == nil {
		m.breakers = breaker.NewRegistry(breaker.Config{})
	}
	if m.costs == nil {
		m.costs = costs.NewTracker(nil)
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	if m.callTimeout <= 0 {
		m.callTimeout = DefaultCallTimeout
	}
	return m, nil
}

// Name returns the logical service name.
func (m *Manager) Name() string { return m.name }

// ProviderNames returns the configured provider names in registration order.
func (m *Manager) ProviderNames() []string {
	out := make([]string, len(m.providers))
	for i, p := range m.providers {
		out[i] = p.Name()
	}
	return out
}

// Costs returns the manager's cost tracker.
func (m *Manager) Costs() *costs.Tracker { return m.costs }

// BreakerStates returns the current circuit state per provider.
func (m *Manager) BreakerStates() map[string]breaker.State {
	return m.breakers.States()
}

// Process routes one request through the fallback chain. On a cache hit the
// cached result is returned with a "cached" metadata marker and no provider
// is invoked. Concurrent requests for the same cache key are collapsed into
// a single provider call. The only error type returned is
// *types.AggregateError, besides the caller's own context error.
func (m *Manager) Process(ctx context.Context, req types.Request) (types.Result, error) {
	if m.cache == nil {
		return m.processUncached(ctx, req, "")
	}

	key := cache.Key(req)
	if res, ok := m.cache.Get(key); ok {
		m.logger.Debug("cache hit",
			zap.String("service", m.name),
			zap.String("operation", req.Operation),
			zap.String("provider", res.Provider))
		return res.Meta("cached", true), nil
	}

	v, err, shared := m.group.Do(key, func() (any, error) {
		return m.processUncached(ctx, req, key)
	})
	if err != nil {
		return types.Result{}, err
	}
	res := v.(types.Result)
	if shared {
		res = res.Meta("deduplicated", true)
	}
	return res, nil
}

func (m *Manager) processUncached(ctx context.Context, req types.Request, key string) (types.Result, error) {
	requestID := uuid.NewString()
	log := m.logger.With(
		zap.String("service", m.name),
		zap.String("operation", req.Operation),
		zap.String("request_id", requestID))

	candidates := m.strategy.Order(req, m.providers)
	attempts := make([]types.Attempt, 0, len(candidates))

	for _, p := range candidates {
		// Cancellation stops the chain at the candidate boundary.
		if err := ctx.Err(); err != nil {
			return types.Result{}, err
		}

		name := p.Name()
		br := m.breakers.Get(name)

		if br.State() == breaker.StateOpen {
			log.Debug("skipping provider", zap.String("provider", name), zap.String("reason", "circuit open"))
			attempts = append(attempts, types.Attempt{Provider: name, Skipped: true, Reason: types.SkipCircuitOpen})
			continue
		}
		if !p.ValidateInput(req) {
			log.Debug("skipping provider", zap.String("provider", name), zap.String("reason", "validation failed"))
			attempts = append(attempts, types.Attempt{Provider: name, Skipped: true, Reason: types.SkipValidationFailed})
			continue
		}
		if p.HealthCheck(ctx) == types.HealthUnavailable {
			log.Debug("skipping provider", zap.String("provider", name), zap.String("reason", "unavailable"))
			attempts = append(attempts, types.Attempt{Provider: name, Skipped: true, Reason: types.SkipUnavailable})
			continue
		}
		// Reserve the call slot last: in half-open this claims the single
		// trial, and a skip above must not consume it.
		if !br.Allow() {
			attempts = append(attempts, types.Attempt{Provider: name, Skipped: true, Reason: types.SkipTrialInFlight})
			continue
		}

		res, completed := m.invoke(ctx, p, req)
		if !completed {
			// The in-flight call was abandoned; its eventual result is
			// discarded and the attempt counts as a failure.
			br.RecordFailure()
			m.costs.Record(name, decimal.Zero, res.Latency, false)

			if err := ctx.Err(); err != nil {
				return types.Result{}, err
			}

			timeoutErr := types.NewProviderError(name, types.ErrCodeTimeout,
				fmt.Sprintf("call exceeded %s", m.callTimeout)).WithOperation(req.Operation)
			log.Warn("provider call timed out", zap.String("provider", name), zap.Duration("timeout", m.callTimeout))
			attempts = append(attempts, types.Attempt{Provider: name, Err: timeoutErr})
			continue
		}

		if res.Success {
			br.RecordSuccess()
			m.costs.Record(name, res.Cost, res.Latency, true)
			res = res.Meta("request_id", requestID)
			if m.cache != nil {
				m.cache.Set(key, res)
			}
			log.Info("provider call succeeded",
				zap.String("provider", name),
				zap.Duration("latency", res.Latency),
				zap.String("cost", res.Cost.String()),
				zap.Int("attempt", len(attempts)+1))
			return res, nil
		}

		br.RecordFailure()
		m.costs.Record(name, res.Cost, res.Latency, false)
		log.Warn("provider call failed",
			zap.String("provider", name),
			zap.Duration("latency", res.Latency),
			zap.String("error", res.Error))
		attempts = append(attempts, types.Attempt{Provider: name, Err: errors.New(res.Error)})
	}

	agg := &types.AggregateError{Operation: req.Operation, Attempts: attempts}
	log.Error("all providers failed or skipped",
		zap.Int("candidates", len(candidates)),
		zap.Int("attempted", agg.Attempted()))
	return types.Result{}, agg
}

// invoke runs one provider call under the per-call timeout. completed is
// false when the deadline fired or the parent context was cancelled before
// the provider returned; the provider goroutine then finishes on its own and
// its result is dropped.
func (m *Manager) invoke(ctx context.Context, p types.Provider, req types.Request) (types.Result, bool) {
	cctx, cancel := context.WithTimeout(ctx, m.callTimeout)
	defer cancel()

	start := time.Now()
	done := make(chan types.Result, 1)
	go func() {
		done <- p.Process(cctx, req)
	}()

	select {
	case res := <-done:
		if res.Provider == "" {
			res.Provider = p.Name()
		}
		if res.Latency == 0 {
			res.Latency = time.Since(start)
		}
		return res, true
	case <-cctx.Done():
		return types.Result{Provider: p.Name(), Latency: time.Since(start)}, false
	}
}

// EstimateCost returns each provider's cost estimate for the request,
// keyed by provider name.
func (m *Manager) EstimateCost(req types.Request) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(m.providers))
	for _, p := range m.providers {
		out[p.Name()] = p.EstimateCost(req)
	}
	return out
}

// HealthCheckAll probes every provider and returns the states keyed by
// provider name.
func (m *Manager) HealthCheckAll(ctx context.Context) map[string]types.HealthState {
	out := make(map[string]types.HealthState, len(m.providers))
	for _, p := range m.providers {
		out[p.Name()] = p.HealthCheck(ctx)
	}
	return out
}
