package adapters

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cecil-the-coder/orchestrator-kit/pkg/types"
)

// StaticProvider answers every request with configured canned data. It is
// meant for local development, wiring tests, and as a cheap last-resort
// fallback entry at the bottom of a provider chain.
//
// Settings:
//
//	data              string  response payload (default "ok")
//	cost              string  cost charged per call (default "0")
//	fail              bool    force every call to fail
//	delay             string  artificial latency, e.g. "50ms"
//	health            string  reported health state (default "available")
//	max_payload_bytes int     reject requests with larger payloads
type StaticProvider struct {
	Base

	data       string
	cost       decimal.Decimal
	fail       bool
	delay      time.Duration
	health     types.HealthState
	maxPayload int
}

// NewStaticProvider builds a static provider from its configuration entry.
func NewStaticProvider(cfg types.ProviderConfig) (types.Provider, error) {
	settings := Settings(cfg.Settings)
	health := types.HealthState(settings.String("health", string(types.HealthAvailable)))
	switch health {
	case types.HealthAvailable, types.HealthDegraded, types.HealthUnavailable:
	default:
		return nil, fmt.Errorf("static provider %q: unknown health state %q", cfg.Name, health)
	}
	return &StaticProvider{
		Base:       NewBase(cfg),
		data:       settings.String("data", "ok"),
		cost:       settings.Decimal("cost", decimal.Zero),
		fail:       settings.Bool("fail", false),
		delay:      settings.Duration("delay", 0),
		health:     health,
		maxPayload: settings.Int("max_payload_bytes", 0),
	}, nil
}

// Process returns the canned response or the configured failure.
func (p *StaticProvider) Process(ctx context.Context, req types.Request) types.Result {
	start := time.Now()
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return p.Fail(ctx.Err(), start)
		}
	}
	if p.fail {
		return p.Fail(types.NewProviderError(p.Name(), types.ErrCodeServerError, "static provider configured to fail"), start)
	}
	return p.Succeed(p.data, p.cost, start, map[string]any{"operation": req.Operation})
}

// ValidateInput rejects empty payloads and payloads over the configured limit.
func (p *StaticProvider) ValidateInput(req types.Request) bool {
	if len(req.Payload) == 0 {
		return false
	}
	return p.maxPayload <= 0 || len(req.Payload) <= p.maxPayload
}

// EstimateCost returns the configured flat per-call cost.
func (p *StaticProvider) EstimateCost(req types.Request) decimal.Decimal {
	return p.cost
}

// HealthCheck reports the configured health state.
func (p *StaticProvider) HealthCheck(ctx context.Context) types.HealthState {
	return p.health
}
