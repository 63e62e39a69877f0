package adapters

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cecil-the-coder/orchestrator-kit/pkg/types"
)

// Base carries the static identity portion of the provider contract and
// result construction helpers. Adapters embed it and implement the rest.
type Base struct {
	name     string
	priority int
	quality  float64
}

// NewBase builds the identity from a provider configuration entry.
// Quality scores are clamped into [0, 1].
func NewBase(cfg types.ProviderConfig) Base {
	quality := cfg.QualityScore
	if quality < 0 {
		quality = 0
	}
	if quality > 1 {
		quality = 1
	}
	return Base{
		name:     cfg.Name,
		priority: cfg.Priority,
		quality:  quality,
	}
}

func (b Base) Name() string          { return b.name }
func (b Base) Priority() int         { return b.priority }
func (b Base) QualityScore() float64 { return b.quality }

// Succeed builds a successful result, measuring latency from start.
func (b Base) Succeed(data any, cost decimal.Decimal, start time.Time, metadata map[string]any) types.Result {
	return types.Result{
		Success:  true,
		Data:     data,
		Provider: b.name,
		Cost:     cost,
		Latency:  time.Since(start),
		Metadata: metadata,
	}
}

// Fail builds a failed result, measuring latency from start.
func (b Base) Fail(err error, start time.Time) types.Result {
	return types.Result{
		Success:  false,
		Provider: b.name,
		Latency:  time.Since(start),
		Error:    err.Error(),
	}
}
