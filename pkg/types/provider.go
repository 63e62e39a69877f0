package types

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================================
// Interface Segregation - Focused Provider Interfaces
// ============================================================================

// CoreProvider defines the essential identity methods that all providers must
// implement. Priority and quality score are static for the lifetime of a
// provider instance; nothing outside the provider may change them.
type CoreProvider interface {
	// Name returns the unique provider name used in configuration, results,
	// cost records and circuit breaker state.
	Name() string

	// Priority is the static selection priority. Lower values are tried
	// earlier under the priority strategy.
	Priority() int

	// QualityScore is the static quality score in [0, 1], used by the
	// quality strategy.
	QualityScore() float64
}

// Processor performs the provider's actual work.
type Processor interface {
	// Process executes the operation and returns a standardized result.
	// Expected failure modes (timeouts, rate limits, upstream errors) must
	// be reported as a Result with Success=false and a populated Error, not
	// as a panic. The context carries the per-call deadline; providers that
	// block on I/O must honor it.
	Process(ctx context.Context, req Request) Result
}

// InputValidator is a cheap, synchronous precondition check.
type InputValidator interface {
	// ValidateInput reports whether the provider can accept this request at
	// all (payload size, required options, supported operation). A failed
	// validation skips the provider without counting as a call failure.
	ValidateInput(req Request) bool
}

// CostEstimator estimates the cost of processing a request.
type CostEstimator interface {
	// EstimateCost is pure and side-effect free. It feeds cost-based
	// selection and need not match the billed amount exactly.
	EstimateCost(req Request) decimal.Decimal
}

// HealthChecker is a lightweight liveness probe.
type HealthChecker interface {
	HealthCheck(ctx context.Context) HealthState
}

// Provider is the full contract every backend adapter satisfies.
type Provider interface {
	CoreProvider
	Processor
	InputValidator
	CostEstimator
	HealthChecker
}

// ProviderConfig is one provider entry as handed to a constructor.
// Impl selects the constructor from the factory registry; Settings carries
// implementation-specific configuration (endpoints, credential references,
// size limits). The config package produces these from the YAML document.
type ProviderConfig struct {
	Impl         string         `json:"impl"`
	Name         string         `json:"name"`
	Enabled      *bool          `json:"enabled,omitempty"`
	Priority     int            `json:"priority"`
	QualityScore float64        `json:"quality_score"`
	Settings     map[string]any `json:"settings,omitempty"`

	// Breaker overrides the service-level circuit breaker thresholds for
	// this provider only.
	Breaker *BreakerSettings `json:"breaker,omitempty"`
}

// IsEnabled reports whether the entry is enabled. Entries are enabled unless
// the configuration says otherwise.
func (c ProviderConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// BreakerSettings are the circuit breaker thresholds for one provider.
type BreakerSettings struct {
	FailureThreshold int           `json:"failure_threshold"`
	CoolDown         time.Duration `json:"cool_down"`
}
