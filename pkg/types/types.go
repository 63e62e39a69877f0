package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// HealthState represents the self-reported health of a provider.
// It is independent of the circuit breaker: the breaker reacts to call
// outcomes, health checks react to whatever the provider knows about itself.
type HealthState string

const (
	HealthAvailable   HealthState = "available"
	HealthDegraded    HealthState = "degraded"
	HealthUnavailable HealthState = "unavailable"
)

// Request is a single logical operation submitted to a manager.
// The same request given to different providers must mean the same thing;
// provider-specific tuning belongs in Options.
type Request struct {
	// Operation is the logical operation name, e.g. "ocr" or "translate".
	Operation string `json:"operation"`

	// Payload is the raw input to the operation.
	Payload []byte `json:"payload"`

	// Options are operation parameters (target language, page range, ...).
	// Option ordering never affects routing or caching.
	Options map[string]string `json:"options,omitempty"`
}

// Option returns the named option or the supplied default.
func (r Request) Option(key, def string) string {
	if v, ok := r.Options[key]; ok {
		return v
	}
	return def
}

// Result is the standardized outcome of one provider invocation.
// It is created once by the provider (or the manager, for calls that never
// complete) and immutable thereafter. Exactly one of Data or Error is
// meaningful depending on Success.
type Result struct {
	Success  bool            `json:"success"`
	Data     any             `json:"data,omitempty"`
	Provider string          `json:"provider"`
	Cost     decimal.Decimal `json:"cost"`
	Latency  time.Duration   `json:"latency"`
	Metadata map[string]any  `json:"metadata,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// Meta returns a copy of the result with the given metadata key set.
// The receiver is not modified, so shared results stay immutable.
func (r Result) Meta(key string, value any) Result {
	meta := make(map[string]any, len(r.Metadata)+1)
	for k, v := range r.Metadata {
		meta[k] = v
	}
	meta[key] = value
	r.Metadata = meta
	return r
}
