package costs

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Record is a single append-only ledger entry for one provider invocation.
type Record struct {
	Provider  string          `json:"provider"`
	Cost      decimal.Decimal `json:"cost"`
	Latency   time.Duration   `json:"latency"`
	Success   bool            `json:"success"`
	Timestamp time.Time       `json:"timestamp"`
}

// Sink receives every record as it is appended. The concrete destination
// (log stream, time-series store) is an external collaborator; see ZapSink
// for the provided implementation.
type Sink interface {
	Append(rec Record)
}

// ProviderSnapshot is the derived per-provider view of the ledger.
type ProviderSnapshot struct {
	Provider       string          `json:"provider"`
	Requests       int64           `json:"requests"`
	Successes      int64           `json:"successes"`
	Failures       int64           `json:"failures"`
	SuccessRate    float64         `json:"success_rate"`
	TotalCost      decimal.Decimal `json:"total_cost"`
	AverageCost    decimal.Decimal `json:"average_cost"`
	AverageLatency time.Duration   `json:"average_latency"`
}

// providerTotals holds the running aggregates for one provider.
type providerTotals struct {
	requests     int64
	successes    int64
	totalCost    decimal.Decimal
	totalLatency time.Duration
}

// Tracker is the append-only cost ledger plus derived views.
// It is constructed per manager and passed in explicitly, never shared
// through package globals, so independently configured managers do not
// interfere with each other. All methods are safe for concurrent use.
type Tracker struct {
	mu          sync.RWMutex
	records     []Record
	perProvider map[string]*providerTotals
	sink        Sink

	now func() time.Time // injectable for tests
}

// NewTracker creates a tracker. A nil sink disables forwarding.
func NewTracker(sink Sink) *Tracker {
	return &Tracker{
		perProvider: make(map[string]*providerTotals),
		sink:        sink,
		now:         time.Now,
	}
}

// Record appends one ledger entry and updates the provider's running totals.
func (t *Tracker) Record(provider string, cost decimal.Decimal, latency time.Duration, success bool) {
	rec := Record{
		Provider:  provider,
		Cost:      cost,
		Latency:   latency,
		Success:   success,
		Timestamp: t.now(),
	}

	t.mu.Lock()
	t.records = append(t.records, rec)
	totals, ok := t.perProvider[provider]
	if !ok {
		totals = &providerTotals{}
		t.perProvider[provider] = totals
	}
	totals.requests++
	if success {
		totals.successes++
	}
	totals.totalCost = totals.totalCost.Add(cost)
	totals.totalLatency += latency
	t.mu.Unlock()

	if t.sink != nil {
		t.sink.Append(rec)
	}
}

// TotalCost returns the cost accumulated across all providers.
func (t *Tracker) TotalCost() decimal.Decimal {
	t.mu.RLock()
	defer t.mu.RUnlock()

	total := decimal.Zero
	for _, totals := range t.perProvider {
		total = total.Add(totals.totalCost)
	}
	return total
}

// ProviderCost returns the cost accumulated by one provider.
func (t *Tracker) ProviderCost(provider string) decimal.Decimal {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if totals, ok := t.perProvider[provider]; ok {
		return totals.totalCost
	}
	return decimal.Zero
}

// AverageLatency returns the provider's mean latency across all recorded
// invocations. ok is false when the provider has no records yet.
func (t *Tracker) AverageLatency(provider string) (time.Duration, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	totals, ok := t.perProvider[provider]
	if !ok || totals.requests == 0 {
		return 0, false
	}
	return totals.totalLatency / time.Duration(totals.requests), true
}

// SuccessRate returns the provider's success ratio in [0, 1].
// ok is false when the provider has no records yet.
func (t *Tracker) SuccessRate(provider string) (float64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	totals, ok := t.perProvider[provider]
	if !ok || totals.requests == 0 {
		return 0, false
	}
	return float64(totals.successes) / float64(totals.requests), true
}

// Records returns a copy of the full ledger in append order.
func (t *Tracker) Records() []Record {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Record, len(t.records))
	copy(out, t.records)
	return out
}

// Snapshot returns the derived view for every provider seen so far.
func (t *Tracker) Snapshot() map[string]ProviderSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]ProviderSnapshot, len(t.perProvider))
	for name, totals := range t.perProvider {
		snap := ProviderSnapshot{
			Provider:  name,
			Requests:  totals.requests,
			Successes: totals.successes,
			Failures:  totals.requests - totals.successes,
			TotalCost: totals.totalCost,
		}
		if totals.requests > 0 {
			snap.SuccessRate = float64(totals.successes) / float64(totals.requests)
			snap.AverageCost = totals.totalCost.Div(decimal.NewFromInt(totals.requests))
			snap.AverageLatency = totals.totalLatency / time.Duration(totals.requests)
		}
		out[name] = snap
	}
	return out
}
