// Package strategy implements the selection policies that order candidate
// providers for a request.
//
// Available strategies:
//   - priority:    stable sort by static priority, ties keep registration order.
//   - cost:        ascending by per-request cost estimate.
//   - quality:     descending by static quality score.
//   - speed:       ascending by rolling average latency from the cost tracker.
//   - round_robin: rotates the start offset of the full list on every call.
//
// A strategy orders, it never filters: every provider it is given appears in
// its output. Exclusion (open breakers, failed validation, unavailable
// providers) happens in the manager's per-candidate checks.
package strategy

import (
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cecil-the-coder/orchestrator-kit/pkg/types"
)

// Strategy orders candidate providers for one request.
// Implementations must be safe for concurrent use.
type Strategy interface {
	// Name returns the strategy name for configuration and logging.
	Name() string

	// Order returns all providers, best candidate first. The input slice
	// is never modified.
	Order(req types.Request, providers []types.Provider) []types.Provider
}

// LatencyReader exposes rolling average latency per provider.
// The costs.Tracker satisfies it.
type LatencyReader interface {
	AverageLatency(provider string) (time.Duration, bool)
}

// Strategy names accepted by New.
const (
	NamePriority   = "priority"
	NameCost       = "cost"
	NameQuality    = "quality"
	NameSpeed      = "speed"
	NameRoundRobin = "round_robin"
)

// New builds the named strategy. The latency reader is only consulted by
// the speed strategy but is accepted uniformly so callers can wire it
// unconditionally.
func New(name string, latencies LatencyReader) (Strategy, error) {
	switch name {
	case NamePriority, "":
		return Priority{}, nil
	case NameCost:
		return Cost{}, nil
	case NameQuality:
		return Quality{}, nil
	case NameSpeed:
		if latencies == nil {
			return nil, fmt.Errorf("speed strategy requires a latency source")
		}
		return &Speed{Latencies: latencies}, nil
	case NameRoundRobin:
		return &RoundRobin{}, nil
	default:
		return nil, fmt.Errorf("unknown selection strategy %q", name)
	}
}

// ordered returns a copy of providers sorted stably by less, so ties keep
// registration order.
func ordered(providers []types.Provider, less func(a, b types.Provider) bool) []types.Provider {
	out := make([]types.Provider, len(providers))
	copy(out, providers)
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// Priority orders by the static priority field, lowest first.
type Priority struct{}

func (Priority) Name() string { return NamePriority }

func (Priority) Order(_ types.Request, providers []types.Provider) []types.Provider {
	return ordered(providers, func(a, b types.Provider) bool {
		return a.Priority() < b.Priority()
	})
}

// Cost orders ascending by EstimateCost, recomputed per request.
type Cost struct{}

func (Cost) Name() string { return NameCost }

func (Cost) Order(req types.Request, providers []types.Provider) []types.Provider {
	// Estimate once per provider, not once per comparison.
	estimates := make([]decimal.Decimal, len(providers))
	order := make([]int, len(providers))
	for i, p := range providers {
		estimates[i] = p.EstimateCost(req)
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return estimates[order[i]].Cmp(estimates[order[j]]) < 0
	})

	out := make([]types.Provider, len(providers))
	for i, idx := range order {
		out[i] = providers[idx]
	}
	return out
}

// Quality orders descending by the static quality score.
type Quality struct{}

func (Quality) Name() string { return NameQuality }

func (Quality) Order(_ types.Request, providers []types.Provider) []types.Provider {
	return ordered(providers, func(a, b types.Provider) bool {
		return a.QualityScore() > b.QualityScore()
	})
}

// Speed orders ascending by rolling average latency. Providers with no
// recorded latency yet sort after measured ones, keeping registration order
// among themselves.
type Speed struct {
	Latencies LatencyReader
}

func (*Speed) Name() string { return NameSpeed }

func (s *Speed) Order(_ types.Request, providers []types.Provider) []types.Provider {
	return ordered(providers, func(a, b types.Provider) bool {
		la, oka := s.Latencies.AverageLatency(a.Name())
		lb, okb := s.Latencies.AverageLatency(b.Name())
		switch {
		case oka && okb:
			return la < lb
		case oka:
			return true
		default:
			return false
		}
	})
}

// RoundRobin rotates the start offset of the full provider list by one on
// every call. The offset is shared across concurrent requests and updated
// atomically.
type RoundRobin struct {
	counter atomic.Uint64
}

func (*RoundRobin) Name() string { return NameRoundRobin }

func (r *RoundRobin) Order(_ types.Request, providers []types.Provider) []types.Provider {
	n := len(providers)
	if n == 0 {
		return nil
	}

	offset := int((r.counter.Add(1) - 1) % uint64(n))
	out := make([]types.Provider, 0, n)
	out = append(out, providers[offset:]...)
	out = append(out, providers[:offset]...)
	return out
}
