// Package batch runs many requests through a manager with a bounded worker
// pool and collects a summary of the run.
package batch

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/cecil-the-coder/orchestrator-kit/pkg/types"
)

// DefaultConcurrency bounds the worker pool when none is configured.
const DefaultConcurrency = 4

// Runner dispatches a single request. *manager.Manager satisfies it.
type Runner interface {
	Process(ctx context.Context, req types.Request) (types.Result, error)
}

// Item is one unit of work in a batch. ID is caller-assigned and carried
// through to the matching ItemResult.
type Item struct {
	ID      string
	Request types.Request
}

// ItemResult pairs an item with its outcome. Err is set when the dispatch
// itself failed (every candidate exhausted or the context ended).
type ItemResult struct {
	ID     string
	Result types.Result
	Err    error
}

// Summary describes a completed batch run.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	TotalCost decimal.Decimal
	Duration  time.Duration
}

// Throughput returns completed items per second.
func (s Summary) Throughput() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.Total) / s.Duration.Seconds()
}

// Processor fans items out to a runner with at most Concurrency in flight.
type Processor struct {
	runner      Runner
	concurrency int
}

// New builds a processor around runner. concurrency <= 0 selects
// DefaultConcurrency.
func New(runner Runner, concurrency int) (*Processor, error) {
	if runner == nil {
		return nil, errors.New("batch: runner is required")
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Processor{runner: runner, concurrency: concurrency}, nil
}

// Run processes every item and returns per-item results in input order plus
// a summary. A context cancellation stops scheduling new items; items already
// dispatched run to completion and the cancellation error is recorded on the
// items that never ran.
func (p *Processor) Run(ctx context.Context, items []Item) ([]ItemResult, Summary, error) {
	start := time.Now()
	results := make([]ItemResult, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i, item := range items {
		i, item := i, item
		results[i].ID = item.ID
		if err := gctx.Err(); err != nil {
			results[i].Err = err
			continue
		}
		g.Go(func() error {
			res, err := p.runner.Process(gctx, item.Request)
			results[i].Result = res
			results[i].Err = err
			return nil
		})
	}

	// Workers never return errors, so Wait only reports ctx problems.
	err := g.Wait()

	summary := Summary{Total: len(items), Duration: time.Since(start)}
	for _, r := range results {
		if r.Err == nil && r.Result.Success {
			summary.Succeeded++
			summary.TotalCost = summary.TotalCost.Add(r.Result.Cost)
		} else {
			summary.Failed++
		}
	}
	if err == nil {
		err = ctx.Err()
	}
	return results, summary, err
}
