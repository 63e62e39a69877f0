// Package cmd - process command
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cecil-the-coder/orchestrator-kit/pkg/batch"
	"github.com/cecil-the-coder/orchestrator-kit/pkg/types"
)

var (
	processOperation   string
	processConcurrency int
	processTimeout     time.Duration
)

// processCmd runs one or more payloads through a service chain. With a single
// payload the result is printed as JSON; with several, they are fanned out
// through the batch processor and a summary follows the per-item lines.
var processCmd = &cobra.Command{
	Use:   "process [payload-file...]",
	Short: "Run payloads through a service's provider chain",
	Long: `Run payloads through a service's provider chain.

Each argument is a payload file; with no arguments the payload is read from
standard input. Multiple files are processed concurrently.`,
	RunE: runProcess,
}

func init() {
	processCmd.Flags().StringVar(&serviceName, "service", "", "service to dispatch through (required)")
	processCmd.Flags().StringVar(&processOperation, "operation", "", "logical operation name (required)")
	processCmd.Flags().IntVar(&processConcurrency, "concurrency", batch.DefaultConcurrency, "parallel requests when processing multiple files")
	processCmd.Flags().DurationVar(&processTimeout, "timeout", 2*time.Minute, "overall run timeout")
	processCmd.MarkFlagRequired("service")
	processCmd.MarkFlagRequired("operation")
}

func runProcess(cmd *cobra.Command, args []string) error {
	m, err := buildService(serviceName)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
	defer cancel()

	if len(args) <= 1 {
		payload, err := readPayload(args)
		if err != nil {
			return err
		}
		res, err := m.Process(ctx, types.Request{Operation: processOperation, Payload: payload})
		if err != nil {
			return err
		}
		return printJSON(res)
	}

	items := make([]batch.Item, len(args))
	for i, path := range args {
		payload, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading payload: %w", err)
		}
		items[i] = batch.Item{
			ID:      path,
			Request: types.Request{Operation: processOperation, Payload: payload},
		}
	}

	p, err := batch.New(m, processConcurrency)
	if err != nil {
		return err
	}
	results, summary, err := p.Run(ctx, items)
	for _, r := range results {
		if r.Err != nil {
			fmt.Printf("%s: error: %v\n", r.ID, r.Err)
			continue
		}
		fmt.Printf("%s: provider=%s cost=%s latency=%s\n",
			r.ID, r.Result.Provider, r.Result.Cost.StringFixed(6), r.Result.Latency)
	}
	fmt.Printf("total=%d succeeded=%d failed=%d cost=%s duration=%s throughput=%.1f/s\n",
		summary.Total, summary.Succeeded, summary.Failed,
		summary.TotalCost.StringFixed(6), summary.Duration.Round(time.Millisecond), summary.Throughput())
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d items failed", summary.Failed, summary.Total)
	}
	return nil
}

func readPayload(args []string) ([]byte, error) {
	if len(args) == 1 {
		payload, err := os.ReadFile(args[0])
		if err != nil {
			return nil, fmt.Errorf("reading payload: %w", err)
		}
		return payload, nil
	}
	payload, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, fmt.Errorf("reading stdin: %w", err)
	}
	return payload, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
