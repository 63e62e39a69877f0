// Package cmd - estimate command
package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/cecil-the-coder/orchestrator-kit/pkg/types"
)

var (
	estimateOperation string
	estimatePayload   string
)

// estimateCmd prints the per-provider cost estimates for one request.
var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Show per-provider cost estimates for a request",
	Args:  cobra.NoArgs,
	RunE:  runEstimate,
}

func init() {
	estimateCmd.Flags().StringVar(&serviceName, "service", "", "service to estimate against (required)")
	estimateCmd.Flags().StringVar(&estimateOperation, "operation", "", "logical operation name (required)")
	estimateCmd.Flags().StringVar(&estimatePayload, "payload", "", "payload file")
	estimateCmd.MarkFlagRequired("service")
	estimateCmd.MarkFlagRequired("operation")
}

func runEstimate(cmd *cobra.Command, args []string) error {
	m, err := buildService(serviceName)
	if err != nil {
		return err
	}

	var payload []byte
	if estimatePayload != "" {
		payload, err = os.ReadFile(estimatePayload)
		if err != nil {
			return fmt.Errorf("reading payload: %w", err)
		}
	}

	estimates := m.EstimateCost(types.Request{Operation: estimateOperation, Payload: payload})
	names := make([]string, 0, len(estimates))
	for name := range estimates {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Printf("%s: %s\n", name, estimates[name].StringFixed(6))
	}
	return nil
}
