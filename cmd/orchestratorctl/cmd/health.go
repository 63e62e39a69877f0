// Package cmd - health command
package cmd

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/cecil-the-coder/orchestrator-kit/pkg/types"
)

var healthTimeout time.Duration

// healthCmd probes every provider of a service.
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Probe the health of every provider in a service",
	Args:  cobra.NoArgs,
	RunE:  runHealth,
}

func init() {
	healthCmd.Flags().StringVar(&serviceName, "service", "", "service to probe (required)")
	healthCmd.Flags().DurationVar(&healthTimeout, "timeout", 10*time.Second, "overall probe timeout")
	healthCmd.MarkFlagRequired("service")
}

func runHealth(cmd *cobra.Command, args []string) error {
	m, err := buildService(serviceName)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
	defer cancel()

	states := m.HealthCheckAll(ctx)
	names := make([]string, 0, len(states))
	for name := range states {
		names = append(names, name)
	}
	sort.Strings(names)

	unhealthy := false
	for _, name := range names {
		fmt.Printf("%s: %s\n", name, states[name])
		if states[name] != types.HealthAvailable {
			unhealthy = true
		}
	}
	if unhealthy {
		return fmt.Errorf("service %s has unhealthy providers", serviceName)
	}
	return nil
}
