// Package cmd - validate command
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// validateCmd checks the configuration document without running anything.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the service configuration document",
	Args:  cobra.NoArgs,
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	file, err := loadConfig()
	if err != nil {
		return err
	}

	for _, name := range file.ServiceNames() {
		svc, err := file.Service(name)
		if err != nil {
			return err
		}

		enabled := 0
		for _, entry := range svc.Providers {
			if entry.IsEnabled() {
				enabled++
			}
		}

		strategy := svc.Strategy
		if strategy == "" {
			strategy = "priority"
		}
		fmt.Printf("%s: strategy=%s providers=%d enabled=%d cache=%v\n",
			name, strategy, len(svc.Providers), enabled, svc.Cache.Enabled)
	}

	fmt.Printf("%s: OK (%d services)\n", cfgFile, len(file.Services))
	return nil
}
