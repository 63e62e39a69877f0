// Package main is the entry point for the orchestratorctl CLI.
package main

import (
	"os"

	"github.com/cecil-the-coder/orchestrator-kit/cmd/orchestratorctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
