// Package cmd provides the CLI commands for orchestratorctl.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cecil-the-coder/orchestrator-kit/pkg/config"
	"github.com/cecil-the-coder/orchestrator-kit/pkg/factory"
	"github.com/cecil-the-coder/orchestrator-kit/pkg/manager"
)

var (
	cfgFile     string
	logLevel    string
	serviceName string

	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "orchestratorctl",
	Short: "Operate provider orchestration services",
	Long: `orchestratorctl loads a service configuration and runs requests through
the configured provider chains.

Examples:
  orchestratorctl validate --config services.yaml
  orchestratorctl health --config services.yaml --service documents
  orchestratorctl estimate --config services.yaml --service documents --payload doc.json
  orchestratorctl process --config services.yaml --service documents --operation extract doc.json`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initLogger()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logger.Sync()
		}
	},
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "services.yaml", "path to the service configuration document")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(estimateCmd)
	rootCmd.AddCommand(processCmd)
}

func initLogger() error {
	level, err := zapcore.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", logLevel, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	logger, err = cfg.Build()
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	return nil
}

func loadConfig() (*config.File, error) {
	file, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", cfgFile, err)
	}
	return file, nil
}

func buildService(name string) (*manager.Manager, error) {
	file, err := loadConfig()
	if err != nil {
		return nil, err
	}
	svc, err := file.Service(name)
	if err != nil {
		return nil, err
	}
	return factory.BuildManager(name, svc, factory.Default(), logger)
}
