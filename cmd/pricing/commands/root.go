// Package commands implements the pricing CLI.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pricing-engine/internal/config"
	"pricing-engine/internal/logging"
)

var (
	// Global flags
	configFile string
	useMemory  bool
	logLevel   string

	// Set by the root pre-run.
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pricing",
	Short: "Dynamic pricing feature pipeline",
	Long: `Pricing engine CLI.

Generates daily product telemetry, builds lag and rolling features,
scores them with the trained price model and persists both the
features and the predicted prices.

Examples:
  go run ./cmd/pricing migrate
  go run ./cmd/pricing run
  go run ./cmd/pricing serve
  go run ./cmd/pricing schedule
  go run ./cmd/pricing evaluate --data data/dynamic_pricing_dataset.csv`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return err
		}
		level := cfg.Log.Level
		if logLevel != "" {
			level = logLevel
		}
		logger, err = logging.New(level, cfg.Log.Format)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file (environment always wins)")
	rootCmd.PersistentFlags().BoolVar(&useMemory, "use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override LOG_LEVEL (debug|info|warn|error)")
}
