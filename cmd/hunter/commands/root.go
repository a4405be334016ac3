package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bigbit0987/stock-trans/internal/app"
	"github.com/bigbit0987/stock-trans/pkg/config"
	"github.com/bigbit0987/stock-trans/pkg/logger"
)

var (
	// Global flags
	strategyFile string
	dataDir      string
	verbose      bool
)

// rootCmd represents the base command when called without subcommands
var rootCmd = &cobra.Command{
	Use:   "hunter",
	Short: "Late-session dip-buy scanner for A-share equities",
	Long: `hunter scans the market in the last half hour of the session for
strong names pulling back on drying volume, ranks them by relative
strength and a five-factor composite, and tracks open positions
against graded exit rules.

Examples:
  hunter refresh
  hunter rps update
  hunter scan
  hunter position list
  hunter scheduler run`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&strategyFile, "strategy", "", "strategy YAML file (default strategy.yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default data)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// newApp builds the composition root from config plus CLI overrides.
func newApp() (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if strategyFile != "" {
		cfg.StrategyFile = strategyFile
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logger.New(cfg)
	return app.New(cfg, log)
}
