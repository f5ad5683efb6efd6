package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/temp-anomaly/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "temp-anomaly",
	Short: "Seasonal temperature anomaly detection",
	Long: "Computes per-city rolling means and per-(city, season) temperature baselines from historical " +
		"readings, flags readings outside two standard deviations, and classifies live readings " +
		"from OpenWeatherMap against the same baselines.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
