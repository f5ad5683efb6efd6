package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	checkAllInput       string
	checkAllDataset     string
	checkAllCities      []string
	checkAllMode        string
	checkAllConcurrency int
)

var checkAllCmd = &cobra.Command{
	Use:   "check-all",
	Short: "Classify the current temperature of every city of a dataset",
	Long: `Runs a live check for each city, sequentially (--mode sync) or concurrently
(--mode async), and prints a report with every result, the elapsed time, whether every
reading was fetched successfully, and the cities whose readings are anomalous.

Examples:
  temp-anomaly check-all --input weather.csv
  temp-anomaly check-all --dataset 6f1c... --cities Paris,Tokyo --mode sync`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if checkAllMode != "" {
			cfg.Check.Mode = checkAllMode
		}
		if checkAllConcurrency > 0 {
			cfg.Check.Concurrency = checkAllConcurrency
		}

		env, err := initEnv(ctx, envOptions{mode: "check", weather: true, publish: true})
		if err != nil {
			return err
		}
		defer env.Close()

		baselines, datasetID, err := resolveBaselines(ctx, env, checkAllDataset, checkAllInput)
		if err != nil {
			return err
		}

		cities := checkAllCities
		if len(cities) == 0 {
			cities = baselines.Cities()
		}

		checker := env.newChecker(baselines, datasetID, cfg.Check.Mode, cfg.Check.Concurrency)
		report, err := checker.CheckAll(ctx, cities)
		if err != nil {
			return err
		}
		if !report.AllOK {
			zap.L().Warn("some live checks failed", zap.Int("cities", len(cities)))
		}
		return printJSON(os.Stdout, report)
	},
}

func init() {
	checkAllCmd.Flags().StringVar(&checkAllInput, "input", "", "CSV or XLSX path or http(s) URL")
	checkAllCmd.Flags().StringVar(&checkAllDataset, "dataset", "", "stored dataset ID")
	checkAllCmd.Flags().StringSliceVar(&checkAllCities, "cities", nil, "cities to check (default every city of the dataset)")
	checkAllCmd.Flags().StringVar(&checkAllMode, "mode", "", "sync or async (default from config)")
	checkAllCmd.Flags().IntVar(&checkAllConcurrency, "concurrency", 0, "in-flight requests in async mode (default from config)")
	rootCmd.AddCommand(checkAllCmd)
}
