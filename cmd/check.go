package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var (
	checkInput   string
	checkDataset string
	checkCity    string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Classify the current temperature of one city against its seasonal baseline",
	Long: `Fetches the current weather for --city from OpenWeatherMap and reports whether the
temperature lies outside two standard deviations of the city's baseline for the current
local season. Upstream failures (bad key, unknown city) are printed as error
classifications with the upstream code and message.

Examples:
  temp-anomaly check --input weather.csv --city Paris
  temp-anomaly check --dataset 6f1c... --city Tokyo`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if checkCity == "" {
			return eris.New("--city is required")
		}

		env, err := initEnv(ctx, envOptions{mode: "check", weather: true, publish: true})
		if err != nil {
			return err
		}
		defer env.Close()

		baselines, datasetID, err := resolveBaselines(ctx, env, checkDataset, checkInput)
		if err != nil {
			return err
		}

		checker := env.newChecker(baselines, datasetID, cfg.Check.Mode, cfg.Check.Concurrency)
		result, err := checker.Check(ctx, checkCity)
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, result)
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkInput, "input", "", "CSV or XLSX path or http(s) URL")
	checkCmd.Flags().StringVar(&checkDataset, "dataset", "", "stored dataset ID")
	checkCmd.Flags().StringVar(&checkCity, "city", "", "city name as known to OpenWeatherMap (required)")
	rootCmd.AddCommand(checkCmd)
}
