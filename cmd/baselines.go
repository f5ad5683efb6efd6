package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/temp-anomaly/internal/export"
)

var (
	baselinesInput   string
	baselinesDataset string
	baselinesFormat  string
	baselinesOutput  string
)

var baselinesCmd = &cobra.Command{
	Use:   "baselines",
	Short: "Write the per-(city, season) temperature baselines of a dataset",
	Long: `Prints mean, sample standard deviation and row count for every (city, season) group,
either of a stored dataset or of a table read from --input.

Examples:
  temp-anomaly baselines --input weather.csv --format yaml
  temp-anomaly baselines --dataset 6f1c... --format csv --output baselines.csv`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if (baselinesInput == "") == (baselinesDataset == "") {
			return eris.New("exactly one of --input or --dataset is required")
		}
		format, err := export.ParseFormat(baselinesFormat)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, envOptions{mode: "analyze"})
		if err != nil {
			return err
		}
		defer env.Close()

		table, _, err := resolveBaselines(ctx, env, baselinesDataset, baselinesInput)
		if err != nil {
			return err
		}

		out, err := openOutput(baselinesOutput)
		if err != nil {
			return err
		}
		defer out.Close() //nolint:errcheck

		return export.WriteBaselines(out, format, table)
	},
}

func init() {
	baselinesCmd.Flags().StringVar(&baselinesInput, "input", "", "CSV or XLSX path or http(s) URL")
	baselinesCmd.Flags().StringVar(&baselinesDataset, "dataset", "", "stored dataset ID")
	baselinesCmd.Flags().StringVar(&baselinesFormat, "format", "json", "output format: json, yaml, csv or xlsx")
	baselinesCmd.Flags().StringVarP(&baselinesOutput, "output", "o", "", "output file (default stdout)")
	rootCmd.AddCommand(baselinesCmd)
}
