package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/temp-anomaly/internal/anomaly"
	"github.com/sells-group/temp-anomaly/internal/export"
	"github.com/sells-group/temp-anomaly/internal/model"
)

var (
	analyzeInput   string
	analyzeWindow  int
	analyzeFormat  string
	analyzeOutput  string
	analyzeCity    string
	analyzeNoStore bool
)

// citySummary is the per-city report printed by analyze --city and the summary endpoint.
type citySummary struct {
	anomaly.CitySummary
	Profile       []anomaly.ProfilePoint  `json:"profile"`
	AnomalousRows []model.EnrichedReading `json:"anomalous_rows"`
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Compute rolling means, seasonal baselines and anomaly flags for a historical table",
	Long: `Reads a CSV or XLSX table with city, timestamp, temperature and season columns,
enriches every row with its rolling mean, seasonal baseline and anomaly flag, and
writes the enriched table.

Examples:
  # Enriched CSV to stdout
  temp-anomaly analyze --input weather.csv

  # XLSX export with a 7-row window
  temp-anomaly analyze --input weather.csv --window 7 --format xlsx --output enriched.xlsx

  # One city's statistics, seasonal profile and anomalous rows
  temp-anomaly analyze --input https://example.com/weather.csv --city Paris`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if analyzeWindow > 0 {
			cfg.Analysis.Window = analyzeWindow
		}

		env, err := initEnv(ctx, envOptions{mode: "analyze", noStore: analyzeNoStore})
		if err != nil {
			return err
		}
		defer env.Close()

		ds, analysis, err := ingestSource(ctx, env, analyzeInput)
		if err != nil {
			return err
		}
		if ds.ID != "" {
			zap.L().Info("dataset saved", zap.String("id", ds.ID), zap.String("hash", ds.Hash))
		}

		out, err := openOutput(analyzeOutput)
		if err != nil {
			return err
		}
		defer out.Close() //nolint:errcheck

		if analyzeCity != "" {
			summary, err := summarizeCity(analysis, analyzeCity)
			if err != nil {
				return err
			}
			return printJSON(out, summary)
		}

		format, err := export.ParseFormat(analyzeFormat)
		if err != nil {
			return err
		}
		if format == export.FormatXLSX && (analyzeOutput == "" || analyzeOutput == "-") && isTerminal(os.Stdout) {
			return eris.New("refusing to write xlsx to a terminal; use --output")
		}
		return export.WriteEnriched(out, format, analysis.Enriched, analysis.Extra)
	},
}

func summarizeCity(analysis *anomaly.Analysis, city string) (*citySummary, error) {
	desc, err := anomaly.Describe(analysis.Enriched, city)
	if err != nil {
		return nil, eris.Wrapf(err, "summarize %s", city)
	}
	profile, err := anomaly.SeasonProfile(analysis.Baselines, city)
	if err != nil {
		return nil, eris.Wrapf(err, "summarize %s", city)
	}
	rows := anomaly.Anomalies(analysis.Enriched, city)
	if rows == nil {
		rows = []model.EnrichedReading{}
	}
	return &citySummary{CitySummary: desc, Profile: profile, AnomalousRows: rows}, nil
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeInput, "input", "", "CSV or XLSX path or http(s) URL (required)")
	analyzeCmd.Flags().IntVar(&analyzeWindow, "window", 0, "rolling-mean window (default from config)")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "csv", "output format: csv, json or xlsx")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "", "output file (default stdout)")
	analyzeCmd.Flags().StringVar(&analyzeCity, "city", "", "print one city's summary instead of the enriched table")
	analyzeCmd.Flags().BoolVar(&analyzeNoStore, "no-store", false, "do not persist the dataset")
	_ = analyzeCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(analyzeCmd)
}
