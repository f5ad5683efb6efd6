package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/temp-anomaly/internal/model"
	"github.com/sells-group/temp-anomaly/internal/store"
)

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "List stored datasets",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		datasets, err := st.ListDatasets(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "datasets list")
		}

		if len(datasets) == 0 {
			fmt.Fprintln(os.Stderr, "No datasets found.")
			return nil
		}

		formatDatasets(os.Stdout, datasets)
		return nil
	},
}

// -- datasets checks --

var datasetsChecksCmd = &cobra.Command{
	Use:   "checks <dataset-id>",
	Short: "Show the live-check history of a dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		city, _ := cmd.Flags().GetString("city")
		limit, _ := cmd.Flags().GetInt("limit")

		checks, err := st.ListChecks(ctx, store.CheckFilter{DatasetID: args[0], City: city, Limit: limit})
		if err != nil {
			return eris.Wrap(err, "datasets checks")
		}

		if len(checks) == 0 {
			fmt.Fprintln(os.Stderr, "No checks found.")
			return nil
		}

		formatChecks(os.Stdout, checks)
		return nil
	},
}

func formatDatasets(w io.Writer, datasets []model.Dataset) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tROWS\tCITIES\tSOURCE\tHASH\tCREATED")
	for _, ds := range datasets {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\t%s\n",
			ds.ID, ds.Rows, ds.Cities, ds.Source, shortHash(ds.Hash), ds.CreatedAt.Format(time.RFC3339))
	}
	_ = tw.Flush()
}

func formatChecks(w io.Writer, checks []model.CheckRecord) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CHECKED\tCITY\tSTATUS\tCODE\tSEASON\tTEMP\tANOMALOUS\tMESSAGE")
	for _, rec := range checks {
		c := rec.Classification
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%.2f\t%t\t%s\n",
			rec.CheckedAt.Format(time.RFC3339), c.City, c.Status, c.Code, c.Season, c.Temperature, c.Anomalous, c.Message)
	}
	_ = tw.Flush()
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

func init() {
	datasetsCmd.Flags().Int("limit", 20, "max datasets to show")
	datasetsChecksCmd.Flags().String("city", "", "filter by city")
	datasetsChecksCmd.Flags().Int("limit", 50, "max checks to show")
	datasetsCmd.AddCommand(datasetsChecksCmd)
	rootCmd.AddCommand(datasetsCmd)
}
