// Package export writes enriched tables and baseline tables in file formats.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/temp-anomaly/internal/model"
)

// Format names an output encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
	FormatYAML Format = "yaml"
)

// ParseFormat normalises a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON, FormatXLSX, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", eris.Errorf("export: unknown format %q", s)
	}
}

// EnrichedHeader is the fixed column order of an exported enriched table.
var EnrichedHeader = []string{
	"city", "timestamp", "temperature", "season", "rolling_mean", "mean_temp", "std_temp", "anomaly",
}

// BaselineHeader is the column order of an exported baseline table.
var BaselineHeader = []string{"city", "season", "mean_temp", "std_temp", "count"}

// WriteEnriched writes enriched rows in format. extra lists passthrough columns appended
// after the fixed columns, in order.
func WriteEnriched(w io.Writer, format Format, enriched []model.EnrichedReading, extra []string) error {
	switch format {
	case FormatCSV:
		return writeCSV(w, enrichedRecords(enriched, extra))
	case FormatJSON:
		return writeJSON(w, enrichedOrEmpty(enriched))
	case FormatXLSX:
		return writeXLSX(w, "enriched", enrichedRecords(enriched, extra))
	default:
		return eris.Errorf("export: format %q not supported for enriched tables", format)
	}
}

// WriteBaselines writes a baseline table in format.
func WriteBaselines(w io.Writer, format Format, table *model.BaselineTable) error {
	baselines := table.Baselines()
	switch format {
	case FormatCSV:
		return writeCSV(w, baselineRecords(baselines))
	case FormatJSON:
		return writeJSON(w, table)
	case FormatYAML:
		return writeYAML(w, baselines)
	case FormatXLSX:
		return writeXLSX(w, "baselines", baselineRecords(baselines))
	default:
		return eris.Errorf("export: format %q not supported for baselines", format)
	}
}

func enrichedOrEmpty(enriched []model.EnrichedReading) []model.EnrichedReading {
	if enriched == nil {
		return []model.EnrichedReading{}
	}
	return enriched
}

func enrichedRecords(enriched []model.EnrichedReading, extra []string) [][]string {
	extra = passthrough(extra)
	header := append(append([]string{}, EnrichedHeader...), extra...)
	records := make([][]string, 0, len(enriched)+1)
	records = append(records, header)
	for _, e := range enriched {
		rec := []string{
			e.City,
			e.Timestamp.UTC().Format(time.RFC3339),
			formatFloat(e.Temperature),
			string(e.Season),
			formatFloat(e.RollingMean),
			formatFloat(e.MeanTemp),
			formatFloat(e.StdTemp),
			strconv.FormatBool(e.Anomaly),
		}
		for _, col := range extra {
			rec = append(rec, e.Extra[col])
		}
		records = append(records, rec)
	}
	return records
}

// passthrough drops extra columns that collide with the fixed header, such as the
// computed columns of a previously exported table.
func passthrough(extra []string) []string {
	fixed := make(map[string]bool, len(EnrichedHeader))
	for _, c := range EnrichedHeader {
		fixed[c] = true
	}
	var out []string
	for _, c := range extra {
		if !fixed[c] {
			out = append(out, c)
		}
	}
	return out
}

func baselineRecords(baselines []model.SeasonalBaseline) [][]string {
	records := make([][]string, 0, len(baselines)+1)
	records = append(records, BaselineHeader)
	for _, b := range baselines {
		records = append(records, []string{
			b.City,
			string(b.Season),
			formatFloat(b.MeanTemp),
			formatFloat(b.StdTemp),
			strconv.Itoa(b.Count),
		})
	}
	return records
}

// formatFloat renders NaN as an empty cell.
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func writeCSV(w io.Writer, records [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(records); err != nil {
		return eris.Wrap(err, "export: write csv")
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "export: write json")
}

type baselineYAML struct {
	City     string   `yaml:"city"`
	Season   string   `yaml:"season"`
	MeanTemp float64  `yaml:"mean_temp"`
	StdTemp  *float64 `yaml:"std_temp"`
	Count    int      `yaml:"count"`
}

func writeYAML(w io.Writer, baselines []model.SeasonalBaseline) error {
	out := make([]baselineYAML, 0, len(baselines))
	for _, b := range baselines {
		y := baselineYAML{City: b.City, Season: string(b.Season), MeanTemp: b.MeanTemp, Count: b.Count}
		if b.Defined() {
			std := b.StdTemp
			y.StdTemp = &std
		}
		out = append(out, y)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return eris.Wrap(err, "export: write yaml")
	}
	return eris.Wrap(enc.Close(), "export: close yaml")
}

func writeXLSX(w io.Writer, sheetName string, records [][]string) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return eris.Wrapf(err, "export: add sheet %s", sheetName)
	}
	for _, rec := range records {
		row := sheet.AddRow()
		for _, v := range rec {
			row.AddCell().SetString(v)
		}
	}
	return eris.Wrap(f.Write(w), "export: write xlsx")
}
