// Package anomaly implements the temperature anomaly pipeline: table loading, per-city
// rolling means, per-(city, season) baselines, the 2-sigma join, and live-reading
// classification against the same baselines.
package anomaly

import (
	"context"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/temp-anomaly/internal/fetcher"
	"github.com/sells-group/temp-anomaly/internal/model"
)

// Required column names.
const (
	ColumnCity        = "city"
	ColumnTimestamp   = "timestamp"
	ColumnTemperature = "temperature"
	ColumnSeason      = "season"
)

var requiredColumns = []string{ColumnCity, ColumnTimestamp, ColumnTemperature, ColumnSeason}

// timestampLayouts are tried in order; values without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// LoadOptions configures table parsing.
type LoadOptions struct {
	Delimiter rune
	Encoding  string
}

// LoadCSV parses delimited text with a header row into a Table.
func LoadCSV(ctx context.Context, r io.Reader, opts LoadOptions) (*model.Table, error) {
	rows, err := fetcher.ReadCSV(ctx, r, fetcher.CSVOptions{
		Delimiter: opts.Delimiter,
		Encoding:  opts.Encoding,
		TrimSpace: true,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "anomaly: load csv")
		}
		return nil, &MalformedInputError{Reason: err.Error()}
	}
	return LoadRows(rows)
}

// LoadXLSX parses the first worksheet of an XLSX workbook into a Table.
func LoadXLSX(path string) (*model.Table, error) {
	rows, err := fetcher.ReadXLSX(path, fetcher.XLSXOptions{})
	if err != nil {
		return nil, &MalformedInputError{Reason: err.Error()}
	}
	return LoadRows(rows)
}

// LoadRows builds a Table from raw records whose first record is the header. Columns
// other than the four required ones are kept as passthrough values.
func LoadRows(rows [][]string) (*model.Table, error) {
	if len(rows) == 0 {
		return nil, &MalformedInputError{Reason: "empty input: no header row"}
	}

	header := make([]string, len(rows[0]))
	index := make(map[string]int, len(header))
	for i, name := range rows[0] {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		header[i] = name
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &MalformedInputError{Reason: "missing required columns: " + strings.Join(missing, ", ")}
	}

	required := make(map[int]bool, len(requiredColumns))
	for _, col := range requiredColumns {
		required[index[col]] = true
	}
	var extra []int
	var extraNames []string
	for i, name := range header {
		if !required[i] && name != "" {
			extra = append(extra, i)
			extraNames = append(extraNames, name)
		}
	}

	table := &model.Table{
		Columns:  header,
		Extra:    extraNames,
		Readings: make([]model.Reading, 0, len(rows)-1),
	}

	for n, record := range rows[1:] {
		rowNum := n + 1
		if isBlank(record) {
			continue
		}
		field := func(col string) string {
			i := index[col]
			if i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		city := field(ColumnCity)
		if city == "" {
			return nil, &MalformedInputError{Row: rowNum, Column: ColumnCity, Reason: "empty city"}
		}

		rawTS := field(ColumnTimestamp)
		ts, ok := parseTimestamp(rawTS)
		if !ok {
			return nil, &MalformedInputError{Row: rowNum, Column: ColumnTimestamp, Value: rawTS, Reason: "unparsable timestamp"}
		}

		rawTemp := field(ColumnTemperature)
		temp, err := strconv.ParseFloat(rawTemp, 64)
		if err != nil {
			return nil, &MalformedInputError{Row: rowNum, Column: ColumnTemperature, Value: rawTemp, Reason: "unparsable temperature"}
		}
		if math.IsNaN(temp) || math.IsInf(temp, 0) {
			return nil, &MalformedInputError{Row: rowNum, Column: ColumnTemperature, Value: rawTemp, Reason: "non-finite temperature"}
		}

		rawSeason := field(ColumnSeason)
		season, ok := model.ParseSeason(rawSeason)
		if !ok {
			return nil, &MalformedInputError{Row: rowNum, Column: ColumnSeason, Value: rawSeason, Reason: "unknown season"}
		}

		reading := model.Reading{
			City:        city,
			Timestamp:   ts,
			Temperature: temp,
			Season:      season,
		}
		if len(extra) > 0 {
			reading.Extra = make(map[string]string, len(extra))
			for k, i := range extra {
				if i < len(record) {
					reading.Extra[extraNames[k]] = record[i]
				}
			}
		}
		table.Readings = append(table.Readings, reading)
	}

	return table, nil
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
