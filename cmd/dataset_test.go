package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/temp-anomaly/internal/anomaly"
	"github.com/sells-group/temp-anomaly/internal/cache"
	"github.com/sells-group/temp-anomaly/internal/model"
)

func xlsxBytes(t *testing.T, rows [][]string) []byte {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("weather")
	require.NoError(t, err)
	for _, r := range rows {
		row := sheet.AddRow()
		for _, v := range r {
			row.AddCell().SetString(v)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func TestParseTable_CSV(t *testing.T) {
	useTestConfig(t)

	table, err := parseTable(context.Background(), []byte(parisCSV), "paris.csv")
	require.NoError(t, err)
	require.Len(t, table.Readings, 4)
	assert.Equal(t, "Paris", table.Readings[0].City)
	assert.Equal(t, model.SeasonSpring, table.Readings[3].Season)
}

func TestParseTable_XLSXByMagic(t *testing.T) {
	useTestConfig(t)
	data := xlsxBytes(t, [][]string{
		{"city", "timestamp", "temperature", "season"},
		{"Oslo", "2020-01-01", "-3.5", "winter"},
	})

	// No .xlsx extension: detected from the zip header.
	table, err := parseTable(context.Background(), data, "upload")
	require.NoError(t, err)
	require.Len(t, table.Readings, 1)
	assert.InDelta(t, -3.5, table.Readings[0].Temperature, 1e-9)
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), table.Readings[0].Timestamp)
}

func TestParseTable_BadXLSX(t *testing.T) {
	useTestConfig(t)

	_, err := parseTable(context.Background(), []byte("not a workbook"), "weather.xlsx")
	require.Error(t, err)
	assert.True(t, anomaly.IsMalformedInput(err))
}

func TestMemoKey_IncludesWindow(t *testing.T) {
	useTestConfig(t)
	k30 := memoKey("abc")
	cfg.Analysis.Window = 7
	k7 := memoKey("abc")

	assert.Equal(t, "abc/w30", k30)
	assert.Equal(t, "abc/w7", k7)
}

func TestIngest_WithoutStore(t *testing.T) {
	useTestConfig(t)
	env := &appEnv{Memo: cache.NewAnalyses(cache.DefaultCapacity)}

	ds, analysis, err := ingest(context.Background(), env, "paris.csv", []byte(parisCSV))
	require.NoError(t, err)
	assert.Empty(t, ds.ID)
	assert.Equal(t, cache.Hash([]byte(parisCSV)), ds.Hash)
	assert.Equal(t, 4, ds.Rows)
	assert.Equal(t, 2, analysis.Baselines.Len())

	_, ok := env.Memo.Get(memoKey(ds.Hash))
	assert.True(t, ok)
}

func TestResolveBaselines(t *testing.T) {
	env := newTestEnv(t, nil)
	path := filepath.Join(t.TempDir(), "paris.csv")
	require.NoError(t, os.WriteFile(path, []byte(parisCSV), 0o644))

	b, id, err := resolveBaselines(context.Background(), env, "", path)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, 2, b.Len())

	stored, sameID, err := resolveBaselines(context.Background(), env, id, "")
	require.NoError(t, err)
	assert.Equal(t, id, sameID)
	assert.Equal(t, b.Len(), stored.Len())
	assert.Equal(t, b.Cities(), stored.Cities())

	_, _, err = resolveBaselines(context.Background(), env, "", "")
	assert.Error(t, err)

	_, _, err = resolveBaselines(context.Background(), &appEnv{}, "some-id", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a store")
}

func TestFormatDatasets(t *testing.T) {
	var buf bytes.Buffer
	formatDatasets(&buf, []model.Dataset{{
		ID: "ds-1", Hash: strings.Repeat("a", 64), Source: "paris.csv", Rows: 4, Cities: 1,
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}})

	out := buf.String()
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "ds-1")
	assert.Contains(t, out, strings.Repeat("a", 12))
	assert.NotContains(t, out, strings.Repeat("a", 13))
	assert.Contains(t, out, "2024-01-01T00:00:00Z")
}

func TestFormatChecks(t *testing.T) {
	var buf bytes.Buffer
	formatChecks(&buf, []model.CheckRecord{{
		DatasetID: "ds-1",
		Classification: model.LiveClassification{
			Status: model.ClassificationOK, Code: 200, City: "Paris",
			Season: model.SeasonWinter, Temperature: 20, Anomalous: true,
		},
		CheckedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}})

	out := buf.String()
	assert.Contains(t, out, "Paris")
	assert.Contains(t, out, "20.00")
	assert.Contains(t, out, "true")
}

func TestShortHash(t *testing.T) {
	assert.Equal(t, "abc", shortHash("abc"))
	assert.Equal(t, "0123456789ab", shortHash("0123456789abcdef"))
}
