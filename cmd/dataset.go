package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/temp-anomaly/internal/anomaly"
	"github.com/sells-group/temp-anomaly/internal/cache"
	"github.com/sells-group/temp-anomaly/internal/fetcher"
	"github.com/sells-group/temp-anomaly/internal/model"
)

// xlsxMagic is the zip local-file header every XLSX workbook starts with.
var xlsxMagic = []byte("PK\x03\x04")

// readSource returns the raw bytes of a local path or an http(s) URL.
func readSource(ctx context.Context, source string) ([]byte, error) {
	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{MaxRetries: cfg.OpenWeather.MaxRetries})
	rc, err := fetcher.Open(ctx, f, source)
	if err != nil {
		return nil, err
	}
	defer rc.Close() //nolint:errcheck

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", source)
	}
	return data, nil
}

// parseTable decodes CSV or XLSX bytes. XLSX is recognised by extension or zip header.
func parseTable(ctx context.Context, data []byte, source string) (*model.Table, error) {
	if strings.EqualFold(filepath.Ext(source), ".xlsx") || bytes.HasPrefix(data, xlsxMagic) {
		rows, err := fetcher.ReadXLSXBytes(data, fetcher.XLSXOptions{})
		if err != nil {
			return nil, &anomaly.MalformedInputError{Reason: err.Error()}
		}
		return anomaly.LoadRows(rows)
	}
	return anomaly.LoadCSV(ctx, bytes.NewReader(data), anomaly.LoadOptions{Encoding: cfg.Analysis.Encoding})
}

// memoKey identifies an analysis of one dataset at the configured window.
func memoKey(hash string) string {
	return fmt.Sprintf("%s/w%d", hash, cfg.Analysis.Window)
}

// ingest analyzes data once per content hash and, when a store is open, persists the
// dataset and its baselines.
func ingest(ctx context.Context, env *appEnv, source string, data []byte) (*model.Dataset, *anomaly.Analysis, error) {
	hash := cache.Hash(data)

	analysis, err := env.Memo.GetOrCompute(memoKey(hash), func() (*anomaly.Analysis, error) {
		table, err := parseTable(ctx, data, source)
		if err != nil {
			return nil, err
		}
		return anomaly.Analyze(table, anomaly.Options{Window: cfg.Analysis.Window})
	})
	if err != nil {
		return nil, nil, eris.Wrapf(err, "analyze %s", source)
	}

	zap.L().Info("analysis complete",
		zap.String("source", source),
		zap.String("hash", hash),
		zap.Int("rows", len(analysis.Enriched)),
		zap.Int("baselines", analysis.Baselines.Len()),
		zap.Int("anomalies", analysis.AnomalyCount()),
		zap.Duration("elapsed", analysis.Elapsed),
	)

	ds := &model.Dataset{
		Hash:   hash,
		Source: source,
		Rows:   len(analysis.Enriched),
		Cities: len(analysis.Baselines.Cities()),
	}
	if env.Store == nil {
		return ds, analysis, nil
	}

	saved, err := env.Store.SaveDataset(ctx, *ds)
	if err != nil {
		return nil, nil, err
	}
	if err := env.Store.SaveBaselines(ctx, saved.ID, analysis.Baselines); err != nil {
		return nil, nil, err
	}
	return saved, analysis, nil
}

// ingestSource reads and ingests a local path or URL.
func ingestSource(ctx context.Context, env *appEnv, source string) (*model.Dataset, *anomaly.Analysis, error) {
	data, err := readSource(ctx, source)
	if err != nil {
		return nil, nil, err
	}
	return ingest(ctx, env, source, data)
}

// resolveBaselines returns the baselines of a stored dataset or of a freshly ingested
// source, and the dataset ID to record checks under.
func resolveBaselines(ctx context.Context, env *appEnv, datasetID, source string) (*model.BaselineTable, string, error) {
	switch {
	case datasetID != "":
		if env.Store == nil {
			return nil, "", eris.New("--dataset requires a store")
		}
		if _, err := env.Store.GetDataset(ctx, datasetID); err != nil {
			return nil, "", err
		}
		b, err := env.Store.GetBaselines(ctx, datasetID)
		if err != nil {
			return nil, "", err
		}
		return b, datasetID, nil
	case source != "":
		ds, analysis, err := ingestSource(ctx, env, source)
		if err != nil {
			return nil, "", err
		}
		return analysis.Baselines, ds.ID, nil
	default:
		return nil, "", eris.New("one of --dataset or --input is required")
	}
}
