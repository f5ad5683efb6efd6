package store

import (
	"database/sql"
	"math"

	"github.com/sells-group/temp-anomaly/internal/model"
)

type scannable interface {
	Scan(dest ...any) error
}

func scanDataset(row scannable) (*model.Dataset, error) {
	var ds model.Dataset
	if err := row.Scan(&ds.ID, &ds.Hash, &ds.Source, &ds.Rows, &ds.Cities, &ds.CreatedAt); err != nil {
		return nil, err
	}
	ds.CreatedAt = ds.CreatedAt.UTC()
	return &ds, nil
}

func scanBaseline(row scannable) (model.SeasonalBaseline, error) {
	var (
		b      model.SeasonalBaseline
		season string
		std    sql.NullFloat64
	)
	if err := row.Scan(&b.City, &season, &b.MeanTemp, &std, &b.Count); err != nil {
		return b, err
	}
	b.Season = model.Season(season)
	b.StdTemp = fromNullFloat(std)
	return b, nil
}

func scanCheck(row scannable) (model.CheckRecord, error) {
	var (
		rec            model.CheckRecord
		status, season string
	)
	c := &rec.Classification
	if err := row.Scan(&rec.ID, &rec.DatasetID, &c.City, &status, &c.Code, &c.Message, &season,
		&c.Temperature, &c.Anomalous, &rec.CheckedAt); err != nil {
		return rec, err
	}
	c.Status = model.ClassificationStatus(status)
	c.Season = model.Season(season)
	rec.CheckedAt = rec.CheckedAt.UTC()
	return rec, nil
}

func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func fromNullFloat(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
