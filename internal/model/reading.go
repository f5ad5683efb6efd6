package model

import (
	"encoding/json"
	"math"
	"time"
)

// Reading is one row of the historical temperature table.
type Reading struct {
	City        string            `json:"city"`
	Timestamp   time.Time         `json:"timestamp"`
	Temperature float64           `json:"temperature"`
	Season      Season            `json:"season"`
	RollingMean float64           `json:"rolling_mean"`
	Extra       map[string]string `json:"extra,omitempty"` // passthrough columns
}

// Table is a parsed input table. Readings keep input row order.
type Table struct {
	Columns  []string  `json:"columns"`
	Extra    []string  `json:"extra,omitempty"` // passthrough column names in header order
	Readings []Reading `json:"readings"`
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Readings)
}

// EnrichedReading is a Reading joined with its seasonal baseline and anomaly flag.
// It is produced once per pipeline run and never mutated afterwards.
type EnrichedReading struct {
	Reading
	MeanTemp float64 `json:"mean_temp"`
	StdTemp  float64 `json:"std_temp"` // NaN when the baseline group has fewer than 2 samples
	Anomaly  bool    `json:"anomaly"`
}

// MarshalJSON encodes an undefined StdTemp as null.
func (e EnrichedReading) MarshalJSON() ([]byte, error) {
	type reading Reading
	return json.Marshal(struct {
		reading
		MeanTemp float64  `json:"mean_temp"`
		StdTemp  *float64 `json:"std_temp"`
		Anomaly  bool     `json:"anomaly"`
	}{
		reading:  reading(e.Reading),
		MeanTemp: e.MeanTemp,
		StdTemp:  nullable(e.StdTemp),
		Anomaly:  e.Anomaly,
	})
}

func nullable(f float64) *float64 {
	if math.IsNaN(f) {
		return nil
	}
	return &f
}

func fromNullable(f *float64) float64 {
	if f == nil {
		return math.NaN()
	}
	return *f
}
