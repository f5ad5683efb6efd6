package anomaly

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/temp-anomaly/internal/model"
)

// Join attaches each reading's (city, season) baseline and anomaly flag. rolling must be
// aligned with readings, as returned by RollingMeans. A reading without a baseline fails
// the whole join with a MissingBaselineError.
func Join(readings []model.Reading, rolling []float64, baselines *model.BaselineTable) ([]model.EnrichedReading, error) {
	if len(rolling) != len(readings) {
		return nil, eris.Errorf("anomaly: join: %d rolling means for %d readings", len(rolling), len(readings))
	}

	out := make([]model.EnrichedReading, len(readings))
	for i, r := range readings {
		b, ok := baselines.Lookup(r.City, r.Season)
		if !ok {
			return nil, &MissingBaselineError{City: r.City, Season: r.Season}
		}
		r.RollingMean = rolling[i]
		out[i] = model.EnrichedReading{
			Reading:  r,
			MeanTemp: b.MeanTemp,
			StdTemp:  b.StdTemp,
			Anomaly:  IsAnomalous(r.Temperature, b),
		}
	}
	return out, nil
}
