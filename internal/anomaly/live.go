package anomaly

import "github.com/sells-group/temp-anomaly/internal/model"

// SeasonAt returns the season of the observation's local calendar month, computed from
// its UTC timestamp shifted by its UTC offset.
func SeasonAt(obs model.Observation) model.Season {
	return model.SeasonForMonth(obs.LocalTime().Month())
}

// Classify decides whether one live observation is anomalous against baselines.
//
// A non-200 observation yields an error classification carrying the upstream code and
// message; no season or temperature comparison is made. A successful observation whose
// (city, season) has no baseline returns a MissingBaselineError.
func Classify(obs model.Observation, baselines *model.BaselineTable) (model.LiveClassification, error) {
	if obs.StatusCode != model.StatusOK {
		return model.LiveClassification{
			Status:  model.ClassificationError,
			Code:    obs.StatusCode,
			Message: obs.Message,
		}, nil
	}

	season := SeasonAt(obs)
	b, ok := baselines.Lookup(obs.City, season)
	if !ok {
		return model.LiveClassification{}, &MissingBaselineError{City: obs.City, Season: season}
	}

	return model.LiveClassification{
		Status:      model.ClassificationOK,
		Code:        obs.StatusCode,
		City:        obs.City,
		Season:      season,
		Temperature: obs.Temperature,
		Anomalous:   IsAnomalous(obs.Temperature, b),
	}, nil
}
