package anomaly

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/temp-anomaly/internal/model"
)

func parisSummer() *model.BaselineTable {
	return model.NewBaselineTable([]model.SeasonalBaseline{
		{City: "Paris", Season: model.SeasonSummer, MeanTemp: 25, StdTemp: 2, Count: 90},
	})
}

func TestClassify_UpstreamError(t *testing.T) {
	obs := model.Observation{StatusCode: 401, Message: "Invalid API key"}

	got, err := Classify(obs, parisSummer())
	require.NoError(t, err)
	assert.Equal(t, model.LiveClassification{
		Status:  model.ClassificationError,
		Code:    401,
		Message: "Invalid API key",
	}, got)
	assert.False(t, got.OK())
}

func TestClassify_UpstreamErrorIgnoresBaselines(t *testing.T) {
	obs := model.Observation{StatusCode: 404, Message: "city not found", City: "Atlantis"}
	got, err := Classify(obs, nil)
	require.NoError(t, err)
	assert.Equal(t, 404, got.Code)
	assert.Empty(t, got.Season)
}

func TestClassify_JulyParis(t *testing.T) {
	obs := model.Observation{
		StatusCode:  200,
		City:        "Paris",
		Temperature: 30,
		Timestamp:   time.Date(2024, time.July, 15, 12, 0, 0, 0, time.UTC).Unix(),
		Timezone:    3600,
	}

	got, err := Classify(obs, parisSummer())
	require.NoError(t, err)
	assert.True(t, got.OK())
	assert.Equal(t, model.SeasonSummer, got.Season)
	assert.Equal(t, "Paris", got.City)
	assert.InDelta(t, 30.0, got.Temperature, 1e-9)
	assert.True(t, got.Anomalous)

	obs.Temperature = 29
	got, err = Classify(obs, parisSummer())
	require.NoError(t, err)
	assert.False(t, got.Anomalous)
}

func TestClassify_TimezoneShiftsSeason(t *testing.T) {
	// 2024-05-31T22:30Z is June 1st in UTC+2, so summer rather than spring.
	obs := model.Observation{
		StatusCode:  200,
		City:        "Paris",
		Temperature: 25,
		Timestamp:   time.Date(2024, time.May, 31, 22, 30, 0, 0, time.UTC).Unix(),
		Timezone:    7200,
	}
	assert.Equal(t, model.SeasonSummer, SeasonAt(obs))

	obs.Timezone = 0
	assert.Equal(t, model.SeasonSpring, SeasonAt(obs))

	// Negative offsets pull the local date back.
	obs = model.Observation{Timestamp: time.Date(2024, time.March, 1, 2, 0, 0, 0, time.UTC).Unix(), Timezone: -5 * 3600}
	assert.Equal(t, model.SeasonWinter, SeasonAt(obs))
}

func TestClassify_MissingBaseline(t *testing.T) {
	obs := model.Observation{
		StatusCode:  200,
		City:        "Paris",
		Temperature: 0,
		Timestamp:   time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC).Unix(),
	}
	_, err := Classify(obs, parisSummer())
	require.Error(t, err)
	assert.True(t, IsMissingBaseline(err))
	assert.Contains(t, err.Error(), "winter")
}

func TestClassify_Idempotent(t *testing.T) {
	obs := model.Observation{
		StatusCode:  200,
		City:        "Paris",
		Temperature: 21,
		Timestamp:   time.Date(2024, time.August, 1, 0, 0, 0, 0, time.UTC).Unix(),
	}
	baselines := parisSummer()
	first, err := Classify(obs, baselines)
	require.NoError(t, err)
	second, err := Classify(obs, baselines)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

// monthFor returns a month belonging to season.
func monthFor(season model.Season) time.Month {
	switch season {
	case model.SeasonWinter:
		return time.January
	case model.SeasonSpring:
		return time.April
	case model.SeasonSummer:
		return time.July
	default:
		return time.October
	}
}

func TestClassify_AgreesWithJoin(t *testing.T) {
	var readings []model.Reading
	for i := range 200 {
		season := model.Seasons[i%4]
		temp := float64((i*37)%41) - 10
		readings = append(readings, reading([]string{"Paris", "Oslo"}[i%2], day(i), temp, season))
	}
	readings = append(readings, reading("Lone", day(0), 3, model.SeasonAutumn))

	analysis, err := Analyze(&model.Table{Readings: readings}, Options{})
	require.NoError(t, err)

	for i, row := range analysis.Enriched {
		obs := model.Observation{
			StatusCode:  200,
			City:        row.City,
			Temperature: row.Temperature,
			Timestamp:   time.Date(2023, monthFor(row.Season), 15, 12, 0, 0, 0, time.UTC).Unix(),
		}
		live, err := analysis.Classify(obs)
		require.NoError(t, err)
		assert.Equal(t, row.Season, live.Season)
		assert.Equal(t, row.Anomaly, live.Anomalous, "row %d", i)
	}
}
