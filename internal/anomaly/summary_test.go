package anomaly

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/temp-anomaly/internal/model"
)

func TestDescribe(t *testing.T) {
	analysis, err := Analyze(parisTable(), Options{})
	require.NoError(t, err)

	s, err := Describe(analysis.Enriched, "Paris")
	require.NoError(t, err)
	assert.Equal(t, "Paris", s.City)
	assert.Equal(t, 4, s.Temperature.Count)
	assert.InDelta(t, 9.5, s.Temperature.Mean, 1e-9)
	assert.InDelta(t, 5.0, s.Temperature.Min, 1e-9)
	assert.InDelta(t, 20.0, s.Temperature.Max, 1e-9)
	// Quartiles of 5,6,7,20 with linear interpolation.
	assert.InDelta(t, 5.75, s.Temperature.P25, 1e-9)
	assert.InDelta(t, 6.5, s.Temperature.P50, 1e-9)
	assert.InDelta(t, 10.25, s.Temperature.P75, 1e-9)
	require.NotNil(t, s.Temperature.Std)
	assert.InDelta(t, 7.047458, *s.Temperature.Std, 1e-6)
	assert.Equal(t, 4, s.RollingMean.Count)
	assert.Equal(t, 0, s.Anomalies)
}

func TestDescribe_SingleRowAndUnknownCity(t *testing.T) {
	enriched := []model.EnrichedReading{{Reading: reading("Rome", day(0), 12, model.SeasonWinter)}}

	s, err := Describe(enriched, "Rome")
	require.NoError(t, err)
	assert.Nil(t, s.Temperature.Std)
	assert.InDelta(t, 12.0, s.Temperature.P50, 1e-9)

	_, err = Describe(enriched, "Nowhere")
	assert.ErrorIs(t, err, ErrUnknownCity)
}

func TestSeasonProfile(t *testing.T) {
	baselines := ComputeBaselines(parisTable().Readings)

	points, err := SeasonProfile(baselines, "Paris")
	require.NoError(t, err)
	require.Len(t, points, 2)

	assert.Equal(t, model.SeasonWinter, points[0].Season)
	require.NotNil(t, points[0].Upper)
	assert.InDelta(t, 8.0, *points[0].Upper, 1e-9)
	assert.InDelta(t, 4.0, *points[0].Lower, 1e-9)

	assert.Equal(t, model.SeasonSpring, points[1].Season)
	assert.Nil(t, points[1].Upper)
	assert.Nil(t, points[1].Lower)

	_, err = SeasonProfile(baselines, "Nowhere")
	assert.ErrorIs(t, err, ErrUnknownCity)
}

func TestAnomaliesAndCities(t *testing.T) {
	enriched := []model.EnrichedReading{
		{Reading: reading("B", day(3), 1, model.SeasonWinter), Anomaly: true},
		{Reading: reading("A", day(2), 1, model.SeasonWinter), Anomaly: true},
		{Reading: reading("B", day(1), 1, model.SeasonWinter), Anomaly: true},
		{Reading: reading("B", day(0), 1, model.SeasonWinter)},
	}

	got := Anomalies(enriched, "B")
	require.Len(t, got, 2)
	assert.Equal(t, day(1), got[0].Timestamp)
	assert.Equal(t, day(3), got[1].Timestamp)

	assert.Equal(t, []string{"A", "B"}, Cities(enriched))
}

func TestQuantile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}
	assert.InDelta(t, 1.0, quantile(sorted, 0), 1e-9)
	assert.InDelta(t, 2.5, quantile(sorted, 0.5), 1e-9)
	assert.InDelta(t, 4.0, quantile(sorted, 1), 1e-9)
}
