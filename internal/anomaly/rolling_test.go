package anomaly

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/temp-anomaly/internal/model"
)

func TestRollingMeans_FirstReadingIsOwnTemperature(t *testing.T) {
	readings := []model.Reading{
		reading("Paris", day(1), 6, model.SeasonWinter),
		reading("Berlin", day(0), -3, model.SeasonWinter),
		reading("Paris", day(0), 4, model.SeasonWinter),
	}

	got := RollingMeans(readings, DefaultWindow)
	require.Len(t, got, len(readings))
	assert.InDelta(t, 5.0, got[0], 1e-9)
	assert.InDelta(t, -3.0, got[1], 1e-9)
	assert.InDelta(t, 4.0, got[2], 1e-9)
}

func TestRollingMeans_TrailingWindow(t *testing.T) {
	var readings []model.Reading
	for i := range 40 {
		readings = append(readings, reading("Oslo", day(i), float64(i), model.SeasonWinter))
	}

	got := RollingMeans(readings, 30)
	require.Len(t, got, 40)
	// Partial windows average everything so far.
	assert.InDelta(t, 0.0, got[0], 1e-9)
	assert.InDelta(t, 14.5, got[29], 1e-9)
	// Full windows average the last 30 values: 10..39.
	assert.InDelta(t, 24.5, got[39], 1e-9)
}

func TestRollingMeans_InputOrderIndependent(t *testing.T) {
	var sorted []model.Reading
	for i := range 50 {
		sorted = append(sorted,
			reading("A", day(i), float64(i%7), model.SeasonWinter),
			reading("B", day(i), float64(i*i%11), model.SeasonWinter),
		)
	}
	want := RollingMeans(sorted, 30)
	byKey := make(map[rowKey]float64, len(sorted))
	for i, r := range sorted {
		byKey[keyOf(r)] = want[i]
	}

	shuffled := append([]model.Reading(nil), sorted...)
	r := rand.New(rand.NewPCG(1, 2))
	r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	got := RollingMeans(shuffled, 30)
	require.Len(t, got, len(shuffled))
	for i, rd := range shuffled {
		assert.InDelta(t, byKey[keyOf(rd)], got[i], 1e-9, "row %d", i)
	}
}

type rowKey struct {
	city string
	unix int64
}

func keyOf(r model.Reading) rowKey {
	return rowKey{city: r.City, unix: r.Timestamp.Unix()}
}

func TestRollingMeans_WindowOneAndEmpty(t *testing.T) {
	readings := []model.Reading{
		reading("Rome", day(0), 10, model.SeasonWinter),
		reading("Rome", day(1), 20, model.SeasonWinter),
	}
	got := RollingMeans(readings, 0)
	assert.Equal(t, []float64{10, 20}, got)

	assert.Empty(t, RollingMeans(nil, 30))
}

func TestRollingMeans_DoesNotMutateInput(t *testing.T) {
	readings := []model.Reading{
		reading("Rome", day(2), 3, model.SeasonWinter),
		reading("Rome", day(0), 1, model.SeasonWinter),
	}
	before := append([]model.Reading(nil), readings...)
	RollingMeans(readings, 30)
	assert.Equal(t, before, readings)
}
