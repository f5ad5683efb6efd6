package anomaly

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/temp-anomaly/internal/model"
)

func TestIsAnomalous_StrictBoundaries(t *testing.T) {
	b := model.SeasonalBaseline{City: "X", Season: model.SeasonWinter, MeanTemp: 10, StdTemp: 2, Count: 10}

	tests := []struct {
		temp float64
		want bool
	}{
		{14.000001, true},
		{14.0, false},
		{6.0, false},
		{5.999999, true},
		{10, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsAnomalous(tt.temp, b), "temp %v", tt.temp)
	}
}

func TestIsAnomalous_ZeroStd(t *testing.T) {
	b := model.SeasonalBaseline{MeanTemp: 18, StdTemp: 0, Count: 4}
	assert.False(t, IsAnomalous(18, b))
	assert.True(t, IsAnomalous(18.0001, b))
	assert.True(t, IsAnomalous(17.9999, b))
}

func TestIsAnomalous_UndefinedStd(t *testing.T) {
	b := model.SeasonalBaseline{MeanTemp: 20, StdTemp: math.NaN(), Count: 1}
	assert.False(t, IsAnomalous(20, b))
	assert.False(t, IsAnomalous(1e9, b))

	_, _, ok := Bounds(b)
	assert.False(t, ok)
}

func TestBounds(t *testing.T) {
	lower, upper, ok := Bounds(model.SeasonalBaseline{MeanTemp: 25, StdTemp: 2})
	assert.True(t, ok)
	assert.InDelta(t, 21.0, lower, 1e-9)
	assert.InDelta(t, 29.0, upper, 1e-9)
}
