package anomaly

import (
	"math"

	"github.com/sells-group/temp-anomaly/internal/model"
)

// accumulator tracks a running mean and sum of squared deviations (Welford).
type accumulator struct {
	n    int
	mean float64
	m2   float64
}

func (a *accumulator) add(x float64) {
	a.n++
	delta := x - a.mean
	a.mean += delta / float64(a.n)
	a.m2 += delta * (x - a.mean)
}

// std returns the sample standard deviation (n-1 divisor), or NaN below two samples.
func (a *accumulator) std() float64 {
	if a.n < 2 {
		return math.NaN()
	}
	v := a.m2 / float64(a.n-1)
	if v < 0 {
		v = 0
	}
	return math.Sqrt(v)
}

// ComputeBaselines groups readings by (city, season) and returns the temperature mean and
// sample standard deviation of every group. Groups with one reading get an undefined
// (NaN) standard deviation.
func ComputeBaselines(readings []model.Reading) *model.BaselineTable {
	groups := make(map[model.BaselineKey]*accumulator)
	var order []model.BaselineKey
	for _, r := range readings {
		key := model.BaselineKey{City: r.City, Season: r.Season}
		acc, ok := groups[key]
		if !ok {
			acc = &accumulator{}
			groups[key] = acc
			order = append(order, key)
		}
		acc.add(r.Temperature)
	}

	baselines := make([]model.SeasonalBaseline, 0, len(order))
	for _, key := range order {
		acc := groups[key]
		baselines = append(baselines, model.SeasonalBaseline{
			City:     key.City,
			Season:   key.Season,
			MeanTemp: acc.mean,
			StdTemp:  acc.std(),
			Count:    acc.n,
		})
	}
	return model.NewBaselineTable(baselines)
}
