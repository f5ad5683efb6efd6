package anomaly

import (
	"math"
	"sort"

	"github.com/sells-group/temp-anomaly/internal/model"
)

// Description summarises one numeric column: count, mean, sample std, min, quartiles and
// max. Quartiles use linear interpolation between closest ranks.
type Description struct {
	Count int      `json:"count"`
	Mean  float64  `json:"mean"`
	Std   *float64 `json:"std"` // nil below two samples
	Min   float64  `json:"min"`
	P25   float64  `json:"p25"`
	P50   float64  `json:"p50"`
	P75   float64  `json:"p75"`
	Max   float64  `json:"max"`
}

// CitySummary describes the temperature and rolling-mean columns of one city.
type CitySummary struct {
	City        string      `json:"city"`
	Temperature Description `json:"temperature"`
	RollingMean Description `json:"rolling_mean"`
	Anomalies   int         `json:"anomalies"`
}

// ProfilePoint is one season of a city's seasonal profile. Upper and Lower are nil when
// the season's standard deviation is undefined.
type ProfilePoint struct {
	Season model.Season `json:"season"`
	Mean   float64      `json:"mean"`
	Upper  *float64     `json:"upper"`
	Lower  *float64     `json:"lower"`
}

// Cities returns the distinct cities of enriched, sorted.
func Cities(enriched []model.EnrichedReading) []string {
	seen := make(map[string]bool)
	var cities []string
	for _, e := range enriched {
		if !seen[e.City] {
			seen[e.City] = true
			cities = append(cities, e.City)
		}
	}
	sort.Strings(cities)
	return cities
}

// Describe summarises one city's rows.
func Describe(enriched []model.EnrichedReading, city string) (CitySummary, error) {
	var temps, rolling []float64
	anomalies := 0
	for _, e := range enriched {
		if e.City != city {
			continue
		}
		temps = append(temps, e.Temperature)
		rolling = append(rolling, e.RollingMean)
		if e.Anomaly {
			anomalies++
		}
	}
	if len(temps) == 0 {
		return CitySummary{}, ErrUnknownCity
	}
	return CitySummary{
		City:        city,
		Temperature: describe(temps),
		RollingMean: describe(rolling),
		Anomalies:   anomalies,
	}, nil
}

// Anomalies returns the anomalous rows of one city in timestamp order.
func Anomalies(enriched []model.EnrichedReading, city string) []model.EnrichedReading {
	var out []model.EnrichedReading
	for _, e := range enriched {
		if e.City == city && e.Anomaly {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// SeasonProfile returns the mean and ±2σ band of each season present for city, ordered
// winter, spring, summer, autumn.
func SeasonProfile(baselines *model.BaselineTable, city string) ([]ProfilePoint, error) {
	var points []ProfilePoint
	for _, season := range model.Seasons {
		b, ok := baselines.Lookup(city, season)
		if !ok {
			continue
		}
		p := ProfilePoint{Season: season, Mean: b.MeanTemp}
		if lower, upper, ok := Bounds(b); ok {
			p.Lower, p.Upper = &lower, &upper
		}
		points = append(points, p)
	}
	if len(points) == 0 {
		return nil, ErrUnknownCity
	}
	return points, nil
}

func describe(values []float64) Description {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var acc accumulator
	for _, v := range values {
		acc.add(v)
	}

	return Description{
		Count: acc.n,
		Mean:  acc.mean,
		Std:   definedOrNil(acc.std()),
		Min:   sorted[0],
		P25:   quantile(sorted, 0.25),
		P50:   quantile(sorted, 0.50),
		P75:   quantile(sorted, 0.75),
		Max:   sorted[len(sorted)-1],
	}
}

// quantile expects sorted, non-empty input.
func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

func definedOrNil(f float64) *float64 {
	if math.IsNaN(f) {
		return nil
	}
	return &f
}
