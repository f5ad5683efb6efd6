package anomaly

import (
	"sort"

	"github.com/sells-group/temp-anomaly/internal/model"
)

// DefaultWindow is the number of trailing readings averaged into a rolling mean.
const DefaultWindow = 30

// RollingMeans returns, for each reading, the mean temperature of the trailing window of
// up to window readings of the same city ending at and including it, in timestamp order.
// The result is aligned with the input slice: out[i] belongs to readings[i]. Readings with
// equal timestamps keep their input order. A window below 1 is treated as 1.
func RollingMeans(readings []model.Reading, window int) []float64 {
	if window < 1 {
		window = 1
	}
	out := make([]float64, len(readings))

	for _, idx := range groupByCity(readings) {
		sort.SliceStable(idx, func(a, b int) bool {
			return readings[idx[a]].Timestamp.Before(readings[idx[b]].Timestamp)
		})

		var sum float64
		for pos, i := range idx {
			sum += readings[i].Temperature
			if pos >= window {
				sum -= readings[idx[pos-window]].Temperature
			}
			n := pos + 1
			if n > window {
				n = window
			}
			out[i] = sum / float64(n)
		}
	}
	return out
}

// groupByCity returns the row indices of each city in input order.
func groupByCity(readings []model.Reading) map[string][]int {
	groups := make(map[string][]int)
	for i, r := range readings {
		groups[r.City] = append(groups[r.City], i)
	}
	return groups
}
