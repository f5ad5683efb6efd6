package anomaly

import "github.com/sells-group/temp-anomaly/internal/model"

// SigmaMultiplier is the number of standard deviations a temperature may sit from its
// seasonal mean before it counts as anomalous.
const SigmaMultiplier = 2.0

// Bounds returns the open interval (lower, upper) of normal temperatures for b. ok is
// false when the standard deviation is undefined.
func Bounds(b model.SeasonalBaseline) (lower, upper float64, ok bool) {
	if !b.Defined() {
		return 0, 0, false
	}
	return b.MeanTemp - SigmaMultiplier*b.StdTemp, b.MeanTemp + SigmaMultiplier*b.StdTemp, true
}

// IsAnomalous is the single anomaly rule shared by the batch join and live classification:
// temp is anomalous iff it lies strictly above mean+2σ or strictly below mean-2σ. A
// baseline with undefined σ never flags a reading.
func IsAnomalous(temp float64, b model.SeasonalBaseline) bool {
	lower, upper, ok := Bounds(b)
	if !ok {
		return false
	}
	return temp > upper || temp < lower
}
