package anomaly

import (
	"time"

	"github.com/sells-group/temp-anomaly/internal/model"
)

// Options configures Analyze.
type Options struct {
	Window int // trailing rolling-mean window; 0 means DefaultWindow
}

// Analysis is the immutable result of one pipeline run over a table.
type Analysis struct {
	Enriched  []model.EnrichedReading `json:"enriched"` // aligned with the input rows
	Baselines *model.BaselineTable    `json:"baselines"`
	Extra     []string                `json:"extra,omitempty"` // passthrough column names
	Window    int                     `json:"window"`
	Elapsed   time.Duration           `json:"elapsed"`
}

// Analyze runs rolling means, seasonal baselines and the anomaly join over table.
func Analyze(table *model.Table, opts Options) (*Analysis, error) {
	start := time.Now()

	window := opts.Window
	if window == 0 {
		window = DefaultWindow
	}

	var (
		readings []model.Reading
		extra    []string
	)
	if table != nil {
		readings = table.Readings
		extra = table.Extra
	}

	rolling := RollingMeans(readings, window)
	baselines := ComputeBaselines(readings)
	enriched, err := Join(readings, rolling, baselines)
	if err != nil {
		return nil, err
	}

	return &Analysis{
		Enriched:  enriched,
		Baselines: baselines,
		Extra:     extra,
		Window:    window,
		Elapsed:   time.Since(start),
	}, nil
}

// Classify classifies a live observation against the analysis baselines.
func (a *Analysis) Classify(obs model.Observation) (model.LiveClassification, error) {
	return Classify(obs, a.Baselines)
}

// AnomalyCount returns the number of anomalous rows.
func (a *Analysis) AnomalyCount() int {
	n := 0
	for _, e := range a.Enriched {
		if e.Anomaly {
			n++
		}
	}
	return n
}
