// Package check runs live weather checks against a dataset's seasonal baselines.
package check

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/temp-anomaly/internal/anomaly"
	"github.com/sells-group/temp-anomaly/internal/model"
	"github.com/sells-group/temp-anomaly/internal/publish"
	"github.com/sells-group/temp-anomaly/pkg/openweather"
)

// Mode selects how CheckAll fans out.
type Mode string

const (
	ModeSync  Mode = "sync"
	ModeAsync Mode = "async"
)

// Recorder persists a classification. store.Store satisfies it.
type Recorder interface {
	SaveCheck(ctx context.Context, datasetID string, c model.LiveClassification) (*model.CheckRecord, error)
}

// Checker fetches current weather and classifies it.
type Checker struct {
	client      openweather.Client
	baselines   *model.BaselineTable
	datasetID   string
	recorder    Recorder
	publisher   publish.Publisher
	mode        Mode
	concurrency int
}

// Option configures a Checker.
type Option func(*Checker)

// WithRecorder persists every classification under datasetID.
func WithRecorder(r Recorder, datasetID string) Option {
	return func(c *Checker) {
		c.recorder = r
		c.datasetID = datasetID
	}
}

// WithPublisher publishes anomalous classifications.
func WithPublisher(p publish.Publisher) Option {
	return func(c *Checker) {
		c.publisher = p
	}
}

// WithMode sets the CheckAll fan-out mode.
func WithMode(m Mode) Option {
	return func(c *Checker) {
		c.mode = m
	}
}

// WithConcurrency bounds in-flight requests in async mode.
func WithConcurrency(n int) Option {
	return func(c *Checker) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// New creates a Checker over baselines.
func New(client openweather.Client, baselines *model.BaselineTable, opts ...Option) *Checker {
	c := &Checker{
		client:      client,
		baselines:   baselines,
		publisher:   publish.Nop{},
		mode:        ModeAsync,
		concurrency: 8,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Result is the outcome of checking one city. Err is set when the reading could not be
// classified at all (transport failure or missing baseline).
type Result struct {
	City           string                   `json:"city"`
	Classification model.LiveClassification `json:"classification"`
	Err            error                    `json:"-"`
	Error          string                   `json:"error,omitempty"`
}

// Report summarises a CheckAll run.
type Report struct {
	Results         []Result      `json:"results"`
	Elapsed         time.Duration `json:"elapsed"`
	AllOK           bool          `json:"all_ok"`
	AnomalousCities []string      `json:"anomalous_cities"`
}

// Check fetches the current reading for city and classifies it. Upstream failures reported
// by the weather service come back as error classifications, not errors.
func (c *Checker) Check(ctx context.Context, city string) (model.LiveClassification, error) {
	resp, err := c.client.Current(ctx, city)
	if err != nil {
		return model.LiveClassification{}, eris.Wrapf(err, "check: fetch %s", city)
	}

	obs := resp.Observation()
	if obs.City == "" {
		obs.City = city
	}

	result, err := anomaly.Classify(obs, c.baselines)
	if err != nil {
		return model.LiveClassification{}, eris.Wrapf(err, "check: classify %s", city)
	}
	if result.City == "" {
		result.City = city
	}

	c.record(ctx, result)

	zap.L().Info("live check",
		zap.String("city", result.City),
		zap.String("status", string(result.Status)),
		zap.Int("code", result.Code),
		zap.String("season", string(result.Season)),
		zap.Float64("temperature", result.Temperature),
		zap.Bool("anomalous", result.Anomalous),
	)
	return result, nil
}

func (c *Checker) record(ctx context.Context, result model.LiveClassification) {
	if c.recorder != nil {
		if _, err := c.recorder.SaveCheck(ctx, c.datasetID, result); err != nil {
			zap.L().Warn("failed to record live check", zap.String("city", result.City), zap.Error(err))
		}
	}
	if result.OK() && result.Anomalous {
		if err := c.publisher.Publish(ctx, result); err != nil {
			zap.L().Warn("failed to publish anomaly", zap.String("city", result.City), zap.Error(err))
		}
	}
}

// CheckAll checks every city. Results keep the order of cities. A failure for one city
// does not stop the others.
func (c *Checker) CheckAll(ctx context.Context, cities []string) (*Report, error) {
	start := time.Now()
	results := make([]Result, len(cities))

	run := func(ctx context.Context, i int) {
		cl, err := c.Check(ctx, cities[i])
		results[i] = Result{City: cities[i], Classification: cl, Err: err}
		if err != nil {
			results[i].Error = err.Error()
		}
	}

	switch c.mode {
	case ModeSync:
		for i := range cities {
			if err := ctx.Err(); err != nil {
				return nil, eris.Wrap(err, "check: all")
			}
			run(ctx, i)
		}
	case ModeAsync:
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.concurrency)
		for i := range cities {
			g.Go(func() error {
				run(gctx, i)
				return nil
			})
		}
		_ = g.Wait()
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "check: all")
		}
	default:
		return nil, eris.Errorf("check: unknown mode %q", c.mode)
	}

	report := &Report{Results: results, Elapsed: time.Since(start), AllOK: true}
	for _, r := range results {
		if r.Err != nil || !r.Classification.OK() {
			report.AllOK = false
			continue
		}
		if r.Classification.Anomalous {
			report.AnomalousCities = append(report.AnomalousCities, r.City)
		}
	}

	zap.L().Info("live checks complete",
		zap.Int("cities", len(cities)),
		zap.Bool("all_ok", report.AllOK),
		zap.Int("anomalous", len(report.AnomalousCities)),
		zap.Duration("elapsed", report.Elapsed),
	)
	return report, nil
}
