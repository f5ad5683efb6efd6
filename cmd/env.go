package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/temp-anomaly/internal/cache"
	"github.com/sells-group/temp-anomaly/internal/check"
	"github.com/sells-group/temp-anomaly/internal/model"
	"github.com/sells-group/temp-anomaly/internal/publish"
	"github.com/sells-group/temp-anomaly/internal/resilience"
	"github.com/sells-group/temp-anomaly/internal/store"
	"github.com/sells-group/temp-anomaly/pkg/openweather"
)

// appEnv holds the store, memo, weather client and publisher shared by commands.
type appEnv struct {
	Store     store.Store // nil when persistence is disabled
	Memo      *cache.Analyses
	Weather   openweather.Client
	Publisher publish.Publisher
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Publisher != nil {
		e.Publisher.Close()
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

type envOptions struct {
	mode    string // config validation mode
	noStore bool
	weather bool
	publish bool
}

// initEnv validates config for the command and opens what it needs. Callers should
// defer env.Close().
func initEnv(ctx context.Context, opts envOptions) (*appEnv, error) {
	if err := cfg.Validate(opts.mode); err != nil {
		return nil, err
	}

	env := &appEnv{
		Memo:      cache.NewAnalyses(cache.DefaultCapacity),
		Publisher: publish.Nop{},
	}

	if !opts.noStore {
		st, err := initStore(ctx)
		if err != nil {
			return nil, err
		}
		env.Store = st
	}

	if opts.weather {
		env.Weather = newWeatherClient()
	}

	if opts.publish {
		p, err := publish.New(publish.Config{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Topic:    cfg.MQTT.Topic,
		})
		if err != nil {
			// Alerts are best effort; live checks still run without a broker.
			zap.L().Warn("mqtt publisher disabled", zap.Error(err))
		} else {
			env.Publisher = p
		}
	}

	return env, nil
}

func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func newWeatherClient() openweather.Client {
	policy := resilience.DefaultPolicy()
	if cfg.OpenWeather.MaxRetries > 0 {
		policy.Attempts = cfg.OpenWeather.MaxRetries
	}
	return openweather.NewClient(cfg.OpenWeather.Key,
		openweather.WithBaseURL(cfg.OpenWeather.BaseURL),
		openweather.WithUnits(cfg.OpenWeather.Units),
		openweather.WithRateLimit(cfg.OpenWeather.RatePerSec, cfg.OpenWeather.Burst),
		openweather.WithRetryPolicy(policy),
		openweather.WithTimeout(time.Duration(cfg.OpenWeather.TimeoutSecs)*time.Second),
	)
}

// newChecker builds a live checker over baselines, recording results under datasetID
// when a store is open.
func (e *appEnv) newChecker(baselines *model.BaselineTable, datasetID string, mode string, concurrency int) *check.Checker {
	opts := []check.Option{
		check.WithPublisher(e.Publisher),
		check.WithMode(check.Mode(mode)),
		check.WithConcurrency(concurrency),
	}
	if e.Store != nil && datasetID != "" {
		opts = append(opts, check.WithRecorder(e.Store, datasetID))
	}
	return check.New(e.Weather, baselines, opts...)
}
