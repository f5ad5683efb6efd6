package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	OpenWeather OpenWeatherConfig `yaml:"openweather" mapstructure:"openweather"`
	Analysis    AnalysisConfig    `yaml:"analysis" mapstructure:"analysis"`
	Check       CheckConfig       `yaml:"check" mapstructure:"check"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	MQTT        MQTTConfig        `yaml:"mqtt" mapstructure:"mqtt"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// OpenWeatherConfig holds OpenWeatherMap API settings.
type OpenWeatherConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	Units       string  `yaml:"units" mapstructure:"units"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Burst       int     `yaml:"burst" mapstructure:"burst"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
}

// AnalysisConfig configures the batch pipeline.
type AnalysisConfig struct {
	Window   int    `yaml:"window" mapstructure:"window"`
	Encoding string `yaml:"encoding" mapstructure:"encoding"`
}

// CheckConfig configures live checks across many cities.
type CheckConfig struct {
	Concurrency int    `yaml:"concurrency" mapstructure:"concurrency"`
	Mode        string `yaml:"mode" mapstructure:"mode"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// MQTTConfig configures anomaly alerts. An empty broker disables publishing.
type MQTTConfig struct {
	Broker   string `yaml:"broker" mapstructure:"broker"`
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
	Topic    string `yaml:"topic" mapstructure:"topic"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, file and environment.
func Load() (*Config, error) {
	// .env is optional; real environment variables win over its values.
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ANOMALY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "temp-anomaly.db")
	v.SetDefault("openweather.key", "")
	v.SetDefault("openweather.base_url", "https://api.openweathermap.org/data/2.5")
	v.SetDefault("openweather.units", "metric")
	v.SetDefault("openweather.timeout_secs", 10)
	v.SetDefault("openweather.rate_per_sec", 1.0)
	v.SetDefault("openweather.burst", 5)
	v.SetDefault("openweather.max_retries", 3)
	v.SetDefault("analysis.window", 30)
	v.SetDefault("analysis.encoding", "utf-8")
	v.SetDefault("check.concurrency", 8)
	v.SetDefault("check.mode", "async")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.client_id", "temp-anomaly")
	v.SetDefault("mqtt.topic", "weather/anomaly")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks values that would otherwise fail deep inside a command. Mode selects
// the extra requirements of a command: "analyze", "check", "serve" or "migrate".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not sqlite or postgres", c.Store.Driver))
	}
	if c.Analysis.Window < 1 {
		errs = append(errs, fmt.Sprintf("analysis.window must be >= 1, got %d", c.Analysis.Window))
	}
	switch c.Check.Mode {
	case "sync", "async":
	default:
		errs = append(errs, fmt.Sprintf("check.mode %q is not sync or async", c.Check.Mode))
	}
	if c.Check.Concurrency < 1 || c.Check.Concurrency > 64 {
		errs = append(errs, fmt.Sprintf("check.concurrency must be between 1 and 64, got %d", c.Check.Concurrency))
	}

	switch mode {
	case "analyze", "migrate":
	case "check":
		if c.OpenWeather.Key == "" {
			errs = append(errs, "openweather.key is required")
		}
	case "serve":
		if c.OpenWeather.Key == "" {
			errs = append(errs, "openweather.key is required")
		}
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
