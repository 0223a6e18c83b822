package app

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

// Config represents the runtime configuration for the demo server.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Statsd     StatsdConfig     `mapstructure:"statsd"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Jobs       JobsConfig       `mapstructure:"jobs"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	LogLevel        string        `mapstructure:"log_level"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StatsdConfig configures request tracking and the statsd connection.
// TrackMiddleware is the master switch: when false no metrics are emitted.
type StatsdConfig struct {
	TrackMiddleware bool          `mapstructure:"track_middleware"`
	Prefix          string        `mapstructure:"prefix"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	SampleRate      float64       `mapstructure:"sample_rate"`
	Buffered        bool          `mapstructure:"buffered"`
	FlushInterval   time.Duration `mapstructure:"flush_interval"`
}

// Addr returns the statsd host:port address.
func (c StatsdConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// MonitoringConfig enables metrics endpoints.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig toggles the Prometheus scrape endpoint.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// JobsConfig schedules the built-in background jobs. Empty specs disable
// the job.
type JobsConfig struct {
	Heartbeat string `mapstructure:"heartbeat"`
}

// LoadConfig initialises application configuration using Viper with sensible
// defaults. Environment variables override file values and bind without a
// prefix, so statsd.track_middleware reads STATSD_TRACK_MIDDLEWARE.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	config.Statsd.Prefix = strings.Trim(config.Statsd.Prefix, ".")

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate reports every invalid setting rather than stopping at the first.
func (c *Config) Validate() error {
	var errs error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = multierr.Append(errs, fmt.Errorf("config: server.port %d out of range", c.Server.Port))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("config: server.shutdown_timeout must be positive"))
	}
	if c.Statsd.Port < 1 || c.Statsd.Port > 65535 {
		errs = multierr.Append(errs, fmt.Errorf("config: statsd.port %d out of range", c.Statsd.Port))
	}
	if c.Statsd.SampleRate <= 0 || c.Statsd.SampleRate > 1 {
		errs = multierr.Append(errs, fmt.Errorf("config: statsd.sample_rate %v out of range (0, 1]", c.Statsd.SampleRate))
	}
	if c.Statsd.Buffered && c.Statsd.FlushInterval <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("config: statsd.flush_interval must be positive when buffered"))
	}
	return errs
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("statsd.track_middleware", false)
	v.SetDefault("statsd.prefix", "")
	v.SetDefault("statsd.host", "127.0.0.1")
	v.SetDefault("statsd.port", 8125)
	v.SetDefault("statsd.sample_rate", 1.0)
	v.SetDefault("statsd.buffered", true)
	v.SetDefault("statsd.flush_interval", "300ms")

	v.SetDefault("monitoring.prometheus.enabled", false)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")

	v.SetDefault("jobs.heartbeat", "@every 1m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
