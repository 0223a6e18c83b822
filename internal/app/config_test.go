package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "info", cfg.Server.LogLevel)
	require.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout)

	require.False(t, cfg.Statsd.TrackMiddleware)
	require.Empty(t, cfg.Statsd.Prefix)
	require.Equal(t, "127.0.0.1:8125", cfg.Statsd.Addr())
	require.Equal(t, 1.0, cfg.Statsd.SampleRate)
	require.True(t, cfg.Statsd.Buffered)
	require.Equal(t, 300*time.Millisecond, cfg.Statsd.FlushInterval)

	require.False(t, cfg.Monitoring.Prometheus.Enabled)
	require.Equal(t, "/metrics", cfg.Monitoring.Prometheus.Endpoint)

	require.Equal(t, "@every 1m", cfg.Jobs.Heartbeat)
}

func TestLoadConfigFromFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("testdata"))
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)

	require.True(t, cfg.Statsd.TrackMiddleware)
	require.Equal(t, "server.app", cfg.Statsd.Prefix)
	require.Equal(t, "statsd.example.com:9125", cfg.Statsd.Addr())
	require.Equal(t, 0.5, cfg.Statsd.SampleRate)
	require.True(t, cfg.Statsd.Buffered)
	require.Equal(t, 250*time.Millisecond, cfg.Statsd.FlushInterval)

	require.True(t, cfg.Monitoring.Prometheus.Enabled)
	require.Equal(t, "/metrics", cfg.Monitoring.Prometheus.Endpoint)

	require.Equal(t, "@every 30s", cfg.Jobs.Heartbeat)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("STATSD_TRACK_MIDDLEWARE", "true")
	t.Setenv("STATSD_PREFIX", ".server.app.")
	t.Setenv("STATSD_SAMPLE_RATE", "0.25")
	t.Setenv("SERVER_PORT", "9999")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.True(t, cfg.Statsd.TrackMiddleware)
	require.Equal(t, "server.app", cfg.Statsd.Prefix)
	require.Equal(t, 0.25, cfg.Statsd.SampleRate)
	require.Equal(t, 9999, cfg.Server.Port)
}

func TestLoadConfigRejectsInvalidSettings(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte("statsd:\n  sample_rate: 2.0\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	_, err := LoadConfig(dir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "sample_rate")
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "server port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: "server.port"},
		{name: "shutdown timeout", mutate: func(c *Config) { c.Server.ShutdownTimeout = 0 }, wantErr: "shutdown_timeout"},
		{name: "statsd port", mutate: func(c *Config) { c.Statsd.Port = 70000 }, wantErr: "statsd.port"},
		{name: "sample rate zero", mutate: func(c *Config) { c.Statsd.SampleRate = 0 }, wantErr: "sample_rate"},
		{name: "sample rate above one", mutate: func(c *Config) { c.Statsd.SampleRate = 1.5 }, wantErr: "sample_rate"},
		{name: "flush interval", mutate: func(c *Config) { c.Statsd.FlushInterval = 0 }, wantErr: "flush_interval"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := LoadConfig(t.TempDir())
			require.NoError(t, err)

			tc.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
