package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"market-sync/src/helpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
name: market-sync
host: 127.0.0.1
port: 8000
grpc_port: 50051
storage:
  db_type: sqlite
  db_path: test.db
network:
  timeout: 5
backend:
  rest_url: http://127.0.0.1:9000
  push_url: ws://127.0.0.1:9000/ws
view:
  default_symbols: [BTCUSDT, ETHUSDT]
  default_symbol: BTCUSDT
  default_interval: 1h
`

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func Test_NewConfig_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), validYAML)

	cfg, err := NewConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.Backend.SeriesCapacity)
	assert.Equal(t, 1, cfg.Backend.ReconnectDelaySeconds)
	assert.Equal(t, 30, cfg.Backend.MaxReconnectDelaySeconds)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Contains(t, cfg.View.Intervals, "1h")
	assert.True(t, cfg.SupportsInterval("1w"))
	assert.False(t, cfg.SupportsInterval("3d"))
}

func Test_NewConfig_EnvFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, validYAML)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(EnvRestURL+"=http://backend.local:8080\n"), 0644))
	t.Cleanup(func() { os.Unsetenv(EnvRestURL) })

	cfg, err := NewConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://backend.local:8080", cfg.Backend.RestURL)
}

func Test_NewConfig_MissingFile(t *testing.T) {
	_, err := NewConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func Test_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "empty name", mutate: func(c *Config) { c.Name = "" }, wantErr: "application name"},
		{name: "privileged port", mutate: func(c *Config) { c.Port = 80 }, wantErr: "invalid server port"},
		{name: "unknown db", mutate: func(c *Config) { c.Storage.DBType = "mongo" }, wantErr: "unsupported database type"},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Storage.DBType = "postgres" }, wantErr: "connection string"},
		{name: "bad push url", mutate: func(c *Config) { c.Backend.PushURL = "http://x" }, wantErr: "push_url"},
		{name: "zero capacity", mutate: func(c *Config) { c.Backend.SeriesCapacity = -1 }, wantErr: "series capacity"},
		{name: "unknown interval", mutate: func(c *Config) { c.View.Intervals = append(c.View.Intervals, "7m") }, wantErr: "unknown kline interval"},
		{name: "unknown default interval", mutate: func(c *Config) { c.View.DefaultInterval = "3d" }, wantErr: "default interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := NewConfig(writeConfig(t, t.TempDir(), validYAML))
			require.NoError(t, err)

			tt.mutate(cfg)
			err = cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func Test_DefaultViewState(t *testing.T) {
	cfg, err := NewConfig(writeConfig(t, t.TempDir(), validYAML))
	require.NoError(t, err)

	view := cfg.DefaultViewState()
	assert.Equal(t, "dashboard", view.Page)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, view.Symbols)
	assert.Equal(t, "BTCUSDT", view.Symbol)
	assert.Equal(t, "1h", view.Interval)
}

func Test_NewConfig_InvalidIsConfigurationError(t *testing.T) {
	yaml := strings.Replace(validYAML, "port: 8000", "port: 80", 1)
	_, err := NewConfig(writeConfig(t, t.TempDir(), yaml))
	require.Error(t, err)
	assert.Equal(t, helpers.KindConfiguration, helpers.Kind(err))
}
