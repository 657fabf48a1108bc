package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/eventqueue/pkg/eventqueue/config"
)

const fullYAML = `
name: ui
mode: background
capacity: 100
raise_unhandled_events: false
start_suspended: true
shutdown_timeout: 2s
log:
  level: debug
  format: json
archive:
  driver: sqlite
  path: /tmp/snapshots.db
wire:
  format: text
  verbose: true
metrics: true
tracing: true
`

func TestFromYAML(t *testing.T) {
	cfg, err := config.FromYAML([]byte(fullYAML))
	require.NoError(t, err)

	assert.Equal(t, config.Config{
		Name:                 "ui",
		Mode:                 config.ModeBackground,
		Capacity:             100,
		RaiseUnhandledEvents: false,
		StartSuspended:       true,
		ShutdownTimeout:      2 * time.Second,
		Log:                  config.LogConfig{Level: "debug", Format: "json"},
		Archive:              config.ArchiveConfig{Driver: config.DriverSQLite, Path: "/tmp/snapshots.db"},
		Wire:                 config.WireConfig{Format: "text", Verbose: true},
		Metrics:              true,
		Tracing:              true,
	}, cfg)
	assert.NoError(t, cfg.Validate())
}

func TestFromJSONUsesDefaults(t *testing.T) {
	cfg, err := config.FromJSON([]byte(`{"name":"jobs","capacity":5,"shutdown_timeout":1.5}`))
	require.NoError(t, err)

	want := config.Default()
	want.Name = "jobs"
	want.Capacity = 5
	want.ShutdownTimeout = 1500 * time.Millisecond
	assert.Equal(t, want, cfg)
}

func TestEmptyDocumentIsDefault(t *testing.T) {
	cfg, err := config.FromYAML(nil)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "queue.yml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("name: from-yaml\n"), 0o600))
	cfg, err := config.FromFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "from-yaml", cfg.Name)

	jsonPath := filepath.Join(dir, "queue.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"name":"from-json"}`), 0o600))
	cfg, err = config.FromFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "from-json", cfg.Name)

	_, err = config.FromFile(filepath.Join(dir, "queue.toml"))
	assert.Error(t, err)

	tomlPath := filepath.Join(dir, "queue.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte(`name = "x"`), 0o600))
	_, err = config.FromFile(tomlPath)
	assert.ErrorContains(t, err, "unsupported config file extension")
}

func TestParseErrors(t *testing.T) {
	_, err := config.FromYAML([]byte("name: [unclosed"))
	assert.ErrorContains(t, err, "parse yaml")

	_, err = config.FromJSON([]byte("{"))
	assert.ErrorContains(t, err, "parse json")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		errMsg string
	}{
		{"bad mode", func(c *config.Config) { c.Mode = "eager" }, "mode"},
		{"negative capacity", func(c *config.Config) { c.Capacity = -1 }, "capacity"},
		{"negative timeout", func(c *config.Config) { c.ShutdownTimeout = -time.Second }, "shutdown_timeout"},
		{"bad level", func(c *config.Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad log format", func(c *config.Config) { c.Log.Format = "xml" }, "log.format"},
		{"bad driver", func(c *config.Config) { c.Archive.Driver = "redis" }, "archive.driver"},
		{"sqlite without path", func(c *config.Config) { c.Archive.Driver = config.DriverSQLite }, "archive.path"},
		{"bad wire format", func(c *config.Config) { c.Wire.Format = "xml" }, "wire.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidateReportsAllErrors(t *testing.T) {
	cfg := config.Default()
	cfg.Mode = "eager"
	cfg.Capacity = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mode")
	assert.Contains(t, err.Error(), "capacity")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := config.LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"k":"v"`)

	_, err = config.LogConfig{Level: "loud"}.NewLogger(&buf)
	assert.Error(t, err)
}

func TestValuesAccessors(t *testing.T) {
	v := config.NewValues(map[string]any{
		"s":      "x",
		"i":      3,
		"f":      4.0,
		"frac":   4.5,
		"b":      true,
		"d":      "90s",
		"dsec":   2,
		"nested": map[string]any{"k": "v"},
	})

	assert.True(t, v.Has("s"))
	assert.False(t, v.Has("missing"))
	assert.Equal(t, "x", v.String("s", "def"))
	assert.Equal(t, "def", v.String("i", "def"), "wrong type falls back")
	assert.Equal(t, 3, v.Int("i", 0))
	assert.Equal(t, 4, v.Int("f", 0))
	assert.Equal(t, 7, v.Int("frac", 7), "fractional floats are rejected")
	assert.True(t, v.Bool("b", false))
	assert.Equal(t, 90*time.Second, v.Duration("d", 0))
	assert.Equal(t, 2*time.Second, v.Duration("dsec", 0))
	assert.Equal(t, time.Minute, v.Duration("s", time.Minute))
	assert.Equal(t, "v", v.Section("nested").String("k", ""))
	assert.False(t, v.Section("s").Has("k"))
}
