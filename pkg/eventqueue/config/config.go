package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// Queue modes.
const (
	ModeManual     = "manual"
	ModeBackground = "background"
)

// Archive drivers.
const (
	DriverNone   = "none"
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Config describes a queue hub.
type Config struct {
	// Name labels the queue in logs, metrics and snapshots.
	Name string `yaml:"name" json:"name"`

	// Mode is "manual" (pull with HandleNext) or "background".
	Mode string `yaml:"mode" json:"mode"`

	// Capacity bounds pending events. 0 means unbounded.
	Capacity int `yaml:"capacity" json:"capacity"`

	// RaiseUnhandledEvents turns handler errors into diagnostic events.
	RaiseUnhandledEvents bool `yaml:"raise_unhandled_events" json:"raise_unhandled_events"`

	// StartSuspended starts the queue with handling suspended.
	StartSuspended bool `yaml:"start_suspended" json:"start_suspended"`

	// ShutdownTimeout bounds how long Close waits for a background queue
	// to drain.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`

	Log     LogConfig     `yaml:"log" json:"log"`
	Archive ArchiveConfig `yaml:"archive" json:"archive"`
	Wire    WireConfig    `yaml:"wire" json:"wire"`

	// Metrics enables OpenTelemetry metrics.
	Metrics bool `yaml:"metrics" json:"metrics"`

	// Tracing enables OpenTelemetry spans.
	Tracing bool `yaml:"tracing" json:"tracing"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level" json:"level"`
	// Format is "text" or "json".
	Format string `yaml:"format" json:"format"`
}

// ArchiveConfig selects the snapshot store.
type ArchiveConfig struct {
	// Driver is none, memory or sqlite.
	Driver string `yaml:"driver" json:"driver"`
	// Path is the SQLite database path.
	Path string `yaml:"path" json:"path"`
}

// WireConfig selects the snapshot encoding.
type WireConfig struct {
	// Format is "binary" or "text".
	Format string `yaml:"format" json:"format"`
	// Verbose writes timestamps as RFC 3339 strings.
	Verbose bool `yaml:"verbose" json:"verbose"`
}

// Default returns the configuration used when nothing is specified.
func Default() Config {
	return Config{
		Name:                 "default",
		Mode:                 ModeManual,
		RaiseUnhandledEvents: true,
		ShutdownTimeout:      5 * time.Second,
		Log:                  LogConfig{Level: "info", Format: "text"},
		Archive:              ArchiveConfig{Driver: DriverMemory},
		Wire:                 WireConfig{Format: "binary"},
	}
}

// FromValues builds a Config from a decoded document, falling back to
// Default for every missing key.
func FromValues(v Values) Config {
	d := Default()
	log := v.Section("log")
	archive := v.Section("archive")
	wire := v.Section("wire")

	return Config{
		Name:                 v.String("name", d.Name),
		Mode:                 v.String("mode", d.Mode),
		Capacity:             v.Int("capacity", d.Capacity),
		RaiseUnhandledEvents: v.Bool("raise_unhandled_events", d.RaiseUnhandledEvents),
		StartSuspended:       v.Bool("start_suspended", d.StartSuspended),
		ShutdownTimeout:      v.Duration("shutdown_timeout", d.ShutdownTimeout),
		Log: LogConfig{
			Level:  log.String("level", d.Log.Level),
			Format: log.String("format", d.Log.Format),
		},
		Archive: ArchiveConfig{
			Driver: archive.String("driver", d.Archive.Driver),
			Path:   archive.String("path", d.Archive.Path),
		},
		Wire: WireConfig{
			Format:  wire.String("format", d.Wire.Format),
			Verbose: wire.Bool("verbose", d.Wire.Verbose),
		},
		Metrics: v.Bool("metrics", d.Metrics),
		Tracing: v.Bool("tracing", d.Tracing),
	}
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error

	switch c.Mode {
	case ModeManual, ModeBackground:
	default:
		errs = append(errs, fmt.Errorf("mode: unknown %q", c.Mode))
	}
	if c.Capacity < 0 {
		errs = append(errs, fmt.Errorf("capacity: must not be negative, got %d", c.Capacity))
	}
	if c.ShutdownTimeout < 0 {
		errs = append(errs, fmt.Errorf("shutdown_timeout: must not be negative, got %s", c.ShutdownTimeout))
	}
	if _, err := c.Log.level(); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown %q", c.Log.Format))
	}
	switch c.Archive.Driver {
	case "", DriverNone, DriverMemory:
	case DriverSQLite:
		if c.Archive.Path == "" {
			errs = append(errs, errors.New("archive.path: required for sqlite"))
		}
	default:
		errs = append(errs, fmt.Errorf("archive.driver: unknown %q", c.Archive.Driver))
	}
	switch strings.ToLower(c.Wire.Format) {
	case "", "binary", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("wire.format: unknown %q", c.Wire.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func (l LogConfig) level() (slog.Level, error) {
	var level slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, err
	}
	return level, nil
}

// NewLogger builds a slog logger writing to w.
func (l LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := l.level()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(l.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
