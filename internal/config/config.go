// Package config loads skyfix settings from an optional TOML file and the
// environment. Command-line flags are applied on top by the commands.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/naoina/toml"

	"github.com/thurmanmarka/skyfix/internal/logging"
	"github.com/thurmanmarka/skyfix/internal/moon"
	"github.com/thurmanmarka/skyfix/internal/observability"
)

// Duration lets TOML files spell durations as strings ("2s", "500ms").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config is the full set of settings.
type Config struct {
	// LunarModel is "meeus" or "abridged".
	LunarModel string `toml:"lunar_model"`

	// MaxAge makes readings older than this count as missing. Zero accepts
	// any age.
	MaxAge Duration `toml:"max_age"`

	Log     LogConfig                   `toml:"log"`
	Server  ServerConfig                `toml:"server"`
	Replay  ReplayConfig                `toml:"replay"`
	Tracing observability.TracingConfig `toml:"tracing"`
}

// LogConfig mirrors logging.Config.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ServerConfig configures the orientation feed server.
type ServerConfig struct {
	Addr        string `toml:"addr"`
	MetricsPath string `toml:"metrics_path"`
}

// ReplayConfig configures recorded-session replay.
type ReplayConfig struct {
	Hz float64 `toml:"hz"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		LunarModel: moon.Meeus.String(),
		Log:        LogConfig{Level: "info", Format: "text"},
		Server:     ServerConfig{Addr: "127.0.0.1:8470", MetricsPath: "/metrics"},
		Replay:     ReplayConfig{Hz: 60},
		Tracing:    observability.DefaultTracingConfig(),
	}
}

// Load reads a TOML file over the defaults. An empty path returns Default().
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables:
//
//	SKYFIX_LUNAR_MODEL, SKYFIX_MAX_AGE, SKYFIX_ADDR, LOG_LEVEL, LOG_FORMAT
//
// plus the SKYFIX_TRACING_* variables.
func (c Config) ApplyEnv() (Config, error) {
	if v := os.Getenv("SKYFIX_LUNAR_MODEL"); v != "" {
		c.LunarModel = v
	}
	if v := os.Getenv("SKYFIX_MAX_AGE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("SKYFIX_MAX_AGE: %w", err)
		}
		c.MaxAge = Duration{d}
	}
	if v := os.Getenv("SKYFIX_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	c.Tracing = c.Tracing.ApplyEnv()
	return c, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if _, err := moon.ParseModel(c.LunarModel); err != nil {
		errs = append(errs, err)
	}
	if c.MaxAge.Duration < 0 {
		errs = append(errs, fmt.Errorf("max_age must not be negative, got %v", c.MaxAge))
	}
	if c.Replay.Hz < 0 {
		errs = append(errs, fmt.Errorf("replay.hz must not be negative, got %v", c.Replay.Hz))
	}
	if r := c.Tracing.SampleRatio; r < 0 || r > 1 {
		errs = append(errs, fmt.Errorf("tracing.sample_ratio must be in [0, 1], got %v", r))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// Model returns the parsed lunar model.
func (c Config) Model() moon.Model {
	m, _ := moon.ParseModel(c.LunarModel)
	return m
}

// Logger builds the logger described by c.Log.
func (c Config) Logger() logging.Logger {
	return logging.New(logging.Config{Level: c.Log.Level, Format: c.Log.Format})
}
