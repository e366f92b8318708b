// Package config loads the optional recompose.yaml file that tunes a
// scheduler: hook-order assertions, logging and tick tracing.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/go-drift/recompose/pkg/core"
	"github.com/go-drift/recompose/pkg/logging"
)

// FileName is the name of the configuration file.
const FileName = "recompose.yaml"

// Defaults applied by Resolve.
const (
	DefaultVersion        = "v1.0.0"
	DefaultLogFormat      = "text"
	DefaultTraceSamples   = 120
	DefaultTraceThreshold = 10 * time.Millisecond
	DefaultNamespace      = "recompose"
)

// Config represents the optional recompose.yaml configuration.
type Config struct {
	Version string        `yaml:"version,omitempty"`
	Debug   *bool         `yaml:"debug,omitempty"`
	Log     LogConfig     `yaml:"log"`
	Trace   TraceConfig   `yaml:"trace"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// TraceConfig contains tick trace settings.
type TraceConfig struct {
	Samples   *int   `yaml:"samples,omitempty"`
	Threshold string `yaml:"threshold,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	Namespace string `yaml:"namespace,omitempty"`
}

// Resolved contains resolved configuration values.
type Resolved struct {
	Root             string
	Version          string
	Debug            bool
	LogLevel         slog.Level
	LogFormat        string
	TraceSamples     int
	TraceThreshold   time.Duration
	MetricsNamespace string
}

// LoadOptional reads recompose.yaml from dir if present. A missing file
// yields an empty Config.
func LoadOptional(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	}
	return Parse(data)
}

// Parse decodes a recompose.yaml document. Unknown fields are rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}
	return &cfg, nil
}

// Resolve loads recompose.yaml from dir (if present) and resolves defaults.
func Resolve(dir string) (*Resolved, error) {
	cfg, err := LoadOptional(dir)
	if err != nil {
		return nil, err
	}
	resolved, err := cfg.Resolve()
	if err != nil {
		return nil, err
	}
	resolved.Root = dir
	return resolved, nil
}

// Resolve validates cfg and fills in defaults.
func (cfg *Config) Resolve() (*Resolved, error) {
	version := strings.TrimSpace(cfg.Version)
	if version == "" {
		version = DefaultVersion
	}
	if err := validateVersion(version); err != nil {
		return nil, err
	}

	debug := core.DebugMode
	if cfg.Debug != nil {
		debug = *cfg.Debug
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}

	format := strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	switch format {
	case "":
		format = DefaultLogFormat
	case "text", "json":
	default:
		return nil, fmt.Errorf("log.format: unknown format %q (want text or json)", cfg.Log.Format)
	}

	samples := DefaultTraceSamples
	if cfg.Trace.Samples != nil {
		samples = *cfg.Trace.Samples
		if samples < 0 {
			return nil, fmt.Errorf("trace.samples: must not be negative, got %d", samples)
		}
	}

	threshold := DefaultTraceThreshold
	if s := strings.TrimSpace(cfg.Trace.Threshold); s != "" {
		threshold, err = time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("trace.threshold: %w", err)
		}
	}

	namespace := strings.TrimSpace(cfg.Metrics.Namespace)
	if namespace == "" {
		namespace = DefaultNamespace
	}

	return &Resolved{
		Version:          semver.Canonical(version),
		Debug:            debug,
		LogLevel:         level,
		LogFormat:        format,
		TraceSamples:     samples,
		TraceThreshold:   threshold,
		MetricsNamespace: sanitizeNamespace(namespace),
	}, nil
}

// Logger builds the logger described by the configuration.
func (r *Resolved) Logger() *slog.Logger {
	return logging.New(r.LogLevel, r.LogFormat)
}

// SchedulerOptions translates the configuration to scheduler options. The
// observers are attached in order.
func (r *Resolved) SchedulerOptions(observers ...core.TickObserver) []core.Option {
	opts := []core.Option{
		core.WithDebug(r.Debug),
		core.WithLogger(r.Logger()),
	}
	for _, o := range observers {
		opts = append(opts, core.WithObserver(o))
	}
	return opts
}

// FindRoot walks up from dir to the first directory containing
// recompose.yaml. It returns dir itself when no such directory exists.
func FindRoot(dir string) string {
	current := dir
	for {
		if _, err := os.Stat(filepath.Join(current, FileName)); err == nil {
			return current
		}
		parent := filepath.Dir(current)
		if parent == current {
			return dir
		}
		current = parent
	}
}

func validateVersion(version string) error {
	if !semver.IsValid(version) {
		return fmt.Errorf("version: %q is not a semantic version (e.g. v1.0.0)", version)
	}
	if semver.Major(version) != "v1" {
		return fmt.Errorf("version: %s is not supported (want v1.x)", version)
	}
	return nil
}

// sanitizeNamespace makes s a valid Prometheus metric name prefix.
func sanitizeNamespace(s string) string {
	var out []rune
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			out = append(out, r)
		case r >= '0' && r <= '9':
			if i == 0 {
				out = append(out, '_')
			}
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
