// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package config loads the dsh configuration file.
//
// The file is YAML:
//
//	log:
//	  level: info        # debug, info, warn, error
//	  format: pretty     # pretty or json
//	trace:
//	  enabled: true
//	  program: /usr/bin/strace
//	  dir: /var/tmp
//	metrics:
//	  file: /var/lib/node_exporter/dsh.prom
//	timeout: 30s
//
// Every key is optional.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/matt-FFFFFF/dsh/internal/ctxlog"
	"github.com/matt-FFFFFF/dsh/internal/session"
	"github.com/spf13/afero"
)

// DefaultTraceProgram is used when tracing is enabled without a program.
const DefaultTraceProgram = "/usr/bin/strace"

var (
	ErrConfigNotFound   = errors.New("config file not found")
	ErrInvalidYaml      = errors.New("invalid YAML")
	ErrInvalidLogLevel  = errors.New("invalid log level")
	ErrInvalidLogFormat = errors.New("invalid log format")
	ErrInvalidTimeout   = errors.New("invalid timeout")
)

// Definition is the file as written.
type Definition struct {
	Log     LogDefinition     `yaml:"log"`
	Trace   TraceDefinition   `yaml:"trace"`
	Metrics MetricsDefinition `yaml:"metrics"`
	Timeout string            `yaml:"timeout"`
}

// LogDefinition is the log section.
type LogDefinition struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TraceDefinition is the trace section.
type TraceDefinition struct {
	Enabled bool   `yaml:"enabled"`
	Program string `yaml:"program"`
	Dir     string `yaml:"dir"`
}

// MetricsDefinition is the metrics section.
type MetricsDefinition struct {
	File string `yaml:"file"`
}

// Config is a validated Definition with defaults applied.
type Config struct {
	LogLevel    slog.Level
	LogLevelSet bool
	LogFormat   string
	Trace       session.TraceConfig
	MetricsFile string
	Timeout     time.Duration
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel:  slog.LevelWarn,
		LogFormat: "pretty",
	}
}

// Load reads and validates the file at path through FsFactory.
// An empty path returns Default().
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := afero.ReadFile(FsFactory(), path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}

		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	return Parse(data)
}

// Parse validates YAML configuration data.
func Parse(data []byte) (*Config, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYaml, err) //nolint:errorlint
	}

	return def.Build()
}

// Build applies defaults and validates the definition.
func (d Definition) Build() (*Config, error) {
	c := Default()

	if d.Log.Level != "" {
		lvl, ok := ctxlog.ParseLevel(d.Log.Level)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidLogLevel, d.Log.Level)
		}

		c.LogLevel, c.LogLevelSet = lvl, true
	}

	switch f := strings.ToLower(d.Log.Format); f {
	case "":
	case "pretty", "json":
		c.LogFormat = f
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidLogFormat, d.Log.Format)
	}

	c.Trace = session.TraceConfig{
		Enabled: d.Trace.Enabled,
		Program: d.Trace.Program,
		Dir:     d.Trace.Dir,
	}
	if c.Trace.Enabled && c.Trace.Program == "" {
		c.Trace.Program = DefaultTraceProgram
	}

	c.MetricsFile = d.Metrics.File

	if d.Timeout != "" {
		t, err := time.ParseDuration(d.Timeout)
		if err != nil || t <= 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTimeout, d.Timeout)
		}

		c.Timeout = t
	}

	return c, nil
}
