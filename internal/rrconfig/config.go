// rrdstore - Multimodal Time-Series Storage Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rrdstore

// Package rrconfig loads the store's runtime configuration — GC
// thresholds, wire-format options, and the display timezone — via
// koanf's layered env/file/defaults model, grounded on the donor's
// internal/config package (struct-tag driven koanf.Unmarshal with a
// defaults-then-file-then-env precedence chain).
package rrconfig

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// StoreConfig names the recording this process's chunk store serves and
// the timezone used to render timestamp-kind timelines (spec.md
// §"Environment & config": "recording id at construction; time-zone for
// timestamp rendering").
type StoreConfig struct {
	RecordingID     string `koanf:"recording_id"`
	DisplayTimezone string `koanf:"display_timezone"`
}

// GCConfig mirrors rrgc.GcOptions for loading from the environment.
type GCConfig struct {
	TargetMemoryBytes              int64    `koanf:"target_memory_bytes"`
	ProtectLatestNPerComponent     int      `koanf:"protect_latest_n_per_component"`
	DontProtectTemporalOnTimelines []string `koanf:"dont_protect_temporal_on_timelines"`
	SweepInterval                  time.Duration `koanf:"sweep_interval"`
}

// WireConfig controls optional wire-format compression (spec §4.8).
type WireConfig struct {
	CompressionEnabled bool `koanf:"compression_enabled"`
}

// LoggingConfig mirrors rrlog.Config for loading from the environment.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Config is the top-level configuration struct, unmarshaled via koanf
// struct tags.
type Config struct {
	Store   StoreConfig   `koanf:"store"`
	GC      GCConfig      `koanf:"gc"`
	Wire    WireConfig    `koanf:"wire"`
	Logging LoggingConfig `koanf:"logging"`
}

// DefaultConfigPaths lists the paths searched for an optional YAML
// config file, in priority order.
var DefaultConfigPaths = []string{
	"rrdstore.yaml",
	"rrdstore.yml",
	"/etc/rrdstore/rrdstore.yaml",
}

// ConfigPathEnvVar overrides the searched config file path entirely.
const ConfigPathEnvVar = "RRDSTORE_CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			DisplayTimezone: "UTC",
		},
		GC: GCConfig{
			TargetMemoryBytes:          4 << 30, // 4 GiB
			ProtectLatestNPerComponent: 4,
			SweepInterval:              30 * time.Second,
		},
		Wire: WireConfig{
			CompressionEnabled: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds a Config from defaults, an optional YAML file, and
// environment variables (RRDSTORE_* prefix), in that precedence order —
// the donor's three-layer koanf model (internal/config/koanf.go),
// narrowed to this store's own settings.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}
	if err := splitTimelinesList(k); err != nil {
		return nil, fmt.Errorf("parse gc.dont_protect_temporal_on_timelines: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate configuration: %w", err)
	}

	return cfg, nil
}

// Validate rejects configurations the store cannot safely start with.
func (c *Config) Validate() error {
	if c.GC.TargetMemoryBytes <= 0 {
		return fmt.Errorf("gc.target_memory_bytes must be positive, got %d", c.GC.TargetMemoryBytes)
	}
	if c.GC.ProtectLatestNPerComponent < 0 {
		return fmt.Errorf("gc.protect_latest_n_per_component must not be negative, got %d", c.GC.ProtectLatestNPerComponent)
	}
	if _, err := time.LoadLocation(c.Store.DisplayTimezone); err != nil {
		return fmt.Errorf("store.display_timezone %q: %w", c.Store.DisplayTimezone, err)
	}
	return nil
}

// Location resolves the configured display timezone for
// rrtime.TimeInt.Format.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Store.DisplayTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// splitTimelinesList converts a comma-separated
// RRDSTORE_GC_DONT_PROTECT_TEMPORAL_ON_TIMELINES string (as env vars
// naturally arrive) into a koanf slice value, mirroring the donor's
// processSliceFields step for its own comma-separated env fields.
func splitTimelinesList(k *koanf.Koanf) error {
	const path = "gc.dont_protect_temporal_on_timelines"
	raw, ok := k.Get(path).(string)
	if !ok || raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	trimmed := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			trimmed = append(trimmed, p)
		}
	}
	return k.Set(path, trimmed)
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envVarMappings maps RRDSTORE_-prefixed environment variable names
// (lower-cased, prefix stripped) directly to koanf struct-tag paths,
// mirroring the donor's explicit envMappings table
// (internal/config/koanf.go) over a clever-but-fragile derivation.
var envVarMappings = map[string]string{
	"store_recording_id":                    "store.recording_id",
	"store_display_timezone":                "store.display_timezone",
	"gc_target_memory_bytes":                "gc.target_memory_bytes",
	"gc_protect_latest_n_per_component":      "gc.protect_latest_n_per_component",
	"gc_dont_protect_temporal_on_timelines":  "gc.dont_protect_temporal_on_timelines",
	"gc_sweep_interval":                      "gc.sweep_interval",
	"wire_compression_enabled":               "wire.compression_enabled",
	"logging_level":                          "logging.level",
	"logging_format":                         "logging.format",
	"logging_caller":                         "logging.caller",
}

const envPrefix = "RRDSTORE_"

func envTransformFunc(key string) string {
	lower := toLower(strings.TrimPrefix(key, envPrefix))
	if path, ok := envVarMappings[lower]; ok {
		return path
	}
	return lower
}

func toLower(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c = c - 'A' + 'a'
		}
		out[i] = c
	}
	return string(out)
}
