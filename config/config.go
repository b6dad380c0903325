// Copyright (C) 2025 Reelmind (dev@reelmind.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads service configuration from a YAML file with
// environment variable overrides. Secrets (the OpenAI API key) never
// live in the file; they come from the environment or container
// secrets only.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings such
// as "30s" or "1h".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Weaviate  WeaviateConfig  `yaml:"weaviate"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Memory    MemoryConfig    `yaml:"memory"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// WeaviateConfig locates the vector index.
type WeaviateConfig struct {
	URL string `yaml:"url"`
}

// PipelineConfig holds orchestration tunables.
type PipelineConfig struct {
	TopK              int      `yaml:"top_k"`
	ExtractTimeout    Duration `yaml:"extract_timeout"`
	SearchTimeout     Duration `yaml:"search_timeout"`
	CompletionTimeout Duration `yaml:"completion_timeout"`
}

// MemoryConfig holds session memory settings.
type MemoryConfig struct {
	Capacity        int      `yaml:"capacity"`
	SessionTTL      Duration `yaml:"session_ttl"`
	JanitorInterval Duration `yaml:"janitor_interval"`
}

// TelemetryConfig holds tracing settings.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Server:   ServerConfig{Port: 8080},
		Weaviate: WeaviateConfig{URL: "http://localhost:8081"},
		Pipeline: PipelineConfig{
			TopK:              5,
			ExtractTimeout:    Duration(10 * time.Second),
			SearchTimeout:     Duration(5 * time.Second),
			CompletionTimeout: Duration(30 * time.Second),
		},
		Memory: MemoryConfig{
			Capacity:        10,
			SessionTTL:      Duration(time.Hour),
			JanitorInterval: Duration(5 * time.Minute),
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: "localhost:4317",
			ServiceName:  "reelmind",
		},
	}
}

// Load reads configuration from path, starting from the defaults.
// A missing file is not an error; the defaults plus environment
// overrides are used. A present but malformed file is an error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
			slog.Info("Loaded config file", "path", path)
		case os.IsNotExist(err):
			slog.Info("Config file not found, using defaults", "path", path)
		default:
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

// applyEnvOverrides lets the environment win over the file for the
// settings that commonly differ between deployments.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("REELMIND_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("WEAVIATE_URL"); v != "" {
		cfg.Weaviate.URL = v
	}
	if v := os.Getenv("OTLP_ENDPOINT"); v != "" {
		cfg.Telemetry.OTLPEndpoint = v
	}
	if v := os.Getenv("SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Memory.SessionTTL = Duration(d)
		}
	}
	if v := os.Getenv("SEARCH_TOP_K"); v != "" {
		if k, err := strconv.Atoi(v); err == nil {
			cfg.Pipeline.TopK = k
		}
	}
}
