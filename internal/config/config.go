// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package config provides configuration management for replayd.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ManuGH/replayd/internal/humanize"
	"github.com/ManuGH/replayd/internal/profile"
)

// Environment override variables.
const (
	EnvListen   = "REPLAYD_LISTEN"
	EnvLogLevel = "REPLAYD_LOG_LEVEL"
	EnvDataDir  = "REPLAYD_DATA_DIR"
	EnvSpeed    = "REPLAYD_SPEED"
)

// FileConfig represents the YAML configuration structure.
type FileConfig struct {
	DataDir  string `yaml:"dataDir,omitempty"`
	LogLevel string `yaml:"logLevel,omitempty"`

	API       APIConfig       `yaml:"api"`
	Playback  PlaybackConfig  `yaml:"playback"`
	Profile   ProfileConfig   `yaml:"profile,omitempty"`
	Telemetry TelemetryConfig `yaml:"telemetry,omitempty"`
}

// APIConfig holds the HTTP command surface settings.
type APIConfig struct {
	Listen    string `yaml:"listen,omitempty"`    // e.g. "127.0.0.1:8789"
	RateLimit int    `yaml:"rateLimit,omitempty"` // requests per minute per IP
}

// PlaybackConfig holds playback engine settings.
type PlaybackConfig struct {
	SpeedDefault     float64 `yaml:"speedDefault,omitempty"`
	PacketCap        int     `yaml:"packetCap,omitempty"`
	FailureThreshold int     `yaml:"failureThreshold,omitempty"`
	MaxInjectionRate float64 `yaml:"maxInjectionRate,omitempty"` // calls/sec, 0 = unlimited
	UseQPCTime       bool    `yaml:"useQpcTime,omitempty"`
}

// ProfileConfig selects a humanization preset plus custom overrides.
type ProfileConfig struct {
	Preset      string   `yaml:"preset,omitempty"` // safe | aggressive | stealth | custom
	Enabled     *bool    `yaml:"enabled,omitempty"`
	JitterMaxMs *int     `yaml:"jitterMaxMs,omitempty"`
	KeyHoldMin  *int     `yaml:"keyHoldMinMs,omitempty"`
	KeyHoldMax  *int     `yaml:"keyHoldMaxMs,omitempty"`
	MixRatio    *float64 `yaml:"mixRatio,omitempty"`
	InsertNulls *bool    `yaml:"insertNulls,omitempty"`
}

// TelemetryConfig holds OTLP tracing settings.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled,omitempty"`
	Exporter     string  `yaml:"exporter,omitempty"` // grpc | http | noop
	Endpoint     string  `yaml:"endpoint,omitempty"`
	SamplingRate float64 `yaml:"samplingRate,omitempty"`
}

// Defaults returns the baseline configuration.
func Defaults() FileConfig {
	return FileConfig{
		LogLevel: "info",
		API: APIConfig{
			Listen:    "127.0.0.1:8789",
			RateLimit: 120,
		},
		Playback: PlaybackConfig{
			SpeedDefault:     1.0,
			PacketCap:        12,
			FailureThreshold: 10,
		},
		Profile: ProfileConfig{
			Preset: profile.NameSafe,
		},
		Telemetry: TelemetryConfig{
			Exporter:     "noop",
			SamplingRate: 1.0,
		},
	}
}

// Load reads the YAML file at path (optional) and applies environment
// overrides on top of the defaults.
func Load(path string) (FileConfig, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *FileConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvListen)); v != "" {
		cfg.API.Listen = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDataDir)); v != "" {
		cfg.DataDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvSpeed)); v != "" {
		if speed, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Playback.SpeedDefault = speed
		}
	}
}

// Validate rejects configurations the daemon cannot run with.
func (c FileConfig) Validate() error {
	if c.API.Listen == "" {
		return fmt.Errorf("api.listen must not be empty")
	}
	if c.Playback.SpeedDefault < humanize.SpeedMin || c.Playback.SpeedDefault > humanize.SpeedMax {
		return fmt.Errorf("playback.speedDefault %.2f outside [%.1f, %.1f]",
			c.Playback.SpeedDefault, humanize.SpeedMin, humanize.SpeedMax)
	}
	if c.Playback.PacketCap < 1 {
		return fmt.Errorf("playback.packetCap must be at least 1")
	}
	if c.Playback.FailureThreshold < 1 {
		return fmt.Errorf("playback.failureThreshold must be at least 1")
	}
	if _, err := c.ResolveProfile(); err != nil {
		return err
	}
	switch c.Telemetry.Exporter {
	case "", "noop", "grpc", "http":
	default:
		return fmt.Errorf("telemetry.exporter %q not one of noop, grpc, http", c.Telemetry.Exporter)
	}
	return nil
}

// ResolveProfile builds the effective humanization profile from the preset
// plus any custom overrides.
func (c FileConfig) ResolveProfile() (profile.Profile, error) {
	p, err := profile.ByName(c.Profile.Preset)
	if err != nil {
		return profile.Profile{}, err
	}
	if c.Profile.Enabled != nil {
		p.Enabled = *c.Profile.Enabled
	}
	if c.Profile.JitterMaxMs != nil {
		p.JitterMax = time.Duration(*c.Profile.JitterMaxMs) * time.Millisecond
	}
	if c.Profile.KeyHoldMin != nil {
		p.KeyHoldMin = time.Duration(*c.Profile.KeyHoldMin) * time.Millisecond
	}
	if c.Profile.KeyHoldMax != nil {
		p.KeyHoldMax = time.Duration(*c.Profile.KeyHoldMax) * time.Millisecond
	}
	if c.Profile.MixRatio != nil {
		p.MixRatio = *c.Profile.MixRatio
	}
	if c.Profile.InsertNulls != nil {
		p.InsertNulls = *c.Profile.InsertNulls
	}
	p.PacketCap = c.Playback.PacketCap
	if err := p.Validate(); err != nil {
		return profile.Profile{}, fmt.Errorf("profile: %w", err)
	}
	return p, nil
}
