// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ManuGH/replayd/internal/profile"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "replayd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	require.Equal(t, "127.0.0.1:8789", cfg.API.Listen)
	require.Equal(t, 1.0, cfg.Playback.SpeedDefault)
	require.Equal(t, 12, cfg.Playback.PacketCap)
	require.Equal(t, profile.NameSafe, cfg.Profile.Preset)
}

func TestLoadWithoutPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Defaults().API.Listen, cfg.API.Listen)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
logLevel: debug
api:
  listen: "127.0.0.1:9000"
  rateLimit: 30
playback:
  speedDefault: 2.0
  packetCap: 8
profile:
  preset: stealth
telemetry:
  enabled: true
  exporter: grpc
  endpoint: "localhost:4317"
  samplingRate: 0.5
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "127.0.0.1:9000", cfg.API.Listen)
	require.Equal(t, 30, cfg.API.RateLimit)
	require.Equal(t, 2.0, cfg.Playback.SpeedDefault)
	require.Equal(t, 8, cfg.Playback.PacketCap)
	require.Equal(t, profile.NameStealth, cfg.Profile.Preset)
	require.True(t, cfg.Telemetry.Enabled)
	require.Equal(t, "grpc", cfg.Telemetry.Exporter)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvListen, "0.0.0.0:7000")
	t.Setenv(EnvSpeed, "1.5")
	t.Setenv(EnvDataDir, "/var/lib/replayd")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:7000", cfg.API.Listen)
	require.Equal(t, 1.5, cfg.Playback.SpeedDefault)
	require.Equal(t, "/var/lib/replayd", cfg.DataDir)
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*FileConfig)
	}{
		{"empty listen", func(c *FileConfig) { c.API.Listen = "" }},
		{"speed too low", func(c *FileConfig) { c.Playback.SpeedDefault = 0.4 }},
		{"speed too high", func(c *FileConfig) { c.Playback.SpeedDefault = 3.5 }},
		{"zero packet cap", func(c *FileConfig) { c.Playback.PacketCap = 0 }},
		{"zero failure threshold", func(c *FileConfig) { c.Playback.FailureThreshold = 0 }},
		{"unknown preset", func(c *FileConfig) { c.Profile.Preset = "turbo" }},
		{"unknown exporter", func(c *FileConfig) { c.Telemetry.Exporter = "carrier-pigeon" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestResolveProfileOverrides(t *testing.T) {
	cfg := Defaults()
	enabled := false
	jitter := 5
	mix := 0.9
	cfg.Profile = ProfileConfig{
		Preset:      profile.NameAggressive,
		Enabled:     &enabled,
		JitterMaxMs: &jitter,
		MixRatio:    &mix,
	}
	cfg.Playback.PacketCap = 6

	p, err := cfg.ResolveProfile()
	require.NoError(t, err)
	require.Equal(t, profile.NameAggressive, p.Name)
	require.False(t, p.Enabled)
	require.Equal(t, 5*time.Millisecond, p.JitterMax)
	require.Equal(t, 0.9, p.MixRatio)
	require.Equal(t, 6, p.PacketCap)
}

func TestResolveProfileRejectsInvalidOverride(t *testing.T) {
	cfg := Defaults()
	mix := 1.5
	cfg.Profile.MixRatio = &mix
	_, err := cfg.ResolveProfile()
	require.Error(t, err)
}
