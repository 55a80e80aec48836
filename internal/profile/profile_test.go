// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package profile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPresetsValidate(t *testing.T) {
	for _, p := range []Profile{Safe(), Aggressive(), Stealth(), Disabled()} {
		require.NoError(t, p.Validate(), "preset %s", p.Name)
	}
}

func TestByName(t *testing.T) {
	p, err := ByName(NameSafe)
	require.NoError(t, err)
	require.Equal(t, NameSafe, p.Name)
	require.True(t, p.Enabled)

	p, err = ByName("")
	require.NoError(t, err)
	require.False(t, p.Enabled)

	_, err = ByName("ludicrous")
	require.Error(t, err)
}

func TestPresetCharacter(t *testing.T) {
	require.Less(t, Safe().JitterMax, Stealth().JitterMax)
	require.False(t, Safe().InsertNulls)
	require.True(t, Aggressive().InsertNulls)
	require.True(t, Stealth().InsertNulls)
	require.Less(t, Stealth().MixRatio, Safe().MixRatio)
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Profile)
	}{
		{"negative jitter", func(p *Profile) { p.JitterMax = -time.Millisecond }},
		{"inverted key hold", func(p *Profile) { p.KeyHoldMin = 200 * time.Millisecond; p.KeyHoldMax = 100 * time.Millisecond }},
		{"drift amplitude too large", func(p *Profile) { p.DriftAmplitude = 1.0 }},
		{"spline points below four", func(p *Profile) { p.SplineControlMin = 3 }},
		{"spline points above eight", func(p *Profile) { p.SplineControlMax = 9 }},
		{"zero packet cap", func(p *Profile) { p.PacketCap = 0 }},
		{"mix ratio above one", func(p *Profile) { p.MixRatio = 1.1 }},
		{"micro pause window", func(p *Profile) { p.MicroPauseEveryMin = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Safe()
			tt.mutate(&p)
			require.Error(t, p.Validate())
		})
	}
}

func TestDisabledSkipsParameterValidation(t *testing.T) {
	p := Disabled()
	p.MixRatio = 42
	require.NoError(t, p.Validate())
}
