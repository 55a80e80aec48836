// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package macro

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ManuGH/replayd/internal/event"
)

func sample(name string) Macro {
	return New(name, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), []event.Event{
		{Kind: event.KindKeyDown, Code: 0x1E},
		{Kind: event.KindKeyUp, Code: 0x1E, Offset: 90 * time.Millisecond},
		{Kind: event.KindMouseMove, DX: 40, DY: -12, Offset: 25 * time.Millisecond},
	})
}

func TestNewDerivesDuration(t *testing.T) {
	m := sample("demo")
	require.Equal(t, 115*time.Millisecond, m.Duration)
	require.NoError(t, m.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Macro)
	}{
		{"empty name", func(m *Macro) { m.Name = "" }},
		{"nonzero first offset", func(m *Macro) { m.Events[0].Offset = time.Millisecond }},
		{"duration mismatch", func(m *Macro) { m.Duration += time.Second }},
		{"invalid event", func(m *Macro) { m.Events[1].Code = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := sample("demo")
			tt.mutate(&m)
			err := m.Validate()
			require.Error(t, err)
			require.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

func TestSeedDeterministic(t *testing.T) {
	a := sample("demo")
	b := sample("demo")
	require.Equal(t, a.Seed(), b.Seed())
}

func TestSeedSensitivity(t *testing.T) {
	base := sample("demo")

	renamed := sample("demo-2")
	require.NotEqual(t, base.Seed(), renamed.Seed())

	shifted := sample("demo")
	shifted.Events[2].Offset += time.Millisecond
	require.NotEqual(t, base.Seed(), shifted.Seed())
}

func TestEmpty(t *testing.T) {
	require.True(t, New("x", time.Now(), nil).Empty())
	require.False(t, sample("demo").Empty())
}
