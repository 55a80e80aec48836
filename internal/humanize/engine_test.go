// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package humanize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ManuGH/replayd/internal/event"
	"github.com/ManuGH/replayd/internal/macro"
	"github.com/ManuGH/replayd/internal/profile"
)

func typingMacro(t *testing.T) macro.Macro {
	t.Helper()
	m := macro.New("typing", time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), []event.Event{
		{Kind: event.KindKeyDown, Code: 0x1E},
		{Kind: event.KindKeyUp, Code: 0x1E, Offset: 80 * time.Millisecond},
		{Kind: event.KindKeyDown, Code: 0x30, Offset: 120 * time.Millisecond},
		{Kind: event.KindKeyUp, Code: 0x30, Offset: 95 * time.Millisecond},
		{Kind: event.KindMouseMove, DX: 200, DY: -150, Offset: 60 * time.Millisecond},
		{Kind: event.KindMouseButtonDown, Code: event.ButtonLeft, Offset: 30 * time.Millisecond},
		{Kind: event.KindMouseButtonUp, Code: event.ButtonLeft, Offset: 45 * time.Millisecond},
		{Kind: event.KindMouseWheel, Wheel: -3, Offset: 200 * time.Millisecond},
	})
	require.NoError(t, m.Validate())
	return m
}

func TestTransformDisabledIsIdentity(t *testing.T) {
	m := typingMacro(t)
	out, report, err := Transform(m, profile.Disabled(), 1.0, m.Seed())
	require.NoError(t, err)
	require.Len(t, out, len(m.Events))
	require.False(t, report.Enabled)
	for i, in := range out {
		require.Equal(t, m.Events[i].Offset, in.Delay)
		require.Equal(t, m.Events[i].Kind, in.Action.Kind)
		require.Equal(t, m.Events[i].DX, in.Action.DX)
		require.Equal(t, m.Events[i].DY, in.Action.DY)
		require.False(t, in.AltEncoding)
		require.False(t, in.Null)
	}
	require.Equal(t, m.Duration, report.TotalScheduled)
}

func TestTransformDisabledSpeedScales(t *testing.T) {
	m := typingMacro(t)
	out, _, err := Transform(m, profile.Disabled(), 2.0, m.Seed())
	require.NoError(t, err)
	require.Equal(t, 40*time.Millisecond, out[1].Delay)
	require.Equal(t, 100*time.Millisecond, out[7].Delay)
}

func TestTransformDisabledCumulativeExact(t *testing.T) {
	// Offsets chosen so a per-event division would truncate; the schedule
	// total must equal the scaled duration at every speed regardless.
	m := macro.New("odd", time.Now(), []event.Event{
		{Kind: event.KindKeyDown, Code: 0x1E},
		{Kind: event.KindKeyUp, Code: 0x1E, Offset: 100 * time.Nanosecond},
		{Kind: event.KindKeyDown, Code: 0x30, Offset: 100 * time.Nanosecond},
		{Kind: event.KindKeyUp, Code: 0x30, Offset: 100 * time.Nanosecond},
	})
	require.NoError(t, m.Validate())
	for _, speed := range []float64{0.7, 1.5, 3.0} {
		out, report, err := Transform(m, profile.Disabled(), speed, m.Seed())
		require.NoError(t, err)
		var total time.Duration
		for _, in := range out {
			require.GreaterOrEqual(t, in.Delay, time.Duration(0))
			total += in.Delay
		}
		want := time.Duration(float64(m.Duration) / speed)
		require.Equal(t, want, total, "speed %.2f", speed)
		require.Equal(t, want, report.TotalScheduled, "speed %.2f", speed)
	}
}

func TestTransformDeterministicForSeed(t *testing.T) {
	m := typingMacro(t)
	p := profile.Stealth()
	seed := m.Seed()

	a, ra, err := Transform(m, p, 1.0, seed)
	require.NoError(t, err)
	b, rb, err := Transform(m, p, 1.0, seed)
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Equal(t, ra, rb)

	c, _, err := Transform(m, p, 1.0, seed+1)
	require.NoError(t, err)
	require.NotEqual(t, a, c, "a different seed must produce a different schedule")
}

// netState replays a schedule symbolically and returns final held keys,
// total mouse displacement and total wheel rotation.
func netState(t *testing.T, ins []Instruction) (map[uint16]bool, int32, int32, int32) {
	t.Helper()
	held := make(map[uint16]bool)
	var dx, dy, wheel int32
	for _, in := range ins {
		if in.Null {
			continue
		}
		switch in.Action.Kind {
		case event.KindKeyDown:
			held[in.Action.Code] = true
		case event.KindKeyUp:
			delete(held, in.Action.Code)
		case event.KindMouseMove:
			dx += in.Action.DX
			dy += in.Action.DY
		case event.KindMouseWheel:
			wheel += in.Action.Wheel
		}
	}
	return held, dx, dy, wheel
}

func TestTransformPreservesNetEffect(t *testing.T) {
	m := typingMacro(t)
	for _, p := range []profile.Profile{profile.Safe(), profile.Aggressive(), profile.Stealth()} {
		t.Run(p.Name, func(t *testing.T) {
			out, _, err := Transform(m, p, 1.0, m.Seed())
			require.NoError(t, err)
			held, dx, dy, wheel := netState(t, out)
			require.Empty(t, held, "every pressed key must be released")
			require.Equal(t, int32(200), dx)
			require.Equal(t, int32(-150), dy)
			require.Equal(t, int32(-3), wheel)
		})
	}
}

func TestTransformDelaysNonNegative(t *testing.T) {
	m := typingMacro(t)
	out, _, err := Transform(m, profile.Stealth(), 3.0, m.Seed())
	require.NoError(t, err)
	for i, in := range out {
		require.GreaterOrEqual(t, in.Delay, time.Duration(0), "instruction %d", i)
	}
}

func TestTransformKeyHoldPositive(t *testing.T) {
	// A recorded hold of nearly zero must still be scheduled as a strictly
	// positive hold after the redraw.
	m := macro.New("fast-tap", time.Now(), []event.Event{
		{Kind: event.KindKeyDown, Code: 0x39},
		{Kind: event.KindKeyUp, Code: 0x39, Offset: time.Microsecond},
	})
	for seed := uint64(0); seed < 20; seed++ {
		out, _, err := Transform(m, profile.Safe(), 3.0, seed)
		require.NoError(t, err)
		var downAt, upAt time.Duration
		var elapsed time.Duration
		for _, in := range out {
			elapsed += in.Delay
			if in.Null {
				continue
			}
			switch in.Action.Kind {
			case event.KindKeyDown:
				downAt = elapsed
			case event.KindKeyUp:
				upAt = elapsed
			}
		}
		require.Greater(t, upAt, downAt, "seed %d: key up must follow key down", seed)
	}
}

func TestTransformSplitsOversizedMoves(t *testing.T) {
	m := macro.New("sweep", time.Now(), []event.Event{
		{Kind: event.KindMouseMove, DX: 600, DY: 400},
	})
	p := profile.Safe()
	out, report, err := Transform(m, p, 1.0, m.Seed())
	require.NoError(t, err)
	require.Greater(t, len(out), 1)
	require.Equal(t, 1, report.SplinePaths)
	require.Equal(t, report.SplinePackets, len(out))

	var dx, dy int32
	for _, in := range out {
		require.Equal(t, event.KindMouseMove, in.Action.Kind)
		require.LessOrEqual(t, in.Action.DX, int32(p.PacketCap))
		require.GreaterOrEqual(t, in.Action.DX, int32(-p.PacketCap))
		dx += in.Action.DX
		dy += in.Action.DY
	}
	require.Equal(t, int32(600), dx)
	require.Equal(t, int32(400), dy)
}

func TestTransformRejectsBadSpeed(t *testing.T) {
	m := typingMacro(t)
	for _, speed := range []float64{0, 0.49, 3.01, -1} {
		_, _, err := Transform(m, profile.Disabled(), speed, 1)
		require.Error(t, err, "speed %.2f", speed)
	}
	for _, speed := range []float64{SpeedMin, 1.0, SpeedMax} {
		_, _, err := Transform(m, profile.Disabled(), speed, 1)
		require.NoError(t, err, "speed %.2f", speed)
	}
}

func TestTransformRejectsInvalidProfile(t *testing.T) {
	m := typingMacro(t)
	p := profile.Safe()
	p.MixRatio = 1.5
	_, _, err := Transform(m, p, 1.0, 1)
	require.Error(t, err)
}
