// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package humanize

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/ManuGH/replayd/internal/event"
	"github.com/ManuGH/replayd/internal/macro"
	"github.com/ManuGH/replayd/internal/profile"
)

// Speed multiplier bounds accepted by the transform.
const (
	SpeedMin = 0.5
	SpeedMax = 3.0
)

const minKeyHold = time.Millisecond

// Transform converts a macro into a playback-ready instruction schedule.
//
// With the profile disabled the transform is the identity: one instruction
// per event, delays telescoped from the scaled cumulative offset so the
// schedule total is exactly the macro duration over speed. With the
// profile enabled the schedule is randomized from the given seed, so the
// same (macro, profile, seed) triple always yields the same schedule.
// The net keyboard state and net mouse displacement of the schedule are
// identical to the raw macro's in both modes; only timing and packetization
// differ.
func Transform(m macro.Macro, p profile.Profile, speed float64, seed uint64) ([]Instruction, Report, error) {
	if speed < SpeedMin || speed > SpeedMax {
		return nil, Report{}, fmt.Errorf("speed %.2f outside [%.1f, %.1f]", speed, SpeedMin, SpeedMax)
	}
	if err := p.Validate(); err != nil {
		return nil, Report{}, fmt.Errorf("invalid profile: %w", err)
	}

	report := Report{Seed: seed, Enabled: p.Enabled}

	if !p.Enabled {
		out := make([]Instruction, 0, len(m.Events))
		// Delays derive from scaled cumulative positions, not per-event
		// division, so truncation telescopes away and the schedule sums to
		// the scaled macro duration exactly.
		var raw, sched time.Duration
		for _, ev := range m.Events {
			raw += ev.Offset
			target := scaleDuration(raw, speed)
			action := ev
			action.Offset = 0
			out = append(out, Instruction{Action: action, Delay: target - sched})
			sched = target
		}
		report.Instructions = len(out)
		report.TotalScheduled = sched
		return out, report, nil
	}

	t := &transformer{
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		profile: p,
		speed:   speed,
		downAt:  make(map[uint16]time.Duration),
		report:  &report,
	}
	t.driftPeriod = t.uniformDuration(p.DriftPeriodMin, p.DriftPeriodMax)
	t.driftPhase = t.rng.Float64() * 2 * math.Pi
	report.DriftPeriod = t.driftPeriod

	out := make([]Instruction, 0, len(m.Events)+len(m.Events)/8)
	for _, ev := range m.Events {
		out = t.emit(out, ev)
	}
	report.Instructions = len(out)
	for _, in := range out {
		report.TotalScheduled += in.Delay
	}
	return out, report, nil
}

// transformer carries the per-transform randomization state. It exists only
// for the duration of one Transform call, keeping the function pure from the
// caller's point of view.
type transformer struct {
	rng     *rand.Rand
	profile profile.Profile
	speed   float64
	report  *Report

	driftPeriod time.Duration
	driftPhase  float64

	baseElapsed  time.Duration // raw schedule position, drives drift
	schedElapsed time.Duration // humanized schedule position
	downAt       map[uint16]time.Duration
	eventCount   int
}

func (t *transformer) emit(out []Instruction, ev event.Event) []Instruction {
	baseDelay := scaleDuration(ev.Offset, t.speed)
	t.baseElapsed += baseDelay

	delay := baseDelay + t.jitter()
	if delay < 0 {
		delay = 0
	}
	delay = time.Duration(float64(delay) * t.drift())
	target := t.schedElapsed + delay

	// Paired key up: redraw the hold interval independently of the recorded
	// one. Never allow the hold to go non-positive, and never let the up
	// dispatch before an instruction already scheduled after the down.
	if ev.Kind == event.KindKeyUp {
		if down, ok := t.downAt[ev.Code]; ok {
			hold := t.uniformDuration(t.profile.KeyHoldMin, t.profile.KeyHoldMax)
			hold = scaleDuration(hold, t.speed)
			t.report.LastKeyHold = hold
			target = down + hold
			if target < t.schedElapsed {
				target = t.schedElapsed
			}
			if target <= down {
				target = down + minKeyHold
			}
			delete(t.downAt, ev.Code)
		}
	}

	if pause, ok := t.microPause(); ok {
		out = append(out, Instruction{
			Action: event.Event{Kind: event.KindMouseMove},
			Delay:  pause,
			Null:   true,
		})
		t.report.MicroPauses++
		t.schedElapsed += pause
		target += pause
	}

	if t.profile.InsertNulls && (ev.IsKeyboard() || ev.Kind == event.KindMouseMove) {
		for i := 1 + t.rng.IntN(2); i > 0; i-- {
			out = append(out, Instruction{
				Action: event.Event{Kind: event.KindMouseMove},
				Null:   true,
			})
			t.report.NullsInserted++
		}
	}

	if ev.Kind == event.KindMouseMove && t.oversized(ev) {
		return t.emitSpline(out, ev, target)
	}

	action := ev
	action.Offset = 0
	in := Instruction{Action: action, Delay: target - t.schedElapsed}
	if ev.IsKeyboard() && t.rng.Float64() >= t.profile.MixRatio {
		in.AltEncoding = true
		t.report.AltEncodings++
	}
	if ev.Kind == event.KindKeyDown {
		t.downAt[ev.Code] = target
	}
	t.schedElapsed = target
	return append(out, in)
}

// emitSpline expands one oversized mouse move into a curved packet sequence.
// The first packet inherits the event's scheduled delay; later packets are
// spaced by sub-millisecond gaps so the move reads as continuous motion.
func (t *transformer) emitSpline(out []Instruction, ev event.Event, target time.Duration) []Instruction {
	nCtrl := t.profile.SplineControlMin
	if span := t.profile.SplineControlMax - t.profile.SplineControlMin; span > 0 {
		nCtrl += t.rng.IntN(span + 1)
	}
	packets := naturalMousePath(ev.DX, ev.DY, nCtrl, t.profile.PacketCap, t.profile.PerpCorrectionMag, t.rng)
	t.report.SplinePaths++
	t.report.SplinePackets += len(packets)

	for i, pk := range packets {
		delay := target - t.schedElapsed
		if i > 0 {
			delay = t.uniformDuration(500*time.Microsecond, 2*time.Millisecond)
			delay = scaleDuration(delay, t.speed)
		}
		out = append(out, Instruction{
			Action: event.Event{Kind: event.KindMouseMove, DX: pk.dx, DY: pk.dy},
			Delay:  delay,
		})
		t.schedElapsed += delay
	}
	return out
}

func (t *transformer) oversized(ev event.Event) bool {
	cap32 := int32(t.profile.PacketCap)
	return ev.DX > cap32 || ev.DX < -cap32 || ev.DY > cap32 || ev.DY < -cap32
}

// jitter draws a zero-mean, clamped timing perturbation.
func (t *transformer) jitter() time.Duration {
	if t.profile.JitterMax <= 0 {
		return 0
	}
	sigma := float64(t.profile.JitterMax) / 3.0
	j := time.Duration(t.rng.NormFloat64() * sigma)
	if j > t.profile.JitterMax {
		j = t.profile.JitterMax
	} else if j < -t.profile.JitterMax {
		j = -t.profile.JitterMax
	}
	t.report.LastJitter = j
	return j
}

// drift is the slowly varying session bias, evaluated against the raw
// schedule position so the transform stays a pure function of its inputs.
func (t *transformer) drift() float64 {
	phase := t.driftPhase + 2*math.Pi*float64(t.baseElapsed)/float64(t.driftPeriod)
	f := 1.0 + t.profile.DriftAmplitude*math.Sin(phase)
	t.report.LastDrift = f
	return f
}

// microPause occasionally asks for one extra no-op delay: after a run length
// drawn from the configured event-count window, with the configured
// probability.
func (t *transformer) microPause() (time.Duration, bool) {
	t.eventCount++
	every := t.profile.MicroPauseEveryMin
	if span := t.profile.MicroPauseEveryMax - t.profile.MicroPauseEveryMin; span > 0 {
		every += t.rng.IntN(span + 1)
	}
	if t.eventCount%every != 0 {
		return 0, false
	}
	prob := t.profile.MicroPauseProbMin +
		(t.profile.MicroPauseProbMax-t.profile.MicroPauseProbMin)*t.rng.Float64()
	if t.rng.Float64() >= prob {
		return 0, false
	}
	pause := t.uniformDuration(t.profile.MicroPauseMin, t.profile.MicroPauseMax)
	return scaleDuration(pause, t.speed), true
}

func (t *transformer) uniformDuration(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(t.rng.Int64N(int64(hi-lo)))
}

func scaleDuration(d time.Duration, speed float64) time.Duration {
	if speed == 1.0 {
		return d
	}
	return time.Duration(float64(d) / speed)
}
