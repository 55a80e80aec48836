// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package profile defines humanization parameter bundles and the named
// presets the playback engine ships with.
package profile

import (
	"fmt"
	"time"
)

// Preset names.
const (
	NameSafe       = "safe"
	NameAggressive = "aggressive"
	NameStealth    = "stealth"
	NameCustom     = "custom"
)

// Profile configures the humanization engine. It is a value object: an
// active playback session works on its own snapshot and the snapshot is
// never mutated in place.
type Profile struct {
	Name    string
	Enabled bool

	// Per-event timing jitter, zero-mean, clamped to ±JitterMax.
	JitterMax time.Duration

	// Key hold redraw range for paired down/up events.
	KeyHoldMin time.Duration
	KeyHoldMax time.Duration

	// Session drift: multiplicative bias 1±DriftAmplitude evolving over a
	// period drawn from [DriftPeriodMin, DriftPeriodMax].
	DriftAmplitude float64
	DriftPeriodMin time.Duration
	DriftPeriodMax time.Duration

	// Micro-pauses: after a run length drawn from [EveryMin, EveryMax]
	// events, with probability in [ProbMin, ProbMax], insert one pause
	// drawn from [PauseMin, PauseMax].
	MicroPauseProbMin  float64
	MicroPauseProbMax  float64
	MicroPauseMin      time.Duration
	MicroPauseMax      time.Duration
	MicroPauseEveryMin int
	MicroPauseEveryMax int

	// Mouse path synthesis.
	SplineControlMin  int     // control point count lower bound (>= 4)
	SplineControlMax  int     // control point count upper bound (<= 8)
	PerpCorrectionMag float64 // perpendicular micro-correction magnitude
	PacketCap         int     // max pixels per relative-move packet

	// Input mix: probability of keeping the default scan-code encoding;
	// the remainder uses the alternate extended encoding. InsertNulls
	// schedules benign no-op injections between real ones.
	MixRatio    float64
	InsertNulls bool
}

// Defaults shared by the presets, ported from the recorder's tuning.
const (
	defaultJitterMax  = 18 * time.Millisecond
	defaultKeyHoldMin = 50 * time.Millisecond
	defaultKeyHoldMax = 180 * time.Millisecond
	defaultPacketCap  = 12
)

func base(name string) Profile {
	return Profile{
		Name:               name,
		Enabled:            true,
		JitterMax:          defaultJitterMax,
		KeyHoldMin:         defaultKeyHoldMin,
		KeyHoldMax:         defaultKeyHoldMax,
		DriftAmplitude:     0.04,
		DriftPeriodMin:     5 * time.Minute,
		DriftPeriodMax:     30 * time.Minute,
		MicroPauseProbMin:  0.03,
		MicroPauseProbMax:  0.07,
		MicroPauseMin:      150 * time.Millisecond,
		MicroPauseMax:      450 * time.Millisecond,
		MicroPauseEveryMin: 8,
		MicroPauseEveryMax: 25,
		SplineControlMin:   4,
		SplineControlMax:   8,
		PerpCorrectionMag:  2.0,
		PacketCap:          defaultPacketCap,
		MixRatio:           0.85,
	}
}

// Disabled returns the identity profile: playback is exact and deterministic.
func Disabled() Profile {
	p := base(NameCustom)
	p.Enabled = false
	return p
}

// Safe is the conservative preset: gentle jitter, no null injections.
func Safe() Profile {
	p := base(NameSafe)
	p.JitterMax = 8 * time.Millisecond
	p.DriftAmplitude = 0.02
	return p
}

// Aggressive adds stronger jitter and null injections.
func Aggressive() Profile {
	p := base(NameAggressive)
	p.InsertNulls = true
	return p
}

// Stealth is the most varied preset: full jitter range, null injections,
// wider micro-pauses.
func Stealth() Profile {
	p := base(NameStealth)
	p.InsertNulls = true
	p.MicroPauseProbMax = 0.10
	p.MixRatio = 0.80
	return p
}

// ByName resolves a preset by name. Custom resolves to the disabled-identity
// baseline for callers that then overlay user settings.
func ByName(name string) (Profile, error) {
	switch name {
	case NameSafe:
		return Safe(), nil
	case NameAggressive:
		return Aggressive(), nil
	case NameStealth:
		return Stealth(), nil
	case NameCustom, "":
		return Disabled(), nil
	default:
		return Profile{}, fmt.Errorf("unknown profile %q", name)
	}
}

// Validate rejects parameter combinations the engine cannot honor.
func (p Profile) Validate() error {
	if !p.Enabled {
		return nil
	}
	if p.JitterMax < 0 {
		return fmt.Errorf("jitter max must be non-negative")
	}
	if p.KeyHoldMin <= 0 || p.KeyHoldMax < p.KeyHoldMin {
		return fmt.Errorf("key hold range [%s, %s] invalid", p.KeyHoldMin, p.KeyHoldMax)
	}
	if p.DriftAmplitude < 0 || p.DriftAmplitude >= 1 {
		return fmt.Errorf("drift amplitude %f out of range [0,1)", p.DriftAmplitude)
	}
	if p.DriftPeriodMin <= 0 || p.DriftPeriodMax < p.DriftPeriodMin {
		return fmt.Errorf("drift period range invalid")
	}
	if p.MicroPauseProbMin < 0 || p.MicroPauseProbMax > 1 || p.MicroPauseProbMax < p.MicroPauseProbMin {
		return fmt.Errorf("micro-pause probability range invalid")
	}
	if p.MicroPauseEveryMin <= 0 || p.MicroPauseEveryMax < p.MicroPauseEveryMin {
		return fmt.Errorf("micro-pause event window invalid")
	}
	if p.SplineControlMin < 4 || p.SplineControlMax > 8 || p.SplineControlMax < p.SplineControlMin {
		return fmt.Errorf("spline control point range [%d, %d] outside [4, 8]", p.SplineControlMin, p.SplineControlMax)
	}
	if p.PacketCap < 1 {
		return fmt.Errorf("packet cap must be at least 1 pixel")
	}
	if p.MixRatio < 0 || p.MixRatio > 1 {
		return fmt.Errorf("mix ratio %f out of range [0,1]", p.MixRatio)
	}
	return nil
}
