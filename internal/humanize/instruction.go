// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package humanize turns a recorded macro into a playback-ready instruction
// schedule, optionally randomizing timing and mouse trajectories while
// preserving the macro's net effect exactly.
package humanize

import (
	"time"

	"github.com/ManuGH/replayd/internal/event"
)

// Instruction is one playback-ready unit of input. A single recorded mouse
// move may expand into several instructions (spline sub-segments); a key
// down/up pair may be re-timed independently to realize a variable hold.
type Instruction struct {
	// Action describes what to inject. Its Offset field is unused; timing
	// lives in Delay.
	Action event.Event

	// Delay is the scheduled wait before dispatching this instruction,
	// relative to the previous instruction.
	Delay time.Duration

	// AltEncoding selects the alternate, behaviorally-equivalent injection
	// representation (extended scan-code encoding) for this instruction.
	AltEncoding bool

	// Null marks a benign no-op injection inserted purely as a
	// timing-profile variation. It changes no input state.
	Null bool
}

// Report captures the last-applied humanization values of one transform,
// surfaced read-only through the API.
type Report struct {
	Seed           uint64        `json:"seed"`
	Enabled        bool          `json:"enabled"`
	Instructions   int           `json:"instructions"`
	LastJitter     time.Duration `json:"last_jitter_ns"`
	LastKeyHold    time.Duration `json:"last_key_hold_ns"`
	LastDrift      float64       `json:"last_drift"`
	DriftPeriod    time.Duration `json:"drift_period_ns"`
	MicroPauses    int           `json:"micro_pauses"`
	NullsInserted  int           `json:"nulls_inserted"`
	AltEncodings   int           `json:"alt_encodings"`
	SplinePaths    int           `json:"spline_paths"`
	SplinePackets  int           `json:"spline_packets"`
	TotalScheduled time.Duration `json:"total_scheduled_ns"`
}
