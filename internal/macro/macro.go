// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package macro defines the recorded macro type, its validation rules and
// the per-macro humanization seed derivation.
package macro

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/ManuGH/replayd/internal/event"
)

// ErrCorrupt classifies macros that fail validation. Corrupt macros are
// rejected before any playback attempt, never partially loaded.
var ErrCorrupt = errors.New("corrupt macro")

// Macro is an ordered, immutable-once-saved sequence of events plus metadata.
type Macro struct {
	Name      string
	CreatedAt time.Time
	Duration  time.Duration
	Events    []event.Event
}

// New builds a macro from recorded events, deriving Duration from the
// cumulative event offsets.
func New(name string, createdAt time.Time, events []event.Event) Macro {
	var total time.Duration
	for _, ev := range events {
		total += ev.Offset
	}
	return Macro{Name: name, CreatedAt: createdAt, Duration: total, Events: events}
}

// Validate checks structural invariants. All violations wrap ErrCorrupt.
func (m Macro) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("%w: empty name", ErrCorrupt)
	}
	var total time.Duration
	for i, ev := range m.Events {
		if err := ev.Validate(); err != nil {
			return fmt.Errorf("%w: event %d: %v", ErrCorrupt, i, err)
		}
		if i == 0 && ev.Offset != 0 {
			return fmt.Errorf("%w: first event must have zero offset, got %s", ErrCorrupt, ev.Offset)
		}
		total += ev.Offset
	}
	if m.Duration != total {
		return fmt.Errorf("%w: duration %s does not match cumulative offsets %s", ErrCorrupt, m.Duration, total)
	}
	return nil
}

// Seed derives the deterministic humanization seed from the macro's identity.
// Repeated playback of the same macro reproduces the same humanized schedule.
func (m Macro) Seed() uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(m.Name))
	var buf [8]byte
	for _, ev := range m.Events {
		binary.LittleEndian.PutUint64(buf[:], uint64(ev.Offset))
		_, _ = h.Write(buf[:])
		binary.LittleEndian.PutUint16(buf[:2], ev.Code)
		buf[2] = byte(ev.Kind)
		binary.LittleEndian.PutUint32(buf[3:7], uint32(ev.DX))
		_, _ = h.Write(buf[:7])
		binary.LittleEndian.PutUint32(buf[:4], uint32(ev.DY))
		binary.LittleEndian.PutUint32(buf[4:8], uint32(ev.Wheel))
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}

// Empty reports whether the macro has no events.
func (m Macro) Empty() bool {
	return len(m.Events) == 0
}
