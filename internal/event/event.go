// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package event defines the immutable input event model shared by the
// recorder, the humanization engine and the playback path.
package event

import (
	"fmt"
	"time"
)

// Kind identifies the variant of an input event.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindKeyDown
	KindKeyUp
	KindMouseMove
	KindMouseButtonDown
	KindMouseButtonUp
	KindMouseWheel
)

// String returns the wire name of the kind, stable across releases.
func (k Kind) String() string {
	switch k {
	case KindKeyDown:
		return "key_down"
	case KindKeyUp:
		return "key_up"
	case KindMouseMove:
		return "mouse_move"
	case KindMouseButtonDown:
		return "mouse_down"
	case KindMouseButtonUp:
		return "mouse_up"
	case KindMouseWheel:
		return "mouse_wheel"
	default:
		return "unknown"
	}
}

// KindFromString parses a wire name back into a Kind.
func KindFromString(s string) (Kind, error) {
	switch s {
	case "key_down":
		return KindKeyDown, nil
	case "key_up":
		return KindKeyUp, nil
	case "mouse_move":
		return KindMouseMove, nil
	case "mouse_down":
		return KindMouseButtonDown, nil
	case "mouse_up":
		return KindMouseButtonUp, nil
	case "mouse_wheel":
		return KindMouseWheel, nil
	default:
		return KindUnknown, fmt.Errorf("unknown event kind %q", s)
	}
}

// Mouse button identifiers.
const (
	ButtonLeft   uint16 = 1
	ButtonRight  uint16 = 2
	ButtonMiddle uint16 = 3
)

// MaxMouseDelta bounds a single recorded move so it stays representable in
// one injection packet stream (LONG fields, but clamped well below that).
const MaxMouseDelta = 32767

// Event is one observed or to-be-replayed input action.
//
// Code carries the physical scan code for keyboard events and the logical
// button id for mouse button events; it is never a text character, keeping
// macros independent of keyboard layout. DX/DY are relative mouse deltas.
// Offset is the duration since the previous event in the same macro,
// measured on a monotonic clock. The first event of a macro has Offset 0.
type Event struct {
	Kind   Kind
	Code   uint16
	DX     int32
	DY     int32
	Wheel  int32
	Offset time.Duration
}

// Validate rejects events that could not have been produced by a recording.
func (e Event) Validate() error {
	if e.Offset < 0 {
		return fmt.Errorf("event offset must be non-negative, got %s", e.Offset)
	}
	switch e.Kind {
	case KindKeyDown, KindKeyUp:
		if e.Code == 0 {
			return fmt.Errorf("%s event requires a scan code", e.Kind)
		}
	case KindMouseMove:
		if e.DX > MaxMouseDelta || e.DX < -MaxMouseDelta ||
			e.DY > MaxMouseDelta || e.DY < -MaxMouseDelta {
			return fmt.Errorf("mouse move delta (%d,%d) outside representable range", e.DX, e.DY)
		}
	case KindMouseButtonDown, KindMouseButtonUp:
		switch e.Code {
		case ButtonLeft, ButtonRight, ButtonMiddle:
		default:
			return fmt.Errorf("unknown mouse button id %d", e.Code)
		}
	case KindMouseWheel:
		if e.Wheel == 0 {
			return fmt.Errorf("mouse wheel event requires a non-zero delta")
		}
	default:
		return fmt.Errorf("unknown event kind %d", e.Kind)
	}
	return nil
}

// IsKeyboard reports whether the event targets the keyboard.
func (e Event) IsKeyboard() bool {
	return e.Kind == KindKeyDown || e.Kind == KindKeyUp
}
