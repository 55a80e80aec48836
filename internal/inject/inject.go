// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package inject is the sole caller of the OS input-injection primitive.
// It synthesizes key and mouse events, tracks which keys it has pressed,
// and can release everything it holds on demand.
package inject

import (
	"errors"
	"fmt"
)

// ErrInjection classifies failed injection calls. A failed injection is a
// recoverable error reported upward, never a fatal abort.
var ErrInjection = errors.New("injection failed")

// DefaultPacketCap is the maximum pixels per relative mouse-move packet.
const DefaultPacketCap = 12

// Backend sends synthesized input to the operating system.
//
// Implementations maintain a held-keys set: every successful key-down is
// recorded, every key-up removes the record. ReleaseAllKeys submits a key-up
// for every recorded key and is idempotent; it is used by emergency stop and
// by normal shutdown.
type Backend interface {
	// SendKey injects one key transition. alt selects the alternate
	// extended-encoding representation where the scan code permits it.
	SendKey(code uint16, down bool, alt bool) error

	// SendMouseMove injects a relative move, splitting deltas larger than
	// the packet cap into multiple packets whose sum is exact.
	SendMouseMove(dx, dy int32) error

	// SendMouseButton injects one button transition.
	SendMouseButton(button uint16, down bool) error

	// SendWheel injects a wheel rotation; delta is in notches, positive up.
	SendWheel(delta int32) error

	// SendNull submits a benign no-op injection call.
	SendNull() error

	// ReleaseAllKeys submits key-up for every key the backend has record of
	// having pressed. Best-effort and exhaustive: individual failures do
	// not stop the sweep.
	ReleaseAllKeys() error

	// HeldKeys returns the scan codes currently recorded as held.
	HeldKeys() []uint16
}

// Options tune backend behavior shared across implementations.
type Options struct {
	// PacketCap bounds pixels per relative-move packet (default 12).
	PacketCap int

	// MaxRate caps injection calls per second; zero means unlimited.
	MaxRate float64

	// UseQPCTime stamps injected events with the high-resolution
	// performance counter instead of 0 (Windows only).
	UseQPCTime bool
}

func (o Options) packetCap() int32 {
	if o.PacketCap < 1 {
		return DefaultPacketCap
	}
	return int32(o.PacketCap)
}

// SplitDelta decomposes a relative move into packets of at most cap pixels
// per axis. The packets always sum to (dx, dy) exactly.
func SplitDelta(dx, dy, cap int32) [][2]int32 {
	if cap < 1 {
		cap = DefaultPacketCap
	}
	var out [][2]int32
	for dx != 0 || dy != 0 {
		stepX := clamp(dx, cap)
		stepY := clamp(dy, cap)
		if stepX == 0 && stepY == 0 {
			stepX = sign(dx)
			stepY = sign(dy)
		}
		out = append(out, [2]int32{stepX, stepY})
		dx -= stepX
		dy -= stepY
	}
	return out
}

func clamp(d, cap int32) int32 {
	if d > cap {
		return cap
	}
	if d < -cap {
		return -cap
	}
	return d
}

func sign(d int32) int32 {
	switch {
	case d > 0:
		return 1
	case d < 0:
		return -1
	default:
		return 0
	}
}

func buttonName(button uint16) string {
	switch button {
	case 1:
		return "left"
	case 2:
		return "right"
	case 3:
		return "middle"
	default:
		return fmt.Sprintf("button-%d", button)
	}
}
