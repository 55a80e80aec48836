// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package inject

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ManuGH/replayd/internal/event"
)

// Dispatch records one injection call received by the memory backend.
type Dispatch struct {
	Kind  event.Kind
	Code  uint16
	DX    int32
	DY    int32
	Wheel int32
	Alt   bool
	Null  bool
}

// Memory is an in-process Backend that records every dispatch instead of
// touching the OS. It backs tests and non-Windows builds.
type Memory struct {
	mu         sync.Mutex
	opts       Options
	held       map[uint16]struct{}
	dispatches []Dispatch

	// FailNext, when set, makes the next n injection calls fail.
	failNext int
}

// NewMemory builds a recording backend.
func NewMemory(opts Options) *Memory {
	return &Memory{opts: opts, held: make(map[uint16]struct{})}
}

// FailNext makes the next n injection calls return ErrInjection.
func (m *Memory) FailNext(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = n
}

func (m *Memory) maybeFail() error {
	if m.failNext > 0 {
		m.failNext--
		return fmt.Errorf("%w: simulated failure", ErrInjection)
	}
	return nil
}

// SendKey implements Backend.
func (m *Memory) SendKey(code uint16, down bool, alt bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.maybeFail(); err != nil {
		return err
	}
	kind := event.KindKeyUp
	if down {
		kind = event.KindKeyDown
		m.held[code] = struct{}{}
	} else {
		delete(m.held, code)
	}
	m.dispatches = append(m.dispatches, Dispatch{Kind: kind, Code: code, Alt: alt})
	return nil
}

// SendMouseMove implements Backend, chunking to the packet cap.
func (m *Memory) SendMouseMove(dx, dy int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, pk := range SplitDelta(dx, dy, m.opts.packetCap()) {
		if err := m.maybeFail(); err != nil {
			return err
		}
		m.dispatches = append(m.dispatches, Dispatch{Kind: event.KindMouseMove, DX: pk[0], DY: pk[1]})
	}
	return nil
}

// SendMouseButton implements Backend.
func (m *Memory) SendMouseButton(button uint16, down bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.maybeFail(); err != nil {
		return err
	}
	kind := event.KindMouseButtonUp
	if down {
		kind = event.KindMouseButtonDown
	}
	m.dispatches = append(m.dispatches, Dispatch{Kind: kind, Code: button})
	return nil
}

// SendWheel implements Backend.
func (m *Memory) SendWheel(delta int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.maybeFail(); err != nil {
		return err
	}
	m.dispatches = append(m.dispatches, Dispatch{Kind: event.KindMouseWheel, Wheel: delta})
	return nil
}

// SendNull implements Backend.
func (m *Memory) SendNull() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.maybeFail(); err != nil {
		return err
	}
	m.dispatches = append(m.dispatches, Dispatch{Kind: event.KindMouseMove, Null: true})
	return nil
}

// ReleaseAllKeys implements Backend. Errors on individual releases do not
// stop the sweep; the held set is always empty afterwards.
func (m *Memory) ReleaseAllKeys() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var errs []error
	for code := range m.held {
		if err := m.maybeFail(); err != nil {
			errs = append(errs, err)
		} else {
			m.dispatches = append(m.dispatches, Dispatch{Kind: event.KindKeyUp, Code: code})
		}
		delete(m.held, code)
	}
	return errors.Join(errs...)
}

// HeldKeys implements Backend.
func (m *Memory) HeldKeys() []uint16 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]uint16, 0, len(m.held))
	for code := range m.held {
		out = append(out, code)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Dispatches returns a copy of everything injected so far.
func (m *Memory) Dispatches() []Dispatch {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Dispatch, len(m.dispatches))
	copy(out, m.dispatches)
	return out
}

// Reset clears recorded dispatches, keeping the held set.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatches = nil
}
