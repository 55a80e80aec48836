// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package recorder converts live capture notifications into a timestamped
// macro using a monotonic high-resolution clock.
package recorder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ManuGH/replayd/internal/capture"
	"github.com/ManuGH/replayd/internal/event"
	xglog "github.com/ManuGH/replayd/internal/log"
	"github.com/ManuGH/replayd/internal/macro"
)

// Recorder buffers capture notifications into an ordered event sequence.
//
// The capture source delivers on its own context; the recorder drains the
// source's channel on a dedicated goroutine that exclusively owns the event
// buffer, so producer and consumer never share mutable cursor state.
type Recorder struct {
	mu        sync.Mutex
	source    capture.Source
	recording bool
	lost      bool
	finalized macro.Macro
	done      chan struct{}

	// onEvent, when set, observes each stamped event live (UI preview).
	onEvent func(event.Event)
}

// New builds a recorder on top of the given capture source.
func New(source capture.Source) *Recorder {
	return &Recorder{source: source}
}

// SetOnEvent registers a live observer for stamped events. Must be called
// while not recording.
func (r *Recorder) SetOnEvent(fn func(event.Event)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onEvent = fn
}

// Start begins buffering capture notifications.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recording {
		return fmt.Errorf("recorder already recording")
	}
	if err := r.source.Start(ctx); err != nil {
		return fmt.Errorf("start capture source: %w", err)
	}
	r.recording = true
	r.lost = false
	r.finalized = macro.Macro{}
	r.done = make(chan struct{})
	go r.drain(time.Now())
	return nil
}

// drain owns the event buffer for the lifetime of one recording. It stamps
// each notification with elapsed-minus-previous from the monotonic clock and
// appends in strict arrival order.
func (r *Recorder) drain(started time.Time) {
	logger := xglog.WithComponent("recorder")
	var events []event.Event
	var prevElapsed time.Duration
	first := true
	lost := true // channel close without Stop means the source died

	for n := range r.source.Events() {
		elapsed := time.Since(started)
		ev := event.Event{
			Kind:  n.Kind,
			Code:  n.Code,
			DX:    n.DX,
			DY:    n.DY,
			Wheel: n.Wheel,
		}
		if first {
			ev.Offset = 0
			first = false
		} else {
			ev.Offset = elapsed - prevElapsed
			if ev.Offset < 0 {
				ev.Offset = 0
			}
		}
		prevElapsed = elapsed
		events = append(events, ev)
		if r.onEvent != nil {
			r.onEvent(ev)
		}
	}

	r.mu.Lock()
	if !r.recording {
		// Channel closed because Stop asked it to.
		lost = false
	}
	r.lost = lost
	r.finalized = macro.New("", time.Now(), events)
	r.mu.Unlock()

	if lost {
		logger.Warn().Int("events", len(events)).Msg("capture source stopped delivering; recording finalized early")
	}
	close(r.done)
}

// Stop halts capture and returns the finalized macro. Idempotent: a second
// call returns the same macro without error. The lost flag reports whether
// the capture source died before Stop was called.
func (r *Recorder) Stop() (macro.Macro, bool, error) {
	r.mu.Lock()
	if !r.recording {
		m, lost := r.finalized, r.lost
		r.mu.Unlock()
		return m, lost, nil
	}
	r.recording = false
	done := r.done
	r.mu.Unlock()

	if err := r.source.Stop(); err != nil {
		return macro.Macro{}, false, fmt.Errorf("stop capture source: %w", err)
	}
	<-done

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finalized, r.lost, nil
}

// Recording reports whether a recording is in progress.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}
