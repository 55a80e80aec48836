// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package control

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ManuGH/replayd/internal/humanize"
	"github.com/ManuGH/replayd/internal/profile"
)

// sleepTick bounds the latency of cancellation and pause taking effect
// during long scheduled waits.
const sleepTick = 5 * time.Millisecond

// session is the transient per-playback state. It is owned exclusively by
// the controller for the lifetime of one play operation and destroyed on
// stop, completion or emergency stop.
type session struct {
	id           uuid.UUID
	macroName    string
	profile      profile.Profile
	speed        float64
	seed         uint64
	instructions []humanize.Instruction
	startedAt    time.Time

	cancel context.CancelFunc
	done   chan struct{}
	cursor atomic.Int64

	gate pauseGate
}

// pauseGate blocks the playback worker while paused. The zero value is
// running (not paused).
type pauseGate struct {
	mu      sync.Mutex
	paused  bool
	resumed chan struct{}
}

func (g *pauseGate) pause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.paused {
		g.paused = true
		g.resumed = make(chan struct{})
	}
}

func (g *pauseGate) resume() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.paused {
		g.paused = false
		close(g.resumed)
	}
}

// wait blocks while the gate is paused, returning early if ctx is
// cancelled. Time spent paused does not count against any schedule.
func (g *pauseGate) wait(ctx context.Context) error {
	for {
		g.mu.Lock()
		if !g.paused {
			g.mu.Unlock()
			return nil
		}
		resumed := g.resumed
		g.mu.Unlock()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-resumed:
		}
	}
}

// sleep waits the scheduled delay in bounded slices so that cancellation
// and pause take effect within sleepTick even during long waits. If paused
// mid-wait, the remaining delay is preserved and resumed from.
func (s *session) sleep(ctx context.Context, d time.Duration) error {
	remaining := d
	for remaining > 0 {
		if err := s.gate.wait(ctx); err != nil {
			return err
		}
		step := remaining
		if step > sleepTick {
			step = sleepTick
		}
		timer := time.NewTimer(step)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			remaining -= step
		}
	}
	return s.gate.wait(ctx)
}
