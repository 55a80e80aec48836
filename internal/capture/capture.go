// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package capture delivers raw input notifications to the recorder. The
// recorder is purely a consumer: notifications arrive in occurrence order on
// the source's own delivery context, nothing more is guaranteed.
package capture

import (
	"context"
	"sync"

	"github.com/ManuGH/replayd/internal/event"
)

// Notification is one raw input occurrence as delivered by the OS, before
// the recorder stamps it with timing.
type Notification struct {
	Kind  event.Kind
	Code  uint16
	DX    int32
	DY    int32
	Wheel int32
}

// Source produces raw input notifications.
//
// The Events channel is closed when the source stops delivering, whether by
// Stop or by losing its OS hook; consumers treat an early close as a
// capture-lost condition, not an error.
type Source interface {
	Start(ctx context.Context) error
	Stop() error
	Events() <-chan Notification
}

// Pipe is an in-process Source fed by test code or by a non-Windows stub.
type Pipe struct {
	mu     sync.Mutex
	ch     chan Notification
	closed bool
}

// NewPipe builds a Pipe with a buffered delivery channel.
func NewPipe() *Pipe {
	return &Pipe{ch: make(chan Notification, 1024)}
}

// Start implements Source.
func (p *Pipe) Start(ctx context.Context) error {
	return nil
}

// Stop implements Source, closing the delivery channel. Idempotent.
func (p *Pipe) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.ch)
	}
	return nil
}

// Events implements Source.
func (p *Pipe) Events() <-chan Notification {
	return p.ch
}

// Emit delivers one notification, dropping it if the buffer is full or the
// pipe already stopped. Dropping mirrors the OS hook behavior under load.
func (p *Pipe) Emit(n Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	select {
	case p.ch <- n:
	default:
	}
}
