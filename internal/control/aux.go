// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package control

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/ManuGH/replayd/internal/event"
	"github.com/ManuGH/replayd/internal/inject"
	xglog "github.com/ManuGH/replayd/internal/log"
)

// Auxiliary runner bounds.
const (
	AuxIntervalMin = 50 * time.Millisecond
	AuxIntervalMax = 10 * time.Minute
	AuxCountMax    = 9999
)

// SpamConfig configures the key spammer.
type SpamConfig struct {
	Key      string // key name, resolved through the scan code registry
	Tap      bool   // tap (down+up per cycle) vs. hold until stopped
	Interval time.Duration
	Count    int  // 0 means unlimited
	Jitter   bool // add a small random offset to each interval
}

// ClickConfig configures the mouse clicker.
type ClickConfig struct {
	Button   uint16 // ButtonLeft or ButtonRight
	Interval time.Duration
	Count    int
	Jitter   bool
}

// auxRunners owns the key spammer and mouse clicker goroutines. They run
// independently of the playback state machine but are always stopped by
// emergency stop.
type auxRunners struct {
	mu      sync.Mutex
	backend inject.Backend

	keyCancel   context.CancelFunc
	keyDone     chan struct{}
	clickCancel context.CancelFunc
	clickDone   chan struct{}
}

func newAuxRunners(backend inject.Backend) *auxRunners {
	return &auxRunners{backend: backend}
}

func validateAux(interval time.Duration, count int) error {
	if interval < AuxIntervalMin || interval > AuxIntervalMax {
		return fmt.Errorf("interval %s outside [%s, %s]", interval, AuxIntervalMin, AuxIntervalMax)
	}
	if count < 0 || count > AuxCountMax {
		return fmt.Errorf("count %d outside [0, %d]", count, AuxCountMax)
	}
	return nil
}

// StartKeySpammer begins tapping or holding the configured key.
func (c *Controller) StartKeySpammer(cfg SpamConfig) error {
	code, ok := event.ScanCodeForName(cfg.Key)
	if !ok {
		return fmt.Errorf("unknown key %q", cfg.Key)
	}
	if err := validateAux(cfg.Interval, cfg.Count); err != nil {
		return err
	}
	return c.spam.startKey(code, cfg)
}

// StopKeySpammer stops the key spammer if running. Idempotent.
func (c *Controller) StopKeySpammer() {
	c.spam.stopKey()
}

// StartMouseClicker begins clicking the configured button.
func (c *Controller) StartMouseClicker(cfg ClickConfig) error {
	if cfg.Button != event.ButtonLeft && cfg.Button != event.ButtonRight {
		return fmt.Errorf("clicker supports left and right buttons only")
	}
	if err := validateAux(cfg.Interval, cfg.Count); err != nil {
		return err
	}
	return c.spam.startClick(cfg)
}

// StopMouseClicker stops the clicker if running. Idempotent.
func (c *Controller) StopMouseClicker() {
	c.spam.stopClick()
}

func (a *auxRunners) startKey(code uint16, cfg SpamConfig) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.keyDone != nil {
		return fmt.Errorf("key spammer already running")
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	a.keyCancel, a.keyDone = cancel, done
	go a.runKey(ctx, done, code, cfg)
	return nil
}

func (a *auxRunners) runKey(ctx context.Context, done chan struct{}, code uint16, cfg SpamConfig) {
	logger := xglog.WithComponent("spammer")
	defer close(done)

	if !cfg.Tap {
		if err := a.backend.SendKey(code, true, false); err != nil {
			logger.Warn().Err(err).Msg("hold key down failed")
			return
		}
		<-ctx.Done()
		if err := a.backend.SendKey(code, false, false); err != nil {
			logger.Warn().Err(err).Msg("hold key release failed")
		}
		return
	}

	for n := 0; cfg.Count == 0 || n < cfg.Count; n++ {
		if ctx.Err() != nil {
			return
		}
		if err := a.backend.SendKey(code, true, false); err != nil {
			logger.Warn().Err(err).Msg("spam key down failed")
		}
		if err := a.backend.SendKey(code, false, false); err != nil {
			logger.Warn().Err(err).Msg("spam key up failed")
		}
		if !sleepAux(ctx, jitteredInterval(cfg.Interval, cfg.Jitter)) {
			return
		}
	}
}

func (a *auxRunners) stopKey() {
	a.mu.Lock()
	cancel, done := a.keyCancel, a.keyDone
	a.keyCancel, a.keyDone = nil, nil
	a.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

func (a *auxRunners) startClick(cfg ClickConfig) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.clickDone != nil {
		return fmt.Errorf("mouse clicker already running")
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	a.clickCancel, a.clickDone = cancel, done
	go a.runClick(ctx, done, cfg)
	return nil
}

func (a *auxRunners) runClick(ctx context.Context, done chan struct{}, cfg ClickConfig) {
	logger := xglog.WithComponent("clicker")
	defer close(done)
	for n := 0; cfg.Count == 0 || n < cfg.Count; n++ {
		if ctx.Err() != nil {
			return
		}
		if err := a.backend.SendMouseButton(cfg.Button, true); err != nil {
			logger.Warn().Err(err).Msg("click down failed")
		}
		if err := a.backend.SendMouseButton(cfg.Button, false); err != nil {
			logger.Warn().Err(err).Msg("click up failed")
		}
		if !sleepAux(ctx, jitteredInterval(cfg.Interval, cfg.Jitter)) {
			return
		}
	}
}

func (a *auxRunners) stopClick() {
	a.mu.Lock()
	cancel, done := a.clickCancel, a.clickDone
	a.clickCancel, a.clickDone = nil, nil
	a.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

func (a *auxRunners) stopAll() {
	a.stopKey()
	a.stopClick()
}

func jitteredInterval(base time.Duration, jitter bool) time.Duration {
	if !jitter {
		return base
	}
	// ±15ms, floored at 1ms.
	d := base + time.Duration(rand.Int64N(int64(30*time.Millisecond))) - 15*time.Millisecond
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return d
}

func sleepAux(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
