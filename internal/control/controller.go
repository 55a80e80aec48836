// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package control

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ManuGH/replayd/internal/event"
	"github.com/ManuGH/replayd/internal/humanize"
	"github.com/ManuGH/replayd/internal/inject"
	xglog "github.com/ManuGH/replayd/internal/log"
	"github.com/ManuGH/replayd/internal/macro"
	"github.com/ManuGH/replayd/internal/metrics"
	"github.com/ManuGH/replayd/internal/profile"
	"github.com/ManuGH/replayd/internal/recorder"
)

// DefaultFailureThreshold aborts playback after this many failed
// injections in one session.
const DefaultFailureThreshold = 10

// PlaybackRecord describes one finished playback session for the audit log.
type PlaybackRecord struct {
	ID           string
	Macro        string
	Profile      string
	Speed        float64
	StartedAt    time.Time
	FinishedAt   time.Time
	Outcome      string
	Instructions int
	Failures     int

	// Error carries the abort cause; empty for clean outcomes.
	Error string
}

// HistorySink records finished playback sessions.
type HistorySink interface {
	RecordPlayback(ctx context.Context, rec PlaybackRecord) error
}

// Options configure a Controller.
type Options struct {
	Backend  inject.Backend
	Recorder *recorder.Recorder

	// FailureThreshold aborts playback after this many injection
	// failures; zero means DefaultFailureThreshold.
	FailureThreshold int

	// OnState, when set, observes every state change.
	OnState func(old, new State)

	// History, when set, receives a record per finished playback.
	History HistorySink
}

// Controller is the single owner of the current state and of the active
// playback session. All cross-context communication goes through it; the
// capture path, the playback worker and the command surface never share
// state directly.
type Controller struct {
	mu     sync.Mutex
	opts   Options
	logger zerolog.Logger

	state      State
	session    *session
	stopping   int // in-flight stop/emergency-stop teardowns
	lastMacro  macro.Macro
	lastReport humanize.Report

	spam *auxRunners
}

// New builds a controller in StateIdle.
func New(opts Options) *Controller {
	if opts.FailureThreshold <= 0 {
		opts.FailureThreshold = DefaultFailureThreshold
	}
	c := &Controller{
		opts:   opts,
		logger: xglog.WithComponent("controller"),
		spam:   newAuxRunners(opts.Backend),
	}
	metrics.SetControllerState(c.state.String(), StateNames)
	return c
}

// State returns the current state. Read-only query, safe from any context.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastMacro returns the most recently recorded macro.
func (c *Controller) LastMacro() macro.Macro {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastMacro
}

// LastReport returns the humanization report of the most recent transform.
func (c *Controller) LastReport() humanize.Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastReport
}

// setStateLocked transitions the state and notifies observers. Caller holds mu.
func (c *Controller) setStateLocked(next State) {
	if c.state == next {
		return
	}
	old := c.state
	c.state = next
	metrics.SetControllerState(next.String(), StateNames)
	c.logger.Info().
		Str(xglog.FieldOldState, old.String()).
		Str(xglog.FieldNewState, next.String()).
		Msg("state transition")
	if c.opts.OnState != nil {
		c.opts.OnState(old, next)
	}
}

// checkLocked validates a command against the decision table. Caller holds mu.
// While a stop or emergency stop is winding a session down the machine may
// already read IDLE; new work is fenced off until the teardown completes.
func (c *Controller) checkLocked(cmd Command) error {
	if c.stopping > 0 && (cmd == CmdPlay || cmd == CmdStartRecord) {
		metrics.InvalidTransitions.WithLabelValues(c.state.String(), cmd.String()).Inc()
		return invalidTransition(c.state, cmd, "stop in progress")
	}
	d, ok := DecisionFor(c.state, cmd)
	if !ok || !d.Allowed {
		reason := d.Reason
		if !ok {
			reason = "no decision"
		}
		metrics.InvalidTransitions.WithLabelValues(c.state.String(), cmd.String()).Inc()
		return invalidTransition(c.state, cmd, reason)
	}
	return nil
}

// StartRecord transitions IDLE → RECORDING and starts the recorder.
func (c *Controller) StartRecord(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkLocked(CmdStartRecord); err != nil {
		return err
	}
	if err := c.opts.Recorder.Start(ctx); err != nil {
		return fmt.Errorf("start recorder: %w", err)
	}
	c.setStateLocked(StateRecording)
	return nil
}

// StopRecord transitions RECORDING → IDLE and returns the finalized macro.
// A capture-lost recording is finalized with whatever was captured and
// surfaced as a warning through the returned flag.
func (c *Controller) StopRecord(name string) (macro.Macro, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkLocked(CmdStopRecord); err != nil {
		return macro.Macro{}, false, err
	}
	m, lost, err := c.opts.Recorder.Stop()
	if err != nil {
		// The recorder could not be finalized; recording has still
		// ceased, so return to rest rather than wedge the machine.
		c.setStateLocked(StateIdle)
		metrics.Recordings.WithLabelValues("error").Inc()
		return macro.Macro{}, false, fmt.Errorf("stop recorder: %w", err)
	}
	if name == "" {
		name = "macro-" + time.Now().Format("20060102-150405")
	}
	m.Name = name
	c.lastMacro = m
	c.setStateLocked(StateIdle)
	outcome := "ok"
	if lost {
		outcome = "capture_lost"
	}
	metrics.Recordings.WithLabelValues(outcome).Inc()
	c.logger.Info().
		Str(xglog.FieldMacro, m.Name).
		Int("events", len(m.Events)).
		Bool("capture_lost", lost).
		Msg("recording finalized")
	return m, lost, nil
}

// Play transitions IDLE → PLAYING: validates the macro, builds the playback
// session (transforming through the humanization engine) and spawns the
// playback worker.
func (c *Controller) Play(m macro.Macro, speed float64, p profile.Profile) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkLocked(CmdPlay); err != nil {
		return err
	}
	if m.Empty() {
		return ErrEmptyMacro
	}
	if err := m.Validate(); err != nil {
		return err
	}
	seed := m.Seed()
	instructions, report, err := humanize.Transform(m, p, speed, seed)
	if err != nil {
		return fmt.Errorf("transform macro: %w", err)
	}
	c.lastReport = report

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		id:           uuid.New(),
		macroName:    m.Name,
		profile:      p,
		speed:        speed,
		seed:         seed,
		instructions: instructions,
		startedAt:    time.Now(),
		cancel:       cancel,
		done:         make(chan struct{}),
	}
	c.session = s
	c.setStateLocked(StatePlaying)
	c.logger.Info().
		Str(xglog.FieldSessionID, s.id.String()).
		Str(xglog.FieldMacro, m.Name).
		Float64(xglog.FieldSpeed, speed).
		Str(xglog.FieldProfile, p.Name).
		Int(xglog.FieldInstructions, len(instructions)).
		Msg("playback started")
	go c.runWorker(ctx, s)
	return nil
}

// Pause transitions PLAYING → PAUSED. The worker suspends before its next
// dispatch; a wait in progress is parked with its remaining delay intact.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkLocked(CmdPause); err != nil {
		return err
	}
	c.session.gate.pause()
	c.setStateLocked(StatePaused)
	return nil
}

// Resume transitions PAUSED → PLAYING, continuing from the stored cursor
// with the remaining delay of any interrupted wait.
func (c *Controller) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkLocked(CmdResume); err != nil {
		return err
	}
	c.session.gate.resume()
	c.setStateLocked(StatePlaying)
	return nil
}

// Stop cancels the playback worker cooperatively, joins it, and releases
// all held keys before returning.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if err := c.checkLocked(CmdStop); err != nil {
		c.mu.Unlock()
		return err
	}
	s := c.session
	c.stopping++
	s.gate.resume()
	s.cancel()
	c.mu.Unlock()

	<-s.done

	c.mu.Lock()
	c.stopping--
	c.mu.Unlock()
	return nil
}

// EmergencyStop preempts whatever is in flight: it cancels playback,
// finalizes any recording, stops the auxiliary runners and releases every
// held key. It is defined to never fail and always lands in IDLE.
func (c *Controller) EmergencyStop() {
	metrics.EmergencyStops.Inc()
	c.spam.stopAll()

	c.mu.Lock()
	c.stopping++
	s := c.session
	recording := c.state == StateRecording
	c.mu.Unlock()

	if s != nil {
		s.gate.resume()
		s.cancel()
		<-s.done
	}
	if recording {
		if _, _, err := c.opts.Recorder.Stop(); err != nil {
			c.logger.Warn().Err(err).Msg("emergency stop: recorder stop failed")
		}
	}

	// Best-effort and exhaustive: individual release errors are logged,
	// never propagated.
	if err := c.opts.Backend.ReleaseAllKeys(); err != nil {
		c.logger.Warn().Err(err).Msg("emergency stop: release all keys reported errors")
	}

	c.mu.Lock()
	if c.session == s {
		c.session = nil
	}
	c.setStateLocked(StateIdle)
	c.stopping--
	c.mu.Unlock()
	c.logger.Warn().Msg("emergency stop executed")
}

// runWorker drives one playback session on its dedicated goroutine.
func (c *Controller) runWorker(ctx context.Context, s *session) {
	logger := c.logger.With().Str(xglog.FieldSessionID, s.id.String()).Logger()
	outcome := "completed"
	failures := 0
	var abortErr error

	for i, in := range s.instructions {
		if err := s.sleep(ctx, in.Delay); err != nil {
			outcome = "cancelled"
			break
		}
		if err := c.dispatch(in); err != nil {
			failures++
			metrics.InjectionFailures.Inc()
			metrics.InstructionsDispatched.WithLabelValues("error").Inc()
			logger.Warn().Err(err).
				Int(xglog.FieldCursor, i).
				Int(xglog.FieldFailures, failures).
				Msg("injection failed; continuing")
			if failures >= c.opts.FailureThreshold {
				outcome = "aborted"
				abortErr = fmt.Errorf("%w: %d in one session", ErrTooManyFailures, failures)
				logger.Error().Err(abortErr).Msg("aborting playback")
				break
			}
		} else {
			metrics.InstructionsDispatched.WithLabelValues("ok").Inc()
		}
		s.cursor.Store(int64(i + 1))
	}

	if err := c.opts.Backend.ReleaseAllKeys(); err != nil {
		logger.Warn().Err(err).Msg("release all keys after playback reported errors")
	}
	c.finishSession(s, outcome, failures, abortErr)
}

// finishSession tears the session down and returns the machine to IDLE,
// unless an emergency stop already removed the session.
func (c *Controller) finishSession(s *session, outcome string, failures int, abortErr error) {
	finished := time.Now()
	metrics.ObservePlayback(outcome, finished.Sub(s.startedAt))

	c.mu.Lock()
	if c.session == s {
		c.session = nil
		c.setStateLocked(StateIdle)
	}
	c.mu.Unlock()

	if c.opts.History != nil {
		rec := PlaybackRecord{
			ID:           s.id.String(),
			Macro:        s.macroName,
			Profile:      s.profile.Name,
			Speed:        s.speed,
			StartedAt:    s.startedAt,
			FinishedAt:   finished,
			Outcome:      outcome,
			Instructions: len(s.instructions),
			Failures:     failures,
		}
		if abortErr != nil {
			rec.Error = abortErr.Error()
		}
		if err := c.opts.History.RecordPlayback(context.Background(), rec); err != nil {
			c.logger.Warn().Err(err).Msg("record playback history")
		}
	}
	c.logger.Info().
		Str(xglog.FieldSessionID, s.id.String()).
		Str("outcome", outcome).
		Int(xglog.FieldFailures, failures).
		Msg("playback finished")
	close(s.done)
}

// dispatch hands one instruction to the injection backend.
func (c *Controller) dispatch(in humanize.Instruction) error {
	if in.Null {
		return c.opts.Backend.SendNull()
	}
	b := c.opts.Backend
	switch in.Action.Kind {
	case event.KindKeyDown:
		return b.SendKey(in.Action.Code, true, in.AltEncoding)
	case event.KindKeyUp:
		return b.SendKey(in.Action.Code, false, in.AltEncoding)
	case event.KindMouseMove:
		return b.SendMouseMove(in.Action.DX, in.Action.DY)
	case event.KindMouseButtonDown:
		return b.SendMouseButton(in.Action.Code, true)
	case event.KindMouseButtonUp:
		return b.SendMouseButton(in.Action.Code, false)
	case event.KindMouseWheel:
		return b.SendWheel(in.Action.Wheel)
	default:
		return fmt.Errorf("%w: unknown instruction kind %d", inject.ErrInjection, in.Action.Kind)
	}
}
