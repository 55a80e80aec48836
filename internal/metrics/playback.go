// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package metrics exposes Prometheus collectors for the replayd core.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// InstructionsDispatched counts playback instructions handed to the
	// injection backend, by outcome.
	InstructionsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "replayd_instructions_dispatched_total",
		Help: "Playback instructions dispatched to the injection backend",
	}, []string{"result"})

	// InjectionFailures counts failed OS injection calls.
	InjectionFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "replayd_injection_failures_total",
		Help: "Failed low-level injection calls",
	})

	// EmergencyStops counts emergency-stop invocations.
	EmergencyStops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "replayd_emergency_stops_total",
		Help: "Emergency stop invocations",
	})

	// Recordings counts finished recordings, by outcome.
	Recordings = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "replayd_recordings_total",
		Help: "Finished recordings by outcome",
	}, []string{"outcome"})

	// PlaybackDuration tracks wall-clock playback session durations.
	PlaybackDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "replayd_playback_duration_seconds",
		Help:    "Wall-clock duration of playback sessions",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	})

	// PlaybackSessions counts playback sessions by outcome.
	PlaybackSessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "replayd_playback_sessions_total",
		Help: "Playback sessions by outcome",
	}, []string{"outcome"})

	// ControllerState exposes the current state machine state as a
	// one-hot gauge.
	ControllerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "replayd_controller_state",
		Help: "Current controller state (one-hot)",
	}, []string{"state"})

	// InvalidTransitions counts rejected state machine commands.
	InvalidTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "replayd_invalid_transitions_total",
		Help: "Commands rejected by the state machine",
	}, []string{"state", "command"})
)

// SetControllerState flips the one-hot state gauge.
func SetControllerState(state string, all []string) {
	for _, s := range all {
		v := 0.0
		if s == state {
			v = 1.0
		}
		ControllerState.WithLabelValues(s).Set(v)
	}
}

// ObservePlayback records one finished playback session.
func ObservePlayback(outcome string, duration time.Duration) {
	PlaybackSessions.WithLabelValues(outcome).Inc()
	PlaybackDuration.Observe(duration.Seconds())
}
