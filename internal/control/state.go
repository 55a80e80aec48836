// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package control owns the playback state machine: it drives recording and
// playback, applies speed scaling and humanization, and guarantees that
// cancellation leaves no key logically held.
package control

// State is the controller's finite-machine state. IDLE is the resting
// state; there is no terminal state, the controller is long-lived.
type State uint8

const (
	StateIdle State = iota
	StateRecording
	StatePlaying
	StatePaused
)

// String returns the wire name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// StateNames lists every state's wire name, in declaration order.
var StateNames = []string{"idle", "recording", "playing", "paused"}

// Command is an externally issued state machine command.
type Command uint8

const (
	CmdStartRecord Command = iota
	CmdStopRecord
	CmdPlay
	CmdPause
	CmdResume
	CmdStop
	CmdEmergencyStop
)

// String returns the wire name of the command.
func (c Command) String() string {
	switch c {
	case CmdStartRecord:
		return "start_record"
	case CmdStopRecord:
		return "stop_record"
	case CmdPlay:
		return "play"
	case CmdPause:
		return "pause"
	case CmdResume:
		return "resume"
	case CmdStop:
		return "stop"
	case CmdEmergencyStop:
		return "emergency_stop"
	default:
		return "unknown"
	}
}
