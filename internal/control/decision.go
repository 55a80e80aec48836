// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package control

// Forbidden-transition reasons.
const (
	ForbiddenBusyRecording = "busy_recording"
	ForbiddenBusyPlaying   = "busy_playing"
	ForbiddenNotRecording  = "not_recording"
	ForbiddenNotPlaying    = "not_playing"
	ForbiddenNotPaused     = "not_paused"
	ForbiddenIdle          = "already_idle"
)

// Decision is the verdict for one State×Command combination.
type Decision struct {
	Allowed bool
	Reason  string
}

func allowed() Decision        { return Decision{Allowed: true} }
func forbid(r string) Decision { return Decision{Allowed: false, Reason: r} }

// decisionTable defines an explicit decision for every State×Command
// combination. Emergency stop is allowed everywhere; everything else
// follows the documented transition table.
var decisionTable = map[State]map[Command]Decision{
	StateIdle: {
		CmdStartRecord:   allowed(),
		CmdStopRecord:    forbid(ForbiddenNotRecording),
		CmdPlay:          allowed(),
		CmdPause:         forbid(ForbiddenNotPlaying),
		CmdResume:        forbid(ForbiddenNotPaused),
		CmdStop:          forbid(ForbiddenIdle),
		CmdEmergencyStop: allowed(),
	},
	StateRecording: {
		CmdStartRecord:   forbid(ForbiddenBusyRecording),
		CmdStopRecord:    allowed(),
		CmdPlay:          forbid(ForbiddenBusyRecording),
		CmdPause:         forbid(ForbiddenNotPlaying),
		CmdResume:        forbid(ForbiddenNotPaused),
		CmdStop:          forbid(ForbiddenNotPlaying),
		CmdEmergencyStop: allowed(),
	},
	StatePlaying: {
		CmdStartRecord:   forbid(ForbiddenBusyPlaying),
		CmdStopRecord:    forbid(ForbiddenNotRecording),
		CmdPlay:          forbid(ForbiddenBusyPlaying),
		CmdPause:         allowed(),
		CmdResume:        forbid(ForbiddenNotPaused),
		CmdStop:          allowed(),
		CmdEmergencyStop: allowed(),
	},
	StatePaused: {
		CmdStartRecord:   forbid(ForbiddenBusyPlaying),
		CmdStopRecord:    forbid(ForbiddenNotRecording),
		CmdPlay:          forbid(ForbiddenBusyPlaying),
		CmdPause:         forbid(ForbiddenNotPlaying),
		CmdResume:        allowed(),
		CmdStop:          allowed(),
		CmdEmergencyStop: allowed(),
	},
}

// DecisionFor looks up the verdict for a command in a state.
func DecisionFor(state State, cmd Command) (Decision, bool) {
	row, ok := decisionTable[state]
	if !ok {
		return Decision{}, false
	}
	d, ok := row[cmd]
	return d, ok
}
