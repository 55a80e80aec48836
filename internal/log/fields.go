// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID = "session_id"
	FieldRequestID = "request_id"
	FieldMacro     = "macro"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"
	FieldCommand  = "command"

	// Playback fields
	FieldSpeed        = "speed"
	FieldProfile      = "profile"
	FieldInstructions = "instructions"
	FieldCursor       = "cursor"
	FieldFailures     = "failures"

	// Input fields
	FieldScanCode = "scan_code"
	FieldButton   = "button"
	FieldDeltaX   = "dx"
	FieldDeltaY   = "dy"
)
