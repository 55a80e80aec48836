// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package control

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition reports a command that is not valid in the
	// current state. The state is left unchanged.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrTooManyFailures reports a playback aborted because injection
	// failures exceeded the configured threshold.
	ErrTooManyFailures = errors.New("too many injection failures")

	// ErrEmptyMacro reports a play command for a macro with no events.
	ErrEmptyMacro = errors.New("macro has no events")
)

func invalidTransition(state State, cmd Command, reason string) error {
	return fmt.Errorf("%w: %s not allowed in %s (%s)", ErrInvalidTransition, cmd, state, reason)
}
