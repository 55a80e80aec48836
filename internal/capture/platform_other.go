// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

//go:build !windows

package capture

// NewPlatform returns the native capture source for this OS. Only Windows
// has a real hook path; other platforms get an inert pipe so the daemon
// stays runnable for development.
func NewPlatform() Source {
	return NewPipe()
}
