// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

//go:build !windows

package inject

// NewPlatform returns the native backend for this OS. Only Windows has a
// real injection path; other platforms get the recording backend so the
// daemon stays runnable for development and tests.
func NewPlatform(opts Options) Backend {
	return NewMemory(opts)
}
