// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

//go:build windows

package inject

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
	"golang.org/x/time/rate"

	"github.com/ManuGH/replayd/internal/event"
)

const (
	inputMouse    = 0
	inputKeyboard = 1

	keyeventfExtendedKey = 0x0001
	keyeventfKeyUp       = 0x0002
	keyeventfScanCode    = 0x0008

	mouseeventfMove       = 0x0001
	mouseeventfLeftDown   = 0x0002
	mouseeventfLeftUp     = 0x0004
	mouseeventfRightDown  = 0x0008
	mouseeventfRightUp    = 0x0010
	mouseeventfMiddleDown = 0x0020
	mouseeventfMiddleUp   = 0x0040
	mouseeventfWheel      = 0x0800

	wheelDelta = 120
)

var (
	user32                    = windows.NewLazySystemDLL("user32.dll")
	kernel32                  = windows.NewLazySystemDLL("kernel32.dll")
	procSendInput             = user32.NewProc("SendInput")
	procQueryPerformanceCount = kernel32.NewProc("QueryPerformanceCounter")
)

// winInput mirrors the Win32 INPUT struct on 64-bit: a 4-byte type tag,
// 4 bytes of union alignment padding, then the 32-byte union.
type winInput struct {
	typ   uint32
	_     uint32
	union [32]byte
}

type mouseInput struct {
	dx          int32
	dy          int32
	mouseData   uint32
	dwFlags     uint32
	time        uint32
	_           uint32
	dwExtraInfo uintptr
}

type keybdInput struct {
	wVk         uint16
	wScan       uint16
	dwFlags     uint32
	time        uint32
	_           uint32
	dwExtraInfo uintptr
}

// SendInput is the Win32 Backend. Scan codes only (KEYEVENTF_SCANCODE), so
// playback is layout-independent; extended keys carry the 0xE0 prefix.
type SendInput struct {
	mu      sync.Mutex
	opts    Options
	held    map[uint16]struct{}
	limiter *rate.Limiter
}

// NewSendInput builds the Win32 injection backend.
func NewSendInput(opts Options) *SendInput {
	b := &SendInput{opts: opts, held: make(map[uint16]struct{})}
	if opts.MaxRate > 0 {
		b.limiter = rate.NewLimiter(rate.Limit(opts.MaxRate), 1)
	}
	return b
}

// NewPlatform returns the native backend for this OS.
func NewPlatform(opts Options) Backend {
	return NewSendInput(opts)
}

func (b *SendInput) timeField() uint32 {
	if !b.opts.UseQPCTime {
		return 0
	}
	var counter int64
	r, _, _ := procQueryPerformanceCount.Call(uintptr(unsafe.Pointer(&counter)))
	if r == 0 {
		return 0
	}
	return uint32(counter & 0xFFFFFFFF)
}

func (b *SendInput) submit(in *winInput) error {
	if b.limiter != nil {
		_ = b.limiter.Wait(context.Background())
	}
	n, _, callErr := procSendInput.Call(1, uintptr(unsafe.Pointer(in)), unsafe.Sizeof(*in))
	if n != 1 {
		return fmt.Errorf("%w: SendInput: %v", ErrInjection, callErr)
	}
	return nil
}

func (b *SendInput) keyInput(code uint16, down bool, alt bool) *winInput {
	in := &winInput{typ: inputKeyboard}
	ki := (*keybdInput)(unsafe.Pointer(&in.union[0]))
	flags := uint32(keyeventfScanCode)
	if event.IsExtended(code) {
		flags |= keyeventfExtendedKey
	} else if alt {
		// Alternate representation: force the extended flag on a plain
		// scan code. Behaviorally equivalent, different wire shape.
		flags |= keyeventfExtendedKey
	}
	if !down {
		flags |= keyeventfKeyUp
	}
	ki.wScan = code & 0xFF
	ki.dwFlags = flags
	ki.time = b.timeField()
	return in
}

// SendKey implements Backend.
func (b *SendInput) SendKey(code uint16, down bool, alt bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.submit(b.keyInput(code, down, alt)); err != nil {
		return err
	}
	if down {
		b.held[code] = struct{}{}
	} else {
		delete(b.held, code)
	}
	return nil
}

func (b *SendInput) mouseInput(dx, dy int32, data uint32, flags uint32) *winInput {
	in := &winInput{typ: inputMouse}
	mi := (*mouseInput)(unsafe.Pointer(&in.union[0]))
	mi.dx = dx
	mi.dy = dy
	mi.mouseData = data
	mi.dwFlags = flags
	mi.time = b.timeField()
	return in
}

// SendMouseMove implements Backend, chunking to the packet cap.
func (b *SendInput) SendMouseMove(dx, dy int32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, pk := range SplitDelta(dx, dy, b.opts.packetCap()) {
		if err := b.submit(b.mouseInput(pk[0], pk[1], 0, mouseeventfMove)); err != nil {
			return err
		}
	}
	return nil
}

// SendMouseButton implements Backend.
func (b *SendInput) SendMouseButton(button uint16, down bool) error {
	var flags uint32
	switch button {
	case event.ButtonLeft:
		flags = mouseeventfLeftDown
		if !down {
			flags = mouseeventfLeftUp
		}
	case event.ButtonRight:
		flags = mouseeventfRightDown
		if !down {
			flags = mouseeventfRightUp
		}
	case event.ButtonMiddle:
		flags = mouseeventfMiddleDown
		if !down {
			flags = mouseeventfMiddleUp
		}
	default:
		return fmt.Errorf("%w: unknown mouse button %s", ErrInjection, buttonName(button))
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.submit(b.mouseInput(0, 0, 0, flags))
}

// SendWheel implements Backend.
func (b *SendInput) SendWheel(delta int32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.submit(b.mouseInput(0, 0, uint32(delta*wheelDelta), mouseeventfWheel))
}

// SendNull implements Backend: a zero-delta move with no flags set.
func (b *SendInput) SendNull() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.submit(b.mouseInput(0, 0, 0, 0))
}

// ReleaseAllKeys implements Backend. Every recorded key gets a key-up even
// if earlier releases fail; the held set is empty afterwards.
func (b *SendInput) ReleaseAllKeys() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var errs []error
	for code := range b.held {
		if err := b.submit(b.keyInput(code, false, false)); err != nil {
			errs = append(errs, fmt.Errorf("release %#x: %w", code, err))
		}
		delete(b.held, code)
	}
	return errors.Join(errs...)
}

// HeldKeys implements Backend.
func (b *SendInput) HeldKeys() []uint16 {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]uint16, 0, len(b.held))
	for code := range b.held {
		out = append(out, code)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
