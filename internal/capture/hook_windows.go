// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

//go:build windows

package capture

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/ManuGH/replayd/internal/event"
	xglog "github.com/ManuGH/replayd/internal/log"
)

const (
	whKeyboardLL = 13
	whMouseLL    = 14

	wmKeyDown    = 0x0100
	wmKeyUp      = 0x0101
	wmSysKeyDown = 0x0104
	wmSysKeyUp   = 0x0105

	wmMouseMove   = 0x0200
	wmLButtonDown = 0x0201
	wmLButtonUp   = 0x0202
	wmRButtonDown = 0x0204
	wmRButtonUp   = 0x0205
	wmMButtonDown = 0x0207
	wmMButtonUp   = 0x0208
	wmMouseWheel  = 0x020A

	llkhfExtended = 0x01

	wmQuit = 0x0012
)

var (
	user32              = windows.NewLazySystemDLL("user32.dll")
	procSetWindowsHook  = user32.NewProc("SetWindowsHookExW")
	procUnhookWindows   = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHook    = user32.NewProc("CallNextHookEx")
	procGetMessage      = user32.NewProc("GetMessageW")
	procPostThreadMsg   = user32.NewProc("PostThreadMessageW")
	procGetCurrentTID   = windows.NewLazySystemDLL("kernel32.dll").NewProc("GetCurrentThreadId")
	procTranslateMsg    = user32.NewProc("TranslateMessage")
	procDispatchMessage = user32.NewProc("DispatchMessageW")
)

type point struct {
	x, y int32
}

type msg struct {
	hwnd    uintptr
	message uint32
	wParam  uintptr
	lParam  uintptr
	time    uint32
	pt      point
}

type kbdllHookStruct struct {
	vkCode      uint32
	scanCode    uint32
	flags       uint32
	time        uint32
	dwExtraInfo uintptr
}

type msllHookStruct struct {
	pt          point
	mouseData   uint32
	flags       uint32
	time        uint32
	dwExtraInfo uintptr
}

// Hook captures system-wide input through low-level keyboard and mouse
// hooks. Mouse movement is converted to relative deltas against the last
// observed cursor position.
type Hook struct {
	mu       sync.Mutex
	ch       chan Notification
	running  bool
	threadID uint32

	keyHook   uintptr
	mouseHook uintptr

	lastX, lastY int32
	havePos      bool
}

// NewHook builds the Windows capture source.
func NewHook() *Hook {
	return &Hook{ch: make(chan Notification, 1024)}
}

// NewPlatform returns the native capture source for this OS.
func NewPlatform() Source {
	return NewHook()
}

// Start implements Source: installs the hooks on a dedicated OS thread and
// pumps its message loop until Stop.
func (h *Hook) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return fmt.Errorf("capture hook already running")
	}
	h.running = true
	h.havePos = false

	ready := make(chan error, 1)
	go h.hookThread(ready)
	if err := <-ready; err != nil {
		h.running = false
		return err
	}
	return nil
}

// Stop implements Source. Idempotent; closes the delivery channel.
func (h *Hook) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return nil
	}
	h.running = false
	// Wake the message loop so the hook thread can unhook and exit.
	procPostThreadMsg.Call(uintptr(h.threadID), wmQuit, 0, 0) //nolint:errcheck
	return nil
}

// Events implements Source.
func (h *Hook) Events() <-chan Notification {
	return h.ch
}

func (h *Hook) hookThread(ready chan<- error) {
	// LL hooks are delivered to the installing thread's message loop.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	logger := xglog.WithComponent("capture")

	tid, _, _ := procGetCurrentTID.Call()
	h.threadID = uint32(tid)

	kb, _, err := procSetWindowsHook.Call(whKeyboardLL, syscall.NewCallback(h.keyboardProc), 0, 0)
	if kb == 0 {
		ready <- fmt.Errorf("install keyboard hook: %v", err)
		return
	}
	ms, _, err := procSetWindowsHook.Call(whMouseLL, syscall.NewCallback(h.mouseProc), 0, 0)
	if ms == 0 {
		procUnhookWindows.Call(kb) //nolint:errcheck
		ready <- fmt.Errorf("install mouse hook: %v", err)
		return
	}
	h.keyHook, h.mouseHook = kb, ms
	ready <- nil
	logger.Debug().Msg("input hooks installed")

	var m msg
	for {
		ret, _, _ := procGetMessage.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		if int32(ret) <= 0 || m.message == wmQuit {
			break
		}
		procTranslateMsg.Call(uintptr(unsafe.Pointer(&m)))    //nolint:errcheck
		procDispatchMessage.Call(uintptr(unsafe.Pointer(&m))) //nolint:errcheck
	}

	procUnhookWindows.Call(h.keyHook)   //nolint:errcheck
	procUnhookWindows.Call(h.mouseHook) //nolint:errcheck
	close(h.ch)
	logger.Debug().Msg("input hooks removed")
}

func (h *Hook) deliver(n Notification) {
	select {
	case h.ch <- n:
	default:
		// Hook callbacks must not block; drop under backpressure.
	}
}

func (h *Hook) keyboardProc(nCode int32, wParam, lParam uintptr) uintptr {
	if nCode >= 0 {
		ks := (*kbdllHookStruct)(unsafe.Pointer(lParam))
		code := uint16(ks.scanCode & 0xFF)
		if ks.flags&llkhfExtended != 0 {
			code |= 0xE000
		}
		switch uint32(wParam) {
		case wmKeyDown, wmSysKeyDown:
			h.deliver(Notification{Kind: event.KindKeyDown, Code: code})
		case wmKeyUp, wmSysKeyUp:
			h.deliver(Notification{Kind: event.KindKeyUp, Code: code})
		}
	}
	ret, _, _ := procCallNextHook.Call(0, uintptr(nCode), wParam, lParam)
	return ret
}

func (h *Hook) mouseProc(nCode int32, wParam, lParam uintptr) uintptr {
	if nCode >= 0 {
		ms := (*msllHookStruct)(unsafe.Pointer(lParam))
		switch uint32(wParam) {
		case wmMouseMove:
			if h.havePos {
				dx := ms.pt.x - h.lastX
				dy := ms.pt.y - h.lastY
				if dx != 0 || dy != 0 {
					h.deliver(Notification{Kind: event.KindMouseMove, DX: dx, DY: dy})
				}
			}
			h.lastX, h.lastY = ms.pt.x, ms.pt.y
			h.havePos = true
		case wmLButtonDown:
			h.deliver(Notification{Kind: event.KindMouseButtonDown, Code: event.ButtonLeft})
		case wmLButtonUp:
			h.deliver(Notification{Kind: event.KindMouseButtonUp, Code: event.ButtonLeft})
		case wmRButtonDown:
			h.deliver(Notification{Kind: event.KindMouseButtonDown, Code: event.ButtonRight})
		case wmRButtonUp:
			h.deliver(Notification{Kind: event.KindMouseButtonUp, Code: event.ButtonRight})
		case wmMButtonDown:
			h.deliver(Notification{Kind: event.KindMouseButtonDown, Code: event.ButtonMiddle})
		case wmMButtonUp:
			h.deliver(Notification{Kind: event.KindMouseButtonUp, Code: event.ButtonMiddle})
		case wmMouseWheel:
			notches := int32(int16(ms.mouseData>>16)) / 120
			if notches != 0 {
				h.deliver(Notification{Kind: event.KindMouseWheel, Wheel: notches})
			}
		}
	}
	ret, _, _ := procCallNextHook.Call(0, uintptr(nCode), wParam, lParam)
	return ret
}
