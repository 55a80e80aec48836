// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package event

import "strings"

// Set-1 scan codes. Extended keys carry the 0xE0 prefix in the high byte and
// must be injected with the extended-key flag.
var scanCodes = map[string]uint16{
	"escape":        0x01,
	"1":             0x02,
	"2":             0x03,
	"3":             0x04,
	"4":             0x05,
	"5":             0x06,
	"6":             0x07,
	"7":             0x08,
	"8":             0x09,
	"9":             0x0A,
	"0":             0x0B,
	"-":             0x0C,
	"=":             0x0D,
	"backspace":     0x0E,
	"tab":           0x0F,
	"q":             0x10,
	"w":             0x11,
	"e":             0x12,
	"r":             0x13,
	"t":             0x14,
	"y":             0x15,
	"u":             0x16,
	"i":             0x17,
	"o":             0x18,
	"p":             0x19,
	"[":             0x1A,
	"]":             0x1B,
	"enter":         0x1C,
	"ctrl":          0x1D,
	"a":             0x1E,
	"s":             0x1F,
	"d":             0x20,
	"f":             0x21,
	"g":             0x22,
	"h":             0x23,
	"j":             0x24,
	"k":             0x25,
	"l":             0x26,
	";":             0x27,
	"'":             0x28,
	"`":             0x29,
	"shift":         0x2A,
	"\\":            0x2B,
	"z":             0x2C,
	"x":             0x2D,
	"c":             0x2E,
	"v":             0x2F,
	"b":             0x30,
	"n":             0x31,
	"m":             0x32,
	",":             0x33,
	".":             0x34,
	"/":             0x35,
	"right_shift":   0x36,
	"num*":          0x37,
	"alt":           0x38,
	"space":         0x39,
	"caps_lock":     0x3A,
	"f1":            0x3B,
	"f2":            0x3C,
	"f3":            0x3D,
	"f4":            0x3E,
	"f5":            0x3F,
	"f6":            0x40,
	"f7":            0x41,
	"f8":            0x42,
	"f9":            0x43,
	"f10":           0x44,
	"num_lock":      0x45,
	"scroll_lock":   0x46,
	"num7":          0x47,
	"num8":          0x48,
	"num9":          0x49,
	"num-":          0x4A,
	"num4":          0x4B,
	"num5":          0x4C,
	"num6":          0x4D,
	"num+":          0x4E,
	"num1":          0x4F,
	"num2":          0x50,
	"num3":          0x51,
	"num0":          0x52,
	"num.":          0x53,
	"f11":           0x57,
	"f12":           0x58,
	"right_control": 0xE01D,
	"right_alt":     0xE038,
	"home":          0xE047,
	"up":            0xE048,
	"page_up":       0xE049,
	"left":          0xE04B,
	"right":         0xE04D,
	"end":           0xE04F,
	"down":          0xE050,
	"page_down":     0xE051,
	"insert":        0xE052,
	"delete":        0xE053,
	"num_enter":     0xE01C,
	"num/":          0xE035,
}

var scanNames = func() map[uint16]string {
	m := make(map[uint16]string, len(scanCodes))
	for name, sc := range scanCodes {
		m[sc] = name
	}
	return m
}()

// ScanCodeForName resolves a key name (e.g. "space", "f9") to its scan code.
func ScanCodeForName(name string) (uint16, bool) {
	sc, ok := scanCodes[strings.ToLower(strings.TrimSpace(name))]
	return sc, ok
}

// NameForScanCode resolves a scan code back to its canonical key name.
func NameForScanCode(sc uint16) (string, bool) {
	name, ok := scanNames[sc]
	return name, ok
}

// AllScanCodes returns every known scan code. Used by ReleaseAllKeys-style
// exhaustive sweeps.
func AllScanCodes() []uint16 {
	out := make([]uint16, 0, len(scanCodes))
	for _, sc := range scanCodes {
		out = append(out, sc)
	}
	return out
}

// IsExtended reports whether the scan code carries the 0xE0 extended prefix.
func IsExtended(sc uint16) bool {
	return sc > 0xFF
}
