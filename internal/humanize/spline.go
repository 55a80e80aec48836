// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package humanize

import (
	"math"
	"math/rand/v2"
)

// easeInOut is the smoothstep pacing curve: slow near both path ends, which
// yields more, smaller packets there after re-quantization.
func easeInOut(t float64) float64 {
	if t <= 0 || t >= 1 {
		return t
	}
	return t * t * (3.0 - 2.0*t)
}

// catmullRom evaluates one Catmull-Rom spline segment at u in [0,1].
func catmullRom(p0, p1, p2, p3, u float64) float64 {
	u2 := u * u
	u3 := u2 * u
	return 0.5 * ((2 * p1) +
		(-p0+p2)*u +
		(2*p0-5*p1+4*p2-p3)*u2 +
		(-p0+3*p1-3*p2+p3)*u3)
}

// packet is one relative mouse delta bounded by the per-packet pixel cap.
type packet struct {
	dx, dy int32
}

// naturalMousePath re-expresses a straight (dx,dy) move as a smooth curve
// through nCtrl control points with 1-3 perpendicular micro-corrections,
// sampled with ease-in/ease-out pacing and re-quantized into packets of at
// most maxStep pixels per axis. The emitted deltas sum to (dx,dy) exactly:
// packet boundaries are derived from rounded absolute positions, so rounding
// error telescopes away instead of accumulating.
func naturalMousePath(dx, dy int32, nCtrl, maxStep int, perpMag float64, rng *rand.Rand) []packet {
	if dx == 0 && dy == 0 {
		return nil
	}
	fdx, fdy := float64(dx), float64(dy)
	length := math.Hypot(fdx, fdy)
	if length < 1 {
		return []packet{{dx, dy}}
	}
	n := nCtrl
	if n < 4 {
		n = 4
	} else if n > 8 {
		n = 8
	}

	// Control points along the line. 1-3 interior points receive a bounded
	// perpendicular offset to curve the path; the endpoints stay exact.
	ctrlX := make([]float64, n)
	ctrlY := make([]float64, n)
	perpX := -fdy / length
	perpY := fdx / length
	corrections := 1 + rng.IntN(3)
	noisy := make(map[int]bool, corrections)
	if n > 2 {
		for len(noisy) < corrections {
			noisy[1+rng.IntN(n-2)] = true
		}
	}
	for i := 1; i < n-1; i++ {
		t := float64(i) / float64(n-1)
		var noise float64
		if noisy[i] {
			noise = (rng.Float64()*2*perpMag - perpMag) * (length/50.0 + 1)
		}
		ctrlX[i] = fdx*t + perpX*noise
		ctrlY[i] = fdy*t + perpY*noise
	}
	ctrlX[n-1] = fdx
	ctrlY[n-1] = fdy

	samples := int(length/4) + 1
	if samples < 4 {
		samples = 4
	}

	var out []packet
	var emittedX, emittedY int32
	for i := 1; i <= samples; i++ {
		tEase := easeInOut(float64(i) / float64(samples))
		seg := tEase * float64(n-1)
		idx := int(seg)
		if idx > n-2 {
			idx = n - 2
		}
		u := seg - float64(idx)
		p0x, p0y := ctrlX[maxInt(0, idx-1)], ctrlY[maxInt(0, idx-1)]
		p1x, p1y := ctrlX[idx], ctrlY[idx]
		p2x, p2y := ctrlX[idx+1], ctrlY[idx+1]
		p3x, p3y := ctrlX[minInt(n-1, idx+2)], ctrlY[minInt(n-1, idx+2)]
		x := catmullRom(p0x, p1x, p2x, p3x, u)
		y := catmullRom(p0y, p1y, p2y, p3y, u)
		if i == samples {
			// The spline endpoint is the exact target by construction;
			// pin it so float noise cannot shift the final position.
			x, y = fdx, fdy
		}
		segX := int32(math.Round(x)) - emittedX
		segY := int32(math.Round(y)) - emittedY
		emittedX += segX
		emittedY += segY
		out = appendChunked(out, segX, segY, int32(maxStep))
	}
	return out
}

// appendChunked splits (dx,dy) into packets of at most maxStep pixels per
// axis, falling back to single-pixel steps when clamping would stall.
func appendChunked(out []packet, dx, dy, maxStep int32) []packet {
	for dx != 0 || dy != 0 {
		stepX := clampDelta(dx, maxStep)
		stepY := clampDelta(dy, maxStep)
		if stepX == 0 && stepY == 0 {
			stepX = signOf(dx)
			stepY = signOf(dy)
		}
		out = append(out, packet{stepX, stepY})
		dx -= stepX
		dy -= stepY
	}
	return out
}

func clampDelta(d, cap int32) int32 {
	if d > cap {
		return cap
	}
	if d < -cap {
		return -cap
	}
	return d
}

func signOf(d int32) int32 {
	switch {
	case d > 0:
		return 1
	case d < 0:
		return -1
	default:
		return 0
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
