// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package palette derives marker colors from marker positions.
package palette

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Saturation and lightness are fixed for every marker (percent).
const (
	Saturation = 70.0
	Lightness  = 50.0
)

// HSL is a color in hue (degrees, [0,360)), saturation and lightness (percent).
type HSL struct {
	H float64 `json:"h"`
	S float64 `json:"s"`
	L float64 `json:"l"`
}

// String formats the color as a CSS hsl() value.
func (c HSL) String() string {
	return fmt.Sprintf("hsl(%.2f, %g%%, %g%%)", c.H, c.S, c.L)
}

// RGBA converts to an opaque 8-bit color.
func (c HSL) RGBA() color.RGBA {
	s := clamp(c.S/100, 0, 1)
	l := clamp(c.L/100, 0, 1)
	h := normalizeHue(c.H) / 60

	chroma := (1 - math.Abs(2*l-1)) * s
	x := chroma * (1 - math.Abs(math.Mod(h, 2)-1))
	m := l - chroma/2

	var r, g, b float64
	switch {
	case h < 1:
		r, g, b = chroma, x, 0
	case h < 2:
		r, g, b = x, chroma, 0
	case h < 3:
		r, g, b = 0, chroma, x
	case h < 4:
		r, g, b = 0, x, chroma
	case h < 5:
		r, g, b = x, 0, chroma
	default:
		r, g, b = chroma, 0, x
	}
	return color.RGBA{
		R: uint8(math.Round((r + m) * 255)),
		G: uint8(math.Round((g + m) * 255)),
		B: uint8(math.Round((b + m) * 255)),
		A: 0xff,
	}
}

// AngleHue colors a position by its heading in the XZ plane.
func AngleHue(p r3.Vec) HSL {
	hue := math.Atan2(p.Z, p.X) * 180 / math.Pi
	return HSL{H: normalizeHue(hue), S: Saturation, L: Lightness}
}

// BlendHue mixes one hue per axis. Each coordinate is scaled by radius and
// clamped to [-1,1]; x spans hues 0-120, y 60-240 and z 300-420 (wrapped).
// The three hues are combined with a circular mean.
func BlendHue(p r3.Vec, radius float64) HSL {
	if radius <= 0 {
		radius = 1
	}
	nx := clamp(p.X/radius, -1, 1)
	ny := clamp(p.Y/radius, -1, 1)
	nz := clamp(p.Z/radius, -1, 1)

	hues := [3]float64{
		lerp(0, 120, (nx+1)/2),
		lerp(60, 240, (ny+1)/2),
		math.Mod(lerp(300, 420, (nz+1)/2), 360),
	}

	var sinSum, cosSum float64
	for _, h := range hues {
		s, c := math.Sincos(h * math.Pi / 180)
		sinSum += s
		cosSum += c
	}
	mean := 0.0
	if sinSum != 0 || cosSum != 0 {
		mean = math.Atan2(sinSum, cosSum) * 180 / math.Pi
	}
	return HSL{H: normalizeHue(mean), S: Saturation, L: Lightness}
}

// normalizeHue maps any finite angle into [0,360).
func normalizeHue(h float64) float64 {
	if math.IsNaN(h) || math.IsInf(h, 0) {
		return 0
	}
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	// -tiny + 360 rounds to 360.
	if h >= 360 {
		h = 0
	}
	return h
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
