// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"
)

// Reading is one device-orientation event in degrees. Devices may omit any
// axis; a nil (or non-finite) axis counts as 0.
//
//	alpha: heading around the vertical axis, [0,360)
//	beta:  front-back tilt, [-180,180]
//	gamma: left-right tilt, [-90,90]
type Reading struct {
	Alpha *float64 `json:"alpha"`
	Beta  *float64 `json:"beta"`
	Gamma *float64 `json:"gamma"`
}

// Angles is a complete orientation in degrees.
type Angles struct {
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
	Gamma float64 `json:"gamma"`
}

// Source is anything that can provide readings over time: the mock source,
// the MPU9250 source, or a replay.
type Source interface {
	Next() (Reading, error)
}

// NewReading builds a reading with every axis present.
func NewReading(alpha, beta, gamma float64) Reading {
	return Reading{Alpha: &alpha, Beta: &beta, Gamma: &gamma}
}

// Angles resolves missing axes to zero.
func (r Reading) Angles() Angles {
	return Angles{
		Alpha: valueOrZero(r.Alpha),
		Beta:  valueOrZero(r.Beta),
		Gamma: valueOrZero(r.Gamma),
	}
}

func valueOrZero(v *float64) float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0
	}
	return *v
}

// ComputeTiltFromAccel derives beta and gamma from a gravity vector in the
// device frame (x right, y up the screen, z out of the screen). Heading
// needs a magnetometer, so alpha is left out of the reading.
//
//	beta  = atan2(ay, az)
//	gamma = atan2(-ax, sqrt(ay² + az²))
func ComputeTiltFromAccel(ax, ay, az float64) Reading {
	betaRad := math.Atan2(ay, az)
	gammaRad := math.Atan2(-ax, math.Sqrt(ay*ay+az*az))

	beta := betaRad * 180.0 / math.Pi
	gamma := gammaRad * 180.0 / math.Pi

	return Reading{Beta: &beta, Gamma: &gamma}
}

// Normalize maps a continuous filtered angle back into [0,360).
func Normalize(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	if deg >= 360 {
		deg = 0
	}
	return deg
}
