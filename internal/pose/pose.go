// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package pose turns filtered device orientation into a camera rotation.
//
// Convention: the device reports alpha/beta/gamma with Z pointing out of the
// screen and up when the device lies flat. The render frame is Y-up with the
// camera looking down -Z. The rotation is composed as
//
//	R = Ry(alpha) · Rx(beta) · Rz(-gamma) · Rx(-90°) · Rz(-screen)
//
// i.e. Euler order YXZ, then the fixed sensor-to-render correction, then the
// screen-orientation compensation.
package pose

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/relabs-tech/panorama_capture/internal/orientation"
)

var (
	xAxis = r3.Vec{X: 1}
	yAxis = r3.Vec{Y: 1}
	zAxis = r3.Vec{Z: 1}

	// forward is the camera's view direction before rotation.
	forward = r3.Vec{Z: -1}
	up      = r3.Vec{Y: 1}
)

// frameCorrection maps the sensor frame onto the render frame.
var frameCorrection = r3.NewRotation(-math.Pi/2, xAxis)

// Identity is the rotation that leaves the camera looking down -Z.
var Identity = r3.Rotation{Real: 1}

// uprightBeta is the beta of a phone held vertically, camera facing the
// horizon.
const uprightBeta = 90

// Offset is the zero reference recorded by a calibrate action (degrees).
// Beta is measured from the upright pose, so a zero Offset changes nothing.
type Offset struct {
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
}

// OffsetFrom makes a the new forward view: with the returned offset, a
// (gamma 0) maps to a camera looking down -Z.
func OffsetFrom(a orientation.Angles) Offset {
	return Offset{Alpha: a.Alpha, Beta: a.Beta - uprightBeta}
}

// ComputePose converts filtered angles into the camera rotation. It has no
// state: identical inputs always give identical rotations.
func ComputePose(a orientation.Angles, screenDeg float64, off Offset) r3.Rotation {
	alpha := deg2rad(a.Alpha - off.Alpha)
	beta := deg2rad(a.Beta - off.Beta)
	gamma := deg2rad(a.Gamma)

	q := EulerYXZ(beta, alpha, -gamma)
	q = Mul(q, frameCorrection)
	q = Mul(q, r3.NewRotation(-deg2rad(screenDeg), zAxis))
	return q
}

// EulerYXZ builds Ry(y) · Rx(x) · Rz(z) from radians.
func EulerYXZ(x, y, z float64) r3.Rotation {
	return Mul(Mul(r3.NewRotation(y, yAxis), r3.NewRotation(x, xAxis)), r3.NewRotation(z, zAxis))
}

// LookAt returns the roll-free rotation that points the camera along dir.
// A zero dir yields Identity.
func LookAt(dir r3.Vec) r3.Rotation {
	if r3.Norm(dir) == 0 {
		return Identity
	}
	yaw := math.Atan2(-dir.X, -dir.Z)
	pitch := math.Atan2(dir.Y, math.Hypot(dir.X, dir.Z))
	return EulerYXZ(pitch, yaw, 0)
}

// Mul composes two rotations: the result applies b first, then a.
func Mul(a, b r3.Rotation) r3.Rotation {
	q := quat.Mul(quat.Number(a), quat.Number(b))
	if n := quat.Abs(q); n != 0 && n != 1 {
		q = quat.Scale(1/n, q)
	}
	return r3.Rotation(q)
}

// Forward returns the unit view direction for rot.
func Forward(rot r3.Rotation) r3.Vec {
	return rot.Rotate(forward)
}

// Up returns the unit up direction of the camera for rot.
func Up(rot r3.Rotation) r3.Vec {
	return rot.Rotate(up)
}

func deg2rad(d float64) float64 {
	return d * math.Pi / 180
}
