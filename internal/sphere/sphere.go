// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sphere lays out the capture targets on a sphere around the camera.
package sphere

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrInvalidGeometry is returned for a non-positive radius or a negative count.
var ErrInvalidGeometry = errors.New("invalid sphere geometry")

// goldenAngle is π(3-√5), the per-index step of the spiral lattice.
var goldenAngle = math.Pi * (3 - math.Sqrt(5))

// pointNamespace seeds the name-based point IDs so the same layout always
// produces the same IDs.
var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:relabs:panorama_capture:point"))

// Facing is the rotation (radians) that turns a marker toward the origin.
type Facing struct {
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
	Roll  float64 `json:"roll"`
}

// TargetPoint is one marker the user has to photograph.
type TargetPoint struct {
	ID       string `json:"id"`
	Position r3.Vec `json:"position"`
	Facing   Facing `json:"facing"`
	Captured bool   `json:"captured"`
}

// Generate returns count points spread over a sphere of the given radius
// using the golden-angle spiral. The result only depends on its arguments.
func Generate(radius float64, count int) ([]TargetPoint, error) {
	if radius <= 0 || math.IsNaN(radius) || math.IsInf(radius, 0) {
		return nil, fmt.Errorf("radius %v: %w", radius, ErrInvalidGeometry)
	}
	if count < 0 {
		return nil, fmt.Errorf("count %d: %w", count, ErrInvalidGeometry)
	}

	points := make([]TargetPoint, 0, count)
	for i := 0; i < count; i++ {
		y := 1 - float64(2*i+1)/float64(count)
		planar := math.Sqrt(1 - y*y)
		theta := goldenAngle * float64(i)

		unit := r3.Vec{X: planar * math.Cos(theta), Y: y, Z: planar * math.Sin(theta)}
		points = append(points, TargetPoint{
			ID:       pointID(radius, count, i),
			Position: r3.Scale(radius, unit),
			Facing:   FacingOrigin(unit),
		})
	}
	return points, nil
}

// FacingOrigin returns the yaw/pitch that points a marker at p toward the
// origin. Roll is always zero.
func FacingOrigin(p r3.Vec) Facing {
	return Facing{
		Yaw:   math.Atan2(-p.X, -p.Z),
		Pitch: math.Atan2(-p.Y, math.Hypot(p.X, p.Z)),
	}
}

func pointID(radius float64, count, i int) string {
	name := fmt.Sprintf("%g/%d/%d", radius, count, i)
	return uuid.NewSHA1(pointNamespace, []byte(name)).String()
}
