// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package capture decides which marker the camera is aimed at.
package capture

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/relabs-tech/panorama_capture/internal/pose"
	"github.com/relabs-tech/panorama_capture/internal/sphere"
)

// Policy selects how a capture is triggered.
type Policy string

const (
	// PolicyInstant captures the aimed-at marker on an explicit request.
	PolicyInstant Policy = "instant"
	// PolicyDwell captures automatically once the viewfinder stays on one
	// marker for the dwell time.
	PolicyDwell Policy = "dwell"
)

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case PolicyInstant, PolicyDwell:
		return p, nil
	default:
		return "", fmt.Errorf("unknown capture policy %q", s)
	}
}

// DefaultMatchFactor scales the marker radius into the aim tolerance.
const DefaultMatchFactor = 2.5

// Matcher finds the marker closest to the viewfinder.
type Matcher struct {
	AimDistance float64 // how far ahead of the camera the aim point sits
	Threshold   float64 // max distance between aim point and marker center
}

// NewMatcher builds a matcher whose tolerance is markerRadius*factor.
func NewMatcher(aimDistance, markerRadius, factor float64) Matcher {
	return Matcher{AimDistance: aimDistance, Threshold: markerRadius * factor}
}

// FindTarget returns the marker the camera is aimed at, or nil. Candidates
// lie within Threshold of the aim point; among them the smallest angle to the
// view direction wins, ties going to the earlier point. Captured points are
// never returned.
func (m Matcher) FindTarget(rot r3.Rotation, camPos r3.Vec, points []*sphere.TargetPoint) *sphere.TargetPoint {
	dir := pose.Forward(rot)
	aim := r3.Add(camPos, r3.Scale(m.AimDistance, dir))

	var best *sphere.TargetPoint
	minAngle := math.Inf(1)
	for _, p := range points {
		if p == nil || p.Captured {
			continue
		}
		if r3.Norm(r3.Sub(p.Position, aim)) > m.Threshold {
			continue
		}
		angle := angleBetween(dir, r3.Sub(p.Position, camPos))
		if angle < minAngle {
			minAngle = angle
			best = p
		}
	}
	return best
}

// Intersect casts a ray from the camera through the screen center and
// returns the nearest marker sphere it hits, or nil.
func Intersect(rot r3.Rotation, camPos r3.Vec, points []*sphere.TargetPoint, markerRadius float64) *sphere.TargetPoint {
	dir := pose.Forward(rot)

	var best *sphere.TargetPoint
	nearest := math.Inf(1)
	for _, p := range points {
		if p == nil || p.Captured {
			continue
		}
		t, ok := raySphere(camPos, dir, p.Position, markerRadius)
		if ok && t < nearest {
			nearest = t
			best = p
		}
	}
	return best
}

// raySphere returns the distance along the unit ray to the first hit.
func raySphere(origin, dir, center r3.Vec, radius float64) (float64, bool) {
	oc := r3.Sub(origin, center)
	b := r3.Dot(oc, dir)
	c := r3.Dot(oc, oc) - radius*radius
	disc := b*b - c
	if disc < 0 {
		return 0, false
	}
	sq := math.Sqrt(disc)
	t := -b - sq
	if t < 0 {
		// Origin inside the sphere.
		t = -b + sq
	}
	if t < 0 {
		return 0, false
	}
	return t, true
}

func angleBetween(a, b r3.Vec) float64 {
	na, nb := r3.Norm(a), r3.Norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	cos := r3.Dot(a, b) / (na * nb)
	return math.Acos(math.Max(-1, math.Min(1, cos)))
}
