// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package capture

import (
	"time"
)

// DefaultDwell is how long the viewfinder must stay on a marker.
const DefaultDwell = 1000 * time.Millisecond

// Dwell tracks how long the same marker has been under the viewfinder.
type Dwell struct {
	Hold time.Duration

	current string
	since   time.Time
}

// NewDwell returns a tracker that fires after hold.
func NewDwell(hold time.Duration) *Dwell {
	return &Dwell{Hold: hold}
}

// Observe records the marker under the viewfinder at now ("" for none) and
// reports whether it has now been held long enough. After firing the tracker
// resets, so a marker fires once per continuous aim.
func (d *Dwell) Observe(id string, now time.Time) bool {
	if id == "" {
		d.Reset()
		return false
	}
	if id != d.current {
		d.current = id
		d.since = now
		return false
	}
	if now.Sub(d.since) >= d.Hold {
		d.Reset()
		return true
	}
	return false
}

// Target returns the marker being held and for how long, as of now.
func (d *Dwell) Target(now time.Time) (string, time.Duration) {
	if d.current == "" {
		return "", 0
	}
	return d.current, now.Sub(d.since)
}

// Reset forgets the current marker.
func (d *Dwell) Reset() {
	d.current = ""
	d.since = time.Time{}
}
