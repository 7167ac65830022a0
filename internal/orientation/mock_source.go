// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"
	"time"
)

type mockSource struct {
	start time.Time
	now   func() time.Time
}

// NewMockSource creates a mock orientation source that sweeps slowly around
// the horizon while holding the phone upright, so every marker band comes
// into view over time.
func NewMockSource() Source {
	return &mockSource{start: time.Now(), now: time.Now}
}

func (m *mockSource) Next() (Reading, error) {
	elapsed := m.now().Sub(m.start).Seconds()

	return NewReading(
		math.Mod(elapsed*20, 360),
		90+35*math.Sin(elapsed*0.3),
		3*math.Sin(elapsed*2.1),
	), nil
}
