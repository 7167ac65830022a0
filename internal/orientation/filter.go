// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"fmt"
)

// Mode selects the per-axis smoothing algorithm.
type Mode string

const (
	ModeKalman      Mode = "kalman"
	ModeExponential Mode = "exponential"
)

// FilterConfig holds the smoothing parameters shared by all three axes.
type FilterConfig struct {
	Mode Mode

	// Kalman
	ProcessVariance     float64 // Q: how fast the true angle is expected to move
	MeasurementVariance float64 // R: sensor jitter

	// Exponential: state = state*(1-k) + sample*k
	SmoothingFactor float64
}

// DefaultFilterConfig returns the Kalman setup used by the capture service.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		Mode:                ModeKalman,
		ProcessVariance:     0.01,
		MeasurementVariance: 0.1,
		SmoothingFactor:     0.1,
	}
}

// Validate checks the parameters of the selected mode.
func (c FilterConfig) Validate() error {
	switch c.Mode {
	case ModeKalman:
		if c.ProcessVariance <= 0 {
			return fmt.Errorf("kalman process variance must be > 0, got %v", c.ProcessVariance)
		}
		if c.MeasurementVariance <= 0 {
			return fmt.Errorf("kalman measurement variance must be > 0, got %v", c.MeasurementVariance)
		}
	case ModeExponential:
		if c.SmoothingFactor <= 0 || c.SmoothingFactor > 1 {
			return fmt.Errorf("smoothing factor must be in (0,1], got %v", c.SmoothingFactor)
		}
	default:
		return fmt.Errorf("unknown filter mode %q", c.Mode)
	}
	return nil
}

// Wrap thresholds and periods per axis (degrees). A jump larger than the
// threshold between two raw samples is taken as a wrap of one period.
const (
	alphaWrapThreshold = 180
	alphaPeriod        = 360
	betaWrapThreshold  = 90
	betaPeriod         = 360
	gammaWrapThreshold = 90
	gammaPeriod        = 180
)

// Filter smooths device-orientation readings. Each axis is unwrapped into a
// continuous angle before smoothing, so outputs may leave the device ranges
// (e.g. alpha 361 after crossing north); use Normalize for display.
//
// A Filter is not safe for concurrent use.
type Filter struct {
	cfg   FilterConfig
	alpha axis
	beta  axis
	gamma axis

	last  Angles
	ready bool
}

// NewFilter builds a filter for cfg.
func NewFilter(cfg FilterConfig) (*Filter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("orientation filter: %w", err)
	}
	f := &Filter{cfg: cfg}
	f.Reset()
	return f, nil
}

// Update feeds one raw reading and returns the filtered angles.
func (f *Filter) Update(r Reading) Angles {
	raw := r.Angles()
	f.last = Angles{
		Alpha: f.alpha.update(raw.Alpha),
		Beta:  f.beta.update(raw.Beta),
		Gamma: f.gamma.update(raw.Gamma),
	}
	f.ready = true
	return f.last
}

// Last returns the most recent filtered angles, if any reading was seen.
func (f *Filter) Last() (Angles, bool) {
	return f.last, f.ready
}

// Reset drops all state; the next reading initializes every axis directly.
func (f *Filter) Reset() {
	f.alpha = axis{threshold: alphaWrapThreshold, period: alphaPeriod, s: f.newSmoother()}
	f.beta = axis{threshold: betaWrapThreshold, period: betaPeriod, s: f.newSmoother()}
	f.gamma = axis{threshold: gammaWrapThreshold, period: gammaPeriod, s: f.newSmoother()}
	f.last = Angles{}
	f.ready = false
}

func (f *Filter) newSmoother() smoother {
	if f.cfg.Mode == ModeExponential {
		return &exponential{k: f.cfg.SmoothingFactor}
	}
	return &kalman{q: f.cfg.ProcessVariance, r: f.cfg.MeasurementVariance}
}

// axis unwraps one angle and hands the continuous value to its smoother.
type axis struct {
	threshold float64
	period    float64

	prevRaw float64
	turns   float64
	ready   bool
	s       smoother
}

func (a *axis) update(raw float64) float64 {
	if !a.ready {
		a.prevRaw = raw
		a.turns = 0
		a.ready = true
		return a.s.init(raw)
	}

	delta := raw - a.prevRaw
	switch {
	case delta > a.threshold:
		a.turns -= a.period
	case delta < -a.threshold:
		a.turns += a.period
	}
	a.prevRaw = raw

	return a.s.update(raw + a.turns)
}

type smoother interface {
	init(v float64) float64
	update(v float64) float64
}

// kalman is a scalar constant-position Kalman filter.
type kalman struct {
	q, r float64
	x, p float64
}

func (k *kalman) init(v float64) float64 {
	k.x = v
	k.p = k.r
	return k.x
}

func (k *kalman) update(z float64) float64 {
	// Predict
	k.p += k.q

	// Update
	gain := k.p / (k.p + k.r)
	k.x += gain * (z - k.x)
	k.p *= 1 - gain
	return k.x
}

type exponential struct {
	k float64
	x float64
}

func (e *exponential) init(v float64) float64 {
	e.x = v
	return e.x
}

func (e *exponential) update(v float64) float64 {
	e.x = e.x*(1-e.k) + v*e.k
	return e.x
}
