// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package session owns one panorama capture run: the marker set, the
// orientation filter, calibration, and the capture policy.
package session

import (
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/relabs-tech/panorama_capture/internal/capture"
	"github.com/relabs-tech/panorama_capture/internal/gps"
	"github.com/relabs-tech/panorama_capture/internal/orientation"
	"github.com/relabs-tech/panorama_capture/internal/palette"
	"github.com/relabs-tech/panorama_capture/internal/photo"
	"github.com/relabs-tech/panorama_capture/internal/pose"
	"github.com/relabs-tech/panorama_capture/internal/sphere"
)

var (
	// ErrPermissionDenied is returned once when the user refuses sensor access.
	ErrPermissionDenied = errors.New("session: sensor permission denied")
	// ErrNotGranted is returned for sensor-driven actions before access is granted.
	ErrNotGranted = errors.New("session: sensor permission not granted")
)

// Config describes the marker layout and capture behaviour.
type Config struct {
	Radius       float64        // sphere radius the markers sit on
	Count        int            // number of markers
	MarkerRadius float64        // radius of one marker
	AimDistance  float64        // distance of the aim point ahead of the camera
	MatchFactor  float64        // aim tolerance as a multiple of MarkerRadius
	Policy       capture.Policy // instant or dwell
	Dwell        time.Duration  // hold time for the dwell policy
	Filter       orientation.FilterConfig
}

// DefaultConfig returns a 16-marker layout at radius 25.
func DefaultConfig() Config {
	return Config{
		Radius:       25,
		Count:        16,
		MarkerRadius: 1,
		AimDistance:  25,
		MatchFactor:  capture.DefaultMatchFactor,
		Policy:       capture.PolicyInstant,
		Dwell:        capture.DefaultDwell,
		Filter:       orientation.DefaultFilterConfig(),
	}
}

func (c Config) validate() error {
	if _, err := capture.ParsePolicy(string(c.Policy)); err != nil {
		return err
	}
	if c.MarkerRadius <= 0 {
		return fmt.Errorf("marker radius must be > 0, got %v", c.MarkerRadius)
	}
	if c.AimDistance <= 0 {
		return fmt.Errorf("aim distance must be > 0, got %v", c.AimDistance)
	}
	if c.MatchFactor <= 0 {
		return fmt.Errorf("match factor must be > 0, got %v", c.MatchFactor)
	}
	if c.Policy == capture.PolicyDwell && c.Dwell <= 0 {
		return fmt.Errorf("dwell must be > 0, got %v", c.Dwell)
	}
	return c.Filter.Validate()
}

// EventKind names something that happened during a frame.
type EventKind string

const (
	EventTarget   EventKind = "target"   // aimed-at marker changed
	EventCaptured EventKind = "captured" // marker captured
	EventComplete EventKind = "complete" // last marker captured
)

// Event is emitted by Frame, Capture and Reset.
type Event struct {
	Kind    EventKind `json:"type"`
	PointID string    `json:"id,omitempty"`
	Photo   bool      `json:"photo,omitempty"` // a frame reached the sink
}

// Status summarises progress.
type Status struct {
	Granted     bool           `json:"granted"`
	Total       int            `json:"total"`
	Remaining   int            `json:"remaining"`
	Complete    bool           `json:"complete"`
	Target      string         `json:"target,omitempty"`
	Policy      capture.Policy `json:"policy"`
	Calibration pose.Offset    `json:"calibration"`
}

// FrameResult is the outcome of one frame.
type FrameResult struct {
	Angles   orientation.Angles `json:"angles"`
	Rotation r3.Rotation        `json:"rotation"`
	Forward  r3.Vec             `json:"forward"`
	Target   string             `json:"target,omitempty"`
	DwellMs  int64              `json:"dwell_ms,omitempty"` // how long Target has been held
	Events   []Event            `json:"events,omitempty"`
	Status   Status             `json:"status"`
}

// Session is not safe for concurrent use; Driver serialises access to it.
type Session struct {
	cfg     Config
	matcher capture.Matcher

	points []*sphere.TargetPoint // generation order
	active []*sphere.TargetPoint // not yet captured, generation order

	filter *orientation.Filter
	angles orientation.Angles
	screen float64
	offset pose.Offset

	dwell  *capture.Dwell
	target string

	granted bool
	frames  photo.FrameSource
	sink    photo.Sink
}

// New builds a session. An invalid radius or negative count fails with
// sphere.ErrInvalidGeometry; a count of zero gives a session that is
// complete from the start. sink may be nil.
func New(cfg Config, sink photo.Sink) (*Session, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("session config: %w", err)
	}
	filter, err := orientation.NewFilter(cfg.Filter)
	if err != nil {
		return nil, fmt.Errorf("session filter: %w", err)
	}
	s := &Session{
		cfg:     cfg,
		matcher: capture.NewMatcher(cfg.AimDistance, cfg.MarkerRadius, cfg.MatchFactor),
		filter:  filter,
		dwell:   capture.NewDwell(cfg.Dwell),
		sink:    sink,
	}
	if err := s.layout(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) layout() error {
	pts, err := sphere.Generate(s.cfg.Radius, s.cfg.Count)
	if err != nil {
		return fmt.Errorf("session layout: %w", err)
	}
	s.points = make([]*sphere.TargetPoint, len(pts))
	s.active = make([]*sphere.TargetPoint, len(pts))
	for i := range pts {
		s.points[i] = &pts[i]
		s.active[i] = &pts[i]
	}
	return nil
}

// Config returns the session configuration.
func (s *Session) Config() Config { return s.cfg }

// Grant records the outcome of the sensor permission prompt. A refusal
// returns ErrPermissionDenied and leaves the session idle.
func (s *Session) Grant(ok bool) error {
	if !ok {
		s.granted = false
		Logf("session: sensor permission denied")
		return ErrPermissionDenied
	}
	if !s.granted {
		Logf("session: sensor permission granted")
	}
	s.granted = true
	return nil
}

// Granted reports whether sensor access was granted.
func (s *Session) Granted() bool { return s.granted }

// HandleReading feeds one raw orientation sample to the filter.
func (s *Session) HandleReading(r orientation.Reading) error {
	if !s.granted {
		return ErrNotGranted
	}
	s.angles = s.filter.Update(r)
	return nil
}

// SetScreenRotation sets the screen orientation angle (0, 90, 180, 270).
func (s *Session) SetScreenRotation(deg float64) {
	s.screen = orientation.Normalize(deg)
}

// Calibrate takes the current filtered orientation as the new zero point
// and restarts the filter.
func (s *Session) Calibrate() (pose.Offset, error) {
	if !s.granted {
		return pose.Offset{}, ErrNotGranted
	}
	s.offset = pose.OffsetFrom(s.angles)
	s.filter.Reset()
	s.dwell.Reset()
	Logf("session: calibrated alpha=%.1f beta=%.1f", s.offset.Alpha, s.offset.Beta)
	return s.offset, nil
}

// SetFrameSource installs the camera frame source. nil removes it.
func (s *Session) SetFrameSource(src photo.FrameSource) { s.frames = src }

// Rotation is the camera rotation for the current inputs.
func (s *Session) Rotation() r3.Rotation {
	return pose.ComputePose(s.angles, s.screen, s.offset)
}

// Frame advances the session by one frame at now: it recomputes the pose,
// finds the aimed-at marker and, under the dwell policy, captures it once
// it has been held long enough.
func (s *Session) Frame(now time.Time) FrameResult {
	rot := s.Rotation()
	res := FrameResult{
		Angles:   s.angles,
		Rotation: rot,
		Forward:  pose.Forward(rot),
	}
	if !s.granted {
		res.Status = s.Status()
		return res
	}

	var target *sphere.TargetPoint
	switch s.cfg.Policy {
	case capture.PolicyDwell:
		target = capture.Intersect(rot, r3.Vec{}, s.active, s.cfg.MarkerRadius)
	default:
		target = s.matcher.FindTarget(rot, r3.Vec{}, s.active)
	}

	id := ""
	if target != nil {
		id = target.ID
	}
	if id != s.target {
		s.target = id
		res.Events = append(res.Events, Event{Kind: EventTarget, PointID: id})
	}

	if s.cfg.Policy == capture.PolicyDwell {
		if s.dwell.Observe(id, now) {
			res.Events = append(res.Events, s.take(target)...)
		} else if _, held := s.dwell.Target(now); id != "" {
			res.DwellMs = held.Milliseconds()
		}
	}

	res.Target = s.target
	res.Status = s.Status()
	return res
}

// Capture photographs the marker under the viewfinder, if any. With nothing
// in range it returns (nil, nil, nil).
func (s *Session) Capture() (*sphere.TargetPoint, []Event, error) {
	if !s.granted {
		return nil, nil, ErrNotGranted
	}
	p := s.matcher.FindTarget(s.Rotation(), r3.Vec{}, s.active)
	if p == nil {
		return nil, nil, nil
	}
	return p, s.take(p), nil
}

// take marks p captured, drops it from the active set and hands the current
// frame to the sink. A missing or failing frame source is logged; the
// marker is captured either way.
func (s *Session) take(p *sphere.TargetPoint) []Event {
	p.Captured = true
	for i, a := range s.active {
		if a == p {
			s.active = append(s.active[:i], s.active[i+1:]...)
			break
		}
	}
	s.dwell.Reset()
	if s.target == p.ID {
		s.target = ""
	}

	ev := Event{Kind: EventCaptured, PointID: p.ID, Photo: s.store(p.ID)}
	Logf("session: captured %s (%d left)", p.ID, len(s.active))

	events := []Event{ev}
	if len(s.active) == 0 {
		Logf("session: all %d markers captured", len(s.points))
		events = append(events, Event{Kind: EventComplete})
	}
	return events
}

func (s *Session) store(id string) bool {
	if s.frames == nil {
		Logf("session: no frame source, %s captured without photo", id)
		return false
	}
	img, err := s.frames.Frame()
	if err != nil {
		Logf("session: frame for %s: %v", id, err)
		return false
	}
	if s.sink == nil {
		return false
	}
	if err := s.sink.Store(id, img); err != nil {
		Logf("session: store %s: %v", id, err)
		return false
	}
	return true
}

// Reset starts over with a fresh marker set, a cleared filter and no
// calibration. Permission is kept. A sink with a Clear method is emptied.
func (s *Session) Reset() error {
	if err := s.layout(); err != nil {
		return err
	}
	s.filter.Reset()
	s.angles = orientation.Angles{}
	s.offset = pose.Offset{}
	s.dwell.Reset()
	s.target = ""
	if c, ok := s.sink.(interface{ Clear() }); ok {
		c.Clear()
	}
	Logf("session: reset with %d markers", len(s.points))
	return nil
}

// Remaining returns the number of markers not yet captured.
func (s *Session) Remaining() int { return len(s.active) }

// Complete reports whether every marker has been captured.
func (s *Session) Complete() bool { return len(s.active) == 0 }

// Points returns a copy of every marker, captured or not, in generation order.
func (s *Session) Points() []sphere.TargetPoint {
	out := make([]sphere.TargetPoint, len(s.points))
	for i, p := range s.points {
		out[i] = *p
	}
	return out
}

// Active returns a copy of the markers still to capture.
func (s *Session) Active() []sphere.TargetPoint {
	out := make([]sphere.TargetPoint, len(s.active))
	for i, p := range s.active {
		out[i] = *p
	}
	return out
}

// Status summarises progress.
func (s *Session) Status() Status {
	return Status{
		Granted:     s.granted,
		Total:       len(s.points),
		Remaining:   len(s.active),
		Complete:    len(s.active) == 0,
		Target:      s.target,
		Policy:      s.cfg.Policy,
		Calibration: s.offset,
	}
}

// Manifest describes every marker for an archive. fix may be nil.
func (s *Session) Manifest(fix *gps.Fix) photo.Manifest {
	m := photo.Manifest{Radius: s.cfg.Radius, Fix: fix}
	for _, p := range s.points {
		m.Points = append(m.Points, photo.ManifestPoint{
			ID:       p.ID,
			Position: p.Position,
			Facing:   p.Facing,
			Color:    palette.AngleHue(p.Position).String(),
			Captured: p.Captured,
		})
	}
	return m
}
