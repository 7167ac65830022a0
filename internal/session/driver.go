// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package session

import (
	"context"
	"errors"
	"time"

	"github.com/relabs-tech/panorama_capture/internal/orientation"
)

// ErrStopped is returned by Do once the driver loop has exited.
var ErrStopped = errors.New("session: driver stopped")

type command struct {
	fn   func(*Session) error
	errc chan error
}

// Driver runs the frame loop. Its Run goroutine is the only one touching
// the Session; sensor callbacks push into latest-value slots and everything
// else goes through Do. Readings are filtered as they arrive, frames only
// read the latest filtered angles.
type Driver struct {
	s        *Session
	interval time.Duration
	onFrame  func(FrameResult)

	readings *orientation.Slot[orientation.Reading]
	screen   *orientation.Slot[float64]
	cmds     chan command
	stopped  chan struct{}

	now func() time.Time
}

// NewDriver wraps s. onFrame, if not nil, is called from the loop after
// every frame.
func NewDriver(s *Session, interval time.Duration, onFrame func(FrameResult)) *Driver {
	if interval <= 0 {
		interval = time.Second / 30
	}
	return &Driver{
		s:        s,
		interval: interval,
		onFrame:  onFrame,
		readings: orientation.NewSlot[orientation.Reading](),
		screen:   orientation.NewSlot[float64](),
		cmds:     make(chan command),
		stopped:  make(chan struct{}),
		now:      time.Now,
	}
}

// PushReading hands a raw sample to the loop, which filters it without
// waiting for the next frame. A sample not yet consumed is replaced. Safe
// from any goroutine.
func (d *Driver) PushReading(r orientation.Reading) { d.readings.Put(r) }

// PushScreen hands a screen rotation angle to the loop.
func (d *Driver) PushScreen(deg float64) { d.screen.Put(deg) }

// Do runs fn on the loop goroutine and returns its error.
func (d *Driver) Do(ctx context.Context, fn func(*Session) error) error {
	c := command{fn: fn, errc: make(chan error, 1)}
	select {
	case d.cmds <- c:
	case <-ctx.Done():
		return ctx.Err()
	case <-d.stopped:
		return ErrStopped
	}
	select {
	case err := <-c.errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drives frames until ctx is cancelled.
func (d *Driver) Run(ctx context.Context) error {
	defer close(d.stopped)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r := <-d.readings.C():
			// Samples before the permission grant are dropped.
			_ = d.s.HandleReading(r)
		case c := <-d.cmds:
			c.errc <- c.fn(d.s)
		case <-ticker.C:
			d.step()
		}
	}
}

func (d *Driver) step() {
	if deg, ok := d.screen.Take(); ok {
		d.s.SetScreenRotation(deg)
	}
	res := d.s.Frame(d.now())
	if d.onFrame != nil {
		d.onFrame(res)
	}
}
