// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package photo holds camera frame sources and the captured photo collection.
package photo

import (
	"context"
	"errors"
	"image"
	"sync"
)

// ErrNotReady is returned by a frame source that has no frame yet.
var ErrNotReady = errors.New("photo: frame source not ready")

// FrameSource yields the current camera frame.
type FrameSource interface {
	Frame() (image.Image, error)
}

// FrameSourceFunc adapts a function to FrameSource.
type FrameSourceFunc func() (image.Image, error)

func (f FrameSourceFunc) Frame() (image.Image, error) { return f() }

// Sink receives captured frames keyed by point id.
type Sink interface {
	Store(id string, img image.Image) error
}

// Lazy is a FrameSource that becomes usable once an asynchronous open
// completes. Until then Frame returns ErrNotReady; if the open failed,
// Frame returns that error.
type Lazy struct {
	mu   sync.RWMutex
	src  FrameSource
	err  error
	done chan struct{}
}

// Acquire starts open in the background and returns immediately.
func Acquire(ctx context.Context, open func(context.Context) (FrameSource, error)) *Lazy {
	l := &Lazy{done: make(chan struct{})}
	go func() {
		src, err := open(ctx)
		l.mu.Lock()
		l.src, l.err = src, err
		l.mu.Unlock()
		close(l.done)
	}()
	return l
}

// Frame returns the frame of the underlying source once it is ready.
func (l *Lazy) Frame() (image.Image, error) {
	l.mu.RLock()
	src, err := l.src, l.err
	l.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	if src == nil {
		return nil, ErrNotReady
	}
	return src.Frame()
}

// Done is closed when the open attempt has finished.
func (l *Lazy) Done() <-chan struct{} { return l.done }

// Err reports the open failure, if any.
func (l *Lazy) Err() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.err
}
