// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package photo

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"sync"

	_ "golang.org/x/image/webp"
)

// FrameStore holds the most recent frame uploaded by a client. It is the
// live camera source when the browser streams its video as still images.
type FrameStore struct {
	mu     sync.RWMutex
	img    image.Image
	format string

	ready     chan struct{}
	readyOnce sync.Once
}

// NewFrameStore returns an empty store.
func NewFrameStore() *FrameStore {
	return &FrameStore{ready: make(chan struct{})}
}

// Ready is closed once the first frame has arrived.
func (s *FrameStore) Ready() <-chan struct{} { return s.ready }

// Wait blocks until the first frame arrives and returns the store as a
// FrameSource. It is meant as the open function for Acquire.
func (s *FrameStore) Wait(ctx context.Context) (FrameSource, error) {
	select {
	case <-s.ready:
		return s, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Decode replaces the current frame with an encoded JPEG, PNG or WebP image.
// On failure the previous frame is kept.
func (s *FrameStore) Decode(data []byte) error {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode frame: %w", err)
	}
	s.set(img, format)
	return nil
}

// Put replaces the current frame.
func (s *FrameStore) Put(img image.Image) {
	s.set(img, "")
}

func (s *FrameStore) set(img image.Image, format string) {
	s.mu.Lock()
	s.img, s.format = img, format
	s.mu.Unlock()
	s.readyOnce.Do(func() { close(s.ready) })
}

// Frame returns the latest frame or ErrNotReady.
func (s *FrameStore) Frame() (image.Image, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.img == nil {
		return nil, ErrNotReady
	}
	return s.img, nil
}

// Format is the encoding of the last decoded upload ("jpeg", "png", "webp").
func (s *FrameStore) Format() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.format
}
