// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package photo

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Synthetic renders placeholder frames: a flat background with a sequence
// number and timestamp. Used when no camera is attached.
type Synthetic struct {
	Width, Height int
	Background    color.Color

	mu  sync.Mutex
	seq int
	now func() time.Time
}

// NewSynthetic returns a w x h placeholder source.
func NewSynthetic(w, h int) *Synthetic {
	return &Synthetic{
		Width:      w,
		Height:     h,
		Background: color.RGBA{R: 40, G: 40, B: 48, A: 255},
		now:        time.Now,
	}
}

// Frame draws the next placeholder frame.
func (s *Synthetic) Frame() (image.Image, error) {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	img := image.NewRGBA(image.Rect(0, 0, s.Width, s.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{s.Background}, image.Point{}, draw.Src)

	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.White,
		Face: basicfont.Face7x13,
	}
	drawer.Dot = fixed.P(4, 13)
	drawer.DrawString(fmt.Sprintf("frame %d", seq))
	drawer.Dot = fixed.P(4, 26)
	drawer.DrawString(s.now().UTC().Format("15:04:05.000"))

	return img, nil
}
