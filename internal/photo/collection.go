// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package photo

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"sync"
	"time"

	"github.com/HugoSmits86/nativewebp"
	"github.com/klauspost/compress/zip"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/relabs-tech/panorama_capture/internal/gps"
	"github.com/relabs-tech/panorama_capture/internal/sphere"
)

var (
	// ErrEmptyCollection is returned when archiving a collection with no photos.
	ErrEmptyCollection = errors.New("photo: collection is empty")
	// ErrUnknownFormat is returned for an unsupported photo encoding.
	ErrUnknownFormat = errors.New("photo: unknown format")
)

// Format is the encoding used for stored photos.
type Format string

const (
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatPNG, FormatWebP:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Ext is the file extension, without the dot.
func (f Format) Ext() string { return string(f) }

// Photo is one encoded capture.
type Photo struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	StoredAt time.Time `json:"stored_at"`
	Data     []byte    `json:"-"`
}

// ManifestPoint describes one marker in an archive manifest.
type ManifestPoint struct {
	ID         string        `json:"id"`
	File       string        `json:"file,omitempty"`
	Position   r3.Vec        `json:"position"`
	Facing     sphere.Facing `json:"facing"`
	Color      string        `json:"color"`
	Captured   bool          `json:"captured"`
	CapturedAt *time.Time    `json:"captured_at,omitempty"`
}

// Manifest is written as manifest.json next to the photos.
type Manifest struct {
	Created time.Time       `json:"created"`
	Radius  float64         `json:"radius"`
	Fix     *gps.Fix        `json:"gps,omitempty"`
	Points  []ManifestPoint `json:"points"`
}

// Collection keeps encoded photos in capture order. It implements Sink.
type Collection struct {
	mu     sync.RWMutex
	format Format
	photos []Photo
	index  map[string]int
	now    func() time.Time
}

// NewCollection returns an empty collection encoding with format.
func NewCollection(format Format) (*Collection, error) {
	if _, err := ParseFormat(string(format)); err != nil {
		return nil, err
	}
	return &Collection{
		format: format,
		index:  make(map[string]int),
		now:    time.Now,
	}, nil
}

// Store encodes img and files it as "<id>.<ext>". Storing an id twice
// replaces the earlier photo.
func (c *Collection) Store(id string, img image.Image) error {
	var buf bytes.Buffer
	if err := encode(&buf, img, c.format); err != nil {
		return fmt.Errorf("encode %s: %w", id, err)
	}
	p := Photo{
		ID:       id,
		Name:     id + "." + c.format.Ext(),
		StoredAt: c.now(),
		Data:     buf.Bytes(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if i, ok := c.index[id]; ok {
		c.photos[i] = p
		return nil
	}
	c.index[id] = len(c.photos)
	c.photos = append(c.photos, p)
	return nil
}

func encode(w io.Writer, img image.Image, format Format) error {
	switch format {
	case FormatPNG:
		return png.Encode(w, img)
	case FormatWebP:
		return nativewebp.Encode(w, img, nil)
	default:
		return ErrUnknownFormat
	}
}

// Len returns the number of stored photos.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.photos)
}

// Photos returns the stored photos in capture order.
func (c *Collection) Photos() []Photo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Photo, len(c.photos))
	copy(out, c.photos)
	return out
}

// Get returns the photo stored for id.
func (c *Collection) Get(id string) (Photo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.index[id]
	if !ok {
		return Photo{}, false
	}
	return c.photos[i], true
}

// Clear drops every photo.
func (c *Collection) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.photos = nil
	c.index = make(map[string]int)
}

// WriteArchive writes a zip holding every photo plus manifest.json. Manifest
// points that have a stored photo get their file name and capture time
// filled in.
func (c *Collection) WriteArchive(w io.Writer, m Manifest) error {
	photos := c.Photos()
	if len(photos) == 0 {
		return ErrEmptyCollection
	}

	byID := make(map[string]Photo, len(photos))
	for _, p := range photos {
		byID[p.ID] = p
	}
	points := make([]ManifestPoint, len(m.Points))
	for i, mp := range m.Points {
		if p, ok := byID[mp.ID]; ok {
			at := p.StoredAt
			mp.File = p.Name
			mp.CapturedAt = &at
		}
		points[i] = mp
	}
	m.Points = points
	if m.Created.IsZero() {
		m.Created = c.now()
	}

	zw := zip.NewWriter(w)
	for _, p := range photos {
		// Image data is already compressed.
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     p.Name,
			Method:   zip.Store,
			Modified: p.StoredAt,
		})
		if err != nil {
			return fmt.Errorf("archive %s: %w", p.Name, err)
		}
		if _, err := fw.Write(p.Data); err != nil {
			return fmt.Errorf("archive %s: %w", p.Name, err)
		}
	}

	fw, err := zw.CreateHeader(&zip.FileHeader{
		Name:     "manifest.json",
		Method:   zip.Deflate,
		Modified: m.Created,
	})
	if err != nil {
		return fmt.Errorf("archive manifest: %w", err)
	}
	enc := json.NewEncoder(fw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("archive manifest: %w", err)
	}
	return zw.Close()
}
