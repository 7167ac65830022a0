// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/panorama_capture/internal/config"
	"github.com/relabs-tech/panorama_capture/internal/gps"
	"github.com/relabs-tech/panorama_capture/internal/session"
)

const (
	displayWidth  = 128
	displayHeight = 64

	// Progress bar geometry.
	barX, barY, barW, barH = 0, 44, 128, 8
)

// displayData holds the latest bus data for the OLED.
type displayData struct {
	mu sync.RWMutex

	status     session.Status
	haveStatus bool

	lastCapture string

	fix     gps.Fix
	haveFix bool
}

type displaySnapshot struct {
	status      session.Status
	haveStatus  bool
	lastCapture string
	fix         gps.Fix
	haveFix     bool
}

func (d *displayData) snapshot() displaySnapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return displaySnapshot{
		status:      d.status,
		haveStatus:  d.haveStatus,
		lastCapture: d.lastCapture,
		fix:         d.fix,
		haveFix:     d.haveFix,
	}
}

// RunDisplay shows capture progress from MQTT on an SSD1306 OLED.
func RunDisplay() error {
	cfg := config.Get()

	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	// Open I2C bus
	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(addrBus{Bus: bus, addr: cfg.DisplayI2CAddr}, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Printf("display: initialized at 0x%02X", cfg.DisplayI2CAddr)

	if err := dev.Draw(dev.Bounds(), renderSplash(), image.Point{}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	data := &displayData{}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDDisplay)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	log.Printf("display: connected to MQTT broker at %s", cfg.MQTTBroker)

	if err := subscribeJSON(client, "display", cfg.TopicStatus, func(st session.Status) {
		data.mu.Lock()
		data.status = st
		data.haveStatus = true
		data.mu.Unlock()
	}); err != nil {
		return err
	}
	if err := subscribeJSON(client, "display", cfg.TopicCapture, func(m CaptureMessage) {
		data.mu.Lock()
		data.lastCapture = m.ID
		data.mu.Unlock()
	}); err != nil {
		return err
	}
	if err := subscribeJSON(client, "display", cfg.TopicGPS, func(f gps.Fix) {
		data.mu.Lock()
		data.fix = f
		data.haveFix = true
		data.mu.Unlock()
	}); err != nil {
		return err
	}

	ticker := time.NewTicker(config.Interval(cfg.DisplayUpdateInterval))
	defer ticker.Stop()

	log.Println("display: starting update loop")

	for range ticker.C {
		img := renderProgress(data.snapshot())
		if err := dev.Draw(dev.Bounds(), img, image.Point{}); err != nil {
			log.Printf("display: error updating display: %v", err)
		}
	}

	return nil
}

// addrBus sends every transaction to addr, so panels strapped to 0x3D work
// with the fixed-address ssd1306 driver.
type addrBus struct {
	i2c.Bus
	addr uint16
}

func (b addrBus) Tx(_ uint16, w, r []byte) error {
	return b.Bus.Tx(b.addr, w, r)
}

func newCanvas() (*image1bit.VerticalLSB, *font.Drawer) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, displayWidth, displayHeight))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	return img, drawer
}

func renderSplash() *image1bit.VerticalLSB {
	img, drawer := newCanvas()

	drawer.Dot = fixed.P(10, 26)
	drawer.DrawString("Panorama")

	drawer.Dot = fixed.P(5, 43)
	drawer.DrawString("Waiting for")

	drawer.Dot = fixed.P(25, 56)
	drawer.DrawString("session")

	return img
}

// renderProgress draws the capture count, a progress bar and the GPS fix.
func renderProgress(s displaySnapshot) *image1bit.VerticalLSB {
	img, drawer := newCanvas()

	if !s.haveStatus {
		drawer.Dot = fixed.P(0, 26)
		drawer.DrawString("Panorama")
		drawer.Dot = fixed.P(0, 39)
		drawer.DrawString("Waiting...")
		return img
	}

	st := s.status
	done := st.Total - st.Remaining

	drawer.Dot = fixed.P(0, 13)
	switch {
	case !st.Granted:
		drawer.DrawString("No sensor access")
	case st.Complete:
		drawer.DrawString(fmt.Sprintf("Done %d/%d", done, st.Total))
	default:
		drawer.DrawString(fmt.Sprintf("Photos %d/%d", done, st.Total))
	}

	drawer.Dot = fixed.P(0, 26)
	switch {
	case st.Target != "":
		drawer.DrawString("Aim: " + shortID(st.Target))
	case s.lastCapture != "":
		drawer.DrawString("Last: " + shortID(s.lastCapture))
	}

	if s.haveFix && s.fix.Valid() {
		drawer.Dot = fixed.P(0, 39)
		drawer.DrawString(fmt.Sprintf("%.3f %.3f", s.fix.Latitude, s.fix.Longitude))
	}

	drawBar(img, done, st.Total)
	return img
}

// drawBar outlines the bar and fills done/total of it.
func drawBar(img *image1bit.VerticalLSB, done, total int) {
	for x := barX; x < barX+barW; x++ {
		img.SetBit(x, barY, image1bit.On)
		img.SetBit(x, barY+barH-1, image1bit.On)
	}
	for y := barY; y < barY+barH; y++ {
		img.SetBit(barX, y, image1bit.On)
		img.SetBit(barX+barW-1, y, image1bit.On)
	}
	if total <= 0 {
		return
	}
	fill := (barW - 2) * done / total
	for x := barX + 1; x < barX+1+fill; x++ {
		for y := barY + 1; y < barY+barH-1; y++ {
			img.SetBit(x, y, image1bit.On)
		}
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
