// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/panorama_capture/internal/config"
	"github.com/relabs-tech/panorama_capture/internal/gps"
	"github.com/relabs-tech/panorama_capture/internal/orientation"
	"github.com/relabs-tech/panorama_capture/internal/session"
)

// RunConsoleMQTT prints session progress, captures, orientation and GPS
// traffic from the bus.
func RunConsoleMQTT() error {
	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	if err := subscribeJSON(client, "console", cfg.TopicStatus, func(st session.Status) {
		fmt.Println(formatStatus(st))
	}); err != nil {
		return err
	}
	if err := subscribeJSON(client, "console", cfg.TopicCapture, func(m CaptureMessage) {
		fmt.Println(formatCapture(m))
	}); err != nil {
		return err
	}
	if err := subscribeJSON(client, "console", cfg.TopicOrientation, func(r orientation.Reading) {
		fmt.Println(formatReading(r))
	}); err != nil {
		return err
	}
	if err := subscribeJSON(client, "console", cfg.TopicGPS, func(f gps.Fix) {
		fmt.Println(formatFix(f))
	}); err != nil {
		return err
	}

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}

func formatStatus(st session.Status) string {
	state := "capturing"
	switch {
	case !st.Granted:
		state = "waiting for sensors"
	case st.Complete:
		state = "complete"
	}
	return fmt.Sprintf("[STAT] %d/%d captured  policy=%s  target=%q  %s",
		st.Total-st.Remaining, st.Total, st.Policy, st.Target, state)
}

func formatCapture(m CaptureMessage) string {
	return fmt.Sprintf("[SNAP] id=%s photo=%v left=%d", m.ID, m.Photo, m.Remaining)
}

func formatReading(r orientation.Reading) string {
	a := r.Angles()
	return fmt.Sprintf("[ORNT] ALPHA=%7.2f  BETA=%7.2f  GAMMA=%7.2f%s",
		a.Alpha, a.Beta, a.Gamma, missingAxes(r))
}

func missingAxes(r orientation.Reading) string {
	s := ""
	if r.Alpha == nil {
		s += " (no alpha)"
	}
	if r.Beta == nil {
		s += " (no beta)"
	}
	if r.Gamma == nil {
		s += " (no gamma)"
	}
	return s
}

func formatFix(f gps.Fix) string {
	return fmt.Sprintf("[GPS ] time=%s date=%s lat=%.6f lon=%.6f speed=%.1fkn course=%.1f° validity=%s",
		f.Time, f.Date, f.Latitude, f.Longitude, f.SpeedKnots, f.CourseDeg, f.Validity)
}
