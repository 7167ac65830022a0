// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"log"

	"github.com/relabs-tech/panorama_capture/internal/config"
	"github.com/relabs-tech/panorama_capture/internal/gps"
)

// RunGPSProducer opens the GPS serial port, parses NMEA sentences, and
// publishes every RMC fix as JSON to TOPIC_GPS. The web service stamps the
// latest valid fix into the photo archive manifest.
func RunGPSProducer() error {
	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDGPS)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	log.Printf("gps: connected to MQTT broker at %s", cfg.MQTTBroker)

	port, err := gps.OpenSerial(cfg.GPSSerialPort, uint(cfg.GPSBaudRate))
	if err != nil {
		return err
	}
	defer port.Close()
	log.Printf("gps: serial port opened on %s at %d baud", cfg.GPSSerialPort, cfg.GPSBaudRate)

	return gps.ReadFixes(port, func(f gps.Fix) {
		// Retained so late subscribers get the last known position.
		if err := publishJSON(client, cfg.TopicGPS, true, f); err != nil {
			log.Printf("gps: %v", err)
			return
		}
		log.Printf("gps: published fix: %+v", f)
	})
}
