// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relabs-tech/panorama_capture/internal/config"
	"github.com/relabs-tech/panorama_capture/internal/orientation"
)

// RunOrientationProducer publishes device-orientation readings from the
// mock source or an MPU9250 to TOPIC_ORIENTATION.
func RunOrientationProducer() error {
	cfg := config.Get()

	var src orientation.Source
	switch cfg.OrientationSource {
	case "imu":
		var err error
		src, err = orientation.NewIMUSource(cfg.IMUSPIDevice, cfg.IMUCSPin)
		if err != nil {
			return fmt.Errorf("imu source: %w", err)
		}
		log.Printf("producer: using MPU9250 on %s (CS %s)", cfg.IMUSPIDevice, cfg.IMUCSPin)
	default:
		src = orientation.NewMockSource()
		log.Println("producer: using mock orientation source")
	}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDProducer)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	log.Printf("producer: connected to MQTT broker at %s, publishing to %s", cfg.MQTTBroker, cfg.TopicOrientation)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = pumpReadings(ctx, src, config.Interval(cfg.OrientationSampleInterval), func(r orientation.Reading) error {
		return publishJSON(client, cfg.TopicOrientation, false, r)
	})
	if err == context.Canceled {
		log.Println("producer: shutting down")
		return nil
	}
	return err
}

// pumpReadings samples src every interval and hands each reading to emit
// until ctx ends. Source and emit errors are logged and the sample skipped.
func pumpReadings(ctx context.Context, src orientation.Source, interval time.Duration, emit func(orientation.Reading) error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		r, err := src.Next()
		if err != nil {
			log.Printf("producer: orientation source error: %v", err)
			continue
		}
		if err := emit(r); err != nil {
			log.Printf("producer: %v", err)
		}
	}
}
