// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relabs-tech/panorama_capture/internal/capture"
	"github.com/relabs-tech/panorama_capture/internal/config"
	"github.com/relabs-tech/panorama_capture/internal/orientation"
	"github.com/relabs-tech/panorama_capture/internal/photo"
	"github.com/relabs-tech/panorama_capture/internal/session"
)

// RunMockConsole runs a whole capture session in-process: the mock source
// sweeps the horizon, dwell capture takes synthetic frames, and progress is
// printed to stdout. On exit the photos are written to ARCHIVE_NAME.
func RunMockConsole() error {
	cfg := config.Get()

	scfg := cfg.Session()
	// Nobody presses a capture button here.
	scfg.Policy = capture.PolicyDwell

	format, err := photo.ParseFormat(cfg.PhotoFormat)
	if err != nil {
		return err
	}
	col, err := photo.NewCollection(format)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := runMockSession(ctx, scfg, orientation.NewMockSource(), photo.NewSynthetic(320, 240), col,
		config.Interval(cfg.OrientationSampleInterval), config.Interval(cfg.FrameInterval), os.Stdout)
	if err != nil && err != context.Canceled {
		return err
	}

	if col.Len() == 0 {
		log.Println("console: no photos captured")
		return nil
	}
	f, err := os.Create(cfg.ArchiveName)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer f.Close()
	if err := col.WriteArchive(f, s.Manifest(nil)); err != nil {
		return err
	}
	log.Printf("console: wrote %d photos to %s", col.Len(), cfg.ArchiveName)
	return nil
}

// runMockSession feeds src into a session until every marker is captured or
// ctx ends. It returns the session so the caller can build a manifest.
func runMockSession(ctx context.Context, cfg session.Config, src orientation.Source, frames photo.FrameSource,
	col *photo.Collection, sampleEvery, frameEvery time.Duration, out io.Writer) (*session.Session, error) {
	s, err := session.New(cfg, col)
	if err != nil {
		return nil, err
	}
	if err := s.Grant(true); err != nil {
		return nil, err
	}
	s.SetFrameSource(frames)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	drv := session.NewDriver(s, frameEvery, func(res session.FrameResult) {
		for _, ev := range res.Events {
			switch ev.Kind {
			case session.EventTarget:
				if ev.PointID != "" {
					fmt.Fprintf(out, "[AIM ] %s\n", ev.PointID)
				}
			case session.EventCaptured:
				fmt.Fprintf(out, "[SNAP] %s photo=%v left=%d\n", ev.PointID, ev.Photo, res.Status.Remaining)
			case session.EventComplete:
				fmt.Fprintln(out, "[DONE] all markers captured")
				cancel()
			}
		}
	})

	done := make(chan error, 1)
	go func() { done <- drv.Run(ctx) }()

	err = pumpReadings(ctx, src, sampleEvery, func(r orientation.Reading) error {
		drv.PushReading(r)
		return nil
	})
	<-done

	if s.Complete() {
		return s, nil
	}
	return s, err
}
