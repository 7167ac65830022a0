// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/panorama_capture/internal/config"
	"github.com/relabs-tech/panorama_capture/internal/gps"
	"github.com/relabs-tech/panorama_capture/internal/orientation"
	"github.com/relabs-tech/panorama_capture/internal/photo"
	"github.com/relabs-tech/panorama_capture/internal/session"
)

type screenMessage struct {
	Angle float64 `json:"angle"`
}

// RunWeb serves the capture session to the browser over HTTP and websocket.
// When the broker is reachable it also accepts orientation, screen and GPS
// data from MQTT and publishes status and captures.
func RunWeb() error {
	cfg := config.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	col, err := photo.NewCollection(photo.Format(cfg.PhotoFormat))
	if err != nil {
		return err
	}
	sess, err := session.New(cfg.Session(), col)
	if err != nil {
		return err
	}
	log.Printf("web: session with %d markers, radius %.1f, policy %s",
		cfg.SphereCount, cfg.SphereRadius, cfg.CapturePolicy)

	// The camera becomes available once the browser uploads its first frame.
	store := photo.NewFrameStore()
	sess.SetFrameSource(photo.Acquire(ctx, store.Wait))

	srv := newServer(cfg, col, store)
	srv.attach(session.NewDriver(sess, config.Interval(cfg.FrameInterval), srv.onFrame))

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDWeb)
	if err != nil {
		log.Printf("web: running without MQTT: %v", err)
	} else {
		log.Printf("web: connected to MQTT broker at %s", cfg.MQTTBroker)
		defer client.Disconnect(250)
	}

	var wg sync.WaitGroup
	if err := srv.start(ctx, client, &wg); err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler: srv.routes(),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpSrv.Shutdown(shutdownCtx)
	}()

	log.Printf("web: listening on %s", httpSrv.Addr)
	err = httpSrv.ListenAndServe()
	stop()
	wg.Wait()
	if errors.Is(err, http.ErrServerClosed) {
		log.Println("web: shutting down")
		return nil
	}
	return err
}

// start binds the optional MQTT client and then runs the driver loop. The
// publisher must be in place before the first frame is emitted.
func (s *server) start(ctx context.Context, client mqtt.Client, wg *sync.WaitGroup) error {
	if client != nil {
		if err := s.bindMQTT(ctx, client); err != nil {
			return err
		}
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.drv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("web: driver stopped: %v", err)
		}
	}()
	return nil
}

// bindMQTT feeds bus data into the session and publishes its progress.
// A hardware orientation producer has no permission prompt, so its first
// reading grants sensor access.
func (s *server) bindMQTT(ctx context.Context, client mqtt.Client) error {
	s.publish = func(topic string, retained bool, v interface{}) {
		if err := publishJSON(client, topic, retained, v); err != nil {
			log.Printf("web: %v", err)
		}
	}

	var grantOnce sync.Once
	err := subscribeJSON(client, "web", s.cfg.TopicOrientation, func(r orientation.Reading) {
		grantOnce.Do(func() {
			go func() {
				err := s.drv.Do(ctx, func(ss *session.Session) error {
					if ss.Granted() {
						return nil
					}
					err := ss.Grant(true)
					s.emit(nil, ss.Status())
					return err
				})
				if err != nil {
					log.Printf("web: grant for MQTT orientation: %v", err)
				}
			}()
		})
		s.drv.PushReading(r)
	})
	if err != nil {
		return err
	}

	if err := subscribeJSON(client, "web", s.cfg.TopicScreen, func(m screenMessage) {
		s.drv.PushScreen(m.Angle)
	}); err != nil {
		return err
	}

	return subscribeJSON(client, "web", s.cfg.TopicGPS, func(f gps.Fix) {
		if f.Valid() {
			s.setFix(f)
		}
	})
}
