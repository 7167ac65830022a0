// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/relabs-tech/panorama_capture/internal/config"
	"github.com/relabs-tech/panorama_capture/internal/gps"
	"github.com/relabs-tech/panorama_capture/internal/orientation"
	"github.com/relabs-tech/panorama_capture/internal/palette"
	"github.com/relabs-tech/panorama_capture/internal/photo"
	"github.com/relabs-tech/panorama_capture/internal/pose"
	"github.com/relabs-tech/panorama_capture/internal/session"
	"github.com/relabs-tech/panorama_capture/internal/sphere"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WSMessage is a request from the browser.
type WSMessage struct {
	Action  string   `json:"action"` // permission, orientation, screen, calibrate, capture, reset
	Granted *bool    `json:"granted,omitempty"`
	Alpha   *float64 `json:"alpha,omitempty"`
	Beta    *float64 `json:"beta,omitempty"`
	Gamma   *float64 `json:"gamma,omitempty"`
	Angle   float64  `json:"angle,omitempty"`
}

// WSResponse is pushed to the browser.
type WSResponse struct {
	Type        string          `json:"type"` // status, pose, target, captured, complete, miss, permission, calibrated, error
	ID          string          `json:"id,omitempty"`
	Granted     *bool           `json:"granted,omitempty"`
	Photo       bool            `json:"photo,omitempty"`
	Quaternion  []float64       `json:"quaternion,omitempty"` // x, y, z, w
	Forward     *r3.Vec         `json:"forward,omitempty"`
	DwellMs     int64           `json:"dwell_ms,omitempty"`
	Status      *session.Status `json:"status,omitempty"`
	Calibration *pose.Offset    `json:"calibration,omitempty"`
	Message     string          `json:"message,omitempty"`
}

// CaptureMessage is published on TOPIC_CAPTURE.
type CaptureMessage struct {
	ID        string `json:"id"`
	Photo     bool   `json:"photo"`
	Remaining int    `json:"remaining"`
}

// PointView is one marker as served by /api/points.
type PointView struct {
	sphere.TargetPoint
	Color string `json:"color"`
	Blend string `json:"blend"`
}

// server ties one capture session to the browser and the MQTT bus.
type server struct {
	cfg   *config.Config
	drv   *session.Driver
	store *photo.FrameStore
	col   *photo.Collection
	hub   *hub

	// publish sends to MQTT; nil when running without a broker.
	publish func(topic string, retained bool, v interface{})

	mu     sync.Mutex
	status session.Status
	fix    *gps.Fix
}

func newServer(cfg *config.Config, col *photo.Collection, store *photo.FrameStore) *server {
	return &server{
		cfg:   cfg,
		store: store,
		col:   col,
		hub:   newHub(),
	}
}

// attach wires the driver whose frames this server reports.
func (s *server) attach(drv *session.Driver) { s.drv = drv }

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/points", s.handlePoints)
	mux.HandleFunc("/api/archive", s.handleArchive)
	mux.Handle("/", http.FileServer(http.Dir(s.cfg.WebStaticDir)))
	return mux
}

// onFrame runs on the driver goroutine after every frame.
func (s *server) onFrame(res session.FrameResult) {
	if s.hub.count() > 0 {
		fwd := res.Forward
		s.hub.broadcast(WSResponse{
			Type:       "pose",
			ID:         res.Target,
			Quaternion: []float64{res.Rotation.Imag, res.Rotation.Jmag, res.Rotation.Kmag, res.Rotation.Real},
			Forward:    &fwd,
			DwellMs:    res.DwellMs,
		})
	}
	s.emit(res.Events, res.Status)
}

// emit reports session events and publishes the status when it changed.
func (s *server) emit(events []session.Event, st session.Status) {
	for _, ev := range events {
		switch ev.Kind {
		case session.EventTarget:
			s.hub.broadcast(WSResponse{Type: "target", ID: ev.PointID})
		case session.EventCaptured:
			log.Printf("web: captured %s (photo=%v, %d left)", ev.PointID, ev.Photo, st.Remaining)
			s.hub.broadcast(WSResponse{Type: "captured", ID: ev.PointID, Photo: ev.Photo})
			if s.publish != nil {
				s.publish(s.cfg.TopicCapture, false, CaptureMessage{ID: ev.PointID, Photo: ev.Photo, Remaining: st.Remaining})
			}
		case session.EventComplete:
			s.hub.broadcast(WSResponse{Type: "complete"})
		}
	}

	s.mu.Lock()
	changed := s.status != st
	s.status = st
	s.mu.Unlock()
	if changed {
		s.hub.broadcast(WSResponse{Type: "status", Status: &st})
		if s.publish != nil {
			s.publish(s.cfg.TopicStatus, true, st)
		}
	}
}

func (s *server) setFix(f gps.Fix) {
	s.mu.Lock()
	s.fix = &f
	s.mu.Unlock()
}

func (s *server) lastFix() *gps.Fix {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fix == nil {
		return nil
	}
	f := *s.fix
	return &f
}

func (s *server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	client := s.hub.add(conn)
	defer s.hub.remove(client)

	ctx := r.Context()
	var st session.Status
	if err := s.drv.Do(ctx, func(ss *session.Session) error {
		st = ss.Status()
		return nil
	}); err == nil {
		s.hub.reply(client, WSResponse{Type: "status", Status: &st})
	}

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("web: websocket read error: %v", err)
			}
			return
		}

		if mt == websocket.BinaryMessage {
			if err := s.store.Decode(data); err != nil {
				s.hub.reply(client, WSResponse{Type: "error", Message: err.Error()})
			}
			continue
		}

		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.hub.reply(client, WSResponse{Type: "error", Message: fmt.Sprintf("bad message: %v", err)})
			continue
		}
		if resp := s.handleAction(ctx, msg); resp != nil {
			s.hub.reply(client, *resp)
		}
	}
}

// handleAction applies one browser request and returns the direct reply,
// if any. Session events are broadcast separately.
func (s *server) handleAction(ctx context.Context, msg WSMessage) *WSResponse {
	switch msg.Action {
	case "orientation":
		s.drv.PushReading(orientation.Reading{Alpha: msg.Alpha, Beta: msg.Beta, Gamma: msg.Gamma})
		return nil

	case "screen":
		s.drv.PushScreen(msg.Angle)
		return nil

	case "permission":
		granted := msg.Granted != nil && *msg.Granted
		err := s.drv.Do(ctx, func(ss *session.Session) error {
			err := ss.Grant(granted)
			s.emit(nil, ss.Status())
			return err
		})
		resp := &WSResponse{Type: "permission", Granted: &granted}
		if err != nil {
			resp.Message = err.Error()
		}
		return resp

	case "calibrate":
		var off pose.Offset
		err := s.drv.Do(ctx, func(ss *session.Session) error {
			var err error
			off, err = ss.Calibrate()
			s.emit(nil, ss.Status())
			return err
		})
		if err != nil {
			return &WSResponse{Type: "error", Message: err.Error()}
		}
		return &WSResponse{Type: "calibrated", Calibration: &off}

	case "capture":
		var p *sphere.TargetPoint
		err := s.drv.Do(ctx, func(ss *session.Session) error {
			var events []session.Event
			var err error
			p, events, err = ss.Capture()
			s.emit(events, ss.Status())
			return err
		})
		if err != nil {
			return &WSResponse{Type: "error", Message: err.Error()}
		}
		if p == nil {
			return &WSResponse{Type: "miss"}
		}
		return nil

	case "reset":
		err := s.drv.Do(ctx, func(ss *session.Session) error {
			err := ss.Reset()
			s.emit(nil, ss.Status())
			return err
		})
		if err != nil {
			return &WSResponse{Type: "error", Message: err.Error()}
		}
		return nil

	default:
		return &WSResponse{Type: "error", Message: fmt.Sprintf("unknown action %q", msg.Action)}
	}
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var st session.Status
	if err := s.drv.Do(r.Context(), func(ss *session.Session) error {
		st = ss.Status()
		return nil
	}); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, st)
}

func (s *server) handlePoints(w http.ResponseWriter, r *http.Request) {
	var (
		points []sphere.TargetPoint
		radius float64
	)
	if err := s.drv.Do(r.Context(), func(ss *session.Session) error {
		points = ss.Points()
		radius = ss.Config().Radius
		return nil
	}); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	views := make([]PointView, len(points))
	for i, p := range points {
		views[i] = PointView{
			TargetPoint: p,
			Color:       palette.AngleHue(p.Position).String(),
			Blend:       palette.BlendHue(p.Position, radius).String(),
		}
	}
	writeJSON(w, views)
}

func (s *server) handleArchive(w http.ResponseWriter, r *http.Request) {
	var m photo.Manifest
	fix := s.lastFix()
	if err := s.drv.Do(r.Context(), func(ss *session.Session) error {
		m = ss.Manifest(fix)
		return nil
	}); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	var buf bytes.Buffer
	if err := s.col.WriteArchive(&buf, m); err != nil {
		if errors.Is(err, photo.ErrEmptyCollection) {
			http.Error(w, "no photos yet", http.StatusConflict)
			return
		}
		log.Printf("web: archive error: %v", err)
		http.Error(w, "archive failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", s.cfg.ArchiveName))
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Printf("web: archive write error: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}
