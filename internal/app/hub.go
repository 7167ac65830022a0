// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	clientSendBuffer = 64
	writeWait        = 5 * time.Second
)

// wsClient is one browser connection. Only writeLoop writes to conn.
type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// hub fans JSON messages out to every connected browser.
type hub struct {
	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

func newHub() *hub {
	return &hub{clients: make(map[*wsClient]struct{})}
}

func (h *hub) add(conn *websocket.Conn) *wsClient {
	c := &wsClient{conn: conn, send: make(chan []byte, clientSendBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	log.Printf("web: client connected (%d total)", n)
	go c.writeLoop()
	return c
}

func (h *hub) remove(c *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	log.Printf("web: client disconnected (%d remaining)", n)
}

// broadcast sends v to every client. Slow clients lose the message.
func (h *hub) broadcast(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("web: broadcast marshal error: %v", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
		}
	}
}

func (h *hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// reply sends v to one client.
func (h *hub) reply(c *wsClient, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("web: reply marshal error: %v", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *wsClient) writeLoop() {
	for data := range c.send {
		if err := c.write(websocket.TextMessage, data); err != nil {
			log.Printf("web: websocket write error: %v", err)
			// Reader side notices the broken connection and unregisters.
			c.conn.Close()
			for range c.send {
			}
			return
		}
	}
	bye := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := c.write(websocket.CloseMessage, bye); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		log.Printf("web: websocket close error: %v", err)
	}
	c.conn.Close()
}

func (c *wsClient) write(messageType int, data []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}
