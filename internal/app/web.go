// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/gpx_logger/internal/config"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// fixHub keeps the latest fix and fans it out to websocket clients.
// Tracks are only served from gpxDir.
type fixHub struct {
	gpxDir string

	mu      sync.RWMutex
	last    FixMessage
	have    bool
	clients map[chan FixMessage]struct{}
}

func newFixHub(gpxDir string) *fixHub {
	return &fixHub{gpxDir: gpxDir, clients: make(map[chan FixMessage]struct{})}
}

func (h *fixHub) update(m FixMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.last = m
	h.have = true
	for ch := range h.clients {
		select {
		case ch <- m:
		default:
			// slow client, it will catch up with a later fix
		}
	}
}

func (h *fixHub) latest() (FixMessage, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.last, h.have
}

func (h *fixHub) subscribe() chan FixMessage {
	ch := make(chan FixMessage, 8)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	if h.have {
		ch <- h.last
	}
	h.mu.Unlock()
	return ch
}

func (h *fixHub) unsubscribe(ch chan FixMessage) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
}

func (h *fixHub) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/fix", h.handleFix)
	mux.HandleFunc("/api/track", h.handleTrack)
	mux.HandleFunc("/ws/fix", h.handleFixWS)
	return mux
}

// handleFix serves the latest fix as JSON.
func (h *fixHub) handleFix(w http.ResponseWriter, r *http.Request) {
	m, ok := h.latest()
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(m); err != nil {
		log.Warnf("web: json encode error: %v", err)
	}
}

// handleTrack serves the GPX file the latest fix was written to.
func (h *fixHub) handleTrack(w http.ResponseWriter, r *http.Request) {
	m, ok := h.latest()
	if !ok || m.GPXFile == "" {
		http.Error(w, "no track yet", http.StatusServiceUnavailable)
		return
	}

	path, ok := h.trackPath(m.GPXFile)
	if !ok {
		log.Warnf("web: refusing to serve track outside %s: %q", h.gpxDir, m.GPXFile)
		http.Error(w, "track not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/gpx+xml")
	http.ServeFile(w, r, path)
}

// trackPath maps the file named in a fix message to a .gpx file directly
// inside gpxDir. Only the base name of the message path is used.
func (h *fixHub) trackPath(name string) (string, bool) {
	base := filepath.Base(name)
	if !strings.EqualFold(filepath.Ext(base), ".gpx") || base == filepath.Ext(base) {
		return "", false
	}
	return filepath.Join(h.gpxDir, base), true
}

// handleFixWS streams fixes to a websocket client until it disconnects.
func (h *fixHub) handleFixWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("web: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	ch := h.subscribe()
	defer h.unsubscribe(ch)

	// reader goroutine notices the client going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warnf("web: websocket error: %v", err)
				}
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case m := <-ch:
			if err := conn.WriteJSON(m); err != nil {
				log.Warnf("web: websocket write error: %v", err)
				return
			}
		}
	}
}

// RunWeb subscribes to the fix topic and serves the latest fix, the current
// track and a live fix stream over HTTP until ctx is done.
func RunWeb(ctx context.Context, cfg *config.Config) error {
	if cfg.MQTTBroker == "" {
		return fmt.Errorf("web: %w: mqtt_broker", config.ErrMissingKey)
	}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDWeb)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	hub := newFixHub(cfg.GPXDir)
	if err := subscribeFixes(client, cfg.TopicGPSFix, hub.update); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler:           hub.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warnf("web: shutdown: %v", err)
		}
	}()

	log.Infof("web: server listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
