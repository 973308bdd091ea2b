// ABOUTME: Websocket status server for control-room tooling
// ABOUTME: Broadcasts one JSON snapshot per second to every connected client
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/cambox-project/cambox-go/internal/intercom"
	"github.com/cambox-project/cambox-go/internal/version"
)

const (
	statusInterval = 1 * time.Second
	pingInterval   = 30 * time.Second
	writeDeadline  = 10 * time.Second
)

// Config holds the monitor server configuration.
type Config struct {
	Hostname string
	Listen   string
}

// Server serves /ws (status feed), /status (one-shot JSON) and
// /healthz. Losing a client or a slow client never affects the core;
// snapshots are dropped when a client's queue is full.
type Server struct {
	cfg     Config
	sources Sources
	log     *logrus.Entry

	upgrader websocket.Upgrader

	clients   map[string]*client
	clientsMu sync.RWMutex

	statusMu sync.RWMutex
	current  Status
	lastSnap intercom.StatsSnapshot
	lastAt   time.Time

	start    time.Time
	interval time.Duration

	bound   net.Addr
	boundMu sync.RWMutex

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// New creates a monitor server. Nil sources are allowed.
func New(cfg Config, sources Sources, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.WithField("component", "monitor")
	}
	return &Server{
		cfg:     cfg,
		sources: sources,
		log:     log,
		upgrader: websocket.Upgrader{
			// Trusted local network, same stance as the rest of the box.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients:  make(map[string]*client),
		start:    time.Now(),
		interval: statusInterval,
		lastAt:   time.Now(),
		stop:     make(chan struct{}),
	}
}

// Addr returns the bound listen address once Run has started.
func (s *Server) Addr() net.Addr {
	s.boundMu.RLock()
	defer s.boundMu.RUnlock()
	return s.bound
}

// Current returns the latest computed status snapshot.
func (s *Server) Current() Status {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.current
}

// Run serves until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("bind monitor: %w", err)
	}
	s.boundMu.Lock()
	s.bound = ln.Addr()
	s.boundMu.Unlock()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/healthz", s.handleHealthz)

	srv := &http.Server{Handler: mux}

	s.refreshStatus()
	s.log.WithField("addr", ln.Addr().String()).Info("monitor listening")

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.stopOnce.Do(func() { close(s.stop) })
			s.closeClients()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				s.log.WithError(err).Warn("monitor shutdown")
			}
			s.wg.Wait()
			s.log.Info("monitor stopped")
			return nil
		case err := <-errChan:
			s.stopOnce.Do(func() { close(s.stop) })
			s.closeClients()
			s.wg.Wait()
			return fmt.Errorf("monitor server: %w", err)
		case <-ticker.C:
			s.refreshStatus()
			s.broadcast()
		}
	}
}

// refreshStatus recomputes the snapshot and the per-second rates.
func (s *Server) refreshStatus() {
	now := time.Now()

	st := Status{
		Hostname:      s.cfg.Hostname,
		Version:       version.String(),
		UptimeSeconds: now.Sub(s.start).Seconds(),
	}

	s.statusMu.Lock()
	defer s.statusMu.Unlock()

	if src := s.sources.Intercom; src != nil {
		snap := src.Stats().Snapshot()
		dt := now.Sub(s.lastAt).Seconds()
		sess := SessionStatus{
			State:    src.State().String(),
			ID:       src.SessionID(),
			Restarts: src.Restarts(),
			Muted:    src.Muted(),
		}
		if dt > 0 {
			sess.SendPacketsPerSec = float64(snap.PacketsSent-s.lastSnap.PacketsSent) / dt
			sess.RecvPacketsPerSec = float64(snap.PacketsReceived-s.lastSnap.PacketsReceived) / dt
			sess.CaptureSamplesPerSec = float64(snap.SamplesCaptured-s.lastSnap.SamplesCaptured) / dt
		}
		st.Session = sess
		s.lastSnap = snap
		s.lastAt = now
	} else {
		st.Session.State = "disabled"
	}

	if src := s.sources.Video; src != nil {
		st.Video = VideoStatus{FPS: src.FPS(), Frames: src.Frames()}
	}

	s.current = st
}

// broadcast queues the current snapshot to every client. Sends are
// non-blocking; a client that cannot keep up skips ticks.
func (s *Server) broadcast() {
	data, err := json.Marshal(s.Current())
	if err != nil {
		s.log.WithError(err).Warn("marshal status")
		return
	}

	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	for _, c := range s.clients {
		select {
		case c.send <- data:
		default:
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	c := &client{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan []byte, 8),
	}

	// New clients get the current snapshot immediately.
	if data, err := json.Marshal(s.Current()); err == nil {
		c.send <- data
	}

	s.clientsMu.Lock()
	s.clients[c.id] = c
	count := len(s.clients)
	s.clientsMu.Unlock()

	s.log.WithFields(logrus.Fields{
		"remote":  r.RemoteAddr,
		"clients": count,
	}).Info("monitor client connected")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.clientWriter(c)
	}()

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, c.id)
		close(c.send)
		s.clientsMu.Unlock()
		conn.Close()
		s.log.WithField("remote", r.RemoteAddr).Info("monitor client disconnected")
	}()

	// The feed is one-way; the read pump only notices disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) clientWriter(c *client) {
	defer c.conn.Close()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeDeadline)); err != nil {
				return
			}
		case <-s.stop:
			return
		}
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.Current()); err != nil {
		s.log.WithError(err).Warn("write status")
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

func (s *Server) closeClients() {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	for _, c := range s.clients {
		c.conn.Close()
	}
}
