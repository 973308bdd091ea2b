// ABOUTME: Session supervisor that rebuilds the engine after fatal errors
// ABOUTME: Retries forever with fixed backoff until told to stop
package intercom

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cambox-project/cambox-go/pkg/audio/device"
	"github.com/cambox-project/cambox-go/pkg/vban"
)

// defaultRestartBackoff is the pause between a failed session and the
// next attempt. Long enough for a USB device to re-enumerate.
const defaultRestartBackoff = 2 * time.Second

// SupervisorConfig carries the long-lived pieces sessions are built
// from. Stats and Mute persist across restarts; Buttons is called per
// session so re-plugged input devices are picked up.
type SupervisorConfig struct {
	Settings Settings
	Backend  device.Backend
	Stats    *Stats
	Mute     *MuteFlag
	Buttons  func() []ButtonSource
	ApplyRT  func()
	Log      *logrus.Entry
}

// Supervisor owns one engine session at a time. On failure it logs,
// waits a fixed backoff, and starts a brand-new session with fresh
// hardware handles, buffers, receiver, and mute controller.
type Supervisor struct {
	cfg SupervisorConfig
	log *logrus.Entry

	restarts atomic.Uint64

	mu        sync.Mutex
	current   *Engine
	sessionID string

	// Test knobs.
	backoff    time.Duration
	statsEvery time.Duration
	recvPort   int
}

// NewSupervisor prepares a supervisor; Run starts the first session.
func NewSupervisor(cfg SupervisorConfig) *Supervisor {
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger().WithField("component", "intercom")
	}
	if cfg.Stats == nil {
		cfg.Stats = &Stats{}
	}
	if cfg.Mute == nil {
		cfg.Mute = NewMuteFlag()
	}
	return &Supervisor{
		cfg:        cfg,
		log:        log,
		backoff:    defaultRestartBackoff,
		statsEvery: defaultStatsInterval,
		recvPort:   vban.Port,
	}
}

// Run sequences sessions until the context is done. Only a settings
// problem returns an error: those never heal on retry.
func (s *Supervisor) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		id := uuid.New().String()
		slog := s.log.WithField("session", id[:8])

		var buttons []ButtonSource
		if s.cfg.Buttons != nil {
			buttons = s.cfg.Buttons()
		}

		engine, err := NewEngine(EngineConfig{
			Settings: s.cfg.Settings,
			Backend:  s.cfg.Backend,
			Stats:    s.cfg.Stats,
			Mute:     s.cfg.Mute,
			Buttons:  buttons,
			ApplyRT:  s.cfg.ApplyRT,
			Log:      slog,
		})
		if err != nil {
			return err
		}
		engine.statsEvery = s.statsEvery
		engine.recvPort = s.recvPort

		s.mu.Lock()
		s.current = engine
		s.sessionID = id
		s.mu.Unlock()

		err = engine.Run(ctx)
		if err == nil || ctx.Err() != nil {
			return nil
		}

		s.restarts.Add(1)
		slog.WithError(err).Error("session failed, restarting")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.backoff):
		}
	}
	return nil
}

// State reports the current session's lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return StateIdle
	}
	return s.current.State()
}

// SessionID reports the current session's identifier, empty before the
// first session starts.
func (s *Supervisor) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// Restarts reports how many failed sessions have been rebuilt.
func (s *Supervisor) Restarts() uint64 {
	return s.restarts.Load()
}

// Muted reports the shared mute flag, for status reporting.
func (s *Supervisor) Muted() bool {
	return s.cfg.Mute.Muted()
}

// Stats exposes the shared counters, for status reporting.
func (s *Supervisor) Stats() *Stats {
	return s.cfg.Stats
}
