// ABOUTME: Appliance wiring that turns a loaded config into running components
// ABOUTME: Owns startup order and orderly shutdown of video, intercom, and monitor
package app

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/cambox-project/cambox-go/internal/button"
	"github.com/cambox-project/cambox-go/internal/config"
	"github.com/cambox-project/cambox-go/internal/discovery"
	"github.com/cambox-project/cambox-go/internal/intercom"
	"github.com/cambox-project/cambox-go/internal/monitor"
	"github.com/cambox-project/cambox-go/internal/rt"
	"github.com/cambox-project/cambox-go/internal/version"
	"github.com/cambox-project/cambox-go/internal/video"
	"github.com/cambox-project/cambox-go/pkg/audio/device"
)

// Pattern frames stand in for real capture. 720p keeps the generator
// cheap enough for the box's small cores.
const (
	patternWidth  = 1280
	patternHeight = 720
)

// Options inject alternate component implementations. The zero value
// gives production behavior: test-pattern video into a null sink, the
// configured audio backend, evdev button discovery, and no scheduler
// directives.
type Options struct {
	Source  video.FrameSource
	Sink    video.FrameSink
	Backend device.Backend
	Buttons func() []intercom.ButtonSource
	Applier rt.Applier
}

// Appliance holds the wired components of one camera-box process.
// Construction resolves the config into concrete pieces; Run starts
// them and blocks until the context is done or a core component fails.
type Appliance struct {
	cfg *config.Config
	log *logrus.Entry

	pipeline   *video.Pipeline
	supervisor *intercom.Supervisor
	monitor    *monitor.Server
	announcer  *discovery.Manager
}

// New wires an appliance from a validated config.
func New(cfg *config.Config, opts Options) (*Appliance, error) {
	log := logrus.StandardLogger().WithField("component", "app")

	a := &Appliance{
		cfg: cfg,
		log: log,
	}

	source := opts.Source
	if source == nil {
		if cfg.Video.Device != "auto" {
			log.WithField("device", cfg.Video.Device).Warn("no capture backend in this build, using test pattern")
		}
		source = video.NewPatternSource(patternWidth, patternHeight, video.DefaultFrameRate())
	}
	var sink video.FrameSink = opts.Sink
	if sink == nil {
		sink = &video.NullSink{}
	}
	a.pipeline = video.NewPipeline(source, sink, logrus.StandardLogger().WithField("component", "video"))

	if cfg.Intercom.Enabled {
		backend := opts.Backend
		if backend == nil {
			var err error
			backend, err = device.New(cfg.Audio.Backend)
			if err != nil {
				return nil, fmt.Errorf("audio backend: %w", err)
			}
		}
		buttons := opts.Buttons
		if buttons == nil {
			buttonLog := logrus.StandardLogger().WithField("component", "buttons")
			buttons = func() []intercom.ButtonSource {
				return button.Discover(buttonLog)
			}
		}
		applyRT := rt.Hook(rt.Directive{
			Priority:   cfg.RT.Priority,
			CPU:        cfg.RT.CPU,
			LockMemory: cfg.RT.LockMemory,
		}, opts.Applier, log)

		a.supervisor = intercom.NewSupervisor(intercom.SupervisorConfig{
			Settings: cfg.IntercomSettings(),
			Backend:  backend,
			Buttons:  buttons,
			ApplyRT:  applyRT,
			Log:      logrus.StandardLogger().WithField("component", "intercom"),
		})
	}

	if cfg.Monitor.Enabled {
		sources := monitor.Sources{Video: a.pipeline}
		if a.supervisor != nil {
			sources.Intercom = a.supervisor
		}
		a.monitor = monitor.New(monitor.Config{
			Hostname: cfg.Hostname,
			Listen:   cfg.Monitor.Listen,
		}, sources, logrus.StandardLogger().WithField("component", "monitor"))

		port, err := listenPort(cfg.Monitor.Listen)
		if err != nil {
			return nil, fmt.Errorf("monitor listen address: %w", err)
		}
		a.announcer = discovery.NewManager(discovery.Config{
			Instance: cfg.Hostname,
			Port:     port,
			Version:  version.Version,
		}, logrus.StandardLogger().WithField("component", "discovery"))
	}

	return a, nil
}

// Run starts every wired component and blocks. Video and intercom are
// the product: if either fails, the appliance exits with that error.
// Monitor and discovery are advisory and only log their failures.
func (a *Appliance) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.log.WithFields(logrus.Fields{
		"hostname": a.cfg.Hostname,
		"version":  version.Version,
	}).Info("appliance starting")

	var wg sync.WaitGroup
	fatal := make(chan error, 2)

	if a.monitor != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.monitor.Run(ctx); err != nil {
				a.log.WithError(err).Error("monitor server failed")
			}
		}()
	}
	if a.announcer != nil {
		if err := a.announcer.Advertise(); err != nil {
			a.log.WithError(err).Warn("mdns advertisement failed")
		}
		defer a.announcer.Stop()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := a.pipeline.Run(ctx); err != nil {
			fatal <- fmt.Errorf("video pipeline: %w", err)
		}
	}()

	if a.supervisor != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.supervisor.Run(ctx); err != nil {
				fatal <- fmt.Errorf("intercom: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-fatal:
		cancel()
	}
	wg.Wait()

	if runErr != nil {
		a.log.WithError(runErr).Error("appliance stopping on component failure")
		return runErr
	}
	a.log.Info("appliance stopped")
	return nil
}

func listenPort(listen string) (int, error) {
	_, portStr, err := net.SplitHostPort(listen)
	if err != nil {
		return 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0, err
	}
	return port, nil
}
