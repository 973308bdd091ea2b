// ABOUTME: The supervised capture/playback loop at the heart of the intercom
// ABOUTME: Owns hardware handles, mixes sources, packetizes, runs the watchdog
package intercom

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cambox-project/cambox-go/pkg/audio"
	"github.com/cambox-project/cambox-go/pkg/audio/device"
	"github.com/cambox-project/cambox-go/pkg/vban"
)

// State tracks one session through its lifecycle.
type State int32

const (
	StateIdle State = iota
	StateOpening
	StateRunning
	StateTerminated
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOpening:
		return "opening"
	case StateRunning:
		return "running"
	case StateTerminated:
		return "terminated"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

const (
	// preClipLimit caps raw capture samples before gain. Hardware
	// glitches on plug/unplug produce full-scale spikes; clipping at
	// ~91% of full scale keeps the gain stage from amplifying them.
	preClipLimit = 30000

	// chunkFrames is the largest mono sample count per outbound packet.
	chunkFrames = 128

	// sidetonePeriods sizes the monitor ring in playback periods.
	sidetonePeriods = 8

	defaultStatsInterval = 10 * time.Second
)

// EngineConfig carries everything one session needs. Stats and Mute
// outlive sessions; Buttons are discovered fresh for each one.
type EngineConfig struct {
	Settings Settings
	Backend  device.Backend
	Stats    *Stats
	Mute     *MuteFlag
	Buttons  []ButtonSource

	// ApplyRT, when set, runs once on the period-loop goroutine before
	// the first period, so scheduling directives land on the right
	// thread.
	ApplyRT func()

	Log *logrus.Entry
}

// Engine runs one intercom session: a capture/playback period loop with
// a receiver and mute controller alongside.
type Engine struct {
	cfg    EngineConfig
	header *vban.Header
	log    *logrus.Entry

	state atomic.Int32

	// Test knobs.
	statsEvery time.Duration
	recvPort   int
}

// NewEngine validates settings and builds the outbound stream header.
// Configuration problems surface here, synchronously, and are not
// retried by the supervisor.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if err := cfg.Settings.Validate(); err != nil {
		return nil, err
	}
	header, err := vban.NewHeader(cfg.Settings.StreamName, cfg.Settings.SampleRate,
		cfg.Settings.Channels, vban.CodecPCM16)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	if cfg.Stats == nil {
		cfg.Stats = &Stats{}
	}
	if cfg.Mute == nil {
		cfg.Mute = NewMuteFlag()
	}
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger().WithField("component", "intercom")
	}
	return &Engine{
		cfg:        cfg,
		header:     header,
		log:        log,
		statsEvery: defaultStatsInterval,
		recvPort:   vban.Port,
	}, nil
}

// State reports the session lifecycle state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

func (e *Engine) setState(s State) {
	e.state.Store(int32(s))
}

// Run executes one session to completion. It returns nil on a clean
// stop and the fatal error otherwise; the supervisor decides whether
// to rebuild.
func (e *Engine) Run(ctx context.Context) error {
	e.setState(StateOpening)

	s := e.cfg.Settings
	capture, err := e.cfg.Backend.OpenCapture(device.Params{
		DeviceID:     s.CaptureDevice,
		SampleRate:   s.SampleRate,
		Channels:     1,
		PeriodFrames: s.PeriodFrames,
		PeriodCount:  s.PeriodCount,
	})
	if err != nil {
		e.setState(StateFailed)
		return &DeviceError{Op: "open capture", Err: err}
	}
	defer capture.Close()

	playback, err := e.cfg.Backend.OpenPlayback(device.Params{
		DeviceID:     s.PlaybackDevice,
		SampleRate:   s.SampleRate,
		Channels:     s.Channels,
		PeriodFrames: s.PeriodFrames,
		PeriodCount:  s.PeriodCount,
	})
	if err != nil {
		e.setState(StateFailed)
		return &DeviceError{Op: "open playback", Err: err}
	}
	defer playback.Close()

	conn, err := net.Dial("udp", s.TargetAddr())
	if err != nil {
		e.setState(StateFailed)
		return fmt.Errorf("dial %s: %w", s.TargetAddr(), err)
	}
	defer conn.Close()

	jitter := NewJitterBuffer(s.SampleRate * s.Channels / 2)
	sidetone := NewSidetoneRing(s.PeriodFrames * s.Channels * sidetonePeriods)
	limiter := NewPeakLimiter(s.LimiterThreshold, s.SampleRate)

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	recvErr := make(chan error, 1)
	receiver := NewReceiver(s.StreamName, e.recvPort, jitter, e.cfg.Stats, e.log)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := receiver.Run(sessionCtx); err != nil {
			select {
			case recvErr <- err:
			default:
			}
		}
	}()

	muteCtl := NewMuteController(e.cfg.Mute, e.cfg.Buttons, s.MuteKey, e.log)
	wg.Add(1)
	go func() {
		defer wg.Done()
		muteCtl.Run(sessionCtx)
	}()

	e.log.WithFields(logrus.Fields{
		"stream": s.StreamName,
		"target": s.TargetAddr(),
		"rate":   s.SampleRate,
	}).Info("session running")
	e.setState(StateRunning)

	err = e.periodLoop(sessionCtx, capture, playback, conn, jitter, sidetone, limiter, recvErr)
	cancel()
	wg.Wait()

	if err != nil {
		e.setState(StateFailed)
		return err
	}
	e.setState(StateTerminated)
	e.log.Info("session stopped")
	return nil
}

// periodLoop runs the per-period pipeline until the context is done or
// a session-fatal error occurs.
func (e *Engine) periodLoop(ctx context.Context, capture device.Capture,
	playback device.Playback, conn net.Conn, jitter *JitterBuffer,
	sidetone *SidetoneRing, limiter *PeakLimiter, recvErr <-chan error) error {

	if e.cfg.ApplyRT != nil {
		e.cfg.ApplyRT()
	}

	s := e.cfg.Settings
	capBuf := make([]int16, s.PeriodFrames)
	processed := make([]int16, 0, s.PeriodFrames)
	chunkStereo := make([]int16, chunkFrames*s.Channels)
	netBuf := make([]int16, s.PeriodFrames*s.Channels)
	sideBuf := make([]int16, s.PeriodFrames*s.Channels)
	out := make([]int16, s.PeriodFrames*s.Channels)

	lastReport := time.Now()
	last := e.cfg.Stats.Snapshot()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-recvErr:
			return err
		default:
		}

		n, err := capture.ReadPeriod(capBuf)
		if err != nil {
			if errors.Is(err, device.ErrXRun) {
				if rerr := capture.Recover(); rerr != nil {
					return &DeviceError{Op: "capture recover", Err: rerr}
				}
				e.log.Debug("capture xrun recovered")
				continue
			}
			return &DeviceError{Op: "capture read", Err: err}
		}
		raw := capBuf[:n]
		e.cfg.Stats.addSamplesCaptured(uint64(n))

		muted := e.cfg.Mute.Muted()
		if !muted {
			// Raw tap first: local monitoring must not wait on the
			// outbound processing chain.
			sidetone.WriteMono(raw)

			processed = processed[:0]
			for _, sample := range raw {
				if sample > preClipLimit {
					sample = preClipLimit
				} else if sample < -preClipLimit {
					sample = -preClipLimit
				}
				amplified := int32(float64(sample) * s.MicGain)
				if s.LimiterEnabled {
					processed = append(processed, limiter.Process(amplified))
				} else {
					processed = append(processed, audio.ClampInt32(amplified))
				}
			}

			for off := 0; off < len(processed); off += chunkFrames {
				end := off + chunkFrames
				if end > len(processed) {
					end = len(processed)
				}
				chunk := processed[off:end]
				stereo := chunkStereo[:len(chunk)*s.Channels]
				audio.MonoToStereo(stereo, chunk)

				packet := e.header.Encode(len(chunk))
				packet = vban.AppendPCM16(packet, stereo)
				e.header.FrameCounter++

				if _, err := conn.Write(packet); err != nil {
					e.log.WithError(err).Debug("packet send failed")
					continue
				}
				e.cfg.Stats.addPacketsSent(1)
			}
		}

		for i := range netBuf {
			netBuf[i] = 0
		}
		jitter.Pop(netBuf)
		sidetone.ReadStereo(sideBuf)

		for i := range out {
			mix := float64(netBuf[i]) * s.HeadphoneGain
			if !muted {
				mix += float64(sideBuf[i]) * s.SidetoneGain
			}
			out[i] = audio.Clamp(mix)
		}

		if err := playback.WritePeriod(out); err != nil {
			if errors.Is(err, device.ErrXRun) {
				if rerr := playback.Recover(); rerr != nil {
					return &DeviceError{Op: "playback recover", Err: rerr}
				}
				e.log.Debug("playback xrun recovered")
				continue
			}
			return &DeviceError{Op: "playback write", Err: err}
		}

		if elapsed := time.Since(lastReport); elapsed >= e.statsEvery {
			snap := e.cfg.Stats.Snapshot()
			secs := elapsed.Seconds()
			e.log.Infof("intercom: recv %.1f pkt/s, send %.1f pkt/s, capture %.0f samp/s",
				float64(snap.PacketsReceived-last.PacketsReceived)/secs,
				float64(snap.PacketsSent-last.PacketsSent)/secs,
				float64(snap.SamplesCaptured-last.SamplesCaptured)/secs)

			if snap.SamplesCaptured == last.SamplesCaptured {
				return ErrCaptureStalled
			}
			last = snap
			lastReport = time.Now()
		}
	}
}
