// ABOUTME: Malgo-based capture and playback implementation
// ABOUTME: Bridges miniaudio callbacks to blocking period reads and writes
package device

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cambox-project/cambox-go/pkg/audio"
	"github.com/gen2brain/malgo"
)

// pollInterval paces the busy-wait between a callback tick and the
// blocked period call consuming it.
const pollInterval = 500 * time.Microsecond

// MalgoBackend opens miniaudio devices. Every open call initializes a
// fresh context so a session restart starts from clean device state.
type MalgoBackend struct{}

// OpenCapture opens a capture device and starts its callback stream.
func (b *MalgoBackend) OpenCapture(p Params) (Capture, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("capture context: %w", err)
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatS16
	cfg.Capture.Channels = uint32(p.Channels)
	cfg.SampleRate = uint32(p.SampleRate)
	cfg.PeriodSizeInFrames = uint32(p.PeriodFrames)
	cfg.Periods = uint32(p.PeriodCount)
	cfg.Alsa.NoMMap = 1

	if id, err := findDeviceID(ctx, malgo.Capture, p.DeviceID); err != nil {
		freeContext(ctx)
		return nil, err
	} else if id != nil {
		cfg.Capture.DeviceID = id.Pointer()
	}

	c := &malgoCapture{
		malgoCtx: ctx,
		params:   p,
		ring:     newPCMRing(p.PeriodFrames * p.Channels * 8),
	}

	onData := func(_, pInput []byte, frameCount uint32) {
		c.onCapture(pInput, frameCount)
	}

	device, err := malgo.InitDevice(ctx.Context, cfg, malgo.DeviceCallbacks{Data: onData})
	if err != nil {
		freeContext(ctx)
		return nil, fmt.Errorf("capture device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		freeContext(ctx)
		return nil, fmt.Errorf("capture start: %w", err)
	}

	c.device = device
	return c, nil
}

// OpenPlayback opens a playback device and starts its callback stream.
func (b *MalgoBackend) OpenPlayback(p Params) (Playback, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("playback context: %w", err)
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatS16
	cfg.Playback.Channels = uint32(p.Channels)
	cfg.SampleRate = uint32(p.SampleRate)
	cfg.PeriodSizeInFrames = uint32(p.PeriodFrames)
	cfg.Periods = uint32(p.PeriodCount)
	cfg.Alsa.NoMMap = 1

	if id, err := findDeviceID(ctx, malgo.Playback, p.DeviceID); err != nil {
		freeContext(ctx)
		return nil, err
	} else if id != nil {
		cfg.Playback.DeviceID = id.Pointer()
	}

	pb := &malgoPlayback{
		malgoCtx: ctx,
		params:   p,
		ring:     newPCMRing(p.PeriodFrames * p.Channels * p.PeriodCount),
	}

	onData := func(pOutput, _ []byte, frameCount uint32) {
		pb.onPlayback(pOutput, frameCount)
	}

	device, err := malgo.InitDevice(ctx.Context, cfg, malgo.DeviceCallbacks{Data: onData})
	if err != nil {
		freeContext(ctx)
		return nil, fmt.Errorf("playback device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		freeContext(ctx)
		return nil, fmt.Errorf("playback start: %w", err)
	}

	pb.device = device
	return pb, nil
}

// malgoCapture bridges the capture callback to blocking period reads.
type malgoCapture struct {
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	params   Params
	ring     *pcmRing
	scratch  []int16
}

// onCapture runs on the miniaudio thread. It must never block, so a
// full ring drops the oldest tail by simply not writing.
func (c *malgoCapture) onCapture(pInput []byte, frameCount uint32) {
	want := int(frameCount) * c.params.Channels
	if cap(c.scratch) < want {
		c.scratch = make([]int16, want)
	}
	n := audio.DecodeS16LE(c.scratch[:want], pInput)
	c.ring.Write(c.scratch[:n])
}

// ReadPeriod fills buf from the callback ring, waiting up to four
// period durations. Returning zero samples lets the caller's watchdog
// observe a silent device instead of blocking forever.
func (c *malgoCapture) ReadPeriod(buf []int16) (int, error) {
	deadline := time.Now().Add(4 * c.params.PeriodDuration())
	filled := 0
	for filled < len(buf) {
		filled += c.ring.Read(buf[filled:])
		if filled >= len(buf) {
			break
		}
		if time.Now().After(deadline) {
			break
		}
		time.Sleep(pollInterval)
	}
	return filled, nil
}

// Recover restarts the callback stream in place.
func (c *malgoCapture) Recover() error {
	if err := c.device.Stop(); err != nil {
		return fmt.Errorf("capture recover stop: %w", err)
	}
	if err := c.device.Start(); err != nil {
		return fmt.Errorf("capture recover start: %w", err)
	}
	return nil
}

// Close stops the device and tears down its context.
func (c *malgoCapture) Close() error {
	if c.device != nil {
		c.device.Uninit()
		c.device = nil
	}
	freeContext(c.malgoCtx)
	c.malgoCtx = nil
	return nil
}

// malgoPlayback bridges blocking period writes to the playback callback.
type malgoPlayback struct {
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	params   Params
	ring     *pcmRing
	scratch  []int16
}

// onPlayback runs on the miniaudio thread. Underruns emit silence.
func (p *malgoPlayback) onPlayback(pOutput []byte, frameCount uint32) {
	want := int(frameCount) * p.params.Channels
	if cap(p.scratch) < want {
		p.scratch = make([]int16, want)
	}
	out := p.scratch[:want]
	n := p.ring.Read(out)
	for i := n; i < want; i++ {
		out[i] = 0
	}
	audio.EncodeS16LE(pOutput, out)
}

// WritePeriod queues buf for the callback, waiting up to four period
// durations for ring space. A ring that never drains means the device
// stopped consuming, reported as an xrun.
func (p *malgoPlayback) WritePeriod(buf []int16) error {
	deadline := time.Now().Add(4 * p.params.PeriodDuration())
	written := 0
	for written < len(buf) {
		written += p.ring.Write(buf[written:])
		if written >= len(buf) {
			break
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: playback ring stalled", ErrXRun)
		}
		time.Sleep(pollInterval)
	}
	return nil
}

// Recover restarts the callback stream in place.
func (p *malgoPlayback) Recover() error {
	if err := p.device.Stop(); err != nil {
		return fmt.Errorf("playback recover stop: %w", err)
	}
	if err := p.device.Start(); err != nil {
		return fmt.Errorf("playback recover start: %w", err)
	}
	return nil
}

// Close stops the device and tears down its context.
func (p *malgoPlayback) Close() error {
	if p.device != nil {
		p.device.Uninit()
		p.device = nil
	}
	freeContext(p.malgoCtx)
	p.malgoCtx = nil
	return nil
}

// findDeviceID resolves a device identifier to a miniaudio device ID.
// "auto", "default", and empty select the system default (nil).
func findDeviceID(ctx *malgo.AllocatedContext, kind malgo.DeviceType, deviceID string) (*malgo.DeviceID, error) {
	if deviceID == "" || deviceID == "auto" || deviceID == "default" {
		return nil, nil
	}

	infos, err := ctx.Devices(kind)
	if err != nil {
		return nil, fmt.Errorf("device enumeration: %w", err)
	}

	want := strings.ToLower(deviceID)
	for i := range infos {
		if strings.Contains(strings.ToLower(infos[i].Name()), want) {
			id := infos[i].ID
			return &id, nil
		}
	}
	return nil, fmt.Errorf("no device matching %q", deviceID)
}

func freeContext(ctx *malgo.AllocatedContext) {
	if ctx == nil {
		return
	}
	_ = ctx.Uninit()
	ctx.Free()
}

// pcmRing is a mutex-guarded sample ring between the device callback
// and the blocking period call. Writes drop on full because the
// callback side must never block.
type pcmRing struct {
	mu    sync.Mutex
	buf   []int16
	read  int
	write int
	count int
}

func newPCMRing(capacity int) *pcmRing {
	return &pcmRing{buf: make([]int16, capacity)}
}

// Write adds samples until the ring is full and returns the count added.
func (r *pcmRing) Write(samples []int16) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	written := 0
	for _, s := range samples {
		if r.count == len(r.buf) {
			break
		}
		r.buf[r.write] = s
		r.write = (r.write + 1) % len(r.buf)
		r.count++
		written++
	}
	return written
}

// Read removes up to len(out) samples and returns the count removed.
func (r *pcmRing) Read(out []int16) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	read := 0
	for read < len(out) && r.count > 0 {
		out[read] = r.buf[r.read]
		r.read = (r.read + 1) % len(r.buf)
		r.count--
		read++
	}
	return read
}
