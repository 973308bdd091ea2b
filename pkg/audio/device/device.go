// ABOUTME: Audio device interface definitions
// ABOUTME: Capture/Playback period I/O contracts and backend selection
package device

import (
	"errors"
	"fmt"
	"time"
)

// ErrXRun reports a recoverable buffer under/overrun or device
// suspend. Callers may attempt one in-place Recover before treating
// the device as failed.
var ErrXRun = errors.New("device: buffer xrun")

// Params configure a hardware stream. DeviceID "auto" (or empty)
// selects the system default device.
type Params struct {
	DeviceID     string
	SampleRate   int
	Channels     int
	PeriodFrames int
	PeriodCount  int
}

// PeriodDuration returns the wall-clock length of one period.
func (p Params) PeriodDuration() time.Duration {
	if p.SampleRate <= 0 {
		return 0
	}
	return time.Duration(p.PeriodFrames) * time.Second / time.Duration(p.SampleRate)
}

// Capture is a mono input device read one period at a time.
type Capture interface {
	// ReadPeriod blocks for up to a few period durations and fills buf
	// with captured samples. It returns the sample count, which is zero
	// when the device produced nothing within the deadline.
	ReadPeriod(buf []int16) (int, error)

	// Recover attempts in-place recovery after an ErrXRun condition.
	Recover() error

	// Close releases the device.
	Close() error
}

// Playback is an interleaved output device written one period at a time.
type Playback interface {
	// WritePeriod blocks until buf is queued to the device, bounded to
	// a few period durations.
	WritePeriod(buf []int16) error

	// Recover attempts in-place recovery after an ErrXRun condition.
	Recover() error

	// Close releases the device.
	Close() error
}

// Backend opens fresh capture and playback handles. A new handle pair
// is opened per engine session so that a failed session never reuses
// device state.
type Backend interface {
	OpenCapture(p Params) (Capture, error)
	OpenPlayback(p Params) (Playback, error)
}

// New selects a backend by name.
func New(name string) (Backend, error) {
	switch name {
	case "", "malgo":
		return &MalgoBackend{}, nil
	case "oto":
		return &OtoBackend{}, nil
	case "sim":
		return &SimBackend{}, nil
	default:
		return nil, fmt.Errorf("device: unknown backend %q", name)
	}
}
