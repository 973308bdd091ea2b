// ABOUTME: Session settings record injected into the engine at start
// ABOUTME: Validation happens once here, construction-time, never mid-stream
package intercom

import (
	"fmt"
	"net"
	"strconv"

	"github.com/cambox-project/cambox-go/pkg/vban"
)

// Settings is the plain configuration record an engine session runs
// with. It is copied at session start; changing it afterwards has no
// effect until the next session.
type Settings struct {
	// StreamName identifies both the outbound stream and the inbound
	// stream the receiver accepts. Max 15 ASCII characters.
	StreamName string
	// TargetHost receives outbound packets. A bare host gets the
	// standard port appended.
	TargetHost string
	SampleRate int
	Channels   int

	// Gains are direct sample multipliers, not decibels.
	MicGain       float64
	HeadphoneGain float64
	SidetoneGain  float64

	LimiterEnabled   bool
	LimiterThreshold float64

	// Hardware parameters.
	Backend        string
	CaptureDevice  string
	PlaybackDevice string
	PeriodFrames   int
	PeriodCount    int

	// MuteKey is the input event code whose rising edge toggles mute.
	MuteKey uint16
}

// Validate checks the fields the engine cannot run without. Limiter
// threshold is deliberately not checked here: the limiter clamps it.
func (s Settings) Validate() error {
	if s.StreamName == "" {
		return fmt.Errorf("%w: stream name is empty", ErrInvalidSettings)
	}
	if len(s.StreamName) > vban.StreamNameSize-1 {
		return fmt.Errorf("%w: stream name %q longer than %d characters",
			ErrInvalidSettings, s.StreamName, vban.StreamNameSize-1)
	}
	if s.TargetHost == "" {
		return fmt.Errorf("%w: target host is empty", ErrInvalidSettings)
	}
	if _, err := vban.SampleRateToIndex(s.SampleRate); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	if s.Channels != 2 {
		return fmt.Errorf("%w: playback path is fixed stereo, got %d channels",
			ErrInvalidSettings, s.Channels)
	}
	if s.MicGain < 0 || s.HeadphoneGain < 0 || s.SidetoneGain < 0 {
		return fmt.Errorf("%w: gains must be non-negative", ErrInvalidSettings)
	}
	if s.PeriodFrames <= 0 {
		return fmt.Errorf("%w: period frames must be positive, got %d",
			ErrInvalidSettings, s.PeriodFrames)
	}
	if s.PeriodCount < 2 {
		return fmt.Errorf("%w: period count must be at least 2, got %d",
			ErrInvalidSettings, s.PeriodCount)
	}
	return nil
}

// TargetAddr returns the UDP destination, appending the standard port
// when the configured host does not carry one.
func (s Settings) TargetAddr() string {
	if _, _, err := net.SplitHostPort(s.TargetHost); err == nil {
		return s.TargetHost
	}
	return net.JoinHostPort(s.TargetHost, strconv.Itoa(vban.Port))
}
