// ABOUTME: Shared mute flag and the controller that toggles it
// ABOUTME: Starts muted, flips only on a rising edge of the designated key
package intercom

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// MuteFlag is the shared mute state read by the engine every period.
// It starts muted: audio cannot leave the device until someone presses
// the button.
type MuteFlag struct {
	muted atomic.Bool
}

// NewMuteFlag returns a flag in the muted state.
func NewMuteFlag() *MuteFlag {
	m := &MuteFlag{}
	m.muted.Store(true)
	return m
}

// Muted reports whether outbound audio and sidetone are suppressed.
func (m *MuteFlag) Muted() bool {
	return m.muted.Load()
}

// Toggle flips the flag and returns the new state.
func (m *MuteFlag) Toggle() bool {
	for {
		old := m.muted.Load()
		if m.muted.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// ButtonEvent is one key state change from an input source.
type ButtonEvent struct {
	Key     uint16
	Pressed bool
}

// ButtonSource is an external binary input polled for key events.
type ButtonSource interface {
	// Poll waits up to timeout for the next event. ok is false when the
	// timeout expired without an event.
	Poll(timeout time.Duration) (ev ButtonEvent, ok bool, err error)
	Name() string
	Close() error
}

// pollSlice is the per-source poll timeout inside one controller cycle.
const pollSlice = 50 * time.Millisecond

// MuteController polls button sources and toggles the shared flag on
// each rising edge of the designated key. Running without any source is
// allowed: the engine stays permanently muted.
type MuteController struct {
	flag    *MuteFlag
	sources []ButtonSource
	key     uint16
	log     *logrus.Entry
}

// NewMuteController wires the controller to its flag and sources.
func NewMuteController(flag *MuteFlag, sources []ButtonSource, key uint16, log *logrus.Entry) *MuteController {
	return &MuteController{flag: flag, sources: sources, key: key, log: log}
}

// Run polls until the context is done. Sources that error out are
// closed and dropped; losing the last one leaves the engine muted.
func (c *MuteController) Run(ctx context.Context) {
	defer c.closeAll()

	if len(c.sources) == 0 {
		c.log.Warn("no button input source found, intercom stays muted")
		<-ctx.Done()
		return
	}

	for _, src := range c.sources {
		c.log.WithField("source", src.Name()).Info("watching mute button")
	}

	for ctx.Err() == nil {
		alive := c.sources[:0]
		for _, src := range c.sources {
			ev, ok, err := src.Poll(pollSlice)
			if err != nil {
				c.log.WithError(err).WithField("source", src.Name()).Warn("button source lost")
				src.Close()
				continue
			}
			alive = append(alive, src)
			if !ok || !ev.Pressed || ev.Key != c.key {
				continue
			}
			muted := c.flag.Toggle()
			if muted {
				c.log.Info("intercom muted")
			} else {
				c.log.Info("intercom unmuted")
			}
		}
		c.sources = alive

		if len(c.sources) == 0 {
			c.log.Warn("all button sources lost, mute state frozen")
			<-ctx.Done()
			return
		}
	}
}

func (c *MuteController) closeAll() {
	for _, src := range c.sources {
		src.Close()
	}
	c.sources = nil
}
