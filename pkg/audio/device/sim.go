// ABOUTME: Simulated capture and playback devices backed by scripted steps
// ABOUTME: Used by tests and by the sim backend when no hardware is present
package device

import (
	"sync"
	"time"
)

// SimStep is one scripted ReadPeriod result.
type SimStep struct {
	Samples []int16
	Err     error
}

// SimCapture replays scripted steps. With Silence set it keeps emitting
// zero periods after the script drains; otherwise a drained script
// returns empty reads, which looks like a stalled device.
type SimCapture struct {
	Params     Params
	Steps      []SimStep
	Silence    bool
	Pace       bool
	RecoverErr error

	mu       sync.Mutex
	pos      int
	recovers int
}

// ReadPeriod returns the next scripted step, or silence/stall after the
// script drains.
func (c *SimCapture) ReadPeriod(buf []int16) (int, error) {
	if c.Pace {
		time.Sleep(c.Params.PeriodDuration())
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pos >= len(c.Steps) {
		if !c.Silence {
			return 0, nil
		}
		for i := range buf {
			buf[i] = 0
		}
		return len(buf), nil
	}

	step := c.Steps[c.pos]
	c.pos++
	if step.Err != nil {
		return 0, step.Err
	}
	n := copy(buf, step.Samples)
	return n, nil
}

// Recover counts attempts and returns the configured error, if any.
func (c *SimCapture) Recover() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recovers++
	return c.RecoverErr
}

// Recovers reports how many times Recover was called.
func (c *SimCapture) Recovers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recovers
}

// Close is a no-op.
func (c *SimCapture) Close() error { return nil }

// SimPlayback records every period written to it.
type SimPlayback struct {
	Params   Params
	WriteErr error

	mu       sync.Mutex
	written  []int16
	periods  int
	recovers int
}

// WritePeriod appends buf to the recording.
func (p *SimPlayback) WritePeriod(buf []int16) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.WriteErr != nil {
		return p.WriteErr
	}
	p.written = append(p.written, buf...)
	p.periods++
	return nil
}

// Recover counts attempts.
func (p *SimPlayback) Recover() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recovers++
	return nil
}

// Close is a no-op.
func (p *SimPlayback) Close() error { return nil }

// Written returns a copy of every sample written so far.
func (p *SimPlayback) Written() []int16 {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]int16, len(p.written))
	copy(out, p.written)
	return out
}

// Periods reports how many periods were written.
func (p *SimPlayback) Periods() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.periods
}

// SimBackend hands out simulated devices. The hooks let tests inject
// prepared captures and playbacks; without hooks it produces paced
// silence, good enough to run the full engine without hardware.
type SimBackend struct {
	NewCapture  func(Params) (Capture, error)
	NewPlayback func(Params) (Playback, error)

	mu        sync.Mutex
	captures  int
	playbacks int
}

// OpenCapture opens a scripted or default silent capture.
func (b *SimBackend) OpenCapture(p Params) (Capture, error) {
	b.mu.Lock()
	b.captures++
	b.mu.Unlock()

	if b.NewCapture != nil {
		return b.NewCapture(p)
	}
	return &SimCapture{Params: p, Silence: true, Pace: true}, nil
}

// OpenPlayback opens a scripted or default recording playback.
func (b *SimBackend) OpenPlayback(p Params) (Playback, error) {
	b.mu.Lock()
	b.playbacks++
	b.mu.Unlock()

	if b.NewPlayback != nil {
		return b.NewPlayback(p)
	}
	return &SimPlayback{Params: p}, nil
}

// Captures reports how many capture devices were opened.
func (b *SimBackend) Captures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.captures
}

// Playbacks reports how many playback devices were opened.
func (b *SimBackend) Playbacks() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.playbacks
}
