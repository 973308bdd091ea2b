// ABOUTME: Look-ahead peak limiter protecting the outbound stream
// ABOUTME: One-pole envelope with fast attack, slow release, and a hard clip
package intercom

import (
	"math"

	"github.com/cambox-project/cambox-go/pkg/audio"
)

// Envelope time constants in seconds. Attack is fast enough to duck a
// transient inside the look-ahead window; release recovers smoothly.
const (
	limiterAttackSeconds  = 0.0001
	limiterReleaseSeconds = 0.05
)

// PeakLimiter delays the signal by a short look-ahead window so the
// gain envelope can react to a peak before it reaches the output.
// It accepts int32 because samples arrive post-gain and may exceed the
// int16 range; the output is always a clamped int16.
type PeakLimiter struct {
	threshold float64
	attack    float64
	release   float64
	envelope  float64
	hardClip  int32

	delay []int32
	head  int
	count int
}

// NewPeakLimiter builds a limiter for the given threshold (fraction of
// full scale, clamped to [0.01, 1.0]) and sample rate. The look-ahead
// window is half a millisecond of audio.
func NewPeakLimiter(threshold float64, sampleRate int) *PeakLimiter {
	if threshold < 0.01 {
		threshold = 0.01
	}
	if threshold > 1.0 {
		threshold = 1.0
	}

	lookahead := sampleRate / 2000
	if lookahead < 1 {
		lookahead = 1
	}

	rate := float64(sampleRate)
	return &PeakLimiter{
		threshold: threshold,
		attack:    math.Exp(-1.0 / (limiterAttackSeconds * rate)),
		release:   math.Exp(-1.0 / (limiterReleaseSeconds * rate)),
		envelope:  1.0,
		hardClip:  int32(math.Round(threshold * 32767)),
		delay:     make([]int32, lookahead+1),
	}
}

// Process pushes one sample into the delay line and emits the delayed
// sample scaled by the envelope. Until the delay line fills it emits
// exact silence, suppressing the startup transient.
func (l *PeakLimiter) Process(sample int32) int16 {
	l.delay[(l.head+l.count)%len(l.delay)] = sample
	l.count++
	if l.count < len(l.delay) {
		return 0
	}

	delayed := l.delay[l.head]
	l.head = (l.head + 1) % len(l.delay)
	l.count--

	peak := float64(l.windowMax()) / 32768.0
	target := 1.0
	if peak > l.threshold {
		target = l.threshold / peak
	}

	coef := l.release
	if target < l.envelope {
		coef = l.attack
	}
	l.envelope = coef*l.envelope + (1.0-coef)*target

	out := int64(float64(delayed) * l.envelope)
	if out > audio.MaxSample {
		out = audio.MaxSample
	}
	if out < audio.MinSample {
		out = audio.MinSample
	}

	// Safety net for spikes the smoothed envelope cannot duck in time.
	clipped := int32(out)
	if clipped > l.hardClip {
		clipped = l.hardClip
	}
	if clipped < -l.hardClip {
		clipped = -l.hardClip
	}
	return int16(clipped)
}

// windowMax scans the remaining look-ahead window for the largest
// absolute sample value.
func (l *PeakLimiter) windowMax() int32 {
	var max int32
	for i := 0; i < l.count; i++ {
		v := l.delay[(l.head+i)%len(l.delay)]
		if v < 0 {
			v = -v
		}
		if v > max {
			max = v
		}
	}
	return max
}

// Reset restores the envelope and clears the delay line. Only called on
// an explicit session restart, never mid-stream.
func (l *PeakLimiter) Reset() {
	l.envelope = 1.0
	l.head = 0
	l.count = 0
}

// Threshold reports the clamped threshold in effect.
func (l *PeakLimiter) Threshold() float64 {
	return l.threshold
}

// Lookahead reports the delay line length in samples.
func (l *PeakLimiter) Lookahead() int {
	return len(l.delay) - 1
}
