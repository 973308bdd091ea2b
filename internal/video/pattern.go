// ABOUTME: Synthetic YUYV test pattern source
// ABOUTME: A moving white bar over gray, paced at the configured rate
package video

import (
	"time"
)

// Pattern luma values: dim gray background, near-white bar. Chroma is
// neutral throughout.
const (
	patternBackgroundY = 0x40
	patternBarY        = 0xEB
	patternChroma      = 0x80
)

// PatternSource generates a moving-bar test pattern when no capture
// hardware is present. The frame buffer is reused between calls, like
// a memory-mapped capture stream.
type PatternSource struct {
	width  int
	height int
	rate   FrameRate
	frame  Frame

	barPos   int
	barWidth int
	interval time.Duration
	next     time.Time
}

// NewPatternSource builds a pattern source. Width must be even, as
// YUYV packs two pixels per four bytes; odd widths are rounded down.
func NewPatternSource(width, height int, rate FrameRate) *PatternSource {
	width &^= 1
	if width < 2 {
		width = 2
	}
	if height < 1 {
		height = 1
	}

	stride := width * 2
	p := &PatternSource{
		width:    width,
		height:   height,
		rate:     rate,
		barWidth: width / 8,
		frame: Frame{
			Data:   make([]byte, stride*height),
			Width:  width,
			Height: height,
			Stride: stride,
			FourCC: FourCCYUYV,
		},
	}
	if p.barWidth < 2 {
		p.barWidth = 2
	}
	if fps := rate.FPS(); fps > 0 {
		p.interval = time.Duration(float64(time.Second) / fps)
	}
	return p
}

// NextFrame renders the next pattern frame, sleeping to hold the
// configured rate.
func (p *PatternSource) NextFrame() (*Frame, error) {
	if p.interval > 0 {
		now := time.Now()
		if p.next.IsZero() {
			p.next = now
		}
		if wait := p.next.Sub(now); wait > 0 {
			time.Sleep(wait)
		}
		p.next = p.next.Add(p.interval)
	}

	p.render()
	p.barPos = (p.barPos + 2) % p.width
	return &p.frame, nil
}

// render fills the YUYV buffer: background everywhere, bar columns
// brightened. Two pixels pack into [Y0 U Y1 V].
func (p *PatternSource) render() {
	data := p.frame.Data
	for row := 0; row < p.height; row++ {
		base := row * p.frame.Stride
		for x := 0; x < p.width; x += 2 {
			off := base + x*2
			data[off] = p.luma(x)
			data[off+1] = patternChroma
			data[off+2] = p.luma(x + 1)
			data[off+3] = patternChroma
		}
	}
}

func (p *PatternSource) luma(x int) byte {
	// The bar wraps around the right edge.
	d := x - p.barPos
	if d < 0 {
		d += p.width
	}
	if d < p.barWidth {
		return patternBarY
	}
	return patternBackgroundY
}

// Dimensions reports the frame size.
func (p *PatternSource) Dimensions() (int, int) {
	return p.width, p.height
}

// FrameRate reports the configured rate.
func (p *PatternSource) FrameRate() FrameRate {
	return p.rate
}

// Close is a no-op; the pattern holds no resources.
func (p *PatternSource) Close() error {
	return nil
}
