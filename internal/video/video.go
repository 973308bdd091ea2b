// ABOUTME: Video frame model and the source/sink boundary interfaces
// ABOUTME: Capture and network senders plug in behind these types
package video

import "fmt"

// FourCC is a V4L2-style pixel format tag.
type FourCC [4]byte

func (f FourCC) String() string {
	return string(f[:])
}

// Pixel formats the appliance handles.
var (
	FourCCYUYV = FourCC{'Y', 'U', 'Y', 'V'}
	FourCCUYVY = FourCC{'U', 'Y', 'V', 'Y'}
	FourCCNV12 = FourCC{'N', 'V', '1', '2'}
)

// Frame is one captured video frame. Data is only valid until the
// source's next NextFrame call; sinks must consume it synchronously.
type Frame struct {
	Data   []byte
	Width  int
	Height int
	Stride int
	FourCC FourCC
}

// FrameRate is frames per second as a rational number.
type FrameRate struct {
	Numerator   int
	Denominator int
}

// DefaultFrameRate is 29.97 fps, used when detection fails.
func DefaultFrameRate() FrameRate {
	return FrameRate{Numerator: 30000, Denominator: 1001}
}

// FPS returns the rate as a float.
func (r FrameRate) FPS() float64 {
	if r.Denominator == 0 {
		return 0
	}
	return float64(r.Numerator) / float64(r.Denominator)
}

func (r FrameRate) String() string {
	return fmt.Sprintf("%d/%d (%.2f fps)", r.Numerator, r.Denominator, r.FPS())
}

// FrameSource produces frames, blocking until one is available.
type FrameSource interface {
	NextFrame() (*Frame, error)
	Dimensions() (int, int)
	FrameRate() FrameRate
	Close() error
}

// FrameSink consumes frames. The network sender implements this; the
// pipeline has no dependency on what is behind it.
type FrameSink interface {
	SendFrame(*Frame) error
	Close() error
}
