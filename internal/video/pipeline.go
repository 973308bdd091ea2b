// ABOUTME: Video pipeline pumping frames from a source into a sink
// ABOUTME: Reports throughput every few seconds and rides out frame errors
package video

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultReportInterval = 5 * time.Second

	// captureErrorPause keeps a broken device from spinning the loop.
	captureErrorPause = 100 * time.Millisecond
)

// Pipeline moves frames from one source to one sink until stopped.
// Capture and send errors are logged and survived; only cancellation
// ends the run.
type Pipeline struct {
	source FrameSource
	sink   FrameSink
	log    *logrus.Entry

	frames  atomic.Uint64
	fpsBits atomic.Uint64

	// Test knob.
	reportEvery time.Duration
}

// NewPipeline wires a source to a sink. Run assumes ownership of both
// and closes them on exit.
func NewPipeline(source FrameSource, sink FrameSink, log *logrus.Entry) *Pipeline {
	if log == nil {
		log = logrus.StandardLogger().WithField("component", "video")
	}
	return &Pipeline{
		source:      source,
		sink:        sink,
		log:         log,
		reportEvery: defaultReportInterval,
	}
}

// Run pumps frames until the context is done.
func (p *Pipeline) Run(ctx context.Context) error {
	defer p.sink.Close()
	defer p.source.Close()

	width, height := p.source.Dimensions()
	p.log.WithFields(logrus.Fields{
		"width":  width,
		"height": height,
		"rate":   p.source.FrameRate().String(),
	}).Info("video pipeline running")

	var sinceReport uint64
	lastReport := time.Now()

	for ctx.Err() == nil {
		frame, err := p.source.NextFrame()
		if err != nil {
			p.log.WithError(err).Error("failed to capture frame")
			select {
			case <-ctx.Done():
			case <-time.After(captureErrorPause):
			}
			continue
		}

		if err := p.sink.SendFrame(frame); err != nil {
			p.log.WithError(err).Error("failed to send frame")
		}

		p.frames.Add(1)
		sinceReport++

		if elapsed := time.Since(lastReport); elapsed >= p.reportEvery {
			fps := float64(sinceReport) / elapsed.Seconds()
			p.fpsBits.Store(math.Float64bits(fps))
			p.log.Infof("streaming: %.1f fps (%d frames)", fps, p.frames.Load())
			sinceReport = 0
			lastReport = time.Now()
		}
	}

	p.log.Info("video pipeline stopped")
	return nil
}

// FPS reports the rate measured over the last report interval.
func (p *Pipeline) FPS() float64 {
	return math.Float64frombits(p.fpsBits.Load())
}

// Frames reports the total frames pumped since start.
func (p *Pipeline) Frames() uint64 {
	return p.frames.Load()
}
