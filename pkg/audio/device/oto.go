// ABOUTME: Oto-based playback implementation with malgo capture fallback
// ABOUTME: Feeds a persistent oto player through a pipe for blocking writes
package device

import (
	"fmt"
	"io"
	"sync"

	"github.com/cambox-project/cambox-go/pkg/audio"
	"github.com/ebitengine/oto/v3"
)

// oto allows a single context per process, so the context is shared
// across sessions and only players come and go.
var (
	otoMu       sync.Mutex
	otoCtx      *oto.Context
	otoRate     int
	otoChannels int
)

// OtoBackend plays through oto. Capture is delegated to malgo because
// oto is an output-only library.
type OtoBackend struct {
	malgo MalgoBackend
}

// OpenCapture opens a malgo capture device.
func (b *OtoBackend) OpenCapture(p Params) (Capture, error) {
	return b.malgo.OpenCapture(p)
}

// OpenPlayback opens an oto player fed through a pipe.
func (b *OtoBackend) OpenPlayback(p Params) (Playback, error) {
	ctx, err := sharedOtoContext(p)
	if err != nil {
		return nil, err
	}

	pb := &otoPlayback{params: p}
	pb.pipeReader, pb.pipeWriter = io.Pipe()
	pb.player = ctx.NewPlayer(pb.pipeReader)
	pb.player.Play()
	return pb, nil
}

// sharedOtoContext returns the process-wide oto context, creating it on
// first use. A format mismatch on reuse is an error rather than the
// silent continuation miniaudio would allow.
func sharedOtoContext(p Params) (*oto.Context, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx != nil {
		if otoRate != p.SampleRate || otoChannels != p.Channels {
			return nil, fmt.Errorf("oto context already open at %dHz %dch, cannot reopen at %dHz %dch",
				otoRate, otoChannels, p.SampleRate, p.Channels)
		}
		return otoCtx, nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   p.SampleRate,
		ChannelCount: p.Channels,
		Format:       oto.FormatSignedInt16LE,
	}
	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("oto context: %w", err)
	}
	<-readyChan

	otoCtx = ctx
	otoRate = p.SampleRate
	otoChannels = p.Channels
	return otoCtx, nil
}

// otoPlayback writes periods into a pipe feeding a persistent player.
type otoPlayback struct {
	params     Params
	player     *oto.Player
	pipeReader *io.PipeReader
	pipeWriter *io.PipeWriter
	scratch    []byte
}

// WritePeriod blocks until the player consumes the period. A closed
// pipe means the player went away, reported as an xrun so the caller
// can recover.
func (p *otoPlayback) WritePeriod(buf []int16) error {
	want := len(buf) * 2
	if cap(p.scratch) < want {
		p.scratch = make([]byte, want)
	}
	out := p.scratch[:want]
	audio.EncodeS16LE(out, buf)

	if _, err := p.pipeWriter.Write(out); err != nil {
		return fmt.Errorf("%w: %v", ErrXRun, err)
	}
	return nil
}

// Recover rebuilds the pipe and player on the shared context.
func (p *otoPlayback) Recover() error {
	otoMu.Lock()
	ctx := otoCtx
	otoMu.Unlock()
	if ctx == nil {
		return fmt.Errorf("oto context gone")
	}

	p.closePlayer()
	p.pipeReader, p.pipeWriter = io.Pipe()
	p.player = ctx.NewPlayer(p.pipeReader)
	p.player.Play()
	return nil
}

// Close tears down the player but leaves the shared context alive for
// the next session.
func (p *otoPlayback) Close() error {
	p.closePlayer()
	return nil
}

func (p *otoPlayback) closePlayer() {
	if p.pipeWriter != nil {
		p.pipeWriter.Close()
		p.pipeWriter = nil
	}
	if p.player != nil {
		p.player.Close()
		p.player = nil
	}
	if p.pipeReader != nil {
		p.pipeReader.Close()
		p.pipeReader = nil
	}
}
