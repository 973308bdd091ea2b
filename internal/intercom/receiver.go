// ABOUTME: UDP listener decoding inbound packets into the jitter buffer
// ABOUTME: Malformed and foreign packets are dropped silently
package intercom

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cambox-project/cambox-go/pkg/vban"
)

// readTimeout keeps the socket loop responsive to cancellation even
// with no traffic.
const readTimeout = 100 * time.Millisecond

// Receiver listens on the service port and feeds matching audio into
// the jitter buffer. One runs per engine session.
type Receiver struct {
	streamName string
	port       int
	jitter     *JitterBuffer
	stats      *Stats
	log        *logrus.Entry

	mu    sync.Mutex
	bound net.Addr
}

// NewReceiver builds a receiver for one stream. Port 0 binds an
// ephemeral port, which only tests use.
func NewReceiver(streamName string, port int, jitter *JitterBuffer, stats *Stats, log *logrus.Entry) *Receiver {
	return &Receiver{
		streamName: streamName,
		port:       port,
		jitter:     jitter,
		stats:      stats,
		log:        log,
	}
}

// LocalAddr reports the bound address, nil before Run binds the socket.
func (r *Receiver) LocalAddr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bound
}

// Run binds the socket and pumps datagrams until the context is done.
// A bind failure is returned so the session can fail and be rebuilt.
func (r *Receiver) Run(ctx context.Context) error {
	conn, err := net.ListenPacket("udp", fmt.Sprintf(":%d", r.port))
	if err != nil {
		return fmt.Errorf("bind receiver: %w", err)
	}
	defer conn.Close()

	r.mu.Lock()
	r.bound = conn.LocalAddr()
	r.mu.Unlock()

	r.log.WithFields(logrus.Fields{
		"addr":   conn.LocalAddr().String(),
		"stream": r.streamName,
	}).Info("receiver listening")

	buf := make([]byte, vban.MaxPacketSize)
	for ctx.Err() == nil {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				break
			}
			r.log.WithError(err).Warn("receive error")
			continue
		}

		if n < vban.HeaderSize {
			continue
		}
		header, err := vban.Decode(buf[:n])
		if err != nil {
			continue
		}
		if header.StreamName != r.streamName {
			continue
		}

		samples := vban.DecodePayload(header.Codec, buf[vban.HeaderSize:n])
		r.jitter.Push(samples)
		r.stats.addPacketsReceived(1)
	}
	return nil
}
