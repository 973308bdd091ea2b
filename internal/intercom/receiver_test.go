// ABOUTME: Network receiver tests using real loopback UDP sockets
// ABOUTME: Covers accept, silent-drop, and codec decode paths
package intercom

import (
	"context"
	"encoding/binary"
	"math"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cambox-project/cambox-go/pkg/vban"
)

// startReceiver runs a receiver on an ephemeral port and waits for the
// bind. The returned stop function blocks until the receiver exits.
func startReceiver(t *testing.T, streamName string, jitter *JitterBuffer, stats *Stats) (net.Addr, func()) {
	t.Helper()

	r := NewReceiver(streamName, 0, jitter, stats, testLog())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return r.LocalAddr() != nil },
		time.Second, time.Millisecond, "receiver never bound")

	return r.LocalAddr(), func() {
		cancel()
		require.NoError(t, <-done)
	}
}

func sendTo(t *testing.T, addr net.Addr, packet []byte) {
	t.Helper()
	conn, err := net.Dial("udp", addr.String())
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write(packet)
	require.NoError(t, err)
}

func pcm16Packet(t *testing.T, stream string, counter uint32, samples []int16) []byte {
	t.Helper()
	h, err := vban.NewHeader(stream, 48000, 2, vban.CodecPCM16)
	require.NoError(t, err)
	h.FrameCounter = counter
	packet := h.Encode(len(samples) / 2)
	return vban.AppendPCM16(packet, samples)
}

func TestReceiverPushesMatchingStream(t *testing.T) {
	jitter := NewJitterBuffer(1024)
	stats := &Stats{}
	addr, stop := startReceiver(t, "cam1", jitter, stats)
	defer stop()

	samples := []int16{100, 100, -200, -200}
	sendTo(t, addr, pcm16Packet(t, "cam1", 1, samples))

	require.Eventually(t, func() bool { return jitter.Len() == len(samples) },
		time.Second, time.Millisecond, "samples never reached the jitter buffer")

	out := make([]int16, len(samples))
	jitter.Pop(out)
	assert.Equal(t, samples, out)
	assert.Equal(t, uint64(1), stats.Snapshot().PacketsReceived)
}

func TestReceiverDropsForeignAndMalformed(t *testing.T) {
	jitter := NewJitterBuffer(1024)
	stats := &Stats{}
	addr, stop := startReceiver(t, "cam1", jitter, stats)
	defer stop()

	// Foreign stream name.
	sendTo(t, addr, pcm16Packet(t, "other", 1, []int16{1, 1}))
	// Too short to hold a header.
	sendTo(t, addr, []byte("VBAN"))
	// Wrong magic.
	bad := pcm16Packet(t, "cam1", 1, []int16{2, 2})
	bad[0] = 'X'
	sendTo(t, addr, bad)
	// Non-audio sub-protocol.
	serial := pcm16Packet(t, "cam1", 1, []int16{3, 3})
	serial[4] |= 0x20
	sendTo(t, addr, serial)

	// A valid packet afterwards proves the receiver survived the junk.
	sendTo(t, addr, pcm16Packet(t, "cam1", 2, []int16{42, 42}))

	require.Eventually(t, func() bool { return jitter.Len() > 0 },
		time.Second, time.Millisecond)

	out := make([]int16, 4)
	n := jitter.Pop(out)
	assert.Equal(t, 2, n, "only the valid packet's samples may arrive")
	assert.Equal(t, []int16{42, 42}, out[:n])
	assert.Equal(t, uint64(1), stats.Snapshot().PacketsReceived)
}

func TestReceiverDecodesFloat32(t *testing.T) {
	jitter := NewJitterBuffer(1024)
	stats := &Stats{}
	addr, stop := startReceiver(t, "cam1", jitter, stats)
	defer stop()

	h, err := vban.NewHeader("cam1", 48000, 2, vban.CodecFloat32)
	require.NoError(t, err)
	packet := h.Encode(1)
	for _, f := range []float32{0.5, -1.0} {
		packet = binary.LittleEndian.AppendUint32(packet, math.Float32bits(f))
	}
	sendTo(t, addr, packet)

	require.Eventually(t, func() bool { return jitter.Len() == 2 },
		time.Second, time.Millisecond)

	out := make([]int16, 2)
	jitter.Pop(out)
	assert.Equal(t, int16(16383), out[0])
	assert.Equal(t, int16(-32767), out[1])
}

func TestReceiverStopsOnCancel(t *testing.T) {
	jitter := NewJitterBuffer(16)
	r := NewReceiver("cam1", 0, jitter, &Stats{}, testLog())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return r.LocalAddr() != nil },
		time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("receiver did not stop after cancel")
	}
}
