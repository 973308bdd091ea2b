// ABOUTME: Frame sinks that stand in when no network sender is loaded
// ABOUTME: The null sink counts frames and drops them
package video

import "sync/atomic"

// NullSink discards frames. Used when the appliance runs audio-only or
// under test.
type NullSink struct {
	frames atomic.Uint64
}

// SendFrame counts and drops the frame.
func (n *NullSink) SendFrame(*Frame) error {
	n.frames.Add(1)
	return nil
}

// Frames reports how many frames were discarded.
func (n *NullSink) Frames() uint64 {
	return n.frames.Load()
}

// Close is a no-op.
func (n *NullSink) Close() error {
	return nil
}
