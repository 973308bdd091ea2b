// ABOUTME: VBAN wire protocol package
// ABOUTME: Header codec, sample rate table, and payload conversion
// Package vban implements the VBAN audio-over-UDP wire format.
//
// VBAN (VB-Audio Network) is a simple unacknowledged UDP protocol:
// a fixed 28-byte header followed by interleaved PCM or float payload.
// The protocol offers no delivery or ordering guarantees; receivers
// absorb loss and jitter themselves.
//
// Example:
//
//	h, err := vban.NewHeader("cam1", 48000, 2, vban.CodecPCM16)
//	pkt := h.Encode(128)
//	pkt = vban.AppendPCM16(pkt, samples)
//	conn.Write(pkt)
package vban
