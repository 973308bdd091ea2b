// ABOUTME: VBAN payload sample conversion
// ABOUTME: Decodes wire payloads to int16 and encodes int16 to PCM16
package vban

import (
	"encoding/binary"
	"math"
)

// DecodePayload converts a packet payload to int16 samples per the
// announced codec. PCM16 little-endian is a direct reinterpretation.
// Float32 little-endian is scaled by 32767 and clamped. Every other
// codec id is treated as PCM16, which keeps foreign senders audible
// instead of silent.
func DecodePayload(codec Codec, data []byte) []int16 {
	if codec == CodecFloat32 {
		return decodeFloat32(data)
	}
	return decodePCM16(data)
}

func decodePCM16(data []byte) []int16 {
	n := len(data) / 2
	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return samples
}

func decodeFloat32(data []byte) []int16 {
	n := len(data) / 4
	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		f := math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		v := float64(f) * 32767.0
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		samples[i] = int16(v)
	}
	return samples
}

// AppendPCM16 appends samples to dst as little-endian PCM16 and
// returns the extended slice. Used by senders to build a packet in
// place after Header.Encode.
func AppendPCM16(dst []byte, samples []int16) []byte {
	for _, s := range samples {
		dst = binary.LittleEndian.AppendUint16(dst, uint16(s))
	}
	return dst
}
