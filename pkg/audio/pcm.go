// ABOUTME: PCM sample conversion helpers
// ABOUTME: int16 byte packing, range clamping, and channel duplication
package audio

import "encoding/binary"

const (
	// 16-bit PCM range constants
	MaxSample = 32767
	MinSample = -32768
)

// Clamp limits a float value to the int16 sample range.
func Clamp(v float64) int16 {
	if v > MaxSample {
		return MaxSample
	}
	if v < MinSample {
		return MinSample
	}
	return int16(v)
}

// ClampInt32 limits a 32-bit intermediate value to the int16 range.
func ClampInt32(v int32) int16 {
	if v > MaxSample {
		return MaxSample
	}
	if v < MinSample {
		return MinSample
	}
	return int16(v)
}

// MonoToStereo duplicates each mono sample into an interleaved stereo
// pair. dst must hold 2*len(src) samples.
func MonoToStereo(dst, src []int16) {
	for i, s := range src {
		dst[i*2] = s
		dst[i*2+1] = s
	}
}

// DecodeS16LE unpacks little-endian 16-bit PCM bytes into dst and
// returns the number of samples written.
func DecodeS16LE(dst []int16, src []byte) int {
	n := len(src) / 2
	if n > len(dst) {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		dst[i] = int16(binary.LittleEndian.Uint16(src[i*2:]))
	}
	return n
}

// EncodeS16LE packs samples into dst as little-endian 16-bit PCM bytes
// and returns the number of bytes written.
func EncodeS16LE(dst []byte, src []int16) int {
	n := len(dst) / 2
	if n > len(src) {
		n = len(src)
	}
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(dst[i*2:], uint16(src[i]))
	}
	return n * 2
}
