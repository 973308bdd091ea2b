// ABOUTME: Audio fundamentals package providing core sample utilities
// ABOUTME: Defines int16 PCM conversion, clamping, and channel helpers
// Package audio provides fundamental PCM sample utilities.
//
// The intercom path works in 16-bit PCM throughout. This package holds
// the conversions shared by the hardware backends and the engine:
//   - int16 ↔ little-endian byte conversions
//   - float and int32 clamping into the int16 range
//   - mono → interleaved stereo duplication
//
// Example:
//
//	frames := make([]int16, 256)
//	audio.DecodeS16LE(frames, raw)
//	stereo := make([]int16, 512)
//	audio.MonoToStereo(stereo, frames)
package audio
