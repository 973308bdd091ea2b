// ABOUTME: Audio device package for period-based capture and playback
// ABOUTME: Provides Capture/Playback interfaces with malgo, oto, and sim backends
// Package device provides blocking period-based audio hardware access.
//
// The engine exchanges one fixed-size period per call: a mono capture
// read and an interleaved stereo playback write. Those two calls are
// the only intended suspension points of the period loop, each bounded
// to roughly one period duration.
//
// Backends:
//   - malgo: miniaudio capture and playback (ALSA on the appliance)
//   - oto:   oto playback with malgo capture
//   - sim:   deterministic in-memory devices for tests and bring-up
//
// Example:
//
//	backend, _ := device.New("malgo")
//	cap, err := backend.OpenCapture(params)
//	n, err := cap.ReadPeriod(frames)
package device
