// ABOUTME: Status snapshot schema broadcast to monitor clients
// ABOUTME: Advisory JSON only, never consulted by the core engine
package monitor

import "github.com/cambox-project/cambox-go/internal/intercom"

// Status is the snapshot sent to every monitor client once per second.
type Status struct {
	Hostname      string        `json:"hostname"`
	Version       string        `json:"version"`
	UptimeSeconds float64       `json:"uptime_seconds"`
	Session       SessionStatus `json:"session"`
	Video         VideoStatus   `json:"video"`
}

// SessionStatus mirrors the intercom supervisor. Rates are computed by
// diffing the monotonic counters between broadcasts.
type SessionStatus struct {
	State                string  `json:"state"`
	ID                   string  `json:"id,omitempty"`
	Restarts             uint64  `json:"restarts"`
	Muted                bool    `json:"muted"`
	SendPacketsPerSec    float64 `json:"send_pkt_per_s"`
	RecvPacketsPerSec    float64 `json:"recv_pkt_per_s"`
	CaptureSamplesPerSec float64 `json:"capture_samp_per_s"`
}

// VideoStatus mirrors the video pipeline counters.
type VideoStatus struct {
	FPS    float64 `json:"fps"`
	Frames uint64  `json:"frames"`
}

// IntercomSource is the supervisor surface the monitor reads.
type IntercomSource interface {
	State() intercom.State
	SessionID() string
	Restarts() uint64
	Muted() bool
	Stats() *intercom.Stats
}

// VideoSource is the pipeline surface the monitor reads.
type VideoSource interface {
	FPS() float64
	Frames() uint64
}

// Sources are the live feeds mirrored into status snapshots. Nil
// members render as disabled rather than failing.
type Sources struct {
	Intercom IntercomSource
	Video    VideoSource
}
