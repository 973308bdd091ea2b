// ABOUTME: Session statistics counters shared across intercom threads
// ABOUTME: Advisory only, they never affect audio correctness
package intercom

import "sync/atomic"

// Stats holds monotonically increasing counters. One instance persists
// across engine sessions for the life of the process; readers diff
// snapshots to compute rates.
type Stats struct {
	packetsSent     atomic.Uint64
	packetsReceived atomic.Uint64
	samplesCaptured atomic.Uint64
}

// StatsSnapshot is a point-in-time copy of all counters.
type StatsSnapshot struct {
	PacketsSent     uint64 `json:"packets_sent"`
	PacketsReceived uint64 `json:"packets_received"`
	SamplesCaptured uint64 `json:"samples_captured"`
}

// Snapshot copies the current counter values.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		PacketsSent:     s.packetsSent.Load(),
		PacketsReceived: s.packetsReceived.Load(),
		SamplesCaptured: s.samplesCaptured.Load(),
	}
}

func (s *Stats) addPacketsSent(n uint64)     { s.packetsSent.Add(n) }
func (s *Stats) addPacketsReceived(n uint64) { s.packetsReceived.Add(n) }
func (s *Stats) addSamplesCaptured(n uint64) { s.samplesCaptured.Add(n) }
