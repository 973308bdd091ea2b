// ABOUTME: Button source tests using pipes in place of device nodes
// ABOUTME: Covers record parsing, edge reporting, and poll timeouts
package button

import (
	"encoding/binary"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rawEvent builds one little-endian input_event record.
func rawEvent(evType, code uint16, value int32) []byte {
	raw := make([]byte, eventSize)
	binary.LittleEndian.PutUint16(raw[16:18], evType)
	binary.LittleEndian.PutUint16(raw[18:20], code)
	binary.LittleEndian.PutUint32(raw[20:24], uint32(value))
	return raw
}

func TestParseEvent(t *testing.T) {
	ev, err := parseEvent(rawEvent(EvKey, KeyMicMute, 1))
	require.NoError(t, err)
	assert.Equal(t, EvKey, ev.Type)
	assert.Equal(t, KeyMicMute, ev.Code)
	assert.Equal(t, int32(1), ev.Value)
}

func TestParseEventRejectsShortRecord(t *testing.T) {
	_, err := parseEvent(make([]byte, eventSize-1))
	assert.Error(t, err)
}

func TestParseEventNegativeValue(t *testing.T) {
	ev, err := parseEvent(rawEvent(EvKey, 30, -1))
	require.NoError(t, err)
	assert.Equal(t, int32(-1), ev.Value)
}

// pipeSource builds a Source whose reads come from an in-process pipe.
func pipeSource(t *testing.T) (*Source, *os.File) {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() {
		r.Close()
		w.Close()
	})
	return &Source{path: "test-pipe", name: "test-pipe", file: r}, w
}

func TestPollReportsPressEdge(t *testing.T) {
	src, w := pipeSource(t)

	_, err := w.Write(rawEvent(EvKey, KeyMicMute, 1))
	require.NoError(t, err)

	ev, ok, err := src.Poll(100 * time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, KeyMicMute, ev.Key)
	assert.True(t, ev.Pressed)
}

func TestPollReleaseAndRepeatAreNotPresses(t *testing.T) {
	src, w := pipeSource(t)

	for _, value := range []int32{0, 2} {
		_, err := w.Write(rawEvent(EvKey, KeyMicMute, value))
		require.NoError(t, err)

		ev, ok, err := src.Poll(100 * time.Millisecond)
		require.NoError(t, err)
		require.True(t, ok)
		assert.False(t, ev.Pressed, "value %d must not report a press", value)
	}
}

func TestPollSkipsNonKeyRecords(t *testing.T) {
	src, w := pipeSource(t)

	// EV_SYN separator records are consumed without reporting events.
	_, err := w.Write(rawEvent(0x00, 0, 0))
	require.NoError(t, err)

	_, ok, err := src.Poll(100 * time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPollTimesOutQuietly(t *testing.T) {
	src, _ := pipeSource(t)

	start := time.Now()
	_, ok, err := src.Poll(20 * time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}

func TestPollReportsClosedDevice(t *testing.T) {
	src, w := pipeSource(t)
	w.Close()

	_, ok, err := src.Poll(100 * time.Millisecond)
	assert.Error(t, err)
	assert.False(t, ok)
}
