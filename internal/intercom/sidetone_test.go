// ABOUTME: Sidetone ring tests covering cold start, duplication, and overflow
// ABOUTME: Verifies the silence-on-underrun and drop-on-full contracts
package intercom

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSidetoneColdStartIsSilence(t *testing.T) {
	capacity := 64
	r := NewSidetoneRing(capacity)

	for _, n := range []int{1, 7, capacity / 2, capacity} {
		out := make([]int16, n)
		for i := range out {
			out[i] = 123
		}
		r.ReadStereo(out)
		for i, s := range out {
			assert.Equal(t, int16(0), s, "read of %d: slot %d not silence", n, i)
		}
	}
}

func TestSidetoneStereoDuplication(t *testing.T) {
	r := NewSidetoneRing(32)

	// Drain the silence prefill first.
	drain := make([]int16, 16)
	r.ReadStereo(drain)

	written := r.WriteMono([]int16{100, -200, 300})
	assert.Equal(t, 3, written)

	out := make([]int16, 6)
	r.ReadStereo(out)
	assert.Equal(t, []int16{100, 100, -200, -200, 300, 300}, out)
}

func TestSidetoneDropsWhenFull(t *testing.T) {
	r := NewSidetoneRing(16)
	// Prefill occupies 8 slots, one slot stays empty: 7 usable, 3 pairs.
	written := r.WriteMono([]int16{1, 2, 3, 4, 5})
	assert.Equal(t, 3, written)

	out := make([]int16, 14)
	r.ReadStereo(out)
	want := append(make([]int16, 8), 1, 1, 2, 2, 3, 3)
	assert.Equal(t, want, out)
}

func TestSidetoneUnderrunKeepsCursor(t *testing.T) {
	r := NewSidetoneRing(16)

	drain := make([]int16, 8)
	r.ReadStereo(drain)

	// Underrun: nothing written yet, expect pure silence.
	out := make([]int16, 4)
	for i := range out {
		out[i] = 99
	}
	r.ReadStereo(out)
	assert.Equal(t, []int16{0, 0, 0, 0}, out)

	// Samples written after the underrun must not be skipped.
	r.WriteMono([]int16{42})
	r.ReadStereo(out[:2])
	assert.Equal(t, []int16{42, 42}, out[:2])
}

func TestSidetonePrefillIsHalfCapacity(t *testing.T) {
	r := NewSidetoneRing(64)
	r.WriteMono([]int16{7})

	out := make([]int16, 34)
	r.ReadStereo(out)
	for i := 0; i < 32; i++ {
		assert.Equal(t, int16(0), out[i], "prefill slot %d", i)
	}
	assert.Equal(t, int16(7), out[32])
	assert.Equal(t, int16(7), out[33])
}
