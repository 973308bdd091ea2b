// ABOUTME: Lock-free SPSC ring feeding the microphone back to the headphones
// ABOUTME: Writer drops on full, reader substitutes silence on underrun
package intercom

import "sync/atomic"

// SidetoneRing carries raw microphone samples to the local monitor mix
// with no lock on either side. It is strictly single-producer (the
// engine's capture step) and single-consumer (the engine's playback
// step); both cursors only ever advance, and slot index is cursor mod
// capacity. One slot stays empty so a full ring never looks empty.
type SidetoneRing struct {
	buf   []int16
	read  atomic.Int64
	write atomic.Int64
}

// NewSidetoneRing creates a ring of the given capacity, pre-filled with
// silence to half capacity so the first reads do not underrun before
// the producer has written anything.
func NewSidetoneRing(capacity int) *SidetoneRing {
	if capacity < 4 {
		capacity = 4
	}
	r := &SidetoneRing{buf: make([]int16, capacity)}
	r.write.Store(int64(capacity / 2))
	return r
}

// WriteMono duplicates each sample into an interleaved stereo pair and
// publishes it to the reader. A sample is dropped when fewer than two
// free slots remain; the capture path must never block here. Returns
// the number of input samples written.
func (r *SidetoneRing) WriteMono(samples []int16) int {
	capacity := int64(len(r.buf))
	w := r.write.Load()
	written := 0

	for _, s := range samples {
		rd := r.read.Load()
		if capacity-1-(w-rd) < 2 {
			break
		}
		r.buf[w%capacity] = s
		r.buf[(w+1)%capacity] = s
		w += 2
		r.write.Store(w)
		written++
	}
	return written
}

// ReadStereo fills out with interleaved stereo values, emitting silence
// for every slot the producer has not filled yet. The read cursor only
// advances past real samples, so late writes are not skipped.
func (r *SidetoneRing) ReadStereo(out []int16) {
	capacity := int64(len(r.buf))
	rd := r.read.Load()
	w := r.write.Load()

	for i := range out {
		if rd == w {
			out[i] = 0
			continue
		}
		out[i] = r.buf[rd%capacity]
		rd++
	}
	r.read.Store(rd)
}
