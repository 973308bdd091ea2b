// ABOUTME: Bounded FIFO absorbing network arrival jitter before playback
// ABOUTME: Overflow evicts the oldest samples, it never blocks or errors
package intercom

import "sync"

// JitterBuffer is a mutex-guarded sample queue between the network
// receiver and the engine's per-period mix. The lock is never taken
// from a hardware callback, so O(count) hold times are acceptable.
type JitterBuffer struct {
	mu    sync.Mutex
	buf   []int16
	head  int
	count int
}

// NewJitterBuffer creates a buffer holding at most capacity samples.
func NewJitterBuffer(capacity int) *JitterBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &JitterBuffer{buf: make([]int16, capacity)}
}

// Push appends samples, evicting from the front until they fit. When
// the input alone exceeds capacity only its newest samples survive.
func (j *JitterBuffer) Push(samples []int16) {
	j.mu.Lock()
	defer j.mu.Unlock()

	capacity := len(j.buf)
	if len(samples) >= capacity {
		copy(j.buf, samples[len(samples)-capacity:])
		j.head = 0
		j.count = capacity
		return
	}

	if overflow := j.count + len(samples) - capacity; overflow > 0 {
		j.head = (j.head + overflow) % capacity
		j.count -= overflow
	}

	tail := (j.head + j.count) % capacity
	for _, s := range samples {
		j.buf[tail] = s
		tail = (tail + 1) % capacity
	}
	j.count += len(samples)
}

// Pop removes up to len(out) samples in FIFO order and reports how many
// were written. Callers pad the shortfall with silence.
func (j *JitterBuffer) Pop(out []int16) int {
	j.mu.Lock()
	defer j.mu.Unlock()

	n := len(out)
	if n > j.count {
		n = j.count
	}
	for i := 0; i < n; i++ {
		out[i] = j.buf[j.head]
		j.head = (j.head + 1) % len(j.buf)
	}
	j.count -= n
	return n
}

// Len reports the buffered sample count.
func (j *JitterBuffer) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.count
}

// Cap reports the fixed capacity.
func (j *JitterBuffer) Cap() int {
	return len(j.buf)
}
