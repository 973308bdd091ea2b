// ABOUTME: Tests for PCM sample helpers
// ABOUTME: Verifies clamping, byte packing, and stereo duplication
package audio

import "testing"

func TestClamp(t *testing.T) {
	cases := []struct {
		in   float64
		want int16
	}{
		{0, 0},
		{100.7, 100},
		{-100.7, -100},
		{32767, 32767},
		{40000, 32767},
		{-32768, -32768},
		{-40000, -32768},
	}

	for _, tc := range cases {
		if got := Clamp(tc.in); got != tc.want {
			t.Errorf("Clamp(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestClampInt32(t *testing.T) {
	if got := ClampInt32(360000); got != 32767 {
		t.Errorf("expected 32767, got %d", got)
	}
	if got := ClampInt32(-360000); got != -32768 {
		t.Errorf("expected -32768, got %d", got)
	}
	if got := ClampInt32(1234); got != 1234 {
		t.Errorf("expected 1234, got %d", got)
	}
}

func TestMonoToStereo(t *testing.T) {
	src := []int16{1, -2, 3}
	dst := make([]int16, 6)

	MonoToStereo(dst, src)

	want := []int16{1, 1, -2, -2, 3, 3}
	for i := range want {
		if dst[i] != want[i] {
			t.Errorf("dst[%d] = %d, want %d", i, dst[i], want[i])
		}
	}
}

func TestS16LERoundTrip(t *testing.T) {
	src := []int16{0, 1, -1, 32767, -32768}
	buf := make([]byte, len(src)*2)

	if n := EncodeS16LE(buf, src); n != len(buf) {
		t.Fatalf("encoded %d bytes, want %d", n, len(buf))
	}

	dst := make([]int16, len(src))
	if n := DecodeS16LE(dst, buf); n != len(src) {
		t.Fatalf("decoded %d samples, want %d", n, len(src))
	}

	for i := range src {
		if dst[i] != src[i] {
			t.Errorf("sample %d: got %d, want %d", i, dst[i], src[i])
		}
	}
}

func TestDecodeS16LEBoundsToDst(t *testing.T) {
	dst := make([]int16, 2)
	n := DecodeS16LE(dst, []byte{1, 0, 2, 0, 3, 0})

	if n != 2 {
		t.Errorf("expected 2 samples, got %d", n)
	}
}
