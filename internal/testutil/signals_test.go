package testutil

import (
	"math"
	"testing"
)

func TestSine(t *testing.T) {
	s := Sine(1000, 48000, 1.0, 48)
	if len(s) != 48 {
		t.Fatalf("len = %d, want 48", len(s))
	}
	if math.Abs(s[0]) > 1e-15 {
		t.Fatalf("s[0] = %v, want 0", s[0])
	}
	for i, v := range s {
		if v < -1 || v > 1 {
			t.Fatalf("s[%d] = %v out of range", i, v)
		}
	}
}

func TestNoiseReproducible(t *testing.T) {
	a := Noise(42, 1.0, 64)
	b := Noise(42, 1.0, 64)
	RequireSliceNearlyEqual(t, a, b, 0)
}

func TestImpulse(t *testing.T) {
	imp := Impulse(8, 3)
	for i, v := range imp {
		want := 0.0
		if i == 3 {
			want = 1
		}
		if v != want {
			t.Fatalf("imp[%d] = %v, want %v", i, v, want)
		}
	}
	if out := Impulse(4, 9); RMS(out) != 0 {
		t.Fatal("out-of-range impulse should be silent")
	}
}

func TestStereoCopiesInput(t *testing.T) {
	left := []float64{1, 2}
	buf := Stereo(left, []float64{3, 4})
	buf.Channels[0][0] = 9
	if left[0] != 1 {
		t.Fatal("Stereo aliased its input")
	}
	RequireConstant(t, StereoDC(0.5, 4), 0.5, 0)
}
