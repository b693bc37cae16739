package testutil

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-rack/dsp/core"
)

// RequireSliceNearlyEqual fails t if got and want differ in length or if
// any element pair exceeds eps (absolute tolerance).
func RequireSliceNearlyEqual(t *testing.T, got, want []float64, eps float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range got {
		if diff := math.Abs(got[i] - want[i]); diff > eps {
			t.Fatalf("index %d: got %v, want %v (diff %v > eps %v)", i, got[i], want[i], diff, eps)
		}
	}
}

// RequireFinite fails t if any sample in buf is NaN or Inf.
func RequireFinite(t *testing.T, buf *core.Buffer) {
	t.Helper()
	for ch, data := range buf.Channels {
		for i, v := range data {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("channel %d index %d: non-finite value %v", ch, i, v)
			}
		}
	}
}

// RequireConstant fails t unless every sample of buf equals want within eps.
func RequireConstant(t *testing.T, buf *core.Buffer, want, eps float64) {
	t.Helper()
	for ch, data := range buf.Channels {
		for i, v := range data {
			if math.Abs(v-want) > eps {
				t.Fatalf("channel %d index %d: got %v, want %v", ch, i, v, want)
			}
		}
	}
}

// RMS returns the root mean square of x.
func RMS(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}
