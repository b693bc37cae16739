package design

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-rack/dsp/filter/biquad"
)

const sr = 48000.0

func TestPeakGainAtCenter(t *testing.T) {
	t.Parallel()

	for _, gain := range []float64{-12, -6, 0, 6, 12} {
		c := Peak(1000, gain, 1, sr)
		if db := c.MagnitudeDB(1000, sr); math.Abs(db-gain) > 1e-6 {
			t.Fatalf("gain %v: center = %v dB", gain, db)
		}
		if db := c.MagnitudeDB(20, sr); math.Abs(db) > 0.1 {
			t.Fatalf("gain %v: far band = %v dB, want ~0", gain, db)
		}
	}
}

func TestShelves(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		coeffs biquad.Coefficients
		gain   float64
		inBand float64
		out    float64
	}{
		{name: "low shelf boost", coeffs: LowShelf(200, 6, 1, sr), gain: 6, inBand: 20, out: 10000},
		{name: "high shelf cut", coeffs: HighShelf(4000, -6, 1, sr), gain: -6, inBand: 20000, out: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if db := tt.coeffs.MagnitudeDB(tt.inBand, sr); math.Abs(db-tt.gain) > 0.5 {
				t.Fatalf("in-band = %v dB, want ~%v", db, tt.gain)
			}
			if db := tt.coeffs.MagnitudeDB(tt.out, sr); math.Abs(db) > 0.5 {
				t.Fatalf("out-of-band = %v dB, want ~0", db)
			}
		})
	}
}

func TestZeroGainIsFlat(t *testing.T) {
	t.Parallel()

	for _, c := range []biquad.Coefficients{
		Peak(1000, 0, 1, sr),
		LowShelf(100, 0, 1, sr),
		HighShelf(10000, 0, 1, sr),
	} {
		for _, f := range []float64{30, 1000, 15000} {
			if db := c.MagnitudeDB(f, sr); math.Abs(db) > 1e-9 {
				t.Fatalf("f=%v: %v dB, want 0", f, db)
			}
		}
	}
}

func TestFrequencyAboveNyquistIsClamped(t *testing.T) {
	t.Parallel()

	c := HighShelf(20000, 6, 1, 8000)
	if c == (biquad.Coefficients{}) {
		t.Fatal("got silent coefficients")
	}
	if db := c.MagnitudeDB(100, 8000); math.IsNaN(db) || math.Abs(db) > 0.5 {
		t.Fatalf("low band = %v dB, want ~0", db)
	}
}

func TestInvalidInputYieldsIdentity(t *testing.T) {
	t.Parallel()

	if c := Peak(1000, 3, 1, 0); c != biquad.Identity() {
		t.Fatalf("zero rate: %+v", c)
	}
	if c := LowShelf(math.NaN(), 3, 1, sr); c != biquad.Identity() {
		t.Fatalf("NaN freq: %+v", c)
	}
	// q <= 0 falls back to the default Q.
	if Peak(1000, 3, 0, sr) != Peak(1000, 3, defaultQ, sr) {
		t.Fatal("q=0 should use default Q")
	}
}
