package biquad

import (
	"math"
	"testing"
)

func TestMagnitudeDB_Identity(t *testing.T) {
	c := Identity()
	for _, f := range []float64{20, 1000, 10000} {
		if db := c.MagnitudeDB(f, 48000); !almostEqual(db, 0, 1e-9) {
			t.Fatalf("f=%v: %v dB, want 0", f, db)
		}
	}
}

func TestChain_MagnitudeDB_SumOfSections(t *testing.T) {
	coeffs := twoSectionCoeffs()
	c := NewChain(coeffs)

	want := coeffs[0].MagnitudeDB(500, 48000) + coeffs[1].MagnitudeDB(500, 48000)
	if got := c.MagnitudeDB(500, 48000); !almostEqual(got, want, 1e-9) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestMagnitudeSquared_DCGain(t *testing.T) {
	c := testCoeffs()
	// H(1) = (b0+b1+b2)/(1+a1+a2)
	dc := (c.B0 + c.B1 + c.B2) / (1 + c.A1 + c.A2)
	if got := c.MagnitudeSquared(0, 48000); math.Abs(got-dc*dc) > 1e-12 {
		t.Fatalf("got %v, want %v", got, dc*dc)
	}
}
