package design

import (
	"math"

	"github.com/cwbudde/algo-rack/dsp/filter/biquad"
)

const (
	defaultQ = 1 / math.Sqrt2
	// maxNormalizedFreq keeps band centers below Nyquist at low host rates
	// (a 20 kHz shelf at 8 kHz is folded down instead of producing silence).
	maxNormalizedFreq = 0.49
	minFreq           = 1.0
)

// terms are the shared RBJ intermediates for one band.
type terms struct {
	cw, alpha, a float64
}

func rbjTerms(freq, gainDB, q, sampleRate float64) (terms, bool) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return terms{}, false
	}
	if math.IsNaN(freq) || math.IsNaN(gainDB) {
		return terms{}, false
	}

	freq = math.Min(math.Max(freq, minFreq), maxNormalizedFreq*sampleRate)
	if q <= 0 || math.IsNaN(q) || math.IsInf(q, 0) {
		q = defaultQ
	}

	w0 := 2 * math.Pi * freq / sampleRate

	return terms{
		cw:    math.Cos(w0),
		alpha: math.Sin(w0) / (2 * q),
		a:     math.Pow(10, gainDB/40),
	}, true
}

// Peak designs a peaking band with gainDB at freq and bandwidth q.
// Invalid input yields the identity section.
func Peak(freq, gainDB, q, sampleRate float64) biquad.Coefficients {
	t, ok := rbjTerms(freq, gainDB, q, sampleRate)
	if !ok {
		return biquad.Identity()
	}

	return normalize(
		1+t.alpha*t.a, -2*t.cw, 1-t.alpha*t.a,
		1+t.alpha/t.a, -2*t.cw, 1-t.alpha/t.a,
	)
}

// LowShelf designs a low shelf with gainDB below freq.
func LowShelf(freq, gainDB, q, sampleRate float64) biquad.Coefficients {
	t, ok := rbjTerms(freq, gainDB, q, sampleRate)
	if !ok {
		return biquad.Identity()
	}

	a, cw := t.a, t.cw
	beta := 2 * math.Sqrt(a) * t.alpha

	return normalize(
		a*((a+1)-(a-1)*cw+beta),
		2*a*((a-1)-(a+1)*cw),
		a*((a+1)-(a-1)*cw-beta),
		(a+1)+(a-1)*cw+beta,
		-2*((a-1)+(a+1)*cw),
		(a+1)+(a-1)*cw-beta,
	)
}

// HighShelf designs a high shelf with gainDB above freq.
func HighShelf(freq, gainDB, q, sampleRate float64) biquad.Coefficients {
	t, ok := rbjTerms(freq, gainDB, q, sampleRate)
	if !ok {
		return biquad.Identity()
	}

	a, cw := t.a, t.cw
	beta := 2 * math.Sqrt(a) * t.alpha

	return normalize(
		a*((a+1)+(a-1)*cw+beta),
		-2*a*((a-1)+(a+1)*cw),
		a*((a+1)+(a-1)*cw-beta),
		(a+1)-(a-1)*cw+beta,
		2*((a-1)-(a+1)*cw),
		(a+1)-(a-1)*cw-beta,
	)
}

func normalize(b0, b1, b2, a0, a1, a2 float64) biquad.Coefficients {
	if a0 == 0 || math.IsNaN(a0) || math.IsInf(a0, 0) {
		return biquad.Identity()
	}

	return biquad.Coefficients{
		B0: b0 / a0,
		B1: b1 / a0,
		B2: b2 / a0,
		A1: a1 / a0,
		A2: a2 / a0,
	}
}
