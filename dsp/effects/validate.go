package effects

import (
	"fmt"
	"math"
)

func checkSampleRate(what string, sampleRate float64) error {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("%s sample rate must be > 0: %f", what, sampleRate)
	}
	return nil
}

func checkRange(what string, v, lo, hi float64) error {
	if v < lo || v > hi || math.IsNaN(v) {
		return fmt.Errorf("%s must be in [%g, %g]: %f", what, lo, hi, v)
	}
	return nil
}
