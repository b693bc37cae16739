// Package testutil holds deterministic signals and tolerance checks shared
// by the rack's tests.
package testutil

import (
	"math"
	"math/rand"

	"github.com/cwbudde/algo-rack/dsp/core"
)

// Sine generates a deterministic sine wave starting at phase 0.
func Sine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out
}

// Noise generates white noise with a fixed seed.
func Noise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// Impulse generates a unit impulse at pos.
func Impulse(length, pos int) []float64 {
	out := make([]float64, length)
	if pos >= 0 && pos < length {
		out[pos] = 1
	}
	return out
}

// DC generates a constant-valued signal.
func DC(value float64, length int) []float64 {
	out := make([]float64, length)
	for i := range out {
		out[i] = value
	}
	return out
}

// Stereo wraps copies of left and right in a two-channel buffer.
func Stereo(left, right []float64) *core.Buffer {
	return &core.Buffer{Channels: [][]float64{
		append([]float64(nil), left...),
		append([]float64(nil), right...),
	}}
}

// StereoDC returns a two-channel buffer filled with value.
func StereoDC(value float64, frames int) *core.Buffer {
	return &core.Buffer{Channels: [][]float64{DC(value, frames), DC(value, frames)}}
}
