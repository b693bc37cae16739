package host

import (
	"math"
	"math/rand"

	"github.com/cwbudde/algo-rack/dsp/core"
)

// Source fills a block with generated input for offline playback.
type Source interface {
	Fill(buf *core.Buffer)
}

// Tone is a sine source. Every channel carries the same signal.
type Tone struct {
	Freq  float64
	Amp   float64
	Rate  float64
	phase float64
}

// Fill writes the next block of the tone into buf.
func (t *Tone) Fill(buf *core.Buffer) {
	step := 2 * math.Pi * t.Freq / t.Rate
	phase := t.phase
	for _, out := range buf.Channels {
		phase = t.phase
		for i := range out {
			out[i] = t.Amp * math.Sin(phase)
			phase += step
		}
	}
	t.phase = math.Mod(phase, 2*math.Pi)
}

// Noise is a uniform white noise source.
type Noise struct {
	Amp float64
	rng *rand.Rand
}

// NewNoise returns a noise source with a fixed seed.
func NewNoise(amp float64, seed int64) *Noise {
	return &Noise{Amp: amp, rng: rand.New(rand.NewSource(seed))}
}

// Fill writes independent noise into every channel of buf.
func (n *Noise) Fill(buf *core.Buffer) {
	for _, out := range buf.Channels {
		for i := range out {
			out[i] = n.Amp * (2*n.rng.Float64() - 1)
		}
	}
}
