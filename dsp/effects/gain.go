package effects

import (
	"math"

	"github.com/cwbudde/algo-rack/dsp/core"
	"github.com/cwbudde/algo-vecmath"
)

const (
	MaxGainDB = 24.0

	// gainRampSeconds is how long a gain change takes to settle.
	gainRampSeconds = 0.02
)

// Gain is a gain stage that ramps linearly to a new target instead of
// jumping, so live changes do not click.
type Gain struct {
	sampleRate float64
	gainDB     float64

	current  float64
	target   float64
	step     float64
	rampLeft int

	ramp []float64
}

// NewGain creates a unity gain stage.
func NewGain(sampleRate float64) (*Gain, error) {
	if err := checkSampleRate("gain", sampleRate); err != nil {
		return nil, err
	}
	return &Gain{sampleRate: sampleRate, current: 1, target: 1}, nil
}

// SetSampleRate updates sample rate and snaps to the target gain.
func (g *Gain) SetSampleRate(sampleRate float64) error {
	if err := checkSampleRate("gain", sampleRate); err != nil {
		return err
	}
	g.sampleRate = sampleRate
	g.Reset()
	return nil
}

// SetMaxBlockSize preallocates the ramp buffer so ProcessInPlace never
// allocates for blocks up to n samples.
func (g *Gain) SetMaxBlockSize(n int) {
	if n > cap(g.ramp) {
		g.ramp = make([]float64, n)
	}
	g.ramp = g.ramp[:cap(g.ramp)]
}

// SetGainDB sets the target gain in [-MaxGainDB, MaxGainDB].
func (g *Gain) SetGainDB(db float64) error {
	if err := checkRange("gain", db, -MaxGainDB, MaxGainDB); err != nil {
		return err
	}
	g.gainDB = db
	g.target = core.DBToLinear(db)
	if core.NearlyEqual(g.target, g.current, 1e-12) {
		g.Reset()
		return nil
	}

	steps := int(math.Round(gainRampSeconds * g.sampleRate))
	if steps < 1 {
		steps = 1
	}
	g.rampLeft = steps
	g.step = (g.target - g.current) / float64(steps)

	return nil
}

// Reset jumps straight to the target gain.
func (g *Gain) Reset() {
	g.current = g.target
	g.rampLeft = 0
	g.step = 0
}

// ProcessInPlace applies the gain to buf in place.
func (g *Gain) ProcessInPlace(buf []float64) {
	if g.rampLeft == 0 {
		if g.current != 1 {
			vecmath.ScaleBlockInPlace(buf, g.current)
		}
		return
	}

	if len(buf) > len(g.ramp) {
		for i := range buf {
			buf[i] *= g.next()
		}
		return
	}

	ramp := g.ramp[:len(buf)]
	for i := range ramp {
		ramp[i] = g.next()
	}
	vecmath.MulBlockInPlace(buf, ramp)
}

// GainDB returns the target gain in dB.
func (g *Gain) GainDB() float64 { return g.gainDB }

// Current returns the linear gain applied to the most recent sample.
func (g *Gain) Current() float64 { return g.current }

func (g *Gain) next() float64 {
	if g.rampLeft > 0 {
		g.rampLeft--
		g.current += g.step
		if g.rampLeft == 0 {
			g.current = g.target
		}
	}
	return g.current
}
