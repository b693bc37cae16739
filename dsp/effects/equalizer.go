package effects

import (
	"github.com/cwbudde/algo-rack/dsp/filter/biquad"
	"github.com/cwbudde/algo-rack/dsp/filter/design"
)

const (
	MaxEQGainDB = 24.0

	MinEQLowFreq  = 20.0
	MaxEQLowFreq  = 1000.0
	MinEQMidFreq  = 200.0
	MaxEQMidFreq  = 5000.0
	MinEQMidQ     = 0.1
	MaxEQMidQ     = 10.0
	MinEQHighFreq = 1000.0
	MaxEQHighFreq = 20000.0

	defaultEQLowFreq  = 100.0
	defaultEQMidFreq  = 1000.0
	defaultEQMidQ     = 1.0
	defaultEQHighFreq = 10000.0
	eqShelfQ          = 1.0
)

// Equalizer is a three-band EQ: low shelf, mid peak and high shelf run as
// one biquad cascade. Parameter changes swap coefficients without clearing
// filter state.
type Equalizer struct {
	sampleRate float64

	lowGain, midGain, highGain float64
	lowFreq, midFreq, highFreq float64
	midQ                       float64

	coeffs [3]biquad.Coefficients
	chain  *biquad.Chain
}

// NewEqualizer creates a flat equalizer.
func NewEqualizer(sampleRate float64) (*Equalizer, error) {
	if err := checkSampleRate("equalizer", sampleRate); err != nil {
		return nil, err
	}
	e := &Equalizer{
		sampleRate: sampleRate,
		lowFreq:    defaultEQLowFreq,
		midFreq:    defaultEQMidFreq,
		midQ:       defaultEQMidQ,
		highFreq:   defaultEQHighFreq,
	}
	e.design()
	e.chain = biquad.NewChain(e.coeffs[:])
	return e, nil
}

// SetSampleRate redesigns all bands for sampleRate and clears filter state.
func (e *Equalizer) SetSampleRate(sampleRate float64) error {
	if err := checkSampleRate("equalizer", sampleRate); err != nil {
		return err
	}
	e.sampleRate = sampleRate
	e.update()
	e.chain.Reset()
	return nil
}

// SetLowGain sets the low shelf gain in dB.
func (e *Equalizer) SetLowGain(db float64) error {
	return e.set(&e.lowGain, "eq low gain", db, -MaxEQGainDB, MaxEQGainDB)
}

// SetMidGain sets the mid peak gain in dB.
func (e *Equalizer) SetMidGain(db float64) error {
	return e.set(&e.midGain, "eq mid gain", db, -MaxEQGainDB, MaxEQGainDB)
}

// SetHighGain sets the high shelf gain in dB.
func (e *Equalizer) SetHighGain(db float64) error {
	return e.set(&e.highGain, "eq high gain", db, -MaxEQGainDB, MaxEQGainDB)
}

// SetLowFreq sets the low shelf corner in Hz.
func (e *Equalizer) SetLowFreq(hz float64) error {
	return e.set(&e.lowFreq, "eq low frequency", hz, MinEQLowFreq, MaxEQLowFreq)
}

// SetMidFreq sets the mid peak center in Hz.
func (e *Equalizer) SetMidFreq(hz float64) error {
	return e.set(&e.midFreq, "eq mid frequency", hz, MinEQMidFreq, MaxEQMidFreq)
}

// SetMidQ sets the mid peak bandwidth.
func (e *Equalizer) SetMidQ(q float64) error {
	return e.set(&e.midQ, "eq mid Q", q, MinEQMidQ, MaxEQMidQ)
}

// SetHighFreq sets the high shelf corner in Hz.
func (e *Equalizer) SetHighFreq(hz float64) error {
	return e.set(&e.highFreq, "eq high frequency", hz, MinEQHighFreq, MaxEQHighFreq)
}

// Reset clears filter state.
func (e *Equalizer) Reset() { e.chain.Reset() }

// ProcessSample processes one sample.
func (e *Equalizer) ProcessSample(input float64) float64 {
	return e.chain.ProcessSample(input)
}

// ProcessInPlace applies the EQ to buf in place.
func (e *Equalizer) ProcessInPlace(buf []float64) {
	e.chain.ProcessBlock(buf)
}

// ResponseDB returns the combined gain of all bands at hz.
func (e *Equalizer) ResponseDB(hz float64) float64 {
	return e.chain.MagnitudeDB(hz, e.sampleRate)
}

// LowGain returns the low shelf gain in dB.
func (e *Equalizer) LowGain() float64 { return e.lowGain }

// MidGain returns the mid peak gain in dB.
func (e *Equalizer) MidGain() float64 { return e.midGain }

// HighGain returns the high shelf gain in dB.
func (e *Equalizer) HighGain() float64 { return e.highGain }

// LowFreq returns the low shelf corner.
func (e *Equalizer) LowFreq() float64 { return e.lowFreq }

// MidFreq returns the mid peak center.
func (e *Equalizer) MidFreq() float64 { return e.midFreq }

// MidQ returns the mid peak bandwidth.
func (e *Equalizer) MidQ() float64 { return e.midQ }

// HighFreq returns the high shelf corner.
func (e *Equalizer) HighFreq() float64 { return e.highFreq }

func (e *Equalizer) set(field *float64, what string, v, lo, hi float64) error {
	if err := checkRange(what, v, lo, hi); err != nil {
		return err
	}
	*field = v
	e.update()
	return nil
}

func (e *Equalizer) design() {
	e.coeffs[0] = design.LowShelf(e.lowFreq, e.lowGain, eqShelfQ, e.sampleRate)
	e.coeffs[1] = design.Peak(e.midFreq, e.midGain, e.midQ, e.sampleRate)
	e.coeffs[2] = design.HighShelf(e.highFreq, e.highGain, eqShelfQ, e.sampleRate)
}

func (e *Equalizer) update() {
	e.design()
	e.chain.UpdateCoefficients(e.coeffs[:])
}
