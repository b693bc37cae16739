package effects

import (
	"math"

	"github.com/cwbudde/algo-rack/dsp/core"
)

const (
	defaultDelayTimeSeconds = 0.5
	defaultDelayFeedback    = 0.4
	defaultDelayMix         = 0.5

	// MaxDelayTimeSeconds bounds the delay line. The buffer is sized for it
	// once per sample rate so SetTime never allocates.
	MaxDelayTimeSeconds = 2.0
	// MaxDelayFeedback keeps the feedback loop stable.
	MaxDelayFeedback = 0.95
)

// Delay is a feedback delay with dry/wet mix.
type Delay struct {
	sampleRate   float64
	delaySeconds float64
	feedback     float64
	mix          float64

	delaySamples int
	buffer       []float64
	write        int
}

// NewDelay creates a delay with the rack's defaults (500 ms, 0.4 feedback,
// half wet).
func NewDelay(sampleRate float64) (*Delay, error) {
	d := &Delay{
		delaySeconds: defaultDelayTimeSeconds,
		feedback:     defaultDelayFeedback,
		mix:          defaultDelayMix,
	}
	if err := d.SetSampleRate(sampleRate); err != nil {
		return nil, err
	}
	return d, nil
}

// SetSampleRate resizes the delay line for sampleRate and clears it.
func (d *Delay) SetSampleRate(sampleRate float64) error {
	if err := checkSampleRate("delay", sampleRate); err != nil {
		return err
	}

	d.sampleRate = sampleRate
	size := int(math.Ceil(MaxDelayTimeSeconds*sampleRate)) + 1
	if size != len(d.buffer) {
		d.buffer = make([]float64, size)
	}
	d.Reset()
	d.updateDelaySamples()

	return nil
}

// SetTime sets delay time in seconds, in [0, MaxDelayTimeSeconds]. Times
// shorter than one sample are rounded up to one sample.
func (d *Delay) SetTime(seconds float64) error {
	if err := checkRange("delay time", seconds, 0, MaxDelayTimeSeconds); err != nil {
		return err
	}
	d.delaySeconds = seconds
	d.updateDelaySamples()
	return nil
}

// SetFeedback sets feedback amount in [0, MaxDelayFeedback].
func (d *Delay) SetFeedback(feedback float64) error {
	if err := checkRange("delay feedback", feedback, 0, MaxDelayFeedback); err != nil {
		return err
	}
	d.feedback = feedback
	return nil
}

// SetMix sets wet amount in [0, 1].
func (d *Delay) SetMix(mix float64) error {
	if err := checkRange("delay mix", mix, 0, 1); err != nil {
		return err
	}
	d.mix = mix
	return nil
}

// Reset clears delay state.
func (d *Delay) Reset() {
	core.Zero(d.buffer)
	d.write = 0
}

// ProcessSample processes one sample.
func (d *Delay) ProcessSample(input float64) float64 {
	read := d.write - d.delaySamples
	if read < 0 {
		read += len(d.buffer)
	}
	delayed := d.buffer[read]

	d.buffer[d.write] = core.FlushDenormals(input + delayed*d.feedback)
	d.write++
	if d.write >= len(d.buffer) {
		d.write = 0
	}

	return core.Mix(input, delayed, d.mix)
}

// ProcessInPlace applies delay to buf in place.
func (d *Delay) ProcessInPlace(buf []float64) {
	for i := range buf {
		buf[i] = d.ProcessSample(buf[i])
	}
}

// SampleRate returns sample rate in Hz.
func (d *Delay) SampleRate() float64 { return d.sampleRate }

// Time returns delay time in seconds.
func (d *Delay) Time() float64 { return d.delaySeconds }

// Feedback returns the feedback amount.
func (d *Delay) Feedback() float64 { return d.feedback }

// Mix returns wet amount in [0, 1].
func (d *Delay) Mix() float64 { return d.mix }

// DelaySamples returns the current delay in whole samples.
func (d *Delay) DelaySamples() int { return d.delaySamples }

func (d *Delay) updateDelaySamples() {
	n := int(math.Round(d.delaySeconds * d.sampleRate))
	if n < 1 {
		n = 1
	}
	if n > len(d.buffer)-1 {
		n = len(d.buffer) - 1
	}
	d.delaySamples = n
}
