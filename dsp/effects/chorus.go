package effects

import (
	"math"

	"github.com/cwbudde/algo-rack/dsp/core"
)

const (
	defaultChorusRateHz  = 1.0
	defaultChorusDepth   = 0.5
	defaultChorusDelayMs = 15.0
	defaultChorusMix     = 0.5

	MinChorusRateHz  = 0.1
	MaxChorusRateHz  = 10.0
	MinChorusDelayMs = 5.0
	MaxChorusDelayMs = 30.0

	// chorusDepthMs is the LFO swing at depth 1.
	chorusDepthMs = 10.0
	// chorusMaxDelayMs sizes the delay line: the longest center delay plus
	// the full swing, rounded up.
	chorusMaxDelayMs = 50.0
)

// Chorus is an LFO-modulated short delay. Stereo use runs one instance per
// channel with different LFO phase offsets.
type Chorus struct {
	sampleRate float64
	rateHz     float64
	depth      float64
	delayMs    float64
	mix        float64

	phase       float64
	phaseOffset float64

	line  []float64
	write int
}

// NewChorus creates a chorus with a 15 ms center delay swept at 1 Hz.
func NewChorus(sampleRate float64) (*Chorus, error) {
	c := &Chorus{
		rateHz:  defaultChorusRateHz,
		depth:   defaultChorusDepth,
		delayMs: defaultChorusDelayMs,
		mix:     defaultChorusMix,
	}
	if err := c.SetSampleRate(sampleRate); err != nil {
		return nil, err
	}
	return c, nil
}

// SetSampleRate resizes the delay line and restarts the LFO.
func (c *Chorus) SetSampleRate(sampleRate float64) error {
	if err := checkSampleRate("chorus", sampleRate); err != nil {
		return err
	}
	c.sampleRate = sampleRate
	size := int(math.Ceil(chorusMaxDelayMs*sampleRate/1000)) + 4
	if size != len(c.line) {
		c.line = make([]float64, size)
	}
	c.Reset()
	return nil
}

// SetRateHz sets LFO rate in [MinChorusRateHz, MaxChorusRateHz].
func (c *Chorus) SetRateHz(rate float64) error {
	if err := checkRange("chorus rate", rate, MinChorusRateHz, MaxChorusRateHz); err != nil {
		return err
	}
	c.rateHz = rate
	return nil
}

// SetDepth sets modulation depth in [0, 1].
func (c *Chorus) SetDepth(depth float64) error {
	if err := checkRange("chorus depth", depth, 0, 1); err != nil {
		return err
	}
	c.depth = depth
	return nil
}

// SetDelayMs sets the center delay in [MinChorusDelayMs, MaxChorusDelayMs].
func (c *Chorus) SetDelayMs(ms float64) error {
	if err := checkRange("chorus delay", ms, MinChorusDelayMs, MaxChorusDelayMs); err != nil {
		return err
	}
	c.delayMs = ms
	return nil
}

// SetMix sets wet amount in [0, 1].
func (c *Chorus) SetMix(mix float64) error {
	if err := checkRange("chorus mix", mix, 0, 1); err != nil {
		return err
	}
	c.mix = mix
	return nil
}

// SetPhaseOffset sets the LFO phase offset in degrees, in [0, 360].
func (c *Chorus) SetPhaseOffset(degrees float64) error {
	if err := checkRange("chorus phase", degrees, 0, 360); err != nil {
		return err
	}
	c.phaseOffset = degrees * math.Pi / 180
	return nil
}

// Reset clears the delay line and restarts the LFO.
func (c *Chorus) Reset() {
	core.Zero(c.line)
	c.write = 0
	c.phase = 0
}

// ProcessSample processes one sample.
func (c *Chorus) ProcessSample(input float64) float64 {
	c.line[c.write] = input
	c.write++
	if c.write >= len(c.line) {
		c.write = 0
	}

	lfo := math.Sin(c.phase + c.phaseOffset)
	c.phase += 2 * math.Pi * c.rateHz / c.sampleRate
	if c.phase >= 2*math.Pi {
		c.phase -= 2 * math.Pi
	}

	delay := (c.delayMs + c.depth*chorusDepthMs*lfo) * c.sampleRate / 1000
	wet := c.readFractional(delay)

	return core.Mix(input, wet, c.mix)
}

// ProcessInPlace applies chorus to buf in place.
func (c *Chorus) ProcessInPlace(buf []float64) {
	for i := range buf {
		buf[i] = c.ProcessSample(buf[i])
	}
}

// SampleRate returns sample rate in Hz.
func (c *Chorus) SampleRate() float64 { return c.sampleRate }

// RateHz returns LFO rate.
func (c *Chorus) RateHz() float64 { return c.rateHz }

// Depth returns modulation depth.
func (c *Chorus) Depth() float64 { return c.depth }

// DelayMs returns the center delay.
func (c *Chorus) DelayMs() float64 { return c.delayMs }

// Mix returns wet amount.
func (c *Chorus) Mix() float64 { return c.mix }

// PhaseOffset returns the LFO phase offset in degrees.
func (c *Chorus) PhaseOffset() float64 { return c.phaseOffset * 180 / math.Pi }

// readFractional reads delay samples behind the newest sample with
// 4-point Hermite interpolation.
func (c *Chorus) readFractional(delay float64) float64 {
	maxDelay := float64(len(c.line) - 3)
	delay = core.Clamp(delay, 1, maxDelay)

	p := int(delay)
	t := delay - float64(p)

	return hermite4(t, c.tap(p-1), c.tap(p), c.tap(p+1), c.tap(p+2))
}

func (c *Chorus) tap(delay int) float64 {
	idx := c.write - 1 - delay
	for idx < 0 {
		idx += len(c.line)
	}
	return c.line[idx]
}

func hermite4(t, xm1, x0, x1, x2 float64) float64 {
	c0 := x0
	c1 := 0.5 * (x1 - xm1)
	c2 := xm1 - 2.5*x0 + 2*x1 - 0.5*x2
	c3 := 0.5*(x2-xm1) + 1.5*(x0-x1)
	return ((c3*t+c2)*t+c1)*t + c0
}
