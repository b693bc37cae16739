package effects

import "github.com/cwbudde/algo-rack/dsp/core"

const (
	reverbNumCombs     = 8
	reverbNumAllpasses = 4

	reverbInputGain    = 0.015
	reverbRoomScale    = 0.28
	reverbRoomOffset   = 0.7
	reverbDampScale    = 0.4
	reverbWetScale     = 3.0
	reverbDryScale     = 2.0
	reverbStereoSpread = 23
	reverbTuningRate   = 44100.0

	defaultReverbRoomSize = 0.5
	defaultReverbDamping  = 0.5
	defaultReverbWet      = 0.33
	defaultReverbDry      = 0.4
	defaultReverbWidth    = 1.0
)

// Freeverb tunings in samples at 44.1 kHz.
var (
	reverbCombTunings    = [reverbNumCombs]int{1116, 1188, 1277, 1356, 1422, 1491, 1557, 1617}
	reverbAllpassTunings = [reverbNumAllpasses]int{556, 441, 341, 225}
)

// Reverb is a stereo Schroeder/Freeverb-style room. The right channel uses
// slightly longer delay lines so the tails decorrelate.
type Reverb struct {
	sampleRate float64
	roomSize   float64
	damping    float64
	wet        float64
	dry        float64
	width      float64
	frozen     bool

	gain       float64
	wet1, wet2 float64
	dryGain    float64

	left, right reverbChannel
}

type reverbChannel struct {
	combs   [reverbNumCombs]reverbComb
	allpass [reverbNumAllpasses]reverbAllpass
}

type reverbAllpass struct {
	buffer []float64
	index  int
}

func (a *reverbAllpass) process(input float64) float64 {
	bufOut := a.buffer[a.index]
	a.buffer[a.index] = core.FlushDenormals(input + bufOut*0.5)
	a.index++
	if a.index >= len(a.buffer) {
		a.index = 0
	}
	return bufOut - input
}

type reverbComb struct {
	feedback    float64
	filterStore float64
	dampA       float64
	dampB       float64
	buffer      []float64
	index       int
}

func (c *reverbComb) process(input float64) float64 {
	output := c.buffer[c.index]
	c.filterStore = core.FlushDenormals(output*c.dampB + c.filterStore*c.dampA)
	c.buffer[c.index] = input + c.filterStore*c.feedback
	c.index++
	if c.index >= len(c.buffer) {
		c.index = 0
	}
	return output
}

func (ch *reverbChannel) resize(scale float64, spread int) {
	for i := range ch.combs {
		ch.combs[i].buffer = make([]float64, scaledTuning(reverbCombTunings[i]+spread, scale))
	}
	for i := range ch.allpass {
		ch.allpass[i].buffer = make([]float64, scaledTuning(reverbAllpassTunings[i]+spread, scale))
	}
}

func (ch *reverbChannel) reset() {
	for i := range ch.combs {
		core.Zero(ch.combs[i].buffer)
		ch.combs[i].index = 0
		ch.combs[i].filterStore = 0
	}
	for i := range ch.allpass {
		core.Zero(ch.allpass[i].buffer)
		ch.allpass[i].index = 0
	}
}

func (ch *reverbChannel) process(x float64) float64 {
	var acc float64
	for i := range ch.combs {
		acc += ch.combs[i].process(x)
	}
	for i := range ch.allpass {
		acc = ch.allpass[i].process(acc)
	}
	return acc
}

func scaledTuning(samples int, scale float64) int {
	n := int(float64(samples)*scale + 0.5)
	if n < 1 {
		n = 1
	}
	return n
}

// NewReverb constructs a reverb with the rack's defaults.
func NewReverb(sampleRate float64) (*Reverb, error) {
	r := &Reverb{
		roomSize: defaultReverbRoomSize,
		damping:  defaultReverbDamping,
		wet:      defaultReverbWet,
		dry:      defaultReverbDry,
		width:    defaultReverbWidth,
	}
	if err := r.SetSampleRate(sampleRate); err != nil {
		return nil, err
	}
	return r, nil
}

// SetSampleRate rescales the delay lines for sampleRate and clears them.
func (r *Reverb) SetSampleRate(sampleRate float64) error {
	if err := checkSampleRate("reverb", sampleRate); err != nil {
		return err
	}
	r.sampleRate = sampleRate
	scale := sampleRate / reverbTuningRate
	r.left.resize(scale, 0)
	r.right.resize(scale, reverbStereoSpread)
	r.Reset()
	r.update()
	return nil
}

// SetRoomSize sets the tail length in [0, 1].
func (r *Reverb) SetRoomSize(v float64) error {
	if err := checkRange("reverb room size", v, 0, 1); err != nil {
		return err
	}
	r.roomSize = v
	r.update()
	return nil
}

// SetDamping sets high-frequency damping in [0, 1].
func (r *Reverb) SetDamping(v float64) error {
	if err := checkRange("reverb damping", v, 0, 1); err != nil {
		return err
	}
	r.damping = v
	r.update()
	return nil
}

// SetWet sets the wet level in [0, 1].
func (r *Reverb) SetWet(v float64) error {
	if err := checkRange("reverb wet level", v, 0, 1); err != nil {
		return err
	}
	r.wet = v
	r.update()
	return nil
}

// SetDry sets the dry level in [0, 1].
func (r *Reverb) SetDry(v float64) error {
	if err := checkRange("reverb dry level", v, 0, 1); err != nil {
		return err
	}
	r.dry = v
	r.update()
	return nil
}

// SetWidth sets stereo width in [0, 1].
func (r *Reverb) SetWidth(v float64) error {
	if err := checkRange("reverb width", v, 0, 1); err != nil {
		return err
	}
	r.width = v
	r.update()
	return nil
}

// SetFreeze holds the current tail indefinitely and mutes new input.
func (r *Reverb) SetFreeze(frozen bool) {
	r.frozen = frozen
	r.update()
}

// Reset clears all delay and filter state.
func (r *Reverb) Reset() {
	r.left.reset()
	r.right.reset()
}

// ProcessStereo processes left and right in place. A nil right runs the
// left channel as mono through the left tank.
func (r *Reverb) ProcessStereo(left, right []float64) {
	if right == nil {
		for i, x := range left {
			out := r.left.process(x * r.gain)
			left[i] = out*(r.wet1+r.wet2) + x*r.dryGain
		}
		return
	}

	n := min(len(left), len(right))
	for i := 0; i < n; i++ {
		inL, inR := left[i], right[i]
		x := (inL + inR) * r.gain
		outL := r.left.process(x)
		outR := r.right.process(x)
		left[i] = outL*r.wet1 + outR*r.wet2 + inL*r.dryGain
		right[i] = outR*r.wet1 + outL*r.wet2 + inR*r.dryGain
	}
}

// SampleRate returns sample rate in Hz.
func (r *Reverb) SampleRate() float64 { return r.sampleRate }

// RoomSize returns the room size.
func (r *Reverb) RoomSize() float64 { return r.roomSize }

// Damping returns the damping amount.
func (r *Reverb) Damping() float64 { return r.damping }

// Wet returns the wet level.
func (r *Reverb) Wet() float64 { return r.wet }

// Dry returns the dry level.
func (r *Reverb) Dry() float64 { return r.dry }

// Width returns the stereo width.
func (r *Reverb) Width() float64 { return r.width }

// Frozen reports whether freeze mode is on.
func (r *Reverb) Frozen() bool { return r.frozen }

func (r *Reverb) update() {
	wet := r.wet * reverbWetScale
	r.wet1 = wet * (r.width/2 + 0.5)
	r.wet2 = wet * (1 - r.width) / 2
	r.dryGain = r.dry * reverbDryScale

	feedback := r.roomSize*reverbRoomScale + reverbRoomOffset
	damp := r.damping * reverbDampScale
	r.gain = reverbInputGain
	if r.frozen {
		feedback, damp, r.gain = 1, 0, 0
	}

	for _, ch := range []*reverbChannel{&r.left, &r.right} {
		for i := range ch.combs {
			ch.combs[i].feedback = feedback
			ch.combs[i].dampA = damp
			ch.combs[i].dampB = 1 - damp
		}
	}
}
