package rack

import (
	"github.com/cwbudde/algo-rack/dsp/core"
	"github.com/cwbudde/algo-rack/dsp/effects"
)

// NameChorus is the display name of the chorus unit.
const NameChorus = "Chorus"

type chorusUnit struct {
	*paramSet
	voices []*effects.Chorus
}

// NewChorus returns the chorus unit. Channel 0 runs the LFO at phase 0 and
// every other channel at the "phase" parameter.
func NewChorus() Unit {
	u := &chorusUnit{}
	u.paramSet = newParamSet(u.apply,
		param("rate", "Rate", "Hz", effects.MinChorusRateHz, effects.MaxChorusRateHz, 1),
		param("depth", "Depth", "", 0, 1, 0.5),
		param("delay", "Delay", "ms", effects.MinChorusDelayMs, effects.MaxChorusDelayMs, 15),
		param("mix", "Mix", "", 0, 1, 0.5),
		param("phase", "Phase", "deg", 0, 360, 90),
	)
	return u
}

func (u *chorusUnit) Name() string { return NameChorus }

func (u *chorusUnit) Prepare(spec core.ProcessSpec) error {
	voices := make([]*effects.Chorus, spec.Channels)
	for ch := range voices {
		c, err := effects.NewChorus(spec.SampleRate)
		if err != nil {
			return err
		}
		voices[ch] = c
	}
	u.voices = voices
	return u.applyAll()
}

func (u *chorusUnit) Process(buf *core.Buffer) {
	for ch, c := range u.voices {
		if x := buf.Channel(ch); x != nil {
			c.ProcessInPlace(x)
		}
	}
}

func (u *chorusUnit) Reset() {
	for _, c := range u.voices {
		c.Reset()
	}
}

func (u *chorusUnit) Release() { u.voices = nil }

func (u *chorusUnit) apply(id string, v float64) error {
	for ch, c := range u.voices {
		var err error
		switch id {
		case "rate":
			err = c.SetRateHz(v)
		case "depth":
			err = c.SetDepth(v)
		case "delay":
			err = c.SetDelayMs(v)
		case "mix":
			err = c.SetMix(v)
		case "phase":
			if ch > 0 {
				err = c.SetPhaseOffset(v)
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}
