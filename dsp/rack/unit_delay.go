package rack

import (
	"github.com/cwbudde/algo-rack/dsp/core"
	"github.com/cwbudde/algo-rack/dsp/effects"
)

// NameDelay is the display name of the feedback delay unit.
const NameDelay = "Delay"

type delayUnit struct {
	*paramSet
	lines []*effects.Delay
}

// NewDelay returns the feedback delay unit: one delay line per channel.
func NewDelay() Unit {
	u := &delayUnit{}
	u.paramSet = newParamSet(u.apply,
		param("delayTime", "Delay Time", "s", 0, effects.MaxDelayTimeSeconds, 0.5),
		param("feedback", "Feedback Amount", "", 0, effects.MaxDelayFeedback, 0.4),
		param("mix", "Dry/Wet Mix", "", 0, 1, 0.5),
	)
	return u
}

func (u *delayUnit) Name() string { return NameDelay }

func (u *delayUnit) Prepare(spec core.ProcessSpec) error {
	lines := make([]*effects.Delay, spec.Channels)
	for ch := range lines {
		d, err := effects.NewDelay(spec.SampleRate)
		if err != nil {
			return err
		}
		lines[ch] = d
	}
	u.lines = lines
	return u.applyAll()
}

func (u *delayUnit) Process(buf *core.Buffer) {
	for ch, d := range u.lines {
		if x := buf.Channel(ch); x != nil {
			d.ProcessInPlace(x)
		}
	}
}

func (u *delayUnit) Reset() {
	for _, d := range u.lines {
		d.Reset()
	}
}

func (u *delayUnit) Release() { u.lines = nil }

func (u *delayUnit) apply(id string, v float64) error {
	for _, d := range u.lines {
		var err error
		switch id {
		case "delayTime":
			err = d.SetTime(v)
		case "feedback":
			err = d.SetFeedback(v)
		case "mix":
			err = d.SetMix(v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
