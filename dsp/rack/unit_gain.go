package rack

import (
	"github.com/cwbudde/algo-rack/dsp/core"
	"github.com/cwbudde/algo-rack/dsp/effects"
)

const (
	// NameInputGain is the display name of the input trim unit.
	NameInputGain = "Input Gain"
	// NameOutputGain is the display name of the output trim unit.
	NameOutputGain = "Output Gain"
)

type gainUnit struct {
	*paramSet
	name   string
	stages []*effects.Gain
}

// NewInputGain returns the input trim unit.
func NewInputGain() Unit { return newGainUnit(NameInputGain) }

// NewOutputGain returns the output trim unit.
func NewOutputGain() Unit { return newGainUnit(NameOutputGain) }

func newGainUnit(name string) *gainUnit {
	u := &gainUnit{name: name}
	u.paramSet = newParamSet(u.apply,
		param("gain", name, "dB", -effects.MaxGainDB, effects.MaxGainDB, 0),
	)
	return u
}

func (u *gainUnit) Name() string { return u.name }

func (u *gainUnit) Prepare(spec core.ProcessSpec) error {
	stages := make([]*effects.Gain, spec.Channels)
	for ch := range stages {
		g, err := effects.NewGain(spec.SampleRate)
		if err != nil {
			return err
		}
		g.SetMaxBlockSize(spec.BlockSize)
		stages[ch] = g
	}
	u.stages = stages
	if err := u.applyAll(); err != nil {
		return err
	}
	u.Reset()
	return nil
}

func (u *gainUnit) Process(buf *core.Buffer) {
	for ch, g := range u.stages {
		if x := buf.Channel(ch); x != nil {
			g.ProcessInPlace(x)
		}
	}
}

// Reset jumps every channel to the target gain.
func (u *gainUnit) Reset() {
	for _, g := range u.stages {
		g.Reset()
	}
}

func (u *gainUnit) Release() { u.stages = nil }

func (u *gainUnit) apply(id string, v float64) error {
	if id != "gain" {
		return nil
	}
	for _, g := range u.stages {
		if err := g.SetGainDB(v); err != nil {
			return err
		}
	}
	return nil
}
