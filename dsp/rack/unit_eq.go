package rack

import (
	"github.com/cwbudde/algo-rack/dsp/core"
	"github.com/cwbudde/algo-rack/dsp/effects"
)

// NameEQ is the display name of the three-band equalizer unit.
const NameEQ = "EQ"

type eqUnit struct {
	*paramSet
	bands []*effects.Equalizer
}

// NewEQ returns the three-band equalizer unit.
func NewEQ() Unit {
	u := &eqUnit{}
	u.paramSet = newParamSet(u.apply,
		param("lowGain", "Low Gain", "dB", -effects.MaxEQGainDB, effects.MaxEQGainDB, 0),
		param("lowFreq", "Low Freq", "Hz", effects.MinEQLowFreq, effects.MaxEQLowFreq, 100),
		param("midGain", "Mid Gain", "dB", -effects.MaxEQGainDB, effects.MaxEQGainDB, 0),
		param("midFreq", "Mid Freq", "Hz", effects.MinEQMidFreq, effects.MaxEQMidFreq, 1000),
		param("midQ", "Mid Q", "", effects.MinEQMidQ, effects.MaxEQMidQ, 1),
		param("highGain", "High Gain", "dB", -effects.MaxEQGainDB, effects.MaxEQGainDB, 0),
		param("highFreq", "High Freq", "Hz", effects.MinEQHighFreq, effects.MaxEQHighFreq, 10000),
	)
	return u
}

func (u *eqUnit) Name() string { return NameEQ }

func (u *eqUnit) Prepare(spec core.ProcessSpec) error {
	bands := make([]*effects.Equalizer, spec.Channels)
	for ch := range bands {
		e, err := effects.NewEqualizer(spec.SampleRate)
		if err != nil {
			return err
		}
		bands[ch] = e
	}
	u.bands = bands
	return u.applyAll()
}

func (u *eqUnit) Process(buf *core.Buffer) {
	for ch, e := range u.bands {
		if x := buf.Channel(ch); x != nil {
			e.ProcessInPlace(x)
		}
	}
}

func (u *eqUnit) Reset() {
	for _, e := range u.bands {
		e.Reset()
	}
}

func (u *eqUnit) Release() { u.bands = nil }

// ResponseDB returns the magnitude response at hz, or 0 before Prepare.
func (u *eqUnit) ResponseDB(hz float64) float64 {
	if len(u.bands) == 0 {
		return 0
	}
	return u.bands[0].ResponseDB(hz)
}

func (u *eqUnit) apply(id string, v float64) error {
	for _, e := range u.bands {
		var err error
		switch id {
		case "lowGain":
			err = e.SetLowGain(v)
		case "lowFreq":
			err = e.SetLowFreq(v)
		case "midGain":
			err = e.SetMidGain(v)
		case "midFreq":
			err = e.SetMidFreq(v)
		case "midQ":
			err = e.SetMidQ(v)
		case "highGain":
			err = e.SetHighGain(v)
		case "highFreq":
			err = e.SetHighFreq(v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
