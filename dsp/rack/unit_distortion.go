package rack

import (
	"github.com/cwbudde/algo-rack/dsp/core"
	"github.com/cwbudde/algo-rack/dsp/effects"
)

// NameDistortion is the display name of the waveshaping unit.
const NameDistortion = "Distortion"

type distortionUnit struct {
	*paramSet
	shapers []*effects.Distortion
}

// NewDistortion returns the distortion unit. The "type" parameter selects
// soft clip (0), hard clip (1), fold (2), bit crush (3) or sample-rate
// reduction (4).
func NewDistortion() Unit {
	u := &distortionUnit{}
	u.paramSet = newParamSet(u.apply,
		param("drive", "Drive Amount", "", effects.MinDistortionDrive, effects.MaxDistortionDrive, 1),
		param("range", "Distortion Range", "", 0, 1, 0.8),
		param("mix", "Dry/Wet Mix", "", 0, 1, 1),
		param("outputGain", "Output Level", "", 0, effects.MaxDistortionOutput, 1),
		discreteParam("type", "Distortion Type", 0, float64(effects.DistortionSampleRate), float64(effects.DistortionSoftClip)),
	)
	return u
}

func (u *distortionUnit) Name() string { return NameDistortion }

func (u *distortionUnit) Prepare(spec core.ProcessSpec) error {
	shapers := make([]*effects.Distortion, spec.Channels)
	for ch := range shapers {
		d, err := effects.NewDistortion(spec.SampleRate)
		if err != nil {
			return err
		}
		shapers[ch] = d
	}
	u.shapers = shapers
	return u.applyAll()
}

func (u *distortionUnit) Process(buf *core.Buffer) {
	for ch, d := range u.shapers {
		if x := buf.Channel(ch); x != nil {
			d.ProcessInPlace(x)
		}
	}
}

func (u *distortionUnit) Reset() {
	for _, d := range u.shapers {
		d.Reset()
	}
}

func (u *distortionUnit) Release() { u.shapers = nil }

func (u *distortionUnit) apply(id string, v float64) error {
	for _, d := range u.shapers {
		var err error
		switch id {
		case "drive":
			err = d.SetDrive(v)
		case "range":
			err = d.SetRange(v)
		case "mix":
			err = d.SetMix(v)
		case "outputGain":
			err = d.SetOutputGain(v)
		case "type":
			err = d.SetMode(effects.DistortionMode(v))
		}
		if err != nil {
			return err
		}
	}
	return nil
}
