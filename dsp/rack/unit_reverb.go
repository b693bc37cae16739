package rack

import (
	"github.com/cwbudde/algo-rack/dsp/core"
	"github.com/cwbudde/algo-rack/dsp/effects"
)

// NameReverb is the display name of the reverb unit.
const NameReverb = "Reverb"

type reverbUnit struct {
	*paramSet
	room *effects.Reverb
}

// NewReverb returns the stereo room reverb. It processes channels 0 and 1
// as a pair; a mono buffer runs through the left tank only.
func NewReverb() Unit {
	u := &reverbUnit{}
	u.paramSet = newParamSet(u.apply,
		param("roomSize", "Room Size", "", 0, 1, 0.5),
		param("damping", "Damping Amount", "", 0, 1, 0.5),
		param("wetLevel", "Wet Level", "", 0, 1, 0.33),
		param("dryLevel", "Dry Level", "", 0, 1, 0.4),
		param("width", "Stereo Width", "", 0, 1, 1),
		discreteParam("freezeMode", "Freeze Mode", 0, 1, 0),
	)
	return u
}

func (u *reverbUnit) Name() string { return NameReverb }

func (u *reverbUnit) Prepare(spec core.ProcessSpec) error {
	room, err := effects.NewReverb(spec.SampleRate)
	if err != nil {
		return err
	}
	u.room = room
	return u.applyAll()
}

func (u *reverbUnit) Process(buf *core.Buffer) {
	if u.room == nil {
		return
	}
	if left := buf.Channel(0); left != nil {
		u.room.ProcessStereo(left, buf.Channel(1))
	}
}

func (u *reverbUnit) Reset() {
	if u.room != nil {
		u.room.Reset()
	}
}

func (u *reverbUnit) Release() { u.room = nil }

func (u *reverbUnit) apply(id string, v float64) error {
	if u.room == nil {
		return nil
	}
	switch id {
	case "roomSize":
		return u.room.SetRoomSize(v)
	case "damping":
		return u.room.SetDamping(v)
	case "wetLevel":
		return u.room.SetWet(v)
	case "dryLevel":
		return u.room.SetDry(v)
	case "width":
		return u.room.SetWidth(v)
	case "freezeMode":
		u.room.SetFreeze(v >= 0.5)
	}
	return nil
}
