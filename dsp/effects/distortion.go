package effects

import (
	"fmt"
	"math"
)

const (
	defaultDistortionDrive  = 1.0
	defaultDistortionRange  = 0.8
	defaultDistortionMix    = 1.0
	defaultDistortionOutput = 1.0

	MinDistortionDrive  = 1.0
	MaxDistortionDrive  = 25.0
	MaxDistortionOutput = 2.0

	// bitCrushHalfSteps quantizes [-1, 1] to 255 levels (8-bit).
	bitCrushHalfSteps = 255 / 2.0
)

// DistortionMode selects the transfer function used by Distortion.
type DistortionMode int

const (
	DistortionSoftClip DistortionMode = iota
	DistortionHardClip
	DistortionFold
	DistortionBitCrush
	DistortionSampleRate
	distortionModeCount
)

func (m DistortionMode) String() string {
	switch m {
	case DistortionSoftClip:
		return "soft clip"
	case DistortionHardClip:
		return "hard clip"
	case DistortionFold:
		return "fold"
	case DistortionBitCrush:
		return "bit crush"
	case DistortionSampleRate:
		return "sample rate"
	default:
		return fmt.Sprintf("DistortionMode(%d)", int(m))
	}
}

// Distortion drives the input into a waveshaper and blends it with the dry
// signal. In soft-clip mode, range < 1 blends the tanh curve with a hard clip.
// In sample-rate mode the drive sets how many samples each value is held.
type Distortion struct {
	sampleRate float64
	mode       DistortionMode
	drive      float64
	rng        float64
	mix        float64
	output     float64

	holdValue   float64
	holdCounter int
}

// NewDistortion creates a soft-clip distortion with unity drive.
func NewDistortion(sampleRate float64) (*Distortion, error) {
	if err := checkSampleRate("distortion", sampleRate); err != nil {
		return nil, err
	}
	return &Distortion{
		sampleRate: sampleRate,
		mode:       DistortionSoftClip,
		drive:      defaultDistortionDrive,
		rng:        defaultDistortionRange,
		mix:        defaultDistortionMix,
		output:     defaultDistortionOutput,
	}, nil
}

// SetSampleRate updates sample rate and clears the hold state.
func (d *Distortion) SetSampleRate(sampleRate float64) error {
	if err := checkSampleRate("distortion", sampleRate); err != nil {
		return err
	}
	d.sampleRate = sampleRate
	d.Reset()
	return nil
}

// SetMode selects the transfer function.
func (d *Distortion) SetMode(mode DistortionMode) error {
	if mode < 0 || mode >= distortionModeCount {
		return fmt.Errorf("distortion mode is invalid: %d", mode)
	}
	d.mode = mode
	return nil
}

// SetDrive sets input drive in [MinDistortionDrive, MaxDistortionDrive].
func (d *Distortion) SetDrive(drive float64) error {
	if err := checkRange("distortion drive", drive, MinDistortionDrive, MaxDistortionDrive); err != nil {
		return err
	}
	d.drive = drive
	return nil
}

// SetRange sets the soft/hard clip blend in [0, 1].
func (d *Distortion) SetRange(r float64) error {
	if err := checkRange("distortion range", r, 0, 1); err != nil {
		return err
	}
	d.rng = r
	return nil
}

// SetMix sets wet amount in [0, 1].
func (d *Distortion) SetMix(mix float64) error {
	if err := checkRange("distortion mix", mix, 0, 1); err != nil {
		return err
	}
	d.mix = mix
	return nil
}

// SetOutputGain sets the linear output gain in [0, MaxDistortionOutput].
func (d *Distortion) SetOutputGain(gain float64) error {
	if err := checkRange("distortion output gain", gain, 0, MaxDistortionOutput); err != nil {
		return err
	}
	d.output = gain
	return nil
}

// Reset clears the sample-and-hold state.
func (d *Distortion) Reset() {
	d.holdValue = 0
	d.holdCounter = 0
}

// ProcessSample processes one sample.
func (d *Distortion) ProcessSample(input float64) float64 {
	wet := d.shape(input)
	return (input*(1-d.mix) + wet*d.mix) * d.output
}

// ProcessInPlace applies distortion to buf in place.
func (d *Distortion) ProcessInPlace(buf []float64) {
	for i := range buf {
		buf[i] = d.ProcessSample(buf[i])
	}
}

// SampleRate returns sample rate in Hz.
func (d *Distortion) SampleRate() float64 { return d.sampleRate }

// Mode returns the active transfer function.
func (d *Distortion) Mode() DistortionMode { return d.mode }

// Drive returns input drive.
func (d *Distortion) Drive() float64 { return d.drive }

// Range returns the soft/hard clip blend.
func (d *Distortion) Range() float64 { return d.rng }

// Mix returns wet amount.
func (d *Distortion) Mix() float64 { return d.mix }

// OutputGain returns the linear output gain.
func (d *Distortion) OutputGain() float64 { return d.output }

func (d *Distortion) shape(input float64) float64 {
	x := input * d.drive

	switch d.mode {
	case DistortionHardClip:
		return hardClip(x)
	case DistortionFold:
		return fold(x)
	case DistortionBitCrush:
		return math.Round(hardClip(x)*bitCrushHalfSteps) / bitCrushHalfSteps
	case DistortionSampleRate:
		if d.holdCounter <= 0 {
			d.holdValue = hardClip(input)
			d.holdCounter = int(d.drive)
		}
		d.holdCounter--
		return d.holdValue
	default:
		y := math.Tanh(x)
		if d.rng < 1 {
			y = y*d.rng + hardClip(x)*(1-d.rng)
		}
		return y
	}
}

func hardClip(x float64) float64 {
	if x < -1 {
		return -1
	}
	if x > 1 {
		return 1
	}
	return x
}

// fold reflects x back into [-1, 1] at the rails.
func fold(x float64) float64 {
	// Triangle wave with period 4 passing through the origin.
	t := math.Mod(x+1, 4)
	if t < 0 {
		t += 4
	}
	if t > 2 {
		return 3 - t
	}
	return t - 1
}
