package core

import (
	"errors"
	"fmt"
)

// Supported host sample-rate range.
const (
	MinSampleRate = 8000.0
	MaxSampleRate = 192000.0
)

// ErrInvalidSpec is returned when a ProcessSpec is outside the supported range.
var ErrInvalidSpec = errors.New("core: invalid process spec")

// ProcessSpec describes the host stream a processor is prepared for.
type ProcessSpec struct {
	SampleRate float64
	BlockSize  int
	Channels   int
}

// ProcessOption mutates a ProcessSpec.
type ProcessOption func(*ProcessSpec)

// DefaultProcessSpec returns the defaults used when a host does not say
// otherwise: 48 kHz stereo in blocks of 512 frames.
func DefaultProcessSpec() ProcessSpec {
	return ProcessSpec{
		SampleRate: 48000,
		BlockSize:  512,
		Channels:   2,
	}
}

// WithSampleRate sets the processing sample rate.
func WithSampleRate(sampleRate float64) ProcessOption {
	return func(spec *ProcessSpec) {
		if sampleRate > 0 {
			spec.SampleRate = sampleRate
		}
	}
}

// WithBlockSize sets the maximum block size.
func WithBlockSize(blockSize int) ProcessOption {
	return func(spec *ProcessSpec) {
		if blockSize > 0 {
			spec.BlockSize = blockSize
		}
	}
}

// WithChannels sets the channel count.
func WithChannels(channels int) ProcessOption {
	return func(spec *ProcessSpec) {
		if channels > 0 {
			spec.Channels = channels
		}
	}
}

// NewProcessSpec applies zero or more options to the default spec.
func NewProcessSpec(opts ...ProcessOption) ProcessSpec {
	spec := DefaultProcessSpec()
	for _, opt := range opts {
		if opt != nil {
			opt(&spec)
		}
	}
	return spec
}

// Validate reports whether the spec can be used to prepare processors.
func (s ProcessSpec) Validate() error {
	if s.SampleRate < MinSampleRate || s.SampleRate > MaxSampleRate {
		return fmt.Errorf("%w: sample rate must be in [%g, %g]: %g",
			ErrInvalidSpec, MinSampleRate, MaxSampleRate, s.SampleRate)
	}
	if s.BlockSize <= 0 {
		return fmt.Errorf("%w: block size must be > 0: %d", ErrInvalidSpec, s.BlockSize)
	}
	if s.Channels <= 0 {
		return fmt.Errorf("%w: channel count must be > 0: %d", ErrInvalidSpec, s.Channels)
	}
	return nil
}
