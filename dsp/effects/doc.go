// Package effects provides the DSP kernels behind the rack's effect units.
//
// Kernels in this package:
//   - Delay: feedback delay with dry/wet mix.
//   - Distortion: drive into soft clip, hard clip, fold, bit crush or
//     sample-rate reduction.
//   - Chorus: LFO-modulated short delay with a per-instance phase offset.
//   - Reverb: stereo Freeverb-style room with width and freeze.
//   - Equalizer: low shelf, mid peak and high shelf in one cascade.
//   - Gain: smoothed gain stage.
//
// Kernels are mono unless noted and allocate only when the sample rate or
// maximum block size changes. Setters validate their input and return an
// error without changing state when it is out of range.
package effects
