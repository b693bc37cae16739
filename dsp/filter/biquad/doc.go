// Package biquad provides the second-order IIR sections used by the rack's
// equalizer.
//
// A [Section] implements Direct Form II Transposed processing for a single
// biquad defined by [Coefficients]. A [Chain] runs a fixed number of sections
// in series and can swap coefficients without clearing filter state, so EQ
// parameter changes do not click.
//
// Block processing dispatches to the fastest kernel registered for the
// running CPU, detected once through algo-vecmath/cpu.
package biquad
