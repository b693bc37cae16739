// Package design computes RBJ cookbook coefficients for the equalizer's
// peaking and shelving bands. Results feed dsp/filter/biquad.
package design
