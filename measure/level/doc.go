// Package level provides lock-free block level meters for live audio.
//
// A [Meter] is written once per block from the audio goroutine and read
// from any other goroutine. Readings are normalized to [0, 1] on a dB scale
// so they can drive a meter display directly.
package level
