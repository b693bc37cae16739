// Package spectrum provides a live magnitude spectrum of an audio stream.
//
// The audio side feeds blocks through [Analyzer.Push], which only copies
// samples into a lock-free ring. The control side calls
// [Analyzer.Spectrum] at display rate to window, transform and convert the
// newest frame to dBFS.
package spectrum
