package host

import (
	"encoding/binary"
	"math"

	"github.com/cwbudde/algo-rack/dsp/core"
)

// Deinterleave spreads interleaved frames from src into the planar buffer
// dst. dst is resized to hold every complete frame in src. Channels of dst
// beyond the interleaved channel count are zeroed.
func Deinterleave(dst *core.Buffer, src []float32, channels int) {
	if dst == nil || channels <= 0 {
		return
	}

	frames := len(src) / channels
	dst.Resize(frames)

	for ch, out := range dst.Channels {
		if ch >= channels {
			core.Zero(out)
			continue
		}
		for i := range out {
			out[i] = float64(src[i*channels+ch])
		}
	}
}

// Interleave writes the planar buffer src into dst as interleaved frames
// with the given channel count. Missing source channels repeat the last
// available one so a mono rack still feeds both speakers.
func Interleave(dst []float32, src *core.Buffer, channels int) {
	if channels <= 0 {
		return
	}
	if src.NumChannels() == 0 {
		clear(dst)
		return
	}

	frames := min(len(dst)/channels, src.Frames())
	last := src.NumChannels() - 1
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			dst[i*channels+ch] = float32(src.Channels[min(ch, last)][i])
		}
	}
	clear(dst[frames*channels:])
}

// PutInt16LE encodes src as interleaved signed 16-bit little-endian PCM
// into dst and returns the number of bytes written. Samples are clipped to
// [-1, 1].
func PutInt16LE(dst []byte, src *core.Buffer, channels int) int {
	if channels <= 0 || src.NumChannels() == 0 {
		return 0
	}

	frames := min(len(dst)/(2*channels), src.Frames())
	last := src.NumChannels() - 1
	n := 0
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			v := core.Clamp(src.Channels[min(ch, last)][i], -1, 1)
			binary.LittleEndian.PutUint16(dst[n:], uint16(int16(math.Round(v*math.MaxInt16))))
			n += 2
		}
	}
	return n
}
