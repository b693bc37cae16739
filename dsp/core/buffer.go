package core

// Buffer is a planar multi-channel block of samples. All channels share the
// same length. Units process a Buffer in place.
type Buffer struct {
	Channels [][]float64
}

// NewBuffer allocates a zeroed buffer with the given channel count and frame
// length.
func NewBuffer(channels, frames int) *Buffer {
	if channels < 0 {
		channels = 0
	}
	if frames < 0 {
		frames = 0
	}

	b := &Buffer{Channels: make([][]float64, channels)}
	for ch := range b.Channels {
		b.Channels[ch] = make([]float64, frames)
	}

	return b
}

// NumChannels returns the channel count.
func (b *Buffer) NumChannels() int {
	if b == nil {
		return 0
	}
	return len(b.Channels)
}

// Frames returns the length of the shortest channel.
func (b *Buffer) Frames() int {
	if b == nil || len(b.Channels) == 0 {
		return 0
	}

	n := len(b.Channels[0])
	for _, ch := range b.Channels[1:] {
		if len(ch) < n {
			n = len(ch)
		}
	}

	return n
}

// Channel returns channel ch, or nil when it does not exist.
func (b *Buffer) Channel(ch int) []float64 {
	if b == nil || ch < 0 || ch >= len(b.Channels) {
		return nil
	}
	return b.Channels[ch]
}

// Clear zeroes every channel.
func (b *Buffer) Clear() {
	if b == nil {
		return
	}
	for _, ch := range b.Channels {
		Zero(ch)
	}
}

// CopyFrom copies the overlapping channels and frames of src into b and
// returns the number of frames copied.
func (b *Buffer) CopyFrom(src *Buffer) int {
	if b == nil || src == nil {
		return 0
	}

	n := 0
	for ch := 0; ch < len(b.Channels) && ch < len(src.Channels); ch++ {
		n = CopyInto(b.Channels[ch], src.Channels[ch])
	}

	return n
}

// Resize reslices every channel to frames, reusing capacity where possible.
// Channels grown beyond their previous capacity are reallocated.
func (b *Buffer) Resize(frames int) {
	if b == nil {
		return
	}
	for ch := range b.Channels {
		b.Channels[ch] = EnsureLen(b.Channels[ch], frames)
	}
}

// EnsureLen returns a slice with the requested length, reusing buf capacity if possible.
func EnsureLen(buf []float64, n int) []float64 {
	if n <= 0 {
		return buf[:0]
	}
	if cap(buf) >= n {
		return buf[:n]
	}
	return make([]float64, n)
}

// Zero sets all values in buf to 0.
func Zero(buf []float64) {
	for i := range buf {
		buf[i] = 0
	}
}

// CopyInto copies src into dst and returns the number of copied elements.
func CopyInto(dst, src []float64) int {
	return copy(dst, src)
}
