package core

import "testing"

func TestNewBuffer(t *testing.T) {
	b := NewBuffer(2, 64)
	if b.NumChannels() != 2 {
		t.Fatalf("channels = %d, want 2", b.NumChannels())
	}
	if b.Frames() != 64 {
		t.Fatalf("frames = %d, want 64", b.Frames())
	}
	if b.Channel(2) != nil {
		t.Fatal("expected nil for out-of-range channel")
	}
}

func TestBufferFramesUsesShortestChannel(t *testing.T) {
	b := &Buffer{Channels: [][]float64{make([]float64, 8), make([]float64, 5)}}
	if b.Frames() != 5 {
		t.Fatalf("frames = %d, want 5", b.Frames())
	}

	var nilBuf *Buffer
	if nilBuf.Frames() != 0 || nilBuf.NumChannels() != 0 {
		t.Fatal("nil buffer should report zero size")
	}
}

func TestBufferCopyFromAndClear(t *testing.T) {
	src := &Buffer{Channels: [][]float64{{1, 2, 3}, {4, 5, 6}}}
	dst := NewBuffer(2, 2)

	n := dst.CopyFrom(src)
	if n != 2 {
		t.Fatalf("copied = %d, want 2", n)
	}
	if dst.Channels[1][1] != 5 {
		t.Fatalf("dst[1][1] = %v, want 5", dst.Channels[1][1])
	}

	dst.Clear()
	for ch := range dst.Channels {
		for i, v := range dst.Channels[ch] {
			if v != 0 {
				t.Fatalf("dst[%d][%d] = %v, want 0", ch, i, v)
			}
		}
	}
}

func TestBufferResizeReusesCapacity(t *testing.T) {
	b := NewBuffer(1, 16)
	backing := &b.Channels[0][0]

	b.Resize(8)
	if b.Frames() != 8 {
		t.Fatalf("frames = %d, want 8", b.Frames())
	}
	if &b.Channels[0][0] != backing {
		t.Fatal("resize within capacity reallocated")
	}

	b.Resize(32)
	if b.Frames() != 32 {
		t.Fatalf("frames = %d, want 32", b.Frames())
	}
}

func TestEnsureLenReuse(t *testing.T) {
	buf := make([]float64, 4, 8)

	out := EnsureLen(buf, 6)
	if len(out) != 6 {
		t.Fatalf("len = %d, want 6", len(out))
	}

	if cap(out) != cap(buf) {
		t.Fatalf("cap = %d, want %d", cap(out), cap(buf))
	}
}
