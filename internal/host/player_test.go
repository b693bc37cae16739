package host

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-rack/dsp/rack"
)

func TestPlayerRendersThroughRack(t *testing.T) {
	t.Parallel()

	r := rack.New()
	if _, err := r.AddEffectByName(rack.NameOutputGain); err != nil {
		t.Fatalf("AddEffectByName: %v", err)
	}
	if err := r.SetParam(0, "gain", -6); err != nil {
		t.Fatalf("SetParam: %v", err)
	}

	tone := &Tone{Freq: 1000, Amp: 0.5, Rate: 48000}
	p, err := newPlayer(r, tone, PlayerConfig{SampleRate: 48000, BlockSize: 128, Channels: 2})
	if err != nil {
		t.Fatalf("newPlayer: %v", err)
	}

	var out bytes.Buffer
	for i := 0; i < 8; i++ {
		if err := p.renderBlock(&out); err != nil {
			t.Fatalf("renderBlock: %v", err)
		}
	}
	if out.Len() != 8*128*2*2 {
		t.Fatalf("rendered %d bytes, want %d", out.Len(), 8*128*2*2)
	}

	var peak int16
	data := out.Bytes()
	for i := 0; i+1 < len(data); i += 2 {
		v := int16(binary.LittleEndian.Uint16(data[i:]))
		if v < 0 {
			v = -v
		}
		peak = max(peak, v)
	}

	// 0.5 at -6 dB settles near 0.25 of full scale.
	want := 0.5 * math.Pow(10, -6.0/20) * math.MaxInt16
	if math.Abs(float64(peak)-want) > 0.05*math.MaxInt16 {
		t.Fatalf("peak = %d, want about %.0f", peak, want)
	}
}

func TestNewPlayerRejectsInvalidRate(t *testing.T) {
	t.Parallel()

	_, err := newPlayer(rack.New(), &Tone{Freq: 1, Amp: 1, Rate: 1}, PlayerConfig{SampleRate: 0})
	if !errors.Is(err, rack.ErrInvalidSpec) {
		t.Fatalf("err = %v, want ErrInvalidSpec", err)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("device gone") }

func TestPlayerReportsWriteError(t *testing.T) {
	t.Parallel()

	p, err := newPlayer(rack.New(), NewNoise(0.1, 1), PlayerConfig{SampleRate: 44100, BlockSize: 64})
	if err != nil {
		t.Fatalf("newPlayer: %v", err)
	}
	if err := p.renderBlock(failingWriter{}); err == nil {
		t.Fatal("expected write error")
	}
}
