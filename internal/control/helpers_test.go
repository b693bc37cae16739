package control

import (
	"io"
	"log"
	"testing"

	"github.com/cwbudde/algo-rack/dsp/core"
	"github.com/cwbudde/algo-rack/dsp/rack"
)

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func preparedRack(t *testing.T, opts ...rack.Option) *rack.Rack {
	t.Helper()

	r := rack.New(opts...)
	if err := r.Prepare(core.ProcessSpec{SampleRate: 48000, BlockSize: 64, Channels: 2}); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	return r
}

func effectNames(views []EffectView) []string {
	names := make([]string, len(views))
	for i, v := range views {
		names[i] = v.Name
	}
	return names
}
