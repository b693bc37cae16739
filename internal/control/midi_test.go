package control

import (
	"testing"

	"github.com/cwbudde/algo-rack/dsp/rack"
)

func TestFootswitchEnablesAndDisables(t *testing.T) {
	t.Parallel()

	r := preparedRack(t)
	fs := NewFootswitch(r, quietLogger())
	if err := fs.Map(64, rack.NameDelay); err != nil {
		t.Fatalf("Map: %v", err)
	}

	if !fs.HandleMessage([]byte{0xB0, 64, 127}) {
		t.Fatal("mapped CC not handled")
	}
	if !r.EffectEnabled(rack.NameDelay) {
		t.Fatal("delay not enabled after CC 127")
	}

	fs.HandleMessage([]byte{0xB3, 64, 0})
	if r.EffectEnabled(rack.NameDelay) {
		t.Fatal("delay still enabled after CC 0")
	}
	if r.Len() != 1 {
		t.Fatalf("Len = %d, want instance kept", r.Len())
	}
}

func TestFootswitchIgnoresOtherMessages(t *testing.T) {
	t.Parallel()

	r := preparedRack(t)
	fs := NewFootswitch(r, quietLogger())
	_ = fs.Map(64, rack.NameDelay)
	if err := fs.SetChannel(2); err != nil {
		t.Fatalf("SetChannel: %v", err)
	}

	tests := []struct {
		name string
		msg  []byte
	}{
		{"note on", []byte{0x92, 64, 127}},
		{"unmapped cc", []byte{0xB2, 65, 127}},
		{"other channel", []byte{0xB0, 64, 127}},
		{"short", []byte{0xB2, 64}},
	}
	for _, tc := range tests {
		if fs.HandleMessage(tc.msg) {
			t.Fatalf("%s: handled", tc.name)
		}
	}
	if r.Len() != 0 {
		t.Fatalf("Len = %d, want 0", r.Len())
	}

	if !fs.HandleMessage([]byte{0xB2, 64, 100}) {
		t.Fatal("message on selected channel not handled")
	}
}

func TestFootswitchDisableUnknownIsQuiet(t *testing.T) {
	t.Parallel()

	r := preparedRack(t)
	fs := NewFootswitch(r, quietLogger())
	_ = fs.Map(10, rack.NameReverb)
	if !fs.HandleMessage([]byte{0xB0, 10, 0}) {
		t.Fatal("not handled")
	}
	if r.Len() != 0 {
		t.Fatalf("disable created an instance")
	}
}

func TestParseMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		spec    string
		wantErr bool
	}{
		{"", false},
		{"64=Delay, 65=Reverb", false},
		{"64", true},
		{"x=Delay", true},
		{"300=Delay", true},
		{"64=", true},
	}
	for _, tc := range tests {
		fs := NewFootswitch(preparedRack(t), quietLogger())
		err := fs.ParseMapping(tc.spec)
		if (err != nil) != tc.wantErr {
			t.Fatalf("ParseMapping(%q) err = %v, wantErr %v", tc.spec, err, tc.wantErr)
		}
	}

	fs := NewFootswitch(preparedRack(t), quietLogger())
	_ = fs.ParseMapping("64=Delay, 65=Reverb")
	if fs.mapping[65] != "Reverb" {
		t.Fatalf("mapping = %v", fs.mapping)
	}
}
