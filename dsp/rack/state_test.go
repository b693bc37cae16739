package rack

import (
	"bytes"
	"encoding/binary"
	"errors"
	"slices"
	"testing"
)

func TestStateBlobRoundTrip(t *testing.T) {
	t.Parallel()

	src := New()
	if err := src.Prepare(testSpec()); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	for _, name := range []string{NameDelay, NameReverb, NameEQ, NameDistortion} {
		if _, err := src.AddEffectByName(name); err != nil {
			t.Fatalf("AddEffectByName(%s) error = %v", name, err)
		}
	}
	mustSetParam(t, src, 0, "feedback", 0.7)
	mustSetParam(t, src, 1, "freezeMode", 1)
	mustSetParam(t, src, 2, "midQ", 2.5)
	mustSetParam(t, src, 3, "type", 3)
	if err := src.SetEffectActive(1, false); err != nil {
		t.Fatalf("SetEffectActive() error = %v", err)
	}

	blob, err := src.StateBlob()
	if err != nil {
		t.Fatalf("StateBlob() error = %v", err)
	}
	if !bytes.HasPrefix(blob, []byte("FXRACK")) {
		t.Fatalf("blob does not start with the rack tag: %q", blob[:8])
	}

	dst := New()
	if err := dst.Prepare(testSpec()); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if err := dst.SetStateBlob(blob); err != nil {
		t.Fatalf("SetStateBlob() error = %v", err)
	}

	requireSameEffects(t, src, dst)
	for i := 0; i < src.Len(); i++ {
		params, _ := src.Params(i)
		for _, p := range params {
			want, _ := src.Param(i, p.ID)
			got, err := dst.Param(i, p.ID)
			if err != nil || got != want {
				t.Fatalf("unit %d %s = %g (%v), want %g", i, p.ID, got, err, want)
			}
		}
	}
	if got := dst.Plan().Units(); !slices.Equal(got, []string{NameDelay, NameEQ, NameDistortion}) {
		t.Fatalf("plan units = %v", got)
	}

	again, err := dst.StateBlob()
	if err != nil {
		t.Fatalf("StateBlob() error = %v", err)
	}
	if !bytes.Equal(again, blob) {
		t.Fatal("re-encoded blob differs")
	}
}

func TestSetStateBlobOwnBlob(t *testing.T) {
	t.Parallel()

	r := preparedRack()
	for _, name := range []string{"A", "B", "C"} {
		if _, err := r.AddEffectByName(name); err != nil {
			t.Fatalf("AddEffectByName() error = %v", err)
		}
	}
	if err := r.SetEffectActive(1, false); err != nil {
		t.Fatalf("SetEffectActive() error = %v", err)
	}
	before := r.Effects()
	old, _ := r.Unit(0)

	blob, err := r.StateBlob()
	if err != nil {
		t.Fatalf("StateBlob() error = %v", err)
	}
	if err := r.SetStateBlob(blob); err != nil {
		t.Fatalf("SetStateBlob() error = %v", err)
	}

	after := r.Effects()
	for i := range before {
		if before[i].Name != after[i].Name || before[i].Active != after[i].Active || before[i].Position != after[i].Position {
			t.Fatalf("slot %d: %+v -> %+v", i, before[i], after[i])
		}
	}
	if old.(*addUnit).releaseCalls.Load() != 1 {
		t.Fatal("replaced unit was not released")
	}
	if got := processDC(r); got != 5 {
		t.Fatalf("output = %g, want 5", got)
	}
}

func TestSetStateBlobUnknownEffectKeepsTopology(t *testing.T) {
	t.Parallel()

	r := preparedRack()
	for _, name := range []string{"A", "B"} {
		if _, err := r.AddEffectByName(name); err != nil {
			t.Fatalf("AddEffectByName() error = %v", err)
		}
	}
	processDC(r)
	before := r.Effects()
	plan := r.Plan()

	blob, err := EncodeState(StateSnapshot{
		SampleRate: 48000,
		BlockSize:  64,
		Units: []UnitRecord{
			{Name: "C", Active: true, Position: 0, State: []byte("4")},
			{Name: "Flanger", Active: true, Position: 1},
		},
	})
	if err != nil {
		t.Fatalf("EncodeState() error = %v", err)
	}

	err = r.SetStateBlob(blob)
	if !errors.Is(err, ErrStateDeserialize) || !errors.Is(err, ErrUnknownEffect) {
		t.Fatalf("SetStateBlob() error = %v, want ErrStateDeserialize wrapping ErrUnknownEffect", err)
	}

	if after := r.Effects(); !slices.Equal(after, before) {
		t.Fatalf("effects changed:\n%+v\n%+v", before, after)
	}
	if r.Plan() != plan {
		t.Fatal("plan was replaced")
	}
	if got := processDC(r); got != 3 {
		t.Fatalf("output = %g, want 3", got)
	}

	// The failed load left no nodes behind: a rebuild keeps the same plan.
	if err := r.Rebuild(); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	if !r.Plan().Equal(plan) {
		t.Fatalf("plan after rebuild = %+v, want %+v", r.Plan(), plan)
	}
}

func TestSetStateBlobNegativePosition(t *testing.T) {
	t.Parallel()

	r := preparedRack()
	if _, err := r.AddEffectByName("A"); err != nil {
		t.Fatalf("AddEffectByName() error = %v", err)
	}
	blob, err := EncodeState(StateSnapshot{Units: []UnitRecord{
		{Name: "B", Active: true, Position: -3, State: []byte("2")},
	}})
	if err != nil {
		t.Fatalf("EncodeState() error = %v", err)
	}

	err = r.SetStateBlob(blob)
	if !errors.Is(err, ErrStateDeserialize) || !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("SetStateBlob() error = %v, want ErrStateDeserialize wrapping ErrIndexOutOfRange", err)
	}
	if got := processDC(r); got != 1 {
		t.Fatalf("output = %g, want 1", got)
	}
}

func TestSetStateBlobFailureKeepsLiveRouting(t *testing.T) {
	t.Parallel()

	router := newRejectRouter()
	r := preparedRack(WithRouter(router))
	want := router.Edges()
	if len(want) != 2 {
		t.Fatalf("passthrough edges = %+v, want 2", want)
	}

	// The candidate cannot reach the output, so it falls back to the same
	// input to output edges the live graph holds before it is discarded.
	router.rejectConnect = func(from, to NodeID, _ int) bool {
		return to == OutputNodeID && from != InputNodeID
	}
	blob, err := EncodeState(StateSnapshot{Units: []UnitRecord{
		{Name: "B", Active: true, State: []byte("2")},
	}})
	if err != nil {
		t.Fatalf("EncodeState() error = %v", err)
	}
	if err := r.SetStateBlob(blob); !errors.Is(err, ErrStateDeserialize) {
		t.Fatalf("SetStateBlob() error = %v, want ErrStateDeserialize", err)
	}

	if got := router.Edges(); !slices.Equal(got, want) {
		t.Fatalf("router edges = %+v, want %+v", got, want)
	}
	if r.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", r.Len())
	}
}

func TestSetStateBlobBadUnitStateKeepsTopology(t *testing.T) {
	t.Parallel()

	r := preparedRack()
	if _, err := r.AddEffectByName("A"); err != nil {
		t.Fatalf("AddEffectByName() error = %v", err)
	}
	before := r.Effects()

	blob, err := EncodeState(StateSnapshot{Units: []UnitRecord{
		{Name: "B", Active: true, State: []byte("not a number")},
	}})
	if err != nil {
		t.Fatalf("EncodeState() error = %v", err)
	}
	if err := r.SetStateBlob(blob); !errors.Is(err, ErrStateDeserialize) {
		t.Fatalf("SetStateBlob() error = %v, want ErrStateDeserialize", err)
	}
	if after := r.Effects(); !slices.Equal(after, before) {
		t.Fatalf("effects changed: %+v", after)
	}
}

func TestSetStateBlobDuplicateActive(t *testing.T) {
	t.Parallel()

	r := preparedRack()
	blob, err := EncodeState(StateSnapshot{Units: []UnitRecord{
		{Name: "A", Active: true, State: []byte("1")},
		{Name: "A", Active: true, Position: 1, State: []byte("1")},
	}})
	if err != nil {
		t.Fatalf("EncodeState() error = %v", err)
	}
	err = r.SetStateBlob(blob)
	if !errors.Is(err, ErrStateDeserialize) || !errors.Is(err, ErrDuplicateActive) {
		t.Fatalf("SetStateBlob() error = %v", err)
	}
	if r.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", r.Len())
	}
}

func TestSetStateBlobOnUnpreparedRack(t *testing.T) {
	t.Parallel()

	r := New(WithRegistry(testRegistry()))
	blob, err := EncodeState(StateSnapshot{Units: []UnitRecord{
		{Name: "B", Active: true, State: []byte("2")},
		{Name: "A", Active: false, Position: 1, State: []byte("1")},
	}})
	if err != nil {
		t.Fatalf("EncodeState() error = %v", err)
	}
	if err := r.SetStateBlob(blob); err != nil {
		t.Fatalf("SetStateBlob() error = %v", err)
	}
	if err := r.Prepare(testSpec()); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if got := processDC(r); got != 2 {
		t.Fatalf("output = %g, want 2", got)
	}
}

func TestDecodeStateErrors(t *testing.T) {
	t.Parallel()

	valid, err := EncodeState(StateSnapshot{
		SampleRate: 44100,
		BlockSize:  256,
		Units:      []UnitRecord{{Name: "A", Active: true, State: []byte("1")}},
	})
	if err != nil {
		t.Fatalf("EncodeState() error = %v", err)
	}

	withVersion := func(v string) []byte {
		var buf bytes.Buffer
		buf.WriteString("FXRACK")
		buf.Write(binary.LittleEndian.AppendUint16(nil, uint16(len(v))))
		buf.WriteString(v)
		buf.Write(make([]byte, 16))
		return buf.Bytes()
	}

	badFlag := slices.Clone(valid)
	// tag 6 + version 2+5 + header 16 + name 2+1 puts the flag at 32.
	badFlag[32] = 7

	negative, err := EncodeState(StateSnapshot{
		Units: []UnitRecord{{Name: "A", Active: true, Position: -1, State: []byte("1")}},
	})
	if err != nil {
		t.Fatalf("EncodeState() error = %v", err)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"wrong tag", append([]byte("FXRACX"), valid[6:]...)},
		{"major version", withVersion("2.0.0")},
		{"garbage version", withVersion("one")},
		{"truncated header", valid[:20]},
		{"truncated unit", valid[:len(valid)-1]},
		{"trailing bytes", append(slices.Clone(valid), 0)},
		{"bad active flag", badFlag},
		{"negative position", negative},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := DecodeState(tt.data); !errors.Is(err, ErrStateDeserialize) {
				t.Fatalf("DecodeState() error = %v, want ErrStateDeserialize", err)
			}
		})
	}

	snap, err := DecodeState(valid)
	if err != nil {
		t.Fatalf("DecodeState(valid) error = %v", err)
	}
	if snap.SampleRate != 44100 || snap.BlockSize != 256 || snap.Version != StateFormatVersion {
		t.Fatalf("header = %+v", snap)
	}
	if len(snap.Units) != 1 || snap.Units[0].Name != "A" || !snap.Units[0].Active || string(snap.Units[0].State) != "1" {
		t.Fatalf("units = %+v", snap.Units)
	}
}

func TestDecodeStateAcceptsMinorVersion(t *testing.T) {
	t.Parallel()

	blob, err := EncodeState(StateSnapshot{Version: "1.3.0"})
	if err != nil {
		t.Fatalf("EncodeState() error = %v", err)
	}
	snap, err := DecodeState(blob)
	if err != nil {
		t.Fatalf("DecodeState() error = %v", err)
	}
	if snap.Version != "1.3.0" || len(snap.Units) != 0 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func mustSetParam(t *testing.T, r *Rack, index int, id string, v float64) {
	t.Helper()
	if err := r.SetParam(index, id, v); err != nil {
		t.Fatalf("SetParam(%d, %s, %g) error = %v", index, id, v, err)
	}
}

func requireSameEffects(t *testing.T, want, got *Rack) {
	t.Helper()

	w, g := want.Effects(), got.Effects()
	if len(w) != len(g) {
		t.Fatalf("len(Effects) = %d, want %d", len(g), len(w))
	}
	for i := range w {
		if w[i].Name != g[i].Name || w[i].Active != g[i].Active || w[i].Position != g[i].Position {
			t.Fatalf("slot %d = %+v, want %+v", i, g[i], w[i])
		}
	}
}
