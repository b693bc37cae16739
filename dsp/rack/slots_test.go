package rack

import (
	"errors"
	"slices"
	"testing"
)

func TestEnableEffectFillsGap(t *testing.T) {
	t.Parallel()

	r := preparedRack()
	for _, name := range []string{"A", "B", "C"} {
		if _, err := r.EnableEffect(name); err != nil {
			t.Fatalf("EnableEffect(%s) error = %v", name, err)
		}
	}
	if err := r.DisableEffect("B"); err != nil {
		t.Fatalf("DisableEffect() error = %v", err)
	}
	if got := r.NextFreePosition(); got != 1 {
		t.Fatalf("NextFreePosition() = %d, want 1", got)
	}

	i, err := r.EnableEffect("D")
	if err != nil {
		t.Fatalf("EnableEffect(D) error = %v", err)
	}
	info := r.Effects()[i]
	if info.Name != "D" || info.Position != 1 {
		t.Fatalf("D landed at %+v, want position 1", info)
	}
	if got := r.Plan().Units(); !slices.Equal(got, []string{"A", "D", "C"}) {
		t.Fatalf("plan units = %v, want [A D C]", got)
	}
	if got := processDC(r); got != 13 {
		t.Fatalf("output = %g, want 13", got)
	}
}

func TestEnableEffectReusesInstance(t *testing.T) {
	t.Parallel()

	r := New()
	if err := r.Prepare(testSpec()); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	first, err := r.EnableEffect(NameChorus)
	if err != nil {
		t.Fatalf("EnableEffect() error = %v", err)
	}
	mustSetParam(t, r, first, "rate", 3)
	unit, _ := r.Unit(first)

	if err := r.DisableEffect(NameChorus); err != nil {
		t.Fatalf("DisableEffect() error = %v", err)
	}
	if r.EffectEnabled(NameChorus) {
		t.Fatal("EffectEnabled() = true after disable")
	}

	again, err := r.EnableEffect(NameChorus)
	if err != nil {
		t.Fatalf("EnableEffect() error = %v", err)
	}
	if again != first {
		t.Fatalf("index = %d, want %d", again, first)
	}
	if u, _ := r.Unit(again); u != unit {
		t.Fatal("enable created a new instance")
	}
	if v, _ := r.Param(again, "rate"); v != 3 {
		t.Fatalf("rate = %g, want 3 preserved", v)
	}
	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}
}

func TestToggleEffect(t *testing.T) {
	t.Parallel()

	r := preparedRack()

	for i, want := range []bool{true, false, true} {
		got, err := r.ToggleEffect("A")
		if err != nil {
			t.Fatalf("toggle %d error = %v", i, err)
		}
		if got != want || r.EffectEnabled("A") != want {
			t.Fatalf("toggle %d = %v, want %v", i, got, want)
		}
	}
	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}

	if _, err := r.ToggleEffect("Flanger"); !errors.Is(err, ErrUnknownEffect) {
		t.Fatalf("ToggleEffect(Flanger) error = %v, want ErrUnknownEffect", err)
	}
}

func TestSlotPolicyErrors(t *testing.T) {
	t.Parallel()

	r := preparedRack()
	if err := r.DisableEffect("A"); !errors.Is(err, ErrEffectNotFound) {
		t.Fatalf("DisableEffect() error = %v, want ErrEffectNotFound", err)
	}
	if _, err := r.EnableEffect("Flanger"); !errors.Is(err, ErrUnknownEffect) {
		t.Fatalf("EnableEffect() error = %v, want ErrUnknownEffect", err)
	}
	if r.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", r.Len())
	}
}

func TestNextFreePositionAfterRemove(t *testing.T) {
	t.Parallel()

	r := preparedRack()
	for _, name := range []string{"A", "B", "C"} {
		if _, err := r.EnableEffect(name); err != nil {
			t.Fatalf("EnableEffect(%s) error = %v", name, err)
		}
	}
	if err := r.RemoveEffect(1); err != nil {
		t.Fatalf("RemoveEffect() error = %v", err)
	}
	if got := r.NextFreePosition(); got != 2 {
		t.Fatalf("NextFreePosition() = %d, want 2 after renumbering", got)
	}
}
