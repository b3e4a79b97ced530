package audio

import (
	"testing"
)

func TestPresetsLoad(t *testing.T) {
	for _, name := range Presets() {
		inst := newTestSynth(t)
		if err := LoadPreset(name, inst); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
}

func TestLoadPresetUnknown(t *testing.T) {
	if err := LoadPreset("nope", newTestSynth(t)); err == nil {
		t.Error("expected error for unknown preset")
	}
}

func TestBelaPreset(t *testing.T) {
	inst := newTestSynth(t)
	if err := LoadPreset("bela", inst); err != nil {
		t.Fatal(err)
	}
	for key, want := range map[string]any{
		"env.attack":    0.01,
		"env.sustain":   0.3,
		"fenv.attack":   0.05,
		"fenv.sustain":  0.6,
		"cutoff":        200.0,
		"filter.amount": 3000.0,
		"filter.q":      4.0,
	} {
		got, err := inst.Get(key)
		if err != nil {
			t.Fatal(err)
		}
		if want != got {
			t.Errorf("%s: want %v, got %v", key, want, got)
		}
	}
}
