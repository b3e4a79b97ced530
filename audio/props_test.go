package audio

import (
	"math"
	"reflect"
	"testing"
)

func TestPropsSetGet(t *testing.T) {
	props := NewProps()
	props.MustRegister("env.attack", setEnvTime, 0.01)
	props.MustRegister("choke", setInt, 0)

	if err := props.Set("env.attack", 2); err != nil {
		t.Fatal(err)
	}
	v, err := props.Get("env.attack")
	if err != nil {
		t.Fatal(err)
	}
	if want, got := 2.0, v.(float64); want != got {
		t.Errorf("want %v, got %v", want, got)
	}

	if err := props.Set("choke", 62.0); err != nil {
		t.Fatal(err)
	}
	if v, _ := props.Get("choke"); v.(int) != 62 {
		t.Errorf("want 62, got %v", v)
	}
}

func TestPropsRejectInvalid(t *testing.T) {
	props := NewProps()
	props.MustRegister("env.sustain", setSustain, 0.5)
	props.MustRegister("env.overshoot", setOvershoot, 1.001)

	tests := []struct {
		key   string
		value any
	}{
		{"env.sustain", 1.5},
		{"env.sustain", -0.1},
		{"env.sustain", math.NaN()},
		{"env.sustain", "high"},
		{"env.overshoot", 1.0},
		{"env.overshoot", 0.5},
		{"unknown", 1.0},
	}
	for _, tt := range tests {
		if err := props.Set(tt.key, tt.value); err == nil {
			t.Errorf("%s=%v: expected error", tt.key, tt.value)
		}
	}
	if v, _ := props.Get("env.sustain"); v.(float64) != 0.5 {
		t.Errorf("rejected value was stored: %v", v)
	}
}

func TestPropsKeys(t *testing.T) {
	props := NewProps()
	props.MustRegister("b", setLevel, 0.)
	props.MustRegister("a", setLevel, 0.)
	props.MustRegister("c", setLevel, 0.)
	if want, got := []string{"a", "b", "c"}, props.Keys(); !reflect.DeepEqual(want, got) {
		t.Errorf("want %v, got %v", want, got)
	}
}

func TestPropsRegisterTwice(t *testing.T) {
	props := NewProps()
	props.MustRegister("level", setLevel, 0.)
	if _, err := props.Register("level", setLevel, 0.); err == nil {
		t.Error("expected error registering a key twice")
	}
	if _, err := props.Register("bad", setLevel, 100.); err == nil {
		t.Error("expected error for an out of range initial value")
	}
}
