package audio

import (
	"fmt"
	"sort"
)

type Device interface {
	Set(key string, val any) error
	Get(key string) (any, error)
	Keys() []string
}

type preset map[string]any

var presets = map[string]preset{
	"lame-bass": {
		"level":       3.,
		"env.decay":   0.1,
		"env.sustain": 0.,
		"osc1.wave":   "saw",
		"osc2.wave":   "saw",
		"cutoff":      900.0,
	},
	// Two envelopes, one on the amplitude and one sweeping the filter.
	"bela": {
		"env.attack":    0.01,
		"env.decay":     0.05,
		"env.sustain":   0.3,
		"env.release":   0.2,
		"fenv.attack":   0.05,
		"fenv.decay":    0.1,
		"fenv.sustain":  0.6,
		"fenv.release":  0.3,
		"cutoff":        200.0,
		"filter.amount": 3000.0,
		"filter.q":      4.0,
		"osc1.wave":     "saw",
		"osc2.wave":     "off",
	},
	"pluck": {
		"env.attack":    0.002,
		"env.decay":     0.3,
		"env.sustain":   0.,
		"env.release":   0.1,
		"env.overshoot": 1.5,
		"fenv.attack":   0.,
		"fenv.decay":    0.15,
		"fenv.sustain":  0.,
		"cutoff":        400.0,
		"filter.amount": 5000.0,
		"osc1.wave":     "saw",
		"osc2.wave":     "square",
	},
	"pad": {
		"env.attack":    1.5,
		"env.decay":     1.,
		"env.sustain":   0.8,
		"env.release":   2.5,
		"env.overshoot": 1.0001,
		"fenv.attack":   2.,
		"fenv.sustain":  1.,
		"cutoff":        300.0,
		"filter.amount": 1200.0,
		"osc1.wave":     "saw",
		"osc2.wave":     "sine",
	},
}

// Presets returns the names of the built-in presets.
func Presets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func LoadPreset(name string, d Device) error {
	p, ok := presets[name]
	if !ok {
		return fmt.Errorf("unknown preset: %v", name)
	}
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := d.Set(k, p[k]); err != nil {
			return fmt.Errorf("preset %s: %w", name, err)
		}
	}
	return nil
}
