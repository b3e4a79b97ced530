package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"github.com/mrdg/segenv/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "segenv.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, exists, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent")
	}
	if want, got := config.Default(), *cfg; want.Audio != got.Audio {
		t.Fatalf("unexpected audio config: got %+v want %+v", got.Audio, want.Audio)
	}
	if cfg.Synth.Preset != "bela" {
		t.Fatalf("unexpected default preset %q", cfg.Synth.Preset)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[audio]
backend = "oto"
sample_rate = 48000

[midi]
enabled = true
port = "Keystation"

[sampler.sounds]
60 = "kick.wav"
62 = "snare.wav"

[sequencer]
bpm = 96.5
`)
	cfg, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if cfg.Audio.Backend != "oto" || cfg.Audio.SampleRate != 48000 {
		t.Fatalf("unexpected audio config: %+v", cfg.Audio)
	}
	if cfg.Audio.BufferSize != config.Default().Audio.BufferSize {
		t.Fatalf("expected default buffer size to survive, got %d", cfg.Audio.BufferSize)
	}
	if !cfg.MIDI.Enabled || cfg.MIDI.Port != "Keystation" {
		t.Fatalf("unexpected midi config: %+v", cfg.MIDI)
	}
	if cfg.Sampler.Sounds["62"] != "snare.wav" {
		t.Fatalf("unexpected sounds: %v", cfg.Sampler.Sounds)
	}
	if cfg.Sequencer.BPM != 96.5 {
		t.Fatalf("unexpected bpm %v", cfg.Sequencer.BPM)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"backend":     "[audio]\nbackend = \"alsa\"\n",
		"sample rate": "[audio]\nsample_rate = 0\n",
		"buffer size": "[audio]\nbuffer_size = 4\n",
		"bpm":         "[sequencer]\nbpm = 0\n",
		"sound key":   "[sampler.sounds]\nkick = \"kick.wav\"\n",
		"unknown key": "[audio]\nlatency = 3\n",
		"syntax":      "[audio\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			if _, _, err := config.Load(writeConfig(t, content)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestSampleRoundTrips(t *testing.T) {
	sample, err := config.Sample()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sample, "sample_rate = 44100") {
		t.Fatalf("sample config missing sample rate:\n%s", sample)
	}
	var cfg config.Config
	if err := toml.Unmarshal([]byte(sample), &cfg); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("sample config is invalid: %v", err)
	}
}
