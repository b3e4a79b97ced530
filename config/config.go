// Package config loads the optional TOML configuration file. Every value has a
// default, so running without a file is the normal case.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

// Audio selects the output backend and stream format.
type Audio struct {
	Backend    string `toml:"backend"` // portaudio or oto
	SampleRate int    `toml:"sample_rate"`
	BufferSize int    `toml:"buffer_size"`
}

// MIDI configures note input.
type MIDI struct {
	Enabled bool   `toml:"enabled"`
	Port    string `toml:"port"` // substring of the input name, empty for the first input
}

// Synth contains the startup settings of the synth device.
type Synth struct {
	Preset string `toml:"preset"`
}

// Sampler maps midi pitches to WAV files loaded at startup.
type Sampler struct {
	Sounds map[string]string `toml:"sounds"`
}

// Sequencer contains the startup tempo.
type Sequencer struct {
	BPM float64 `toml:"bpm"`
}

type Config struct {
	Audio     Audio     `toml:"audio"`
	MIDI      MIDI      `toml:"midi"`
	Synth     Synth     `toml:"synth"`
	Sampler   Sampler   `toml:"sampler"`
	Sequencer Sequencer `toml:"sequencer"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Audio: Audio{
			Backend:    "portaudio",
			SampleRate: 44100,
			BufferSize: 512,
		},
		Synth:     Synth{Preset: "bela"},
		Sequencer: Sequencer{BPM: 120},
	}
}

// Load reads the file at path on top of the defaults. A missing file is not an
// error; the returned bool reports whether the file existed.
func Load(path string) (*Config, bool, error) {
	cfg := Default()
	if path == "" {
		return &cfg, false, nil
	}

	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &cfg, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return nil, true, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, true, err
	}
	return &cfg, true, nil
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	switch c.Audio.Backend {
	case "portaudio", "oto":
	default:
		return fmt.Errorf("audio.backend must be portaudio or oto, got %q", c.Audio.Backend)
	}
	if c.Audio.SampleRate < 8000 || c.Audio.SampleRate > 192000 {
		return fmt.Errorf("audio.sample_rate must be between 8000 and 192000, got %d", c.Audio.SampleRate)
	}
	if c.Audio.BufferSize < 16 || c.Audio.BufferSize > 8192 {
		return fmt.Errorf("audio.buffer_size must be between 16 and 8192, got %d", c.Audio.BufferSize)
	}
	if c.Sequencer.BPM < 1 || c.Sequencer.BPM > 500 {
		return errors.New("sequencer.bpm must be between 1 and 500")
	}
	for key := range c.Sampler.Sounds {
		if _, err := strconv.Atoi(key); err != nil {
			return fmt.Errorf("sampler.sounds: key %q is not a midi pitch", key)
		}
	}
	return nil
}

// Sample returns the default configuration as TOML.
func Sample() (string, error) {
	b, err := toml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return string(b), nil
}
