package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/mrdg/segenv/audio"
	"github.com/mrdg/segenv/config"
)

type backend interface {
	Start() error
	Stop() error
}

func main() {
	var (
		configPath  = flag.String("config", "segenv.toml", "path to the config file")
		backendName = flag.String("backend", "", "audio backend: portaudio or oto (overrides the config file)")
		run         = flag.String("run", "", "file with commands to run at startup")
		midiPort    = flag.String("midi", "", "play the synth from the midi input whose name contains this")
		printConfig = flag.Bool("print-config", false, "print the default config and exit")
	)
	flag.Parse()
	log.SetFlags(log.Lshortfile)

	if *printConfig {
		sample, err := config.Sample()
		if err != nil {
			log.Fatal(err)
		}
		fmt.Print(sample)
		return
	}

	cfg, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if *backendName != "" {
		cfg.Audio.Backend = *backendName
	}
	if *midiPort != "" {
		cfg.MIDI.Enabled = true
		cfg.MIDI.Port = *midiPort
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	env, mixer, err := setup(cfg)
	if err != nil {
		log.Fatal(err)
	}
	out, err := openBackend(cfg.Audio, mixer)
	if err != nil {
		log.Fatal(err)
	}
	if err := out.Start(); err != nil {
		log.Fatal(err)
	}
	defer func() {
		if err := out.Stop(); err != nil {
			log.Printf("audio: stop: %v", err)
		}
	}()

	if *run != "" {
		f, err := os.Open(*run)
		if err != nil {
			log.Fatal(err)
		}
		err = env.runScript(f)
		f.Close()
		if err != nil {
			log.Fatal(err)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return repl(ctx, env)
	})
	if cfg.MIDI.Enabled {
		synth := env.devices["synth"].(audio.NoteReceiver)
		g.Go(func() error {
			// Playing without midi is still useful, so a missing port is not fatal.
			if err := audio.ListenMIDI(ctx, cfg.MIDI.Port, synth); err != nil {
				log.Print(err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Print(err)
	}
}

// setup builds the devices described by cfg and wires them into a mixer.
func setup(cfg *config.Config) (*env, *audio.Mixer, error) {
	rate := float64(cfg.Audio.SampleRate)
	synth, err := audio.Synth(audio.NewProps(), rate, cfg.Audio.BufferSize)
	if err != nil {
		return nil, nil, err
	}
	sampler, err := audio.Sampler(audio.NewProps(), rate, cfg.Audio.BufferSize)
	if err != nil {
		return nil, nil, err
	}
	seq := audio.NewSequencer(audio.NewProps(), rate)
	if err := seq.Set(audio.PropBPM, cfg.Sequencer.BPM); err != nil {
		return nil, nil, err
	}
	if err := audio.LoadPreset(cfg.Synth.Preset, synth); err != nil {
		return nil, nil, err
	}

	mixer := audio.NewMixer()
	mixer.AddTicker(seq)
	mixer.AddSources(synth, sampler)

	env := &env{
		out:       os.Stdout,
		sequencer: seq,
		devices: map[string]audio.Device{
			"synth":   synth,
			"sampler": sampler,
			"seq":     seq,
		},
		factories: map[string]instrumentFunc{
			"synth":   audio.Synth,
			"sampler": audio.Sampler,
		},
		sampleRate: cfg.Audio.SampleRate,
		bufferSize: cfg.Audio.BufferSize,
	}

	keys := make([]string, 0, len(cfg.Sampler.Sounds))
	for k := range cfg.Sampler.Sounds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		pitch, _ := strconv.Atoi(k) // checked by Validate
		if err := loadSound(env, "sampler", cfg.Sampler.Sounds[k], pitch); err != nil {
			return nil, nil, fmt.Errorf("sampler: %w", err)
		}
	}
	return env, mixer, nil
}

func openBackend(cfg config.Audio, m *audio.Mixer) (backend, error) {
	switch cfg.Backend {
	case "oto":
		return audio.NewOtoSink(m, cfg.SampleRate, cfg.BufferSize)
	default:
		return audio.NewSink(m, float64(cfg.SampleRate), cfg.BufferSize)
	}
}
