package audio

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strconv"
	"sync/atomic"

	"github.com/mrdg/segenv/envelope"
	"github.com/youpy/go-wav"
)

const PropSoundMap = "sounds.map"
const numKeys = 25

// chokeRelease is how quickly a choked sound fades out.
const chokeRelease = 0.005

// Sampler returns an instrument that plays one-shot sounds mapped to the 25 keys
// from middle C upwards. Each key has its own level, envelope and choke setting:
// a key with choke.N set to another pitch fades out when that pitch is played.
func Sampler(props *Props, sampleRate float64, bufferSize int) (*Instrument, error) {
	sounds := props.MustRegister(PropSoundMap, setSoundMapping, &SoundMapping{})
	var perKeyProps [numKeys]keyProps
	for n := 0; n < numKeys; n++ {
		note := strconv.Itoa(rootPitch + n)
		var kp keyProps
		kp.envAttack = props.MustRegister("env.attack."+note, setEnvTime, 0.0005)
		kp.envDecay = props.MustRegister("env.decay."+note, setEnvTime, 5.0)
		kp.level = props.MustRegister("level."+note, setLevel, 0.)
		kp.choke = props.MustRegister("choke."+note, setInt, 0)
		perKeyProps[n] = kp
	}
	voices := make([]Voice, numVoices)
	for n := range voices {
		env, err := envelope.NewEnvelope(sampleRate)
		if err != nil {
			return nil, fmt.Errorf("sampler: %w", err)
		}
		env.SetSustainLevel(0)
		env.SetReleaseTime(chokeRelease)
		voices[n] = &samplerVoice{
			state:    stateFree,
			sounds:   sounds,
			keyProps: &perKeyProps,
			env:      env,
		}
	}
	return NewInstrument(props, voices, bufferSize), nil
}

type samplerVoice struct {
	sounds   *atomic.Value
	keyProps *[numKeys]keyProps
	state    voiceState
	env      *envelope.Envelope
	buf      []float64
	pos      int
	pitch    int
	gain     float64
}

func (v *samplerVoice) NoteOn(pitch, velocity, duration int) {
	if pitch < rootPitch || pitch >= rootPitch+numKeys {
		log.Printf("sampler: pitch %d out of range", pitch)
		return
	}
	mapping := v.sounds.Load().(*SoundMapping)
	snd := mapping[pitch-rootPitch]
	if snd == nil {
		log.Printf("sampler: no sound mapped to pitch %d", pitch)
		return
	}
	props := v.keyProps[pitch-rootPitch]
	v.buf = snd.buf
	v.pos = 0
	v.state = stateActive
	v.pitch = pitch
	v.gain = float64(velocity) / 127
	v.env.SetAttackTime(props.envAttack.Load().(float64))
	v.env.SetDecayTime(props.envDecay.Load().(float64))
	v.env.Trigger()
}

// NoteOff does nothing: sounds play to the end unless choked.
func (v *samplerVoice) NoteOff() {}

func (v *samplerVoice) Notify(pitch int) {
	if v.state != stateActive {
		return
	}
	props := v.keyProps[v.pitch-rootPitch]
	if props.choke.Load().(int) == pitch {
		v.state = stateReleased
		v.env.Release()
	}
}

func (v *samplerVoice) Process(buf []float64) {
	level := v.keyProps[v.pitch-rootPitch].level.Load().(float64)
	gain := v.gain * math.Pow(10, level/20.0)

	n := min(len(buf), len(v.buf)-v.pos)
	for i := range buf[:n] {
		buf[i] += v.buf[v.pos] * v.env.Process() * gain
		v.pos++
	}
	// A decay to zero parks the envelope in sustain at silence.
	done := !v.env.IsActive() || v.env.Stage() == envelope.StageSustain
	if v.pos >= len(v.buf) || done {
		v.buf = nil
		v.pos = 0
		v.state = stateFree
		v.pitch = 0
		v.env.Reset()
	}
}

func (v *samplerVoice) State() voiceState { return v.state }
func (v *samplerVoice) Pitch() int        { return v.pitch }
func (v *samplerVoice) Level() float64    { return v.env.Value() * v.gain }

// keyProps stores the properties for a single key.
type keyProps struct {
	envAttack *atomic.Value
	envDecay  *atomic.Value
	level     *atomic.Value
	choke     *atomic.Value
}

type Sound struct {
	buf  []float64
	file string
}

func (s *Sound) File() string { return s.file }
func (s *Sound) Len() int     { return len(s.buf) }

const rootPitch = 60

type SoundMapping [numKeys]*Sound

// Put maps snd to the key for pitch. Pitches outside the sampler's range are ignored.
func (m *SoundMapping) Put(pitch int, snd *Sound) error {
	if pitch < rootPitch || pitch >= rootPitch+numKeys {
		return fmt.Errorf("pitch %d out of range %d - %d", pitch, rootPitch, rootPitch+numKeys-1)
	}
	m[pitch-rootPitch] = snd
	return nil
}

// Get returns the sound mapped to pitch, or nil.
func (m *SoundMapping) Get(pitch int) *Sound {
	if pitch < rootPitch || pitch >= rootPitch+numKeys {
		return nil
	}
	return m[pitch-rootPitch]
}

func setSoundMapping(v any, dest *atomic.Value) error {
	m, ok := v.(*SoundMapping)
	if !ok {
		return fmt.Errorf("property value is not a sound mapping: %v", v)
	}
	dest.Store(m)
	return nil
}

// LoadSound reads the first channel of a WAV file.
func LoadSound(file string) (*Sound, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	snd := Sound{file: file}
	r := wav.NewReader(f)
	for {
		samples, err := r.ReadSamples()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
		for _, sample := range samples {
			snd.buf = append(snd.buf, r.FloatValue(sample, 0))
		}
	}
	return &snd, nil
}
