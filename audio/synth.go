package audio

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/mrdg/segenv/envelope"
)

const (
	propCutoff       = "cutoff"
	propFilterAmount = "filter.amount"
	propFilterQ      = "filter.q"
	propOsc1Wave     = "osc1.wave"
	propOsc2Wave     = "osc2.wave"
)

const oscGain = 0.1

// envProps are the properties of one envelope, registered under a common prefix
// such as "env" or "fenv".
type envProps struct {
	attack, decay, sustain, release, overshoot *atomic.Value
}

func registerEnvProps(props *Props, prefix string, attack, decay, sustain, release float64) envProps {
	return envProps{
		attack:    props.MustRegister(prefix+".attack", setEnvTime, attack),
		decay:     props.MustRegister(prefix+".decay", setEnvTime, decay),
		sustain:   props.MustRegister(prefix+".sustain", setSustain, sustain),
		release:   props.MustRegister(prefix+".release", setEnvTime, release),
		overshoot: props.MustRegister(prefix+".overshoot", setOvershoot, envelope.DefaultOvershoot),
	}
}

// apply copies the current property values into env. A stage that is already
// running keeps its settings.
func (p envProps) apply(env *envelope.Envelope) {
	env.SetAttackTime(p.attack.Load().(float64))
	env.SetDecayTime(p.decay.Load().(float64))
	env.SetSustainLevel(p.sustain.Load().(float64))
	env.SetReleaseTime(p.release.Load().(float64))
	env.SetOvershoot(p.overshoot.Load().(float64))
}

type synthProps struct {
	amp, filter  envProps
	cutoff       *atomic.Value
	filterAmount *atomic.Value
	filterQ      *atomic.Value
	osc1Wave     *atomic.Value
	osc2Wave     *atomic.Value
}

// Synth returns a polyphonic two oscillator synth. Every voice has an amplitude
// envelope and a second envelope that sweeps the lowpass cutoff upwards by
// filter.amount Hz.
func Synth(props *Props, sampleRate float64, bufferSize int) (*Instrument, error) {
	sp := synthProps{
		amp:          registerEnvProps(props, "env", 0.01, 0.05, 0.3, 0.2),
		filter:       registerEnvProps(props, "fenv", 0.05, 0.1, 0.6, 0.3),
		cutoff:       props.MustRegister(propCutoff, setFloat64(20, 20_000), 1000.0),
		filterAmount: props.MustRegister(propFilterAmount, setFloat64(0, 20_000), 0.0),
		filterQ:      props.MustRegister(propFilterQ, setFloat64(0.1, 20), 1.0),
		osc1Wave:     props.MustRegister(propOsc1Wave, setWaveform, "saw"),
		osc2Wave:     props.MustRegister(propOsc2Wave, setWaveform, "square"),
	}
	voices := make([]Voice, numVoices)
	for n := range voices {
		v, err := newSynthVoice(&sp, sampleRate)
		if err != nil {
			return nil, fmt.Errorf("synth: %w", err)
		}
		voices[n] = v
	}
	return NewInstrument(props, voices, bufferSize), nil
}

type synthVoice struct {
	props      *synthProps
	sampleRate float64
	buf        []float64
	fbuf       []float64
	osc1       *osc
	osc2       *osc
	filter     *filter
	ampEnv     *envelope.Envelope
	filterEnv  *envelope.Envelope

	state         voiceState
	pitch         int
	duration      int
	samplesPlayed int
}

func newSynthVoice(props *synthProps, sampleRate float64) (*synthVoice, error) {
	ampEnv, err := envelope.NewEnvelope(sampleRate)
	if err != nil {
		return nil, err
	}
	filterEnv, err := envelope.NewEnvelope(sampleRate)
	if err != nil {
		return nil, err
	}
	return &synthVoice{
		props:      props,
		sampleRate: sampleRate,
		buf:        make([]float64, blockSize),
		fbuf:       make([]float64, blockSize),
		osc1:       &osc{},
		osc2:       &osc{},
		filter:     &filter{},
		ampEnv:     ampEnv,
		filterEnv:  filterEnv,
		state:      stateFree,
	}, nil
}

func (v *synthVoice) NoteOn(pitch, velocity, duration int) {
	if v.state == stateFree {
		v.filter.y1, v.filter.y2 = 0, 0
		v.osc1.phase, v.osc2.phase = 0, 0
	}
	v.pitch = pitch
	v.duration = duration
	v.samplesPlayed = 0
	v.state = stateActive

	v.props.amp.apply(v.ampEnv)
	v.props.filter.apply(v.filterEnv)
	v.ampEnv.SetPeakLevel(float64(velocity) / 127)
	v.ampEnv.Trigger()
	v.filterEnv.Trigger()

	freq := midiToFreq(pitch)
	phaseDelta := freq * twoPi / v.sampleRate
	v.osc1.setWaveform(v.props.osc1Wave.Load().(string))
	v.osc1.phaseDelta = phaseDelta
	v.osc2.setWaveform(v.props.osc2Wave.Load().(string))
	v.osc2.phaseDelta = phaseDelta
}

func (v *synthVoice) NoteOff() {
	if v.state != stateActive {
		return
	}
	v.state = stateReleased
	v.props.amp.apply(v.ampEnv)
	v.props.filter.apply(v.filterEnv)
	v.ampEnv.Release()
	v.filterEnv.Release()
}

func (v *synthVoice) reset() {
	v.pitch = 0
	v.filter.y1, v.filter.y2 = 0, 0
	v.osc1.phaseDelta = 0
	v.osc2.phaseDelta = 0
	v.state = stateFree
}

func (v *synthVoice) Process(buf []float64) {
	v.props.amp.apply(v.ampEnv)
	v.props.filter.apply(v.filterEnv)

	tmp := v.buf[:len(buf)]
	v.osc1.process(tmp)
	v.osc2.process(tmp)

	// The cutoff follows the filter envelope once per block.
	fenv := v.fbuf[:len(buf)]
	v.filterEnv.Fill(fenv)
	cutoff := v.props.cutoff.Load().(float64) + v.props.filterAmount.Load().(float64)*fenv[0]
	v.filter.calculateCoefficients(cutoff, v.props.filterQ.Load().(float64), v.sampleRate)
	v.filter.process(tmp)

	v.ampEnv.Apply(tmp)
	v.samplesPlayed += len(buf)
	for n := range tmp {
		buf[n] += oscGain * tmp[n]
		tmp[n] = 0
	}
	if v.duration > 0 && v.samplesPlayed >= v.duration {
		v.NoteOff()
	}
	if v.state == stateReleased && !v.ampEnv.IsActive() {
		v.reset()
	}
}

func (v *synthVoice) State() voiceState { return v.state }
func (v *synthVoice) Pitch() int        { return v.pitch }
func (v *synthVoice) Level() float64    { return v.ampEnv.Value() }

const twoPi = 2 * math.Pi

type osc struct {
	phase      float64
	phaseDelta float64
	fn         func(float64) float64
}

func (o *osc) process(buf []float64) {
	for n := range buf {
		buf[n] += o.fn(o.phase)
		o.phase += o.phaseDelta
		if o.phase >= twoPi {
			o.phase -= twoPi
		}
	}
}

func (o *osc) setWaveform(s string) {
	switch s {
	case "sine":
		o.fn = math.Sin
	case "saw":
		o.fn = func(phase float64) float64 {
			return (2.0 * phase / twoPi) - 1.
		}
	case "square":
		o.fn = func(phase float64) float64 {
			if phase <= math.Pi {
				return 1.0
			}
			return -1.0
		}
	default:
		o.fn = func(_ float64) float64 { return 0 }
	}
}

func setWaveform(v any, dest *atomic.Value) error {
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("value is not a string: %v", v)
	}
	switch s {
	case "sine", "saw", "square", "off":
		dest.Store(s)
		return nil
	default:
		return fmt.Errorf("not a valid waveform type: %v", s)
	}
}

type filter struct {
	c0, c1, c2, c3, c4 float64

	// state
	y1, y2 float64 // y[n-1] y[n-2]
}

// Lowpass filter based on https://www.w3.org/2011/audio/audio-eq-cookbook.html
func (f *filter) process(buf []float64) {
	for n := range buf {
		in := buf[n]
		out := f.c0*in + f.y1
		buf[n] = out
		f.y1 = f.c1*in - f.c3*out + f.y2
		f.y2 = f.c2*in - f.c4*out
	}
}

func (f *filter) calculateCoefficients(freq, q, sampleRate float64) {
	freq = math.Max(20, math.Min(freq, 0.45*sampleRate))
	omega := twoPi * freq / sampleRate
	cos := math.Cos(omega)
	sin := math.Sin(omega)
	alpha := sin / (2. * q)

	b0 := (1 - cos) / 2
	b1 := 1 - cos
	b2 := b0
	a0 := 1 + alpha
	a1 := -2 * cos
	a2 := 1 - alpha

	f.c0 = b0 / a0
	f.c1 = b1 / a0
	f.c2 = b2 / a0
	f.c3 = a1 / a0
	f.c4 = a2 / a0
}
