package audio

import (
	"errors"
	"log"
	"math"
	"sync"
	"sync/atomic"
)

const (
	blockSize = 16 // this gives about 0.35ms accuracy for sequenced events

	DefaultSampleRate = 44100
	DefaultBufferSize = 512
)

const (
	numVoices       = 12
	defaultVelocity = 100
	scheduledEvents = 256 // notes the sequencer can start in one buffer
)

// ErrQueueFull is returned by NoteOn and NoteOff when the audio thread has not
// consumed earlier events yet.
var ErrQueueFull = errors.New("instrument: event queue full")

type voiceState int

const (
	stateFree voiceState = iota
	stateActive
	stateReleased
)

func (s voiceState) String() string {
	switch s {
	case stateFree:
		return "free"
	case stateActive:
		return "active"
	case stateReleased:
		return "released"
	}
	return "unknown"
}

type Voice interface {
	NoteOn(pitch, velocity, duration int)
	NoteOff()
	Process(buf []float64)
	State() voiceState
	Pitch() int
	// Level is the current amplitude of the voice, used to pick a voice to steal.
	Level() float64
}

// choker is implemented by voices that stop when another pitch starts.
type choker interface {
	Notify(pitch int)
}

type Instrument struct {
	*Props
	voices  []Voice
	chokers []choker

	// scheduled is fed by the sequencer from the audio thread, live by any
	// other goroutine through NoteOn and NoteOff.
	scheduled *eventBuffer
	live      *eventBuffer
	liveMu    sync.Mutex

	buf   []float64
	level *atomic.Value
}

const propLevel = "level"

func NewInstrument(props *Props, voices []Voice, bufferSize int) *Instrument {
	instrument := &Instrument{
		Props:     props,
		scheduled: newEventBuffer(scheduledEvents),
		live:      newEventBuffer(64),
		buf:       make([]float64, bufferSize),
		level:     props.MustRegister(propLevel, setLevel, 0.1),
	}
	for _, v := range voices {
		instrument.voices = append(instrument.voices, v)
		if c, ok := v.(choker); ok {
			instrument.chokers = append(instrument.chokers, c)
		}
	}
	return instrument
}

// PlayNote schedules a note at offset samples into the next buffer. It is called
// from the audio thread, by the sequencer, which is also the only consumer of the
// queue: notes that don't fit are dropped.
func (i *Instrument) PlayNote(offset, pitch, velocity, duration int) {
	ok := i.scheduled.tryPush(event{
		kind:     noteOn,
		pitch:    pitch,
		offset:   offset,
		velocity: velocity,
		duration: duration,
	})
	if !ok {
		log.Printf("instrument: dropped note %d at offset %d: too many notes in one buffer", pitch, offset)
	}
}

// NoteOn starts a note that is held until NoteOff. It is safe to call from any goroutine.
func (i *Instrument) NoteOn(pitch, velocity int) error {
	return i.pushLive(event{kind: noteOn, pitch: pitch, velocity: velocity})
}

// NoteOff releases every voice playing pitch. It is safe to call from any goroutine.
func (i *Instrument) NoteOff(pitch int) error {
	return i.pushLive(event{kind: noteOff, pitch: pitch})
}

func (i *Instrument) pushLive(ev event) error {
	i.liveMu.Lock()
	defer i.liveMu.Unlock()
	if !i.live.tryPush(ev) {
		return ErrQueueFull
	}
	return nil
}

func (i *Instrument) Process(samples [][]float32) {
	numFrames := len(samples[0])
	if numFrames > len(i.buf) {
		i.buf = make([]float64, numFrames)
	}
	for n := 0; n < numFrames; n += blockSize {
		end := min(n+blockSize, numFrames)
		until := n + blockSize
		if end == numFrames {
			until = -1
		}
		i.live.iter(until, i.handle)
		i.scheduled.iter(until, i.handle)
		for _, voice := range i.voices {
			if voice.State() == stateFree {
				continue
			}
			voice.Process(i.buf[n:end])
		}
	}
	db := i.level.Load().(float64)
	gain := math.Pow(10, db/20.0)
	for n := range i.buf[:numFrames] {
		sample := float32(gain * i.buf[n])
		for c := range samples {
			samples[c][n] += sample
		}
		i.buf[n] = 0
	}
}

func (i *Instrument) handle(ev event) {
	switch ev.kind {
	case noteOn:
		for _, c := range i.chokers {
			c.Notify(ev.pitch)
		}
		velocity := ev.velocity
		if velocity <= 0 {
			velocity = defaultVelocity
		}
		i.findVoice(ev.pitch).NoteOn(ev.pitch, min(velocity, 127), ev.duration)
	case noteOff:
		for _, voice := range i.voices {
			if voice.State() == stateActive && voice.Pitch() == ev.pitch {
				voice.NoteOff()
			}
		}
	}
}

// findVoice prefers a voice already sounding pitch, so its envelope restarts
// from where it is. Otherwise it takes a free voice, then steals the quietest
// released voice, then the quietest active one.
func (i *Instrument) findVoice(pitch int) Voice {
	var free, released, active Voice
	for _, voice := range i.voices {
		switch voice.State() {
		case stateFree:
			if free == nil {
				free = voice
			}
			continue
		case stateReleased:
			if released == nil || voice.Level() < released.Level() {
				released = voice
			}
		case stateActive:
			if active == nil || voice.Level() < active.Level() {
				active = voice
			}
		}
		if voice.Pitch() == pitch {
			return voice
		}
	}
	switch {
	case free != nil:
		return free
	case released != nil:
		return released
	default:
		return active
	}
}

func midiToFreq(note int) float64 {
	return math.Pow(2, float64(note-69)/12.0) * 440
}
