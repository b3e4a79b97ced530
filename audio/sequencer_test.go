package audio

import (
	"reflect"
	"testing"
	"time"
)

type testInstrument struct {
	events []event
}

func (i *testInstrument) PlayNote(offset, pitch, velocity, duration int) {
	i.events = append(i.events, event{
		offset:   offset,
		pitch:    pitch,
		velocity: velocity,
		duration: duration,
	})
}

func (i *testInstrument) flush() {
	i.events = nil
}

func TestSequencer(t *testing.T) {
	const sampleRate = 44100
	const bpm = 120.0
	const bufferSize = sampleRate // use a large buffer size to make testing easier
	instrument := &testInstrument{}

	seq := NewSequencer(NewProps(), sampleRate)
	if err := seq.Set(PropBPM, bpm); err != nil {
		t.Fatal(err)
	}

	clip := NewClip(4, instrument)
	clip.AddNote(0, 69, 100, 1)   // first beat
	clip.AddNote(1.25, 73, 80, 1) // 2nd 16th note on second beat

	if err := seq.Set(PropClips, map[string]*Clip{
		"beat": clip,
	}); err != nil {
		t.Fatal(err)
	}

	seq.Tick(bufferSize)

	if want, got := []event{
		{offset: 0, pitch: 69, velocity: 100, duration: 22050},
		{offset: 27563, pitch: 73, velocity: 80, duration: 22050},
	}, instrument.events; !reflect.DeepEqual(want, got) {
		t.Errorf("wrong events:\nwant: %+v\ngot:  %+v", want, got)
	}

	instrument.flush()
	seq.Tick(bufferSize)

	if want, got := 0, len(instrument.events); want != got {
		t.Errorf("wanted zero events, got: %v", instrument.events)
	}

	instrument.flush()
	seq.Tick(bufferSize)

	if want, got := []event{
		{offset: 0, pitch: 69, velocity: 100, duration: 22050},
		{offset: 27563, pitch: 73, velocity: 80, duration: 22050},
	}, instrument.events; !reflect.DeepEqual(want, got) {
		t.Errorf("wrong events:\nwant: %+v\ngot:  %+v", want, got)
	}
}

func TestSequencerClipWrap(t *testing.T) {
	const sampleRate = 44100
	instrument := &testInstrument{}
	seq := NewSequencer(NewProps(), sampleRate)

	clip := NewClip(1, instrument)
	clip.AddNote(0, 60, 100, 0.25)
	clip.AddNote(0.5, 62, 100, 0.25)
	if err := seq.Set(PropClips, map[string]*Clip{"short": clip}); err != nil {
		t.Fatal(err)
	}

	// 0.75 seconds is a beat and a half at 120 bpm.
	seq.Tick(33075)
	if want, got := []event{
		{offset: 0, pitch: 60, velocity: 100, duration: 5512},
		{offset: 22050, pitch: 60, velocity: 100, duration: 5512},
		{offset: 11025, pitch: 62, velocity: 100, duration: 5512},
	}, instrument.events; !reflect.DeepEqual(want, got) {
		t.Errorf("wrong events:\nwant: %+v\ngot:  %+v", want, got)
	}

	instrument.flush()
	seq.Tick(33075)
	if want, got := []event{
		{offset: 11025, pitch: 60, velocity: 100, duration: 5512},
		{offset: 0, pitch: 62, velocity: 100, duration: 5512},
		{offset: 22050, pitch: 62, velocity: 100, duration: 5512},
	}, instrument.events; !reflect.DeepEqual(want, got) {
		t.Errorf("wrong events:\nwant: %+v\ngot:  %+v", want, got)
	}
}

func TestClipDropsInvalidPitch(t *testing.T) {
	clip := NewClip(1, &testInstrument{})
	clip.AddNote(0, -1, 100, 1)
	clip.AddNote(0, 128, 100, 1)
	clip.AddNote(0, 0, 100, 1)
	if want, got := 1, clip.NumNotes(); want != got {
		t.Errorf("want %v notes, got %v", want, got)
	}
}

func TestSequencerClipShorterThanBuffer(t *testing.T) {
	const sampleRate = 44100
	instrument := &testInstrument{}
	seq := NewSequencer(NewProps(), sampleRate)

	clip := NewClip(0.5, instrument)
	clip.AddNote(0, 60, 100, 0.25)
	if err := seq.Set(PropClips, map[string]*Clip{"short": clip}); err != nil {
		t.Fatal(err)
	}

	// Two beats at 120 bpm, four times the clip.
	seq.Tick(sampleRate)
	if want, got := []event{
		{offset: 0, pitch: 60, velocity: 100, duration: 5512},
		{offset: 11025, pitch: 60, velocity: 100, duration: 5512},
		{offset: 22050, pitch: 60, velocity: 100, duration: 5512},
		{offset: 33075, pitch: 60, velocity: 100, duration: 5512},
	}, instrument.events; !reflect.DeepEqual(want, got) {
		t.Errorf("wrong events:\nwant: %+v\ngot:  %+v", want, got)
	}
}

func TestSequencerManyNotesDoNotBlock(t *testing.T) {
	synth := newTestSynth(t)
	seq := NewSequencer(NewProps(), testRate)
	clip := NewClip(4, synth)
	for n := 0; n < 2*scheduledEvents; n++ {
		clip.AddNote(0, n%128, 100, 1)
	}
	if err := seq.Set(PropClips, map[string]*Clip{"chord": clip}); err != nil {
		t.Fatal(err)
	}
	m := NewMixer()
	m.AddTicker(seq)
	m.AddSources(synth)

	done := make(chan struct{})
	go func() {
		m.Process(stereo(512))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("mixer did not return with more notes than the queue holds")
	}
}
