package audio

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/youpy/go-wav"
)

type countingTicker struct {
	ticks, samples int
}

func (c *countingTicker) Tick(numSamples int) {
	c.ticks++
	c.samples += numSamples
}

func TestMixerTicksBeforeSources(t *testing.T) {
	m := NewMixer()
	ticker := &countingTicker{}
	a := &fakeVoice{out: 0.25}
	inst := newTestInstrument(t, a)
	m.AddTicker(ticker)
	m.AddSources(inst, inst)
	inst.NoteOn(60, 100)

	samples := stereo(64)
	samples[0][0] = 9
	m.Process(samples)
	if want, got := 1, ticker.ticks; want != got {
		t.Errorf("want %v tick, got %v", want, got)
	}
	if want, got := float32(0.5), samples[0][0]; want != got {
		t.Errorf("want buffer cleared and sources summed to %v, got %v", want, got)
	}
}

func TestRenderWAV(t *testing.T) {
	m := NewMixer()
	inst := newTestSynth(t)
	m.AddSources(inst)
	inst.NoteOn(69, 127)

	const frames = 4800
	var buf bytes.Buffer
	if err := RenderWAV(&buf, m, testRate, 512, frames); err != nil {
		t.Fatal(err)
	}

	r := wav.NewReader(bytes.NewReader(buf.Bytes()))
	format, err := r.Format()
	if err != nil {
		t.Fatal(err)
	}
	if want, got := uint16(2), format.NumChannels; want != got {
		t.Errorf("channels: want %v, got %v", want, got)
	}
	if want, got := uint32(testRate), format.SampleRate; want != got {
		t.Errorf("sample rate: want %v, got %v", want, got)
	}

	var n, nonZero int
	for {
		samples, err := r.ReadSamples()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		for _, s := range samples {
			if s.Values[0] != s.Values[1] {
				t.Fatalf("frame %d: channels differ: %v", n, s.Values)
			}
			if s.Values[0] != 0 {
				nonZero++
			}
			n++
		}
	}
	if want, got := frames, n; want != got {
		t.Errorf("want %v frames, got %v", want, got)
	}
	if nonZero == 0 {
		t.Error("rendered silence")
	}
}

func TestRenderWAVInvalid(t *testing.T) {
	if err := RenderWAV(io.Discard, NewMixer(), 0, 512, 10); err == nil {
		t.Error("expected error for zero sample rate")
	}
}

func TestToPCM(t *testing.T) {
	tests := []struct {
		in   float32
		want int
	}{
		{0, 0},
		{1, 32767},
		{-1, -32767},
		{2, 32767},
		{-3, -32767},
		{0.5, 16384},
	}
	for _, tt := range tests {
		if got := toPCM(tt.in); tt.want != got {
			t.Errorf("toPCM(%v): want %v, got %v", tt.in, tt.want, got)
		}
	}
}
