package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// Sink plays a mixer through the default portaudio output device.
type Sink struct {
	stream *portaudio.Stream
}

func NewSink(m *Mixer, sampleRate float64, bufferSize int) (*Sink, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio: %w", err)
	}
	stream, err := portaudio.OpenDefaultStream(0, 2, sampleRate, bufferSize, m.Process)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("portaudio: open stream: %w", err)
	}
	return &Sink{stream: stream}, nil
}

func (s *Sink) Start() error {
	return s.stream.Start()
}

func (s *Sink) Stop() error {
	err := s.stream.Close()
	portaudio.Terminate()
	return err
}
