package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

const bytesPerFrame = 2 * 4 // stereo float32

// OtoSink plays a mixer through oto. Oto pulls audio by calling Read from its own
// goroutine, which drives the mixer.
type OtoSink struct {
	ctx    *oto.Context
	player *oto.Player
	mixer  *Mixer

	mu      sync.Mutex
	samples [][]float32
	view    [][]float32
}

func NewOtoSink(m *Mixer, sampleRate, bufferSize int) (*OtoSink, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
		BufferSize:   time.Duration(bufferSize) * time.Second / time.Duration(sampleRate),
	})
	if err != nil {
		return nil, fmt.Errorf("oto: %w", err)
	}
	<-ready
	s := &OtoSink{
		ctx:     ctx,
		mixer:   m,
		samples: [][]float32{make([]float32, bufferSize), make([]float32, bufferSize)},
		view:    make([][]float32, 2),
	}
	s.player = ctx.NewPlayer(s)
	return s, nil
}

// Read renders len(p)/8 frames of interleaved little endian float32 samples.
func (s *OtoSink) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	frames := len(p) / bytesPerFrame
	if frames > len(s.samples[0]) {
		s.samples = [][]float32{make([]float32, frames), make([]float32, frames)}
	}
	buf := s.view
	buf[0], buf[1] = s.samples[0][:frames], s.samples[1][:frames]
	s.mixer.Process(buf)
	for n := 0; n < frames; n++ {
		binary.LittleEndian.PutUint32(p[n*bytesPerFrame:], math.Float32bits(buf[0][n]))
		binary.LittleEndian.PutUint32(p[n*bytesPerFrame+4:], math.Float32bits(buf[1][n]))
	}
	return frames * bytesPerFrame, nil
}

func (s *OtoSink) Start() error {
	s.player.Play()
	return s.player.Err()
}

func (s *OtoSink) Stop() error {
	return s.player.Close()
}
