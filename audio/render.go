package audio

import (
	"fmt"
	"io"
	"math"

	"github.com/youpy/go-wav"
)

const renderBits = 16

// RenderWAV runs the mixer offline for numFrames frames and writes the result to w
// as a 16 bit stereo WAV file.
func RenderWAV(w io.Writer, m *Mixer, sampleRate, bufferSize, numFrames int) error {
	if sampleRate <= 0 || bufferSize <= 0 || numFrames < 0 {
		return fmt.Errorf("render: invalid parameters: rate %d, buffer %d, frames %d",
			sampleRate, bufferSize, numFrames)
	}
	ww := wav.NewWriter(w, uint32(numFrames), 2, uint32(sampleRate), renderBits)

	samples := [][]float32{make([]float32, bufferSize), make([]float32, bufferSize)}
	out := make([]wav.Sample, bufferSize)
	for done := 0; done < numFrames; done += bufferSize {
		n := min(bufferSize, numFrames-done)
		// Always process whole buffers so the sequencer sees a steady buffer size.
		m.Process(samples)
		for i := 0; i < n; i++ {
			out[i].Values[0] = toPCM(samples[0][i])
			out[i].Values[1] = toPCM(samples[1][i])
		}
		if err := ww.WriteSamples(out[:n]); err != nil {
			return fmt.Errorf("render: %w", err)
		}
	}
	return nil
}

func toPCM(v float32) int {
	const max = 1<<(renderBits-1) - 1
	f := math.Max(-1, math.Min(1, float64(v)))
	return int(math.Round(f * max))
}
