package audio

type Source interface {
	Process([][]float32)
}

type Ticker interface {
	Tick(numSamples int)
}

// Mixer sums its sources into a stereo buffer. Tickers run before the sources
// so that events they schedule land in the same buffer.
type Mixer struct {
	sources []Source
	tickers []Ticker
}

func NewMixer() *Mixer {
	return &Mixer{}
}

// AddSources and AddTicker must be called before the mixer is handed to a backend.
func (m *Mixer) AddSources(sources ...Source) {
	m.sources = append(m.sources, sources...)
}

func (m *Mixer) AddTicker(ticker Ticker) {
	m.tickers = append(m.tickers, ticker)
}

func (m *Mixer) Process(samples [][]float32) {
	for i := range samples {
		for j := range samples[i] {
			samples[i][j] = 0.
		}
	}
	for _, ticker := range m.tickers {
		ticker.Tick(len(samples[0]))
	}
	for _, source := range m.sources {
		source.Process(samples)
	}
}
