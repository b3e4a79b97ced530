package envelope

import "math"

// Stage is the current stage of an Envelope.
type Stage int

const (
	StageIdle Stage = iota
	StageAttack
	StageDecay
	StageSustain
	StageRelease
)

var stageNames = [...]string{
	StageIdle:    "idle",
	StageAttack:  "attack",
	StageDecay:   "decay",
	StageSustain: "sustain",
	StageRelease: "release",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

// maxTime bounds stage durations so that a stray value can't freeze a ramp.
const maxTime = 3600

// Envelope is an attack-decay-sustain-release generator made of exponential
// segments. Trigger and Release may be called at any time between calls to
// Process; a new stage always starts from the value last produced, so the
// output never jumps.
//
// Parameter changes are picked up at the next stage change. A ramp that is
// already running is left alone.
type Envelope struct {
	seg *Segment

	attack    float64 // seconds
	decay     float64 // seconds
	sustain   float64 // fraction of peak
	release   float64 // seconds
	peak      float64
	overshoot float64

	stage Stage
}

// NewEnvelope returns an idle envelope with a 10ms attack, 50ms decay, 30%
// sustain and 200ms release.
func NewEnvelope(sampleRate float64) (*Envelope, error) {
	seg, err := NewSegment(sampleRate)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		seg:       seg,
		attack:    0.01,
		decay:     0.05,
		sustain:   0.3,
		release:   0.2,
		peak:      1,
		overshoot: DefaultOvershoot,
		stage:     StageIdle,
	}, nil
}

// SetSampleRate changes the sample rate used by the next stage.
func (e *Envelope) SetSampleRate(rate float64) error {
	return e.seg.SetSampleRate(rate)
}

// SetAttackTime sets the attack time in seconds. Negative values are treated as 0.
func (e *Envelope) SetAttackTime(seconds float64) { e.attack = clampTime(seconds) }

// SetDecayTime sets the decay time in seconds. Negative values are treated as 0.
func (e *Envelope) SetDecayTime(seconds float64) { e.decay = clampTime(seconds) }

// SetSustainLevel sets the sustain level as a fraction of the peak, clamped to [0, 1].
func (e *Envelope) SetSustainLevel(level float64) {
	if math.IsNaN(level) {
		level = 0
	}
	e.sustain = math.Max(0, math.Min(1, level))
}

// SetReleaseTime sets the release time in seconds. Negative values are treated as 0.
func (e *Envelope) SetReleaseTime(seconds float64) { e.release = clampTime(seconds) }

// SetPeakLevel sets the level reached at the end of the attack.
func (e *Envelope) SetPeakLevel(level float64) {
	if math.IsNaN(level) || level < 0 {
		level = 0
	}
	e.peak = level
}

// SetOvershoot sets the overshoot ratio used for every stage. See Segment.RampTo.
func (e *Envelope) SetOvershoot(ratio float64) { e.overshoot = clampOvershoot(ratio) }

func (e *Envelope) AttackTime() float64   { return e.attack }
func (e *Envelope) DecayTime() float64    { return e.decay }
func (e *Envelope) SustainLevel() float64 { return e.sustain }
func (e *Envelope) ReleaseTime() float64  { return e.release }
func (e *Envelope) PeakLevel() float64    { return e.peak }
func (e *Envelope) Overshoot() float64    { return e.overshoot }

// Trigger starts the attack from wherever the output currently is. Retriggering
// during a note shortens the attack rather than restarting it from zero.
func (e *Envelope) Trigger() {
	e.enter(StageAttack)
}

// Release starts the release stage. It does nothing when the envelope is idle
// or already releasing.
func (e *Envelope) Release() {
	switch e.stage {
	case StageAttack, StageDecay, StageSustain:
		e.enter(StageRelease)
	}
}

// Reset silences the envelope immediately.
func (e *Envelope) Reset() {
	e.enter(StageIdle)
}

// Process returns the envelope value for the current sample and advances it.
// It must be called once per sample in every stage.
func (e *Envelope) Process() float64 {
	out := e.seg.Process()
	// Hand over on the last sample before the target so each stage lasts as
	// many samples as its time asks for.
	if e.seg.landing() {
		switch e.stage {
		case StageAttack:
			e.enter(StageDecay)
		case StageDecay:
			e.enter(StageSustain)
		case StageRelease:
			e.enter(StageIdle)
		}
	}
	return out
}

// Fill writes consecutive envelope values into buf.
func (e *Envelope) Fill(buf []float64) {
	for n := range buf {
		buf[n] = e.Process()
	}
}

// Apply multiplies buf by consecutive envelope values.
func (e *Envelope) Apply(buf []float64) {
	for n := range buf {
		buf[n] *= e.Process()
	}
}

// Stage returns the current stage.
func (e *Envelope) Stage() Stage { return e.stage }

// Value returns the last value produced by Process.
func (e *Envelope) Value() float64 { return e.seg.Value() }

// IsActive reports whether the envelope is producing anything but silence.
func (e *Envelope) IsActive() bool { return e.stage != StageIdle }

func (e *Envelope) enter(stage Stage) {
	e.stage = stage
	switch stage {
	case StageIdle:
		e.seg.SetValue(0)
	case StageAttack:
		e.seg.RampTo(e.peak, e.attack, e.overshoot)
	case StageDecay:
		e.seg.RampTo(e.sustain*e.peak, e.decay, e.overshoot)
	case StageSustain:
		e.seg.SetValue(e.sustain * e.peak)
	case StageRelease:
		e.seg.RampTo(0, e.release, e.overshoot)
	}
}

func clampTime(seconds float64) float64 {
	if math.IsNaN(seconds) || seconds < 0 {
		return 0
	}
	return math.Min(seconds, maxTime)
}
