// Package envelope generates control signals built from exponential segments.
//
// A Segment ramps from its current value towards a target over a given time. The
// curve's asymptote sits beyond the target by an overshoot ratio, so the ramp is
// still moving when it crosses the target instead of creeping up on it. An
// Envelope sequences one Segment through attack, decay, sustain and release.
//
// Nothing in this package allocates or blocks after construction. Values are
// owned by a single goroutine, usually the audio callback.
package envelope

import (
	"errors"
	"fmt"
	"math"
)

const (
	// DefaultOvershoot places the asymptote 0.1% beyond the target.
	DefaultOvershoot = 1.001
	// MinOvershoot is the smallest ratio accepted by RampTo. Anything lower is clamped.
	MinOvershoot = 1 + 1e-6
	// MaxOvershoot is the largest ratio accepted by RampTo.
	MaxOvershoot = 1e6
)

// ErrSampleRate is returned when a sample rate is not positive and finite.
var ErrSampleRate = errors.New("envelope: sample rate must be positive and finite")

// finishTolerance absorbs rounding in the repeated multiplication so the
// crossing lands on the sample the ramp time asks for.
const finishTolerance = 1e-9

// Segment is a single exponential ramp.
type Segment struct {
	sampleRate float64

	current    float64
	target     float64
	asymptote  float64 // where the curve would settle if left running forever
	exp        float64 // offset of current from asymptote, decays every sample
	multiplier float64
}

// NewSegment returns a segment resting at 0.
func NewSegment(sampleRate float64) (*Segment, error) {
	s := &Segment{}
	if err := s.SetSampleRate(sampleRate); err != nil {
		return nil, err
	}
	s.SetValue(0)
	return s, nil
}

// SetSampleRate changes the rate used for converting times to multipliers. A ramp
// that is already running keeps its multiplier.
func (s *Segment) SetSampleRate(rate float64) error {
	if !validRate(rate) {
		return fmt.Errorf("%w: %v", ErrSampleRate, rate)
	}
	s.sampleRate = rate
	return nil
}

func (s *Segment) SampleRate() float64 { return s.sampleRate }

// SetValue jumps to v and stops any ramp in progress.
func (s *Segment) SetValue(v float64) {
	s.current = v
	s.target = v
	s.asymptote = v
	s.exp = 0
	s.multiplier = 0
}

// RampTo starts a ramp from the current value that crosses target after the
// given number of seconds. The overshoot ratio shapes the curve: close to 1 the
// ramp is nearly linear, larger ratios bend it further.
//
// Times shorter than one sample jump straight to the target. Times are capped at
// an hour, so an infinite time still moves.
func (s *Segment) RampTo(target, seconds, overshoot float64) {
	seconds = clampTime(seconds)
	if seconds*s.sampleRate < 1 {
		s.SetValue(target)
		return
	}
	overshoot = clampOvershoot(overshoot)

	s.target = target
	distance := target - s.current
	s.asymptote = s.current + distance*overshoot
	s.exp = s.current - s.asymptote
	s.current = s.asymptote + s.exp

	// After `seconds` the offset from the asymptote has shrunk to (1 - 1/overshoot)
	// of where it started, which is exactly the target.
	tau := -seconds / math.Log1p(-1/overshoot)
	s.multiplier = math.Exp(-1 / (tau * s.sampleRate))
}

// Process returns the value for this sample and advances the ramp. It must be
// called exactly once per sample.
func (s *Segment) Process() float64 {
	s.current = s.asymptote + s.exp
	if !s.Finished() {
		s.exp *= s.multiplier
	}
	return s.current
}

// Finished reports whether the last value returned by Process has reached or
// passed the target, in whichever direction the segment is travelling.
func (s *Segment) Finished() bool {
	return s.reached(s.current)
}

// Value returns the last value produced.
func (s *Segment) Value() float64 { return s.current }

// Target returns the value being ramped to.
func (s *Segment) Target() float64 { return s.target }

// Fill writes consecutive samples into buf.
func (s *Segment) Fill(buf []float64) {
	for n := range buf {
		buf[n] = s.Process()
	}
}

// landing reports whether the next call to Process will return a value at or
// past the target.
func (s *Segment) landing() bool {
	return s.reached(s.asymptote + s.exp)
}

func (s *Segment) reached(v float64) bool {
	tol := finishTolerance * math.Abs(s.asymptote-s.target)
	if v >= s.target-tol && v <= s.asymptote {
		return true
	}
	if v <= s.target+tol && v >= s.asymptote {
		return true
	}
	return false
}

func clampOvershoot(ratio float64) float64 {
	switch {
	case math.IsNaN(ratio):
		invalidOvershoot(ratio)
		return DefaultOvershoot
	case ratio < MinOvershoot:
		invalidOvershoot(ratio)
		return MinOvershoot
	case ratio > MaxOvershoot:
		return MaxOvershoot
	}
	return ratio
}

func validRate(rate float64) bool {
	return rate > 0 && !math.IsInf(rate, 1)
}
