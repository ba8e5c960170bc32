// Package feedback maps alignment errors onto pulse cues.
// The mapping is pure and shared by every renderer (audio, haptic).
package feedback

import (
	"fmt"
	"time"

	"github.com/aretw0/wayfinder/pkg/alignment"
	"github.com/aretw0/wayfinder/pkg/config"
	"github.com/aretw0/wayfinder/pkg/geometry"
)

// Intensity is the strength tier of a pulse.
type Intensity int

const (
	Light Intensity = iota
	Medium
	Heavy
)

func (i Intensity) String() string {
	switch i {
	case Light:
		return "light"
	case Medium:
		return "medium"
	case Heavy:
		return "heavy"
	default:
		return "unknown"
	}
}

// MarshalText renders the tier name in JSON.
func (i Intensity) MarshalText() ([]byte, error) { return []byte(i.String()), nil }

// UnmarshalText parses a tier name.
func (i *Intensity) UnmarshalText(b []byte) error {
	for _, v := range []Intensity{Light, Medium, Heavy} {
		if v.String() == string(b) {
			*i = v
			return nil
		}
	}
	return fmt.Errorf("unknown intensity %q", b)
}

// Pattern is the shape of a cue.
type Pattern int

const (
	// Silent is used while a target exists but no heading has been sampled.
	Silent Pattern = iota
	SinglePulse
	DoublePulse
	// Continuous replaces pulses while aligned.
	Continuous
)

func (p Pattern) String() string {
	switch p {
	case Silent:
		return "silent"
	case SinglePulse:
		return "single_pulse"
	case DoublePulse:
		return "double_pulse"
	case Continuous:
		return "continuous"
	default:
		return "unknown"
	}
}

// MarshalText renders the pattern name in JSON.
func (p Pattern) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText parses a pattern name.
func (p *Pattern) UnmarshalText(b []byte) error {
	for _, v := range []Pattern{Silent, SinglePulse, DoublePulse, Continuous} {
		if v.String() == string(b) {
			*p = v
			return nil
		}
	}
	return fmt.Errorf("unknown pattern %q", b)
}

// Cue is what a renderer should play until the next cue.
// Interval and Intensity are only meaningful for pulse patterns.
type Cue struct {
	Pattern   Pattern       `json:"pattern"`
	Intensity Intensity     `json:"intensity"`
	Interval  time.Duration `json:"interval"`
	PulseGap  time.Duration `json:"pulse_gap,omitempty"`
}

// Pulsing reports whether the cue is a pulse train.
func (c Cue) Pulsing() bool {
	return c.Pattern == SinglePulse || c.Pattern == DoublePulse
}

// Mapper holds the configured ranges.
type Mapper struct {
	cfg config.Feedback
}

// NewMapper creates a mapper for the given feedback configuration.
func NewMapper(cfg config.Feedback) Mapper {
	return Mapper{cfg: cfg}
}

// Default is a mapper built on config.Default.
var Default = NewMapper(config.Default().Feedback)

// PulseInterval maps |error| in [0, 180] onto [MinInterval, MaxInterval].
// Smaller errors pulse faster.
func (m Mapper) PulseInterval(absError float64) time.Duration {
	ms := geometry.MapRange(absError, 0, 180,
		float64(m.cfg.MinInterval.Milliseconds()), float64(m.cfg.MaxInterval.Milliseconds()))
	return time.Duration(ms * float64(time.Millisecond))
}

// IntensityTier buckets |error|: heavy when close, light when far.
func (m Mapper) IntensityTier(absError float64) Intensity {
	switch {
	case absError < m.cfg.HeavyBelowDeg:
		return Heavy
	case absError < m.cfg.MediumBelowDeg:
		return Medium
	default:
		return Light
	}
}

// PulsePattern returns a double pulse for "turn right" and a single pulse otherwise.
func PulsePattern(signedError float64) Pattern {
	if signedError > 0 {
		return DoublePulse
	}
	return SinglePulse
}

// Map converts an alignment result into a cue.
// Aligned results always yield Continuous and never a pulse.
func (m Mapper) Map(r alignment.Result) Cue {
	if r.Aligned {
		return Cue{Pattern: Continuous, Intensity: Heavy}
	}
	if !r.Measured {
		return Cue{Pattern: Silent}
	}

	cue := Cue{
		Pattern:   PulsePattern(r.Error),
		Intensity: m.IntensityTier(r.AbsError),
		Interval:  m.PulseInterval(r.AbsError),
	}
	if cue.Pattern == DoublePulse {
		cue.PulseGap = m.cfg.DoublePulseGap
	}
	return cue
}

// MapWithMovement is the distance-aware variant. A movement confidence at or
// above BoostConfidence raises the tier by one step. Cadence and pattern are
// never touched and the tier is never lowered.
func (m Mapper) MapWithMovement(r alignment.Result, confidence float64) Cue {
	cue := m.Map(r)
	if !cue.Pulsing() {
		return cue
	}
	if confidence >= m.cfg.BoostConfidence && cue.Intensity < Heavy {
		cue.Intensity++
	}
	return cue
}
