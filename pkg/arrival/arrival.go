// Package arrival decides when the user has satisfied the current waypoint.
//
// Two mutually exclusive policies exist and the waypoint picks one:
//
//   - Confirmer (heading confirmation) for waypoints with a target heading:
//     the user must stay aligned for the confirmation window.
//   - Stabilizer (heading-change stabilization) for direction-only waypoints:
//     a heading change must be detected and then held steady for the
//     stabilization window.
//
// Both signal Arrived at most once until Reset.
package arrival

import (
	"time"

	"github.com/aretw0/wayfinder/pkg/config"
	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/aretw0/wayfinder/pkg/movement"
)

// Kind names the policy that produced a signal.
type Kind string

const (
	KindConfirmation  Kind = "heading_confirmation"
	KindStabilization Kind = "heading_stabilization"
)

// Confirmer implements heading confirmation.
type Confirmer struct {
	window time.Duration

	alignedSince time.Time
	tracking     bool
	fired        bool
}

// NewConfirmer creates a confirmer with the given confirmation window.
func NewConfirmer(window time.Duration) *Confirmer {
	return &Confirmer{window: window}
}

// Evaluate runs one tick. It returns true exactly once, on the first tick
// where alignment has been held for the confirmation window.
func (c *Confirmer) Evaluate(aligned bool, now time.Time) bool {
	if !aligned {
		c.tracking = false
		return false
	}
	if !c.tracking {
		c.tracking = true
		c.alignedSince = now
	}
	if c.fired {
		return false
	}
	if now.Sub(c.alignedSince) >= c.window {
		c.fired = true
		return true
	}
	return false
}

// AlignedSince returns the start of the current aligned run.
func (c *Confirmer) AlignedSince() (time.Time, bool) {
	return c.alignedSince, c.tracking
}

// Reset clears all confirmation state.
func (c *Confirmer) Reset() {
	*c = Confirmer{window: c.window}
}

// Stabilizer implements heading-change stabilization on top of a movement.Detector.
type Stabilizer struct {
	window time.Duration
	fired  bool
}

// NewStabilizer creates a stabilizer with the given stabilization window.
func NewStabilizer(window time.Duration) *Stabilizer {
	return &Stabilizer{window: window}
}

// Evaluate runs one tick against the segment's movement state.
func (s *Stabilizer) Evaluate(m *movement.Detector, now time.Time) bool {
	if s.fired || !m.ChangeDetected() || !m.Stable() {
		return false
	}
	start, _ := m.StabilizationStart()
	if now.Sub(start) >= s.window {
		s.fired = true
		return true
	}
	return false
}

// Reset clears the fired latch.
func (s *Stabilizer) Reset() {
	s.fired = false
}

// Detector selects the policy per waypoint and owns both.
type Detector struct {
	confirm   *Confirmer
	stabilize *Stabilizer
}

// New creates a detector from the arrival configuration. stableWindow is
// the stabilization window shared with the movement detector.
func New(cfg config.Arrival, stableWindow time.Duration) *Detector {
	return &Detector{
		confirm:   NewConfirmer(cfg.ConfirmWindow),
		stabilize: NewStabilizer(stableWindow),
	}
}

// PolicyFor returns the policy a waypoint uses.
func PolicyFor(w domain.Waypoint) Kind {
	if w.HasTarget() {
		return KindConfirmation
	}
	return KindStabilization
}

// Evaluate runs one tick for waypoint w and reports whether it arrived.
func (d *Detector) Evaluate(w domain.Waypoint, aligned bool, m *movement.Detector, now time.Time) bool {
	if PolicyFor(w) == KindConfirmation {
		return d.confirm.Evaluate(aligned, now)
	}
	return d.stabilize.Evaluate(m, now)
}

// Reset discards every timer and latch.
func (d *Detector) Reset() {
	d.confirm.Reset()
	d.stabilize.Reset()
}
