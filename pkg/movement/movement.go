// Package movement infers, without positioning, whether the user has
// physically moved through the current waypoint segment. Heading volatility
// and accelerometer activity are fused into a confidence in [0, 1].
package movement

import (
	"math"
	"time"

	"github.com/aretw0/wayfinder/pkg/config"
	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/aretw0/wayfinder/pkg/geometry"
)

// Detector tracks one waypoint segment. It is not safe for concurrent use;
// the runtime owns exactly one per active waypoint.
type Detector struct {
	cfg config.Movement

	segmentStart domain.Heading
	last         domain.Heading

	recentDelta float64
	hasRecent   bool

	changeDetected     bool
	stabilizationStart time.Time

	lastAccel   *domain.Vector
	accelActive bool

	alignedSince    time.Time
	alignedTracking bool
	alignedMovement time.Duration
}

// New creates a detector with an empty segment.
func New(cfg config.Movement) *Detector {
	return &Detector{cfg: cfg}
}

// Reset starts a new segment. seed is the heading at the moment the waypoint
// became current; when absent the first sample becomes the segment start.
func (d *Detector) Reset(seed domain.Heading) {
	*d = Detector{cfg: d.cfg, segmentStart: seed, last: seed}
}

// ObserveHeading feeds one compass sample taken at now.
func (d *Detector) ObserveHeading(deg float64, now time.Time) {
	h := domain.HeadingOf(deg)
	if !d.segmentStart.Valid {
		d.segmentStart = h
	}

	if d.last.Valid {
		d.recentDelta = math.Abs(geometry.NormalizeAngleDiff(h.Degrees, d.last.Degrees))
		d.hasRecent = true
	}

	delta := math.Abs(geometry.NormalizeAngleDiff(h.Degrees, d.segmentStart.Degrees))
	switch {
	case !d.changeDetected && delta > d.cfg.HeadingChangeThresholdDeg:
		d.changeDetected = true
		d.stabilizationStart = now
	case d.changeDetected && !d.Stable():
		// excursion: stabilization starts over, the change stays detected
		d.stabilizationStart = now
	}

	d.last = h
}

// ObserveAccel feeds one 3-axis accelerometer sample.
func (d *Detector) ObserveAccel(v domain.Vector, _ time.Time) {
	if d.lastAccel != nil {
		dx, dy, dz := v.X-d.lastAccel.X, v.Y-d.lastAccel.Y, v.Z-d.lastAccel.Z
		d.accelActive = math.Sqrt(dx*dx+dy*dy+dz*dz) > d.cfg.AccelThreshold
	}
	sample := v
	d.lastAccel = &sample
}

// HasMoved reports whether a heading change has been detected in this segment.
func (d *Detector) HasMoved() bool { return d.changeDetected }

// ChangeDetected is an alias of HasMoved used by the arrival policies.
func (d *Detector) ChangeDetected() bool { return d.changeDetected }

// Stable reports whether the last sample-to-sample delta is below the stable delta.
func (d *Detector) Stable() bool {
	return !d.hasRecent || d.recentDelta < d.cfg.StableDeltaDeg
}

// RecentDelta is the absolute delta between the last two heading samples.
func (d *Detector) RecentDelta() float64 { return d.recentDelta }

// StabilizationStart returns when the heading last (re)started stabilizing.
func (d *Detector) StabilizationStart() (time.Time, bool) {
	return d.stabilizationStart, d.changeDetected
}

// SegmentStart returns the heading the segment started from.
func (d *Detector) SegmentStart() domain.Heading { return d.segmentStart }

// Confidence returns the movement confidence at now.
func (d *Detector) Confidence(now time.Time) float64 {
	if !d.changeDetected {
		return 0
	}

	var c float64
	if d.Stable() {
		c = ratio(now.Sub(d.stabilizationStart), d.cfg.StableWindow)
	} else {
		c = d.cfg.TurningConfidence
	}

	if d.accelActive {
		c = math.Max(c, d.cfg.AccelConfidenceFloor)
	}
	return c
}

// TrackAlignment is called once per evaluation tick. The aligned movement
// timer only runs while aligned and moved hold on consecutive ticks.
func (d *Detector) TrackAlignment(aligned bool, now time.Time) {
	if !aligned || !d.changeDetected {
		d.alignedTracking = false
		d.alignedMovement = 0
		return
	}
	if !d.alignedTracking {
		d.alignedTracking = true
		d.alignedSince = now
	}
	d.alignedMovement = now.Sub(d.alignedSince)
}

// AlignedMovementTime returns the current continuous aligned-and-moved duration.
func (d *Detector) AlignedMovementTime() time.Duration { return d.alignedMovement }

// Snapshot builds the currentMovement view.
func (d *Detector) Snapshot(now time.Time) domain.Movement {
	return domain.Movement{
		HasMoved:            d.changeDetected,
		MovementConfidence:  d.Confidence(now),
		AlignedMovementTime: d.alignedMovement,
	}
}

func ratio(elapsed, window time.Duration) float64 {
	if window <= 0 {
		return 1
	}
	if elapsed <= 0 {
		return 0
	}
	return math.Min(1, float64(elapsed)/float64(window))
}
