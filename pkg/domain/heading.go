package domain

import "github.com/aretw0/wayfinder/pkg/geometry"

// Heading is an optional compass heading in degrees [0, 360).
type Heading struct {
	Degrees float64
	Valid   bool
}

// NoHeading is the absent heading.
var NoHeading = Heading{}

// HeadingOf wraps a reading, folding it into [0, 360).
func HeadingOf(deg float64) Heading {
	return Heading{Degrees: geometry.NormalizeHeading(deg), Valid: true}
}

// Ptr returns the heading as a pointer, nil when absent. Used by JSON views.
func (h Heading) Ptr() *float64 {
	if !h.Valid {
		return nil
	}
	v := h.Degrees
	return &v
}

// OrientationKind distinguishes "no target" from "not yet sampled".
type OrientationKind int

const (
	// NoTarget means the waypoint is direction-only.
	NoTarget OrientationKind = iota
	// NotYetSampled means a target exists but the compass has not reported.
	NotYetSampled
	// Sampled means both target and current heading are known.
	Sampled
)

func (k OrientationKind) String() string {
	switch k {
	case NoTarget:
		return "no_target"
	case NotYetSampled:
		return "not_yet_sampled"
	case Sampled:
		return "sampled"
	default:
		return "unknown"
	}
}

// Orientation combines the waypoint target with the latest compass reading.
type Orientation struct {
	Kind    OrientationKind
	Target  float64
	Current Heading
}

// Orient classifies a (current, target) pair.
// Current is kept even for NoTarget so renderers can still show it.
func Orient(current, target Heading) Orientation {
	switch {
	case !target.Valid:
		return Orientation{Kind: NoTarget, Current: current}
	case !current.Valid:
		return Orientation{Kind: NotYetSampled, Target: target.Degrees}
	default:
		return Orientation{Kind: Sampled, Target: target.Degrees, Current: current}
	}
}
