package domain

import "github.com/aretw0/wayfinder/pkg/geometry"

// Waypoint is an authored point in a route.
// The engine never interprets Instruction; it is handed to renderers verbatim.
type Waypoint struct {
	ID          string `json:"id" yaml:"id" mapstructure:"id"`
	Order       int    `json:"order" yaml:"order" mapstructure:"order"`
	Instruction string `json:"instruction" yaml:"instruction" mapstructure:"instruction"`

	// TargetHeading is the facing direction in degrees [0, 360), when the
	// waypoint has one. Nil marks a direction-only waypoint.
	TargetHeading *float64 `json:"target_heading,omitempty" yaml:"target_heading,omitempty" mapstructure:"target_heading"`

	// RequiredSteps is the number of steps needed to reach the next waypoint.
	RequiredSteps *int `json:"required_steps,omitempty" yaml:"required_steps,omitempty" mapstructure:"required_steps"`

	// Position is only recorded as an authoring aid (bearing hints between
	// recorded waypoints). The engine never reads it.
	Position *geometry.Point `json:"position,omitempty" yaml:"position,omitempty" mapstructure:"position"`
}

// Target returns the waypoint's target heading as an optional value.
func (w Waypoint) Target() Heading {
	if w.TargetHeading == nil {
		return NoHeading
	}
	return HeadingOf(*w.TargetHeading)
}

// HasTarget reports whether the waypoint carries a target heading.
func (w Waypoint) HasTarget() bool {
	return w.TargetHeading != nil
}

// Validate checks the value ranges of a single waypoint.
func (w Waypoint) Validate() error {
	if w.ID == "" {
		return NewConfigurationError("waypoint.id", "must not be empty")
	}
	if w.TargetHeading != nil {
		h := *w.TargetHeading
		if h < 0 || h >= 360 {
			return NewConfigurationError("waypoint.target_heading", "%s: %v is outside [0, 360)", w.ID, h)
		}
	}
	if w.RequiredSteps != nil && *w.RequiredSteps < 0 {
		return NewConfigurationError("waypoint.required_steps", "%s: must be non-negative", w.ID)
	}
	return nil
}

// Float is a helper for building optional headings in literals.
func Float(v float64) *float64 { return &v }

// Int is a helper for building optional step counts in literals.
func Int(v int) *int { return &v }
