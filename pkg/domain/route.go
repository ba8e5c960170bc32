package domain

import (
	"fmt"

	"github.com/aretw0/wayfinder/pkg/geometry"
)

// Route is an ordered list of waypoints.
// A route with zero waypoints is valid for storage but cannot be navigated.
type Route struct {
	ID        string     `json:"id" yaml:"id" mapstructure:"id"`
	Name      string     `json:"name" yaml:"name" mapstructure:"name"`
	TaskType  string     `json:"task_type,omitempty" yaml:"task_type,omitempty" mapstructure:"task_type"`
	Waypoints []Waypoint `json:"waypoints" yaml:"waypoints" mapstructure:"waypoints"`
}

// Len returns the number of waypoints.
func (r *Route) Len() int { return len(r.Waypoints) }

// Navigable reports a ConfigurationError when the route cannot be the target of a session.
func (r *Route) Navigable() error {
	if len(r.Waypoints) == 0 {
		return NewConfigurationError("route.waypoints", "route %q has no waypoints", r.ID)
	}
	return nil
}

// Validate checks the order invariant (0-based, contiguous, unique) and every waypoint.
func (r *Route) Validate() error {
	if r.ID == "" {
		return NewConfigurationError("route.id", "must not be empty")
	}
	seen := make(map[string]struct{}, len(r.Waypoints))
	for i, w := range r.Waypoints {
		if err := w.Validate(); err != nil {
			return err
		}
		if w.Order != i {
			return NewConfigurationError("waypoint.order", "%s: expected order %d, got %d", w.ID, i, w.Order)
		}
		if _, dup := seen[w.ID]; dup {
			return NewConfigurationError("waypoint.id", "duplicate waypoint %q", w.ID)
		}
		seen[w.ID] = struct{}{}
	}
	return nil
}

// Reindex rewrites every waypoint's order to match its slice position.
func (r *Route) Reindex() {
	for i := range r.Waypoints {
		r.Waypoints[i].Order = i
	}
}

// Append adds a waypoint at the end of the route.
func (r *Route) Append(w Waypoint) error {
	w.Order = len(r.Waypoints)
	if err := w.Validate(); err != nil {
		return err
	}
	if r.indexOf(w.ID) >= 0 {
		return NewConfigurationError("waypoint.id", "duplicate waypoint %q", w.ID)
	}
	r.Waypoints = append(r.Waypoints, w)
	return nil
}

// Update replaces the waypoint with the same ID, keeping its order.
func (r *Route) Update(w Waypoint) error {
	i := r.indexOf(w.ID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrWaypointNotFound, w.ID)
	}
	w.Order = i
	if err := w.Validate(); err != nil {
		return err
	}
	r.Waypoints[i] = w
	return nil
}

// Remove deletes a waypoint and reindexes the remainder.
func (r *Route) Remove(id string) error {
	i := r.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrWaypointNotFound, id)
	}
	r.Waypoints = append(r.Waypoints[:i], r.Waypoints[i+1:]...)
	r.Reindex()
	return nil
}

// Clone returns a deep copy so callers can hand routes across goroutines.
func (r *Route) Clone() *Route {
	out := *r
	out.Waypoints = make([]Waypoint, len(r.Waypoints))
	for i, w := range r.Waypoints {
		cp := w
		if w.TargetHeading != nil {
			cp.TargetHeading = Float(*w.TargetHeading)
		}
		if w.RequiredSteps != nil {
			cp.RequiredSteps = Int(*w.RequiredSteps)
		}
		if w.Position != nil {
			p := *w.Position
			cp.Position = &p
		}
		out.Waypoints[i] = cp
	}
	return &out
}

// BearingHint returns the bearing from waypoint i to waypoint i+1 when both
// have recorded positions. Authoring tools use it to pre-fill target headings.
func (r *Route) BearingHint(i int) (float64, bool) {
	if i < 0 || i+1 >= len(r.Waypoints) {
		return 0, false
	}
	a, b := r.Waypoints[i].Position, r.Waypoints[i+1].Position
	if a == nil || b == nil {
		return 0, false
	}
	return geometry.Bearing(*a, *b), true
}

func (r *Route) indexOf(id string) int {
	for i, w := range r.Waypoints {
		if w.ID == id {
			return i
		}
	}
	return -1
}
