package domain

import "time"

// Session is a snapshot of a navigation run.
// Only the runtime mutates sessions; everything else receives copies.
type Session struct {
	ID      string       `json:"id"`
	RouteID string       `json:"route_id"`
	Mode    FeedbackMode `json:"mode"`
	Active  bool         `json:"active"`

	// CurrentWaypointIndex stays in [0, len(route)) while Active and is left
	// on the last waypoint when the route completes.
	CurrentWaypointIndex int  `json:"current_waypoint_index"`
	TotalWaypoints       int  `json:"total_waypoints"`
	CurrentStepCount     int  `json:"current_step_count"`
	ReachedCurrent       bool `json:"reached_current"`
	Completed            bool `json:"completed"`

	// Epoch increments on every waypoint transition. Evaluations computed
	// against an older epoch are discarded.
	Epoch uint64 `json:"epoch"`

	// Generation increments on every Start, Resume and Stop. Sensor
	// callbacks stamped with an older generation are ignored.
	Generation uint64 `json:"generation"`

	StartedAt time.Time  `json:"started_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`

	// Sealed holds an encrypted snapshot written by store middleware. A
	// sealed envelope keeps only the fields needed to list and expire it.
	Sealed string `json:"sealed,omitempty"`
}

// IsFinal reports whether the current waypoint is the last one.
func (s Session) IsFinal() bool {
	return s.TotalWaypoints > 0 && s.CurrentWaypointIndex == s.TotalWaypoints-1
}
