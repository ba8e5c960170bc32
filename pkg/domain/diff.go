package domain

// SessionDiff represents the changes between two session snapshots.
// It is designed to be serialized to JSON for partial updates on the client.
type SessionDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id"`

	CurrentWaypointIndex *int    `json:"current_waypoint_index,omitempty"`
	Active               *bool   `json:"active,omitempty"`
	CurrentStepCount     *int    `json:"current_step_count,omitempty"`
	ReachedCurrent       *bool   `json:"reached_current,omitempty"`
	Completed            *bool   `json:"completed,omitempty"`
	Epoch                *uint64 `json:"epoch,omitempty"`
}

// Diff calculates the difference between oldSession and newSession.
// If oldSession is nil, it returns a diff carrying every field (initial load).
// It returns nil when nothing changed.
func Diff(oldSession, newSession *Session) *SessionDiff {
	if newSession == nil {
		return nil
	}

	n := *newSession
	diff := &SessionDiff{SessionID: n.ID}

	if oldSession == nil || oldSession.CurrentWaypointIndex != n.CurrentWaypointIndex {
		diff.CurrentWaypointIndex = &n.CurrentWaypointIndex
	}
	if oldSession == nil || oldSession.Active != n.Active {
		diff.Active = &n.Active
	}
	if oldSession == nil || oldSession.CurrentStepCount != n.CurrentStepCount {
		diff.CurrentStepCount = &n.CurrentStepCount
	}
	if oldSession == nil || oldSession.ReachedCurrent != n.ReachedCurrent {
		diff.ReachedCurrent = &n.ReachedCurrent
	}
	if oldSession == nil || oldSession.Completed != n.Completed {
		diff.Completed = &n.Completed
	}
	if oldSession == nil || oldSession.Epoch != n.Epoch {
		diff.Epoch = &n.Epoch
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *SessionDiff) IsEmpty() bool {
	return d.CurrentWaypointIndex == nil &&
		d.Active == nil &&
		d.CurrentStepCount == nil &&
		d.ReachedCurrent == nil &&
		d.Completed == nil &&
		d.Epoch == nil
}
