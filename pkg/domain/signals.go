package domain

import "time"

// Alignment is the currentAlignment view.
type Alignment struct {
	Direction      string   `json:"direction"`
	TargetHeading  *float64 `json:"target_heading,omitempty"`
	CurrentHeading *float64 `json:"current_heading,omitempty"`
	Error          *float64 `json:"error,omitempty"`
	AbsError       *float64 `json:"abs_error,omitempty"`
	Aligned        bool     `json:"aligned"`
	WaypointIndex  int      `json:"waypoint_index"`
	TotalWaypoints int      `json:"total_waypoints"`
	IsFinal        bool     `json:"is_final"`
}

// Movement is the currentMovement view.
type Movement struct {
	HasMoved            bool          `json:"has_moved"`
	MovementConfidence  float64       `json:"movement_confidence"`
	AlignedMovementTime time.Duration `json:"aligned_movement_time"`
}

// StepStatus is the currentStepStatus view.
type StepStatus struct {
	CurrentSteps  int     `json:"current_steps"`
	RequiredSteps *int    `json:"required_steps,omitempty"`
	StepProgress  float64 `json:"step_progress"`
	CanAdvance    bool    `json:"can_advance"`
}

// Vector is a 3-axis accelerometer sample in m/s².
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}
