// Package stepgate implements step-counted advancement: the user may advance
// once the waypoint's step count is met while facing the right way.
package stepgate

import (
	"math"

	"github.com/aretw0/wayfinder/pkg/domain"
)

// Progress returns the step progress in percent, capped at 100.
// Waypoints without a positive step requirement report 0.
func Progress(steps int, required *int) float64 {
	if required == nil || *required <= 0 {
		return 0
	}
	return math.Min(100, 100*float64(steps)/float64(*required))
}

// CanAdvance reports whether the gate is open. A waypoint without a step
// requirement never opens the gate; it can only be left with an explicit Advance.
func CanAdvance(steps int, required *int, aligned bool) bool {
	if required == nil {
		return false
	}
	return steps >= *required && aligned
}

// Evaluate builds the currentStepStatus view.
func Evaluate(steps int, required *int, aligned bool) domain.StepStatus {
	var req *int
	if required != nil {
		v := *required
		req = &v
	}
	return domain.StepStatus{
		CurrentSteps:  steps,
		RequiredSteps: req,
		StepProgress:  Progress(steps, required),
		CanAdvance:    CanAdvance(steps, required, aligned),
	}
}
