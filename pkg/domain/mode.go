package domain

import "strings"

// FeedbackMode selects how cues are rendered and, through Policy, how the
// session decides to advance.
type FeedbackMode string

const (
	ModeAudio    FeedbackMode = "audio"
	ModeHaptic   FeedbackMode = "haptic"
	ModeCombined FeedbackMode = "combined"
	ModeSteps    FeedbackMode = "steps"
	ModeManual   FeedbackMode = "manual"
)

// Policy is the advancement policy wired to a feedback mode.
// Exactly one policy is active for a session.
type Policy int

const (
	// PolicyArrival advances on an Arrived signal: heading confirmation when
	// the waypoint has a target, heading-change stabilization otherwise.
	PolicyArrival Policy = iota
	// PolicyStepGate advances once the step count is met while aligned.
	PolicyStepGate
	// PolicyManual only advances on explicit commands.
	PolicyManual
)

func (p Policy) String() string {
	switch p {
	case PolicyArrival:
		return "arrival"
	case PolicyStepGate:
		return "step_gate"
	case PolicyManual:
		return "manual"
	default:
		return "unknown"
	}
}

// Policy returns the advancement policy for the mode.
func (m FeedbackMode) Policy() Policy {
	switch m {
	case ModeSteps:
		return PolicyStepGate
	case ModeManual:
		return PolicyManual
	default:
		return PolicyArrival
	}
}

func (m FeedbackMode) String() string { return string(m) }

// ParseFeedbackMode accepts the mode tags case-insensitively.
// An empty string selects ModeCombined.
func ParseFeedbackMode(s string) (FeedbackMode, error) {
	switch FeedbackMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeCombined:
		return ModeCombined, nil
	case ModeAudio:
		return ModeAudio, nil
	case ModeHaptic:
		return ModeHaptic, nil
	case ModeSteps:
		return ModeSteps, nil
	case ModeManual:
		return ModeManual, nil
	}
	return "", NewConfigurationError("feedback_mode", "unknown mode %q", s)
}
