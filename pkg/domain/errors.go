package domain

import (
	"errors"
	"fmt"
)

// ErrConfiguration matches every ConfigurationError via errors.Is.
var ErrConfiguration = errors.New("configuration error")

// ErrRouteNotFound is returned when a route ID cannot be found in the repository.
var ErrRouteNotFound = errors.New("route not found")

// ErrWaypointNotFound is returned by route authoring operations for unknown waypoint IDs.
var ErrWaypointNotFound = errors.New("waypoint not found")

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionInactive is returned by commands that require an active session.
var ErrSessionInactive = errors.New("session inactive")

// ConfigurationError reports an invalid configuration value or a route that
// cannot be navigated. The session (if any) is left untouched.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration error: %s", e.Reason)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrConfiguration) match any ConfigurationError.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// NewConfigurationError is a shorthand constructor.
func NewConfigurationError(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
