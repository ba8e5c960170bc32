package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventSessionStart  EventType = "session_start"
	EventWaypointEnter EventType = "waypoint_enter"
	EventArrived       EventType = "arrived"
	EventSessionEnd    EventType = "session_end"
)

// EndReason tells why a session became inactive.
type EndReason string

const (
	EndCompleted EndReason = "completed"
	EndStopped   EndReason = "stopped"
)

// NavigationEvent is emitted through LifecycleHooks.
type NavigationEvent struct {
	Timestamp     time.Time    `json:"timestamp"`
	Type          EventType    `json:"type"`
	SessionID     string       `json:"session_id"`
	RouteID       string       `json:"route_id"`
	Mode          FeedbackMode `json:"mode"`
	WaypointIndex int          `json:"waypoint_index"`
	WaypointID    string       `json:"waypoint_id,omitempty"`
	Epoch         uint64       `json:"epoch"`
	Policy        string       `json:"policy,omitempty"`
	Reason        EndReason    `json:"reason,omitempty"`
	// Dwell is the time spent on the waypoint, set on arrival and end events.
	Dwell time.Duration `json:"dwell,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
// Hooks run on the engine goroutine and must not block.
type LifecycleHooks struct {
	OnSessionStart  func(context.Context, *NavigationEvent)
	OnWaypointEnter func(context.Context, *NavigationEvent)
	OnArrived       func(context.Context, *NavigationEvent)
	OnSessionEnd    func(context.Context, *NavigationEvent)
}

// ChainHooks fans every callback out to each set of hooks in order.
func ChainHooks(hooks ...LifecycleHooks) LifecycleHooks {
	pick := func(get func(LifecycleHooks) func(context.Context, *NavigationEvent)) func(context.Context, *NavigationEvent) {
		var fns []func(context.Context, *NavigationEvent)
		for _, h := range hooks {
			if fn := get(h); fn != nil {
				fns = append(fns, fn)
			}
		}
		if len(fns) == 0 {
			return nil
		}
		return func(ctx context.Context, e *NavigationEvent) {
			for _, fn := range fns {
				fn(ctx, e)
			}
		}
	}
	return LifecycleHooks{
		OnSessionStart:  pick(func(h LifecycleHooks) func(context.Context, *NavigationEvent) { return h.OnSessionStart }),
		OnWaypointEnter: pick(func(h LifecycleHooks) func(context.Context, *NavigationEvent) { return h.OnWaypointEnter }),
		OnArrived:       pick(func(h LifecycleHooks) func(context.Context, *NavigationEvent) { return h.OnArrived }),
		OnSessionEnd:    pick(func(h LifecycleHooks) func(context.Context, *NavigationEvent) { return h.OnSessionEnd }),
	}
}
