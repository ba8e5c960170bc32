package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/wayfinder/pkg/domain"
)

// LogHooks writes one structured line per lifecycle event.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	log := func(ctx context.Context, e *domain.NavigationEvent) {
		attrs := []any{
			"session_id", e.SessionID,
			"route_id", e.RouteID,
			"waypoint", e.WaypointIndex,
			"waypoint_id", e.WaypointID,
			"epoch", e.Epoch,
		}
		if e.Policy != "" {
			attrs = append(attrs, "policy", e.Policy, "dwell", e.Dwell)
		}
		if e.Reason != "" {
			attrs = append(attrs, "reason", e.Reason)
		}
		logger.InfoContext(ctx, string(e.Type), attrs...)
	}
	return domain.LifecycleHooks{
		OnSessionStart:  log,
		OnWaypointEnter: log,
		OnArrived:       log,
		OnSessionEnd:    log,
	}
}
