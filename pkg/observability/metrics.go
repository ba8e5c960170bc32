package observability

import (
	"context"

	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the navigation collectors.
type Metrics struct {
	sessionsStarted  *prometheus.CounterVec
	sessionsEnded    *prometheus.CounterVec
	sessionsActive   prometheus.Gauge
	waypointsEntered *prometheus.CounterVec
	arrivals         *prometheus.CounterVec
	dwell            *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		sessionsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wayfinder_sessions_started_total",
			Help: "Sessions started or resumed.",
		}, []string{"route_id", "mode"}),
		sessionsEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wayfinder_sessions_ended_total",
			Help: "Sessions ended, by reason.",
		}, []string{"route_id", "reason"}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wayfinder_sessions_active",
			Help: "Sessions currently navigating.",
		}),
		waypointsEntered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wayfinder_waypoints_entered_total",
			Help: "Waypoint entries.",
		}, []string{"route_id"}),
		arrivals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wayfinder_arrivals_total",
			Help: "Arrivals detected, by policy.",
		}, []string{"route_id", "policy"}),
		dwell: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wayfinder_waypoint_dwell_seconds",
			Help:    "Time from entering a waypoint to arriving at it.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}, []string{"policy"}),
	}

	for _, c := range []prometheus.Collector{
		m.sessionsStarted, m.sessionsEnded, m.sessionsActive,
		m.waypointsEntered, m.arrivals, m.dwell,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSessionStart: func(_ context.Context, e *domain.NavigationEvent) {
			m.sessionsStarted.WithLabelValues(e.RouteID, string(e.Mode)).Inc()
			m.sessionsActive.Inc()
		},
		OnWaypointEnter: func(_ context.Context, e *domain.NavigationEvent) {
			m.waypointsEntered.WithLabelValues(e.RouteID).Inc()
		},
		OnArrived: func(_ context.Context, e *domain.NavigationEvent) {
			m.arrivals.WithLabelValues(e.RouteID, e.Policy).Inc()
			m.dwell.WithLabelValues(e.Policy).Observe(e.Dwell.Seconds())
		},
		OnSessionEnd: func(_ context.Context, e *domain.NavigationEvent) {
			m.sessionsEnded.WithLabelValues(e.RouteID, string(e.Reason)).Inc()
			m.sessionsActive.Dec()
		},
	}
}
