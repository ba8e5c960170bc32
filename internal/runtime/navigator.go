package runtime

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/wayfinder/pkg/alignment"
	"github.com/aretw0/wayfinder/pkg/arrival"
	"github.com/aretw0/wayfinder/pkg/config"
	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/aretw0/wayfinder/pkg/feedback"
	"github.com/aretw0/wayfinder/pkg/movement"
	"github.com/aretw0/wayfinder/pkg/stepgate"
)

// Navigator is the session state machine. It is single-threaded: every
// method must be called from one goroutine (the Loop) with a timestamp.
//
// All per-waypoint tracking lives in a tracker keyed by the session epoch.
// A transition replaces the tracker and bumps the epoch in the same call,
// so nothing computed for the previous waypoint can reach the new one.
type Navigator struct {
	cfg    config.Config
	mapper feedback.Mapper
	hooks  domain.LifecycleHooks
	logger *slog.Logger

	session domain.Session
	route   *domain.Route
	heading domain.Heading
	track   *tracker
}

type tracker struct {
	epoch     uint64
	enteredAt time.Time
	movement  *movement.Detector
	arrival   *arrival.Detector
	pending   *Commit
}

// Commit is a confirmed arrival waiting out the settle delay.
type Commit struct {
	Epoch      uint64
	Generation uint64
	Due        time.Time
}

// NavigatorOption configures a Navigator.
type NavigatorOption func(*Navigator)

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) NavigatorOption {
	return func(n *Navigator) {
		n.hooks = hooks
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) NavigatorOption {
	return func(n *Navigator) {
		n.logger = logger
	}
}

// NewNavigator creates an inactive navigator. cfg must already be validated.
func NewNavigator(cfg config.Config, opts ...NavigatorOption) *Navigator {
	n := &Navigator{
		cfg:    cfg,
		mapper: feedback.NewMapper(cfg.Feedback),
		logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// CheckStart reports whether Start would accept route and mode, without
// touching any session. It returns the normalized mode.
func CheckStart(route *domain.Route, mode domain.FeedbackMode) (domain.FeedbackMode, error) {
	if err := route.Navigable(); err != nil {
		return "", err
	}
	return domain.ParseFeedbackMode(string(mode))
}

// CheckResume is CheckStart for a stored snapshot, whose waypoint index
// must also fall inside route.
func CheckResume(snap domain.Session, route *domain.Route) (domain.FeedbackMode, error) {
	mode, err := CheckStart(route, snap.Mode)
	if err != nil {
		return "", err
	}
	if snap.CurrentWaypointIndex < 0 || snap.CurrentWaypointIndex >= route.Len() {
		return "", domain.NewConfigurationError("session.current_waypoint_index",
			"%d is outside route %q (%d waypoints)", snap.CurrentWaypointIndex, route.ID, route.Len())
	}
	return mode, nil
}

// Start begins navigating route from its first waypoint. A route without
// waypoints is rejected with a ConfigurationError and nothing changes.
func (n *Navigator) Start(ctx context.Context, sessionID string, route *domain.Route, mode domain.FeedbackMode, now time.Time) (domain.Session, error) {
	mode, err := CheckStart(route, mode)
	if err != nil {
		return n.session, err
	}
	if n.session.Active {
		n.end(ctx, now, domain.EndStopped)
	}

	n.route = route.Clone()
	n.session = domain.Session{
		ID:             sessionID,
		RouteID:        route.ID,
		Mode:           mode,
		Active:         true,
		TotalWaypoints: route.Len(),
		Epoch:          n.session.Epoch + 1,
		Generation:     n.session.Generation + 1,
		StartedAt:      now,
		UpdatedAt:      now,
	}
	n.resetTracker(now)

	n.logger.Info("Session Started", "session_id", sessionID, "route_id", route.ID, "mode", mode)
	n.emit(ctx, n.hooks.OnSessionStart, n.event(domain.EventSessionStart, now))
	n.emit(ctx, n.hooks.OnWaypointEnter, n.event(domain.EventWaypointEnter, now))
	return n.session, nil
}

// Resume restores a snapshot on a fresh tracker set. The step count and
// reached latch are kept; every timer starts over.
func (n *Navigator) Resume(ctx context.Context, snap domain.Session, route *domain.Route, now time.Time) (domain.Session, error) {
	mode, err := CheckResume(snap, route)
	if err != nil {
		return n.session, err
	}
	if n.session.Active {
		n.end(ctx, now, domain.EndStopped)
	}

	prevEpoch, prevGen := n.session.Epoch, n.session.Generation
	n.route = route.Clone()
	n.session = snap
	n.session.RouteID = route.ID
	n.session.Mode = mode
	n.session.Active = true
	n.session.Completed = false
	n.session.EndedAt = nil
	n.session.TotalWaypoints = route.Len()
	n.session.Epoch = max(prevEpoch, snap.Epoch) + 1
	n.session.Generation = max(prevGen, snap.Generation) + 1
	n.session.UpdatedAt = now
	n.resetTracker(now)

	n.logger.Info("Session Resumed", "session_id", snap.ID, "waypoint", snap.CurrentWaypointIndex)
	n.emit(ctx, n.hooks.OnSessionStart, n.event(domain.EventSessionStart, now))
	n.emit(ctx, n.hooks.OnWaypointEnter, n.event(domain.EventWaypointEnter, now))
	return n.session, nil
}

// Advance moves to the next waypoint. Advancing past the last waypoint
// completes the session.
func (n *Navigator) Advance(ctx context.Context, now time.Time) error {
	if !n.session.Active {
		return domain.ErrSessionInactive
	}
	n.advance(ctx, now)
	return nil
}

// MarkReached latches arrival on the current waypoint without moving.
func (n *Navigator) MarkReached(now time.Time) error {
	if !n.session.Active {
		return domain.ErrSessionInactive
	}
	n.session.ReachedCurrent = true
	n.session.UpdatedAt = now
	return nil
}

// IncrementStep counts one step. Under the step gate policy the gate is
// evaluated immediately.
func (n *Navigator) IncrementStep(ctx context.Context, now time.Time) error {
	if !n.session.Active {
		return domain.ErrSessionInactive
	}
	n.session.CurrentStepCount++
	n.session.UpdatedAt = now
	if n.session.Mode.Policy() == domain.PolicyStepGate {
		n.evaluateStepGate(ctx, now, n.evaluateAlignment())
	}
	return nil
}

// Stop deactivates the session. Stopping an inactive session is a no-op.
func (n *Navigator) Stop(ctx context.Context, now time.Time) {
	if !n.session.Active {
		return
	}
	n.end(ctx, now, domain.EndStopped)
}

// ObserveHeading records a compass sample. The latest heading is kept even
// while inactive so a session can start with a known orientation.
func (n *Navigator) ObserveHeading(deg float64, now time.Time) {
	n.heading = domain.HeadingOf(deg)
	if n.track != nil {
		n.track.movement.ObserveHeading(deg, now)
	}
}

// ObserveAccel records an accelerometer sample.
func (n *Navigator) ObserveAccel(v domain.Vector, now time.Time) {
	if n.track != nil {
		n.track.movement.ObserveAccel(v, now)
	}
}

// Tick runs one evaluation. When it confirms an arrival that must wait for
// the settle delay, the pending Commit is returned so the caller can arm a timer.
func (n *Navigator) Tick(ctx context.Context, now time.Time) *Commit {
	if !n.session.Active || n.track == nil {
		return nil
	}
	t := n.track

	if t.pending != nil {
		// grace period: further arrivals are ignored
		if !now.Before(t.pending.Due) {
			n.logger.Debug("Settle Elapsed On Tick", "session_id", n.session.ID, "epoch", t.epoch)
			n.advance(ctx, now)
		}
		return nil
	}

	res := n.evaluateAlignment()
	t.movement.TrackAlignment(res.Aligned, now)

	switch n.session.Mode.Policy() {
	case domain.PolicyArrival:
		wp := n.currentWaypoint()
		if t.arrival.Evaluate(wp, res.Aligned, t.movement, now) {
			return n.arrive(ctx, now, string(arrival.PolicyFor(wp)))
		}
	case domain.PolicyStepGate:
		n.evaluateStepGate(ctx, now, res)
	}
	return nil
}

// Settle commits a pending arrival. Commits for another epoch or generation,
// or with nothing pending, are stale and ignored.
func (n *Navigator) Settle(ctx context.Context, c Commit, now time.Time) bool {
	if !n.session.Active || n.track == nil || n.track.pending == nil {
		return false
	}
	if c.Epoch != n.session.Epoch || c.Generation != n.session.Generation {
		n.logger.Debug("Stale Commit Dropped", "session_id", n.session.ID, "epoch", c.Epoch, "current_epoch", n.session.Epoch)
		return false
	}
	n.advance(ctx, now)
	return true
}

// Session returns a snapshot of the session.
func (n *Navigator) Session() domain.Session { return n.session }

// Route returns the route being navigated, nil before the first Start.
func (n *Navigator) Route() *domain.Route { return n.route }

// Heading returns the latest compass reading.
func (n *Navigator) Heading() domain.Heading { return n.heading }

// Pending returns the commit waiting for the settle delay, if any.
func (n *Navigator) Pending() (Commit, bool) {
	if n.track == nil || n.track.pending == nil {
		return Commit{}, false
	}
	return *n.track.pending, true
}

// Alignment builds the currentAlignment view.
func (n *Navigator) Alignment() domain.Alignment {
	if n.route == nil {
		return domain.Alignment{}
	}
	wp := n.currentWaypoint()
	res := n.evaluateAlignment()
	return domain.Alignment{
		Direction:      wp.Instruction,
		TargetHeading:  wp.Target().Ptr(),
		CurrentHeading: n.heading.Ptr(),
		Error:          res.ErrorPtr(),
		AbsError:       res.AbsErrorPtr(),
		Aligned:        res.Aligned,
		WaypointIndex:  n.session.CurrentWaypointIndex,
		TotalWaypoints: n.session.TotalWaypoints,
		IsFinal:        n.session.IsFinal(),
	}
}

// Movement builds the currentMovement view.
func (n *Navigator) Movement(now time.Time) domain.Movement {
	if n.track == nil {
		return domain.Movement{}
	}
	return n.track.movement.Snapshot(now)
}

// Steps builds the currentStepStatus view.
func (n *Navigator) Steps() domain.StepStatus {
	if n.route == nil {
		return domain.StepStatus{}
	}
	wp := n.currentWaypoint()
	return stepgate.Evaluate(n.session.CurrentStepCount, wp.RequiredSteps, n.evaluateAlignment().Aligned)
}

// Cue returns the feedback cue for the current alignment, boosted by movement confidence.
func (n *Navigator) Cue(now time.Time) feedback.Cue {
	if n.route == nil || !n.session.Active {
		return feedback.Cue{Pattern: feedback.Silent}
	}
	return n.mapper.MapWithMovement(n.evaluateAlignment(), n.Movement(now).MovementConfidence)
}

func (n *Navigator) arrive(ctx context.Context, now time.Time, policy string) *Commit {
	n.session.ReachedCurrent = true
	n.session.UpdatedAt = now

	evt := n.event(domain.EventArrived, now)
	evt.Policy = policy
	evt.Dwell = now.Sub(n.track.enteredAt)
	n.logger.Info("Waypoint Arrived", "session_id", n.session.ID, "waypoint", n.session.CurrentWaypointIndex, "policy", policy)
	n.emit(ctx, n.hooks.OnArrived, evt)

	if n.cfg.Arrival.SettleDelay <= 0 {
		n.advance(ctx, now)
		return nil
	}
	n.track.pending = &Commit{
		Epoch:      n.session.Epoch,
		Generation: n.session.Generation,
		Due:        now.Add(n.cfg.Arrival.SettleDelay),
	}
	c := *n.track.pending
	return &c
}

func (n *Navigator) evaluateStepGate(ctx context.Context, now time.Time, res alignment.Result) {
	wp := n.currentWaypoint()
	if !stepgate.CanAdvance(n.session.CurrentStepCount, wp.RequiredSteps, res.Aligned) {
		return
	}
	n.session.ReachedCurrent = true
	evt := n.event(domain.EventArrived, now)
	evt.Policy = domain.PolicyStepGate.String()
	evt.Dwell = now.Sub(n.track.enteredAt)
	n.emit(ctx, n.hooks.OnArrived, evt)
	n.advance(ctx, now)
}

func (n *Navigator) advance(ctx context.Context, now time.Time) {
	next := n.session.CurrentWaypointIndex + 1
	if next >= n.route.Len() {
		n.end(ctx, now, domain.EndCompleted)
		return
	}

	n.session.CurrentWaypointIndex = next
	n.session.CurrentStepCount = 0
	n.session.ReachedCurrent = false
	n.session.Epoch++
	n.session.UpdatedAt = now
	n.resetTracker(now)

	n.logger.Debug("Waypoint Entered", "session_id", n.session.ID, "waypoint", next, "epoch", n.session.Epoch)
	n.emit(ctx, n.hooks.OnWaypointEnter, n.event(domain.EventWaypointEnter, now))
}

func (n *Navigator) end(ctx context.Context, now time.Time, reason domain.EndReason) {
	evt := n.event(domain.EventSessionEnd, now)
	evt.Reason = reason
	if n.track != nil {
		evt.Dwell = now.Sub(n.track.enteredAt)
	}

	ended := now
	n.session.Active = false
	n.session.Completed = reason == domain.EndCompleted
	n.session.CurrentStepCount = 0
	n.session.Epoch++
	n.session.Generation++
	n.session.UpdatedAt = now
	n.session.EndedAt = &ended
	n.track = nil

	n.logger.Info("Session Ended", "session_id", n.session.ID, "reason", reason)
	n.emit(ctx, n.hooks.OnSessionEnd, evt)
}

func (n *Navigator) resetTracker(now time.Time) {
	t := &tracker{
		epoch:     n.session.Epoch,
		enteredAt: now,
		movement:  movement.New(n.cfg.Movement),
		arrival:   arrival.New(n.cfg.Arrival, n.cfg.Movement.StableWindow),
	}
	t.movement.Reset(n.heading)
	n.track = t
}

func (n *Navigator) currentWaypoint() domain.Waypoint {
	return n.route.Waypoints[n.session.CurrentWaypointIndex]
}

func (n *Navigator) evaluateAlignment() alignment.Result {
	return alignment.EvaluateHeadings(n.heading, n.currentWaypoint().Target(), n.cfg.Alignment.ThresholdDeg)
}

func (n *Navigator) event(typ domain.EventType, now time.Time) *domain.NavigationEvent {
	e := &domain.NavigationEvent{
		Timestamp:     now,
		Type:          typ,
		SessionID:     n.session.ID,
		RouteID:       n.session.RouteID,
		Mode:          n.session.Mode,
		WaypointIndex: n.session.CurrentWaypointIndex,
		Epoch:         n.session.Epoch,
	}
	if n.route != nil && n.session.CurrentWaypointIndex < n.route.Len() {
		e.WaypointID = n.route.Waypoints[n.session.CurrentWaypointIndex].ID
	}
	return e
}

func (n *Navigator) emit(ctx context.Context, hook func(context.Context, *domain.NavigationEvent), e *domain.NavigationEvent) {
	if hook != nil {
		hook(ctx, e)
	}
}
