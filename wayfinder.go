package wayfinder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/aretw0/wayfinder/internal/runtime"
	loamAdapter "github.com/aretw0/wayfinder/pkg/adapters/loam"
	"github.com/aretw0/wayfinder/pkg/config"
	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/aretw0/wayfinder/pkg/feedback"
	"github.com/aretw0/wayfinder/pkg/ports"
	"github.com/google/uuid"
)

// Subscription is a sensor feed into a running engine. It is invalidated
// by Start, Resume and Stop; pushes on an invalidated feed are dropped.
type Subscription = runtime.Subscription

// View is the consistent read side of an engine, republished after every event.
type View = runtime.View

// Clock abstracts wall time, tickers and timers for deterministic tests.
type Clock = runtime.Clock

// VirtualClock is a Clock that only moves when told to.
type VirtualClock = runtime.VirtualClock

// NewVirtualClock returns a clock frozen at start.
func NewVirtualClock(start time.Time) *VirtualClock {
	return runtime.NewVirtualClock(start)
}

// Engine is the high-level entry point for the Wayfinder library.
// It owns one navigation session at a time and serializes every command,
// sample and timer through a single event loop.
type Engine struct {
	loop   *runtime.Loop
	routes ports.RouteRepository
	cfg    config.Config
	hooks  domain.LifecycleHooks
	logger *slog.Logger
	clock  Clock
	tick   *time.Duration
	Name   string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithRoutes injects a route repository, bypassing the default Loam initialization.
func WithRoutes(repo ports.RouteRepository) Option {
	return func(e *Engine) {
		e.routes = repo
	}
}

// WithConfig replaces the default thresholds and timings.
func WithConfig(cfg config.Config) Option {
	return func(e *Engine) {
		e.cfg = cfg
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock replaces the wall clock (tests, replay).
func WithClock(c Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithTickInterval overrides config.Loop.TickInterval. Zero disables the
// internal ticker so ticks must be injected with Tick.
func WithTickInterval(d time.Duration) Option {
	return func(e *Engine) {
		e.tick = &d
	}
}

// New initializes a new Wayfinder Engine.
// By default, it reads routes from a Loam repository at routesPath.
// If WithRoutes is provided, routesPath can be empty and Loam is skipped.
func New(routesPath string, opts ...Option) (*Engine, error) {
	eng := &Engine{cfg: config.Default()}
	for _, opt := range opts {
		opt(eng)
	}

	if err := eng.cfg.Validate(); err != nil {
		return nil, err
	}

	if eng.routes == nil {
		if routesPath == "" {
			return nil, fmt.Errorf("routesPath is required when no route repository is provided")
		}
		loader, err := loamAdapter.Open(routesPath)
		if err != nil {
			return nil, err
		}
		eng.routes = loader
	}
	if routesPath != "" {
		eng.Name = filepath.Base(routesPath)
	}

	if eng.logger == nil {
		eng.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if eng.Name != "" {
		eng.logger = eng.logger.With("routes", eng.Name)
	}

	nav := runtime.NewNavigator(eng.cfg,
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithLogger(eng.logger),
	)

	tick := eng.cfg.Loop.TickInterval
	if eng.tick != nil {
		tick = *eng.tick
	}
	loopOpts := []runtime.LoopOption{
		runtime.WithTickInterval(tick),
		runtime.WithQueueSize(eng.cfg.Loop.QueueSize),
		runtime.WithLoopLogger(eng.logger),
	}
	if eng.clock != nil {
		loopOpts = append(loopOpts, runtime.WithClock(eng.clock))
	}
	eng.loop = runtime.NewLoop(nav, loopOpts...)

	return eng, nil
}

// Run processes events until ctx is cancelled. Commands block until Run is
// active. It may only be called once.
func (e *Engine) Run(ctx context.Context) error {
	return e.loop.Run(ctx)
}

// Done is closed once Run has returned.
func (e *Engine) Done() <-chan struct{} {
	return e.loop.Done()
}

// Start begins a session on the given route. An empty sessionID gets a
// random one and an empty mode means combined. Any running session is
// stopped and its sensor feeds are invalidated before the new session
// begins; a rejected Start leaves it untouched.
func (e *Engine) Start(ctx context.Context, sessionID, routeID string, mode domain.FeedbackMode) (domain.Session, error) {
	route, err := e.routes.GetRoute(ctx, routeID)
	if err != nil {
		return domain.Session{}, err
	}
	if mode, err = runtime.CheckStart(route, mode); err != nil {
		return domain.Session{}, err
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	var out domain.Session
	e.loop.Halt()
	err = e.loop.Do(ctx, func(ctx context.Context, n *runtime.Navigator, now time.Time) error {
		s, err := n.Start(ctx, sessionID, route, mode, now)
		out = s
		return err
	})
	return out, err
}

// Resume continues a stored snapshot on a fresh tracker set. Like Start,
// a rejected Resume leaves the running session untouched.
func (e *Engine) Resume(ctx context.Context, snap domain.Session) (domain.Session, error) {
	route, err := e.routes.GetRoute(ctx, snap.RouteID)
	if err != nil {
		return domain.Session{}, err
	}
	if snap.Mode, err = runtime.CheckResume(snap, route); err != nil {
		return domain.Session{}, err
	}

	var out domain.Session
	e.loop.Halt()
	err = e.loop.Do(ctx, func(ctx context.Context, n *runtime.Navigator, now time.Time) error {
		s, err := n.Resume(ctx, snap, route, now)
		out = s
		return err
	})
	return out, err
}

// Stop ends the session. Feeds and the settle timer are cancelled
// synchronously, so no late sensor callback can mutate the stopped session.
func (e *Engine) Stop(ctx context.Context) error {
	e.loop.Halt()
	return e.loop.Do(ctx, func(ctx context.Context, n *runtime.Navigator, now time.Time) error {
		n.Stop(ctx, now)
		return nil
	})
}

// Advance moves to the next waypoint regardless of policy.
func (e *Engine) Advance(ctx context.Context) error {
	return e.loop.Do(ctx, func(ctx context.Context, n *runtime.Navigator, now time.Time) error {
		return n.Advance(ctx, now)
	})
}

// MarkReached latches arrival on the current waypoint.
func (e *Engine) MarkReached(ctx context.Context) error {
	return e.loop.Do(ctx, func(ctx context.Context, n *runtime.Navigator, now time.Time) error {
		return n.MarkReached(now)
	})
}

// IncrementStep counts one step, as a command rather than a feed sample.
func (e *Engine) IncrementStep(ctx context.Context) error {
	return e.loop.Do(ctx, func(ctx context.Context, n *runtime.Navigator, now time.Time) error {
		return n.IncrementStep(ctx, now)
	})
}

// Tick injects an evaluation tick at the given time.
func (e *Engine) Tick(ctx context.Context, at time.Time) error {
	return e.loop.Tick(ctx, at)
}

// Sync waits until every event queued before the call has been handled.
func (e *Engine) Sync(ctx context.Context) error {
	return e.loop.Do(ctx, func(context.Context, *runtime.Navigator, time.Time) error { return nil })
}

// Subscribe opens a sensor feed bound to the current session.
func (e *Engine) Subscribe() *Subscription {
	return e.loop.Subscribe()
}

// View returns the latest consistent view.
func (e *Engine) View() View {
	return e.loop.View()
}

// Session returns a snapshot of the current session.
func (e *Engine) Session() domain.Session {
	return e.loop.View().Session
}

// CurrentAlignment returns the alignment against the current waypoint.
func (e *Engine) CurrentAlignment() domain.Alignment {
	return e.loop.View().Alignment
}

// CurrentMovement returns the movement summary for the current waypoint.
func (e *Engine) CurrentMovement() domain.Movement {
	return e.loop.View().Movement
}

// CurrentStepStatus returns step progress for the current waypoint.
func (e *Engine) CurrentStepStatus() domain.StepStatus {
	return e.loop.View().Steps
}

// CurrentCue returns the feedback cue for the current alignment.
func (e *Engine) CurrentCue() feedback.Cue {
	return e.loop.View().Cue
}

// Config returns the active configuration.
func (e *Engine) Config() config.Config {
	return e.cfg
}

// Routes returns the underlying route repository.
func (e *Engine) Routes() ports.RouteRepository {
	return e.routes
}

// Watch returns a channel that signals when routes change.
// Returns error if the repository does not support watching.
func (e *Engine) Watch(ctx context.Context) (<-chan string, error) {
	if w, ok := e.routes.(ports.Watchable); ok {
		return w.Watch(ctx)
	}
	return nil, fmt.Errorf("current route repository does not support watching")
}
