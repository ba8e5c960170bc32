package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/wayfinder"
	"github.com/aretw0/wayfinder/pkg/config"
	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/aretw0/wayfinder/pkg/ports"
)

// EntryTickSynthetic marks frames produced by synthesized ticks.
const EntryTickSynthetic EntryType = "tick*"

// DefaultStart is the virtual wall time replays begin at.
var DefaultStart = time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

// Runner replays scripts. It is safe to reuse across runs but not
// concurrently.
type Runner struct {
	Routes  ports.RouteRepository
	Config  config.Config
	Handler Handler
	Logger  *slog.Logger

	// TickInterval spaces synthesized ticks; zero disables them.
	TickInterval time.Duration
	// Tail keeps ticking this long after the last entry so pending settles land.
	Tail      time.Duration
	Start     time.Time
	SessionID string
	Hooks     domain.LifecycleHooks
}

// Option configures a Runner.
type Option func(*Runner)

// WithConfig sets the engine configuration; it also resets the tick
// interval and tail to the values derived from cfg.
func WithConfig(cfg config.Config) Option {
	return func(r *Runner) {
		r.Config = cfg
		r.TickInterval = cfg.Loop.TickInterval
		r.Tail = cfg.Arrival.SettleDelay + cfg.Loop.TickInterval
	}
}

// WithHandler sets the output handler.
func WithHandler(h Handler) Option {
	return func(r *Runner) {
		r.Handler = h
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithTickInterval overrides the synthesized tick spacing.
func WithTickInterval(d time.Duration) Option {
	return func(r *Runner) {
		r.TickInterval = d
	}
}

// WithTail overrides how long ticking continues after the last entry.
func WithTail(d time.Duration) Option {
	return func(r *Runner) {
		r.Tail = d
	}
}

// WithStart sets the virtual start time.
func WithStart(t time.Time) Option {
	return func(r *Runner) {
		r.Start = t
	}
}

// WithSessionID names the replayed session.
func WithSessionID(id string) Option {
	return func(r *Runner) {
		r.SessionID = id
	}
}

// WithLifecycleHooks adds hooks called alongside the handler, for example metrics.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(r *Runner) {
		r.Hooks = hooks
	}
}

// NewRunner creates a runner over routes.
func NewRunner(routes ports.RouteRepository, opts ...Option) *Runner {
	r := &Runner{
		Routes:    routes,
		Handler:   nopHandler{},
		Logger:    slog.New(slog.NewJSONHandler(io.Discard, nil)),
		Start:     DefaultStart,
		SessionID: "replay",
	}
	WithConfig(config.Default())(r)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type pendingEvent struct {
	at    time.Time
	event domain.NavigationEvent
}

// replay holds the state of one Run.
type replay struct {
	*Runner
	clock *wayfinder.VirtualClock
	eng   *wayfinder.Engine
	sub   *wayfinder.Subscription
	last  domain.Session

	mu     sync.Mutex
	events []pendingEvent
}

// Run replays script on routeID and returns the final view.
func (r *Runner) Run(ctx context.Context, script io.Reader, routeID string, mode domain.FeedbackMode) (wayfinder.View, error) {
	entries, err := ReadScript(script)
	if err != nil {
		return wayfinder.View{}, err
	}
	return r.RunEntries(ctx, entries, routeID, mode)
}

// RunEntries replays already parsed entries.
func (r *Runner) RunEntries(ctx context.Context, entries []Entry, routeID string, mode domain.FeedbackMode) (wayfinder.View, error) {
	rp := &replay{Runner: r, clock: wayfinder.NewVirtualClock(r.Start)}

	eng, err := wayfinder.New("",
		wayfinder.WithRoutes(r.Routes),
		wayfinder.WithConfig(r.Config),
		wayfinder.WithClock(rp.clock),
		wayfinder.WithTickInterval(0),
		wayfinder.WithLogger(r.Logger),
		wayfinder.WithLifecycleHooks(domain.ChainHooks(r.Hooks, rp.capture())),
	)
	if err != nil {
		return wayfinder.View{}, err
	}
	rp.eng = eng

	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		<-eng.Done()
	}()
	go func() { _ = eng.Run(ctx) }()

	snap, err := eng.Start(ctx, r.SessionID, routeID, mode)
	if err != nil {
		return wayfinder.View{}, err
	}
	rp.sub = eng.Subscribe()
	r.Logger.Info("Replay Started", "session_id", snap.ID, "route_id", routeID, "entries", len(entries))

	if err := rp.flush(ctx, 0, ""); err != nil {
		return wayfinder.View{}, err
	}

	nextTick := r.TickInterval
	var last time.Duration
	for _, e := range entries {
		if err := rp.ticksUntil(ctx, &nextTick, e.Offset()); err != nil {
			return wayfinder.View{}, err
		}
		rp.clock.Set(rp.at(e.Offset()))
		if err := rp.apply(ctx, e); err != nil {
			return wayfinder.View{}, err
		}
		if err := rp.flush(ctx, e.AtMS, e.Type); err != nil {
			return wayfinder.View{}, err
		}
		last = e.Offset()
	}

	if err := rp.ticksUntil(ctx, &nextTick, last+r.Tail); err != nil {
		return wayfinder.View{}, err
	}
	rp.clock.Set(rp.at(last + r.Tail))
	if err := rp.flushChanged(ctx, (last + r.Tail).Milliseconds()); err != nil {
		return wayfinder.View{}, err
	}
	return eng.View(), nil
}

func (rp *replay) at(offset time.Duration) time.Time {
	return rp.Start.Add(offset)
}

func (rp *replay) capture() domain.LifecycleHooks {
	record := func(_ context.Context, e *domain.NavigationEvent) {
		rp.mu.Lock()
		rp.events = append(rp.events, pendingEvent{at: e.Timestamp, event: *e})
		rp.mu.Unlock()
	}
	return domain.LifecycleHooks{
		OnSessionStart:  record,
		OnWaypointEnter: record,
		OnArrived:       record,
		OnSessionEnd:    record,
	}
}

// ticksUntil injects every synthesized tick due at or before offset. Moving
// the clock first fires settle timers that fall between ticks.
func (rp *replay) ticksUntil(ctx context.Context, next *time.Duration, offset time.Duration) error {
	if rp.TickInterval <= 0 {
		return nil
	}
	for *next <= offset {
		at := rp.at(*next)
		rp.clock.Set(at)
		if err := rp.eng.Tick(ctx, at); err != nil {
			return err
		}
		if err := rp.flushChanged(ctx, next.Milliseconds()); err != nil {
			return err
		}
		*next += rp.TickInterval
	}
	return nil
}

func (rp *replay) apply(ctx context.Context, e Entry) error {
	at := rp.clock.Now()
	var err error
	switch e.Type {
	case EntryTick:
		err = rp.eng.Tick(ctx, at)
	case EntryAdvance:
		err = rp.eng.Advance(ctx)
	case EntryReached:
		err = rp.eng.MarkReached(ctx)
	case EntryStop:
		err = rp.eng.Stop(ctx)
	default:
		err = e.Push(rp.sub, at)
	}
	if errors.Is(err, domain.ErrSessionInactive) {
		rp.Logger.Debug("Command Ignored On Inactive Session", "at_ms", e.AtMS, "type", e.Type)
		return nil
	}
	if err != nil {
		return fmt.Errorf("at_ms %d %s: %w", e.AtMS, e.Type, err)
	}
	return nil
}

// flush waits for the loop, then emits captured events followed by a frame.
func (rp *replay) flush(ctx context.Context, atMS int64, entry EntryType) error {
	if err := rp.drain(ctx); err != nil {
		return err
	}
	view := rp.eng.View()
	rp.last = view.Session
	return rp.Handler.Frame(ctx, Frame{AtMS: atMS, Entry: entry, View: view})
}

// flushChanged emits a frame only when the session itself changed.
func (rp *replay) flushChanged(ctx context.Context, atMS int64) error {
	if err := rp.drain(ctx); err != nil {
		return err
	}
	view := rp.eng.View()
	if domain.Diff(&rp.last, &view.Session) == nil {
		return nil
	}
	rp.last = view.Session
	return rp.Handler.Frame(ctx, Frame{AtMS: atMS, Entry: EntryTickSynthetic, View: view})
}

func (rp *replay) drain(ctx context.Context) error {
	if err := rp.eng.Sync(ctx); err != nil {
		return err
	}
	rp.mu.Lock()
	events := rp.events
	rp.events = nil
	rp.mu.Unlock()

	for _, pe := range events {
		if err := rp.Handler.Event(ctx, pe.at.Sub(rp.Start).Milliseconds(), pe.event); err != nil {
			return err
		}
	}
	return nil
}
