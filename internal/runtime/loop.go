package runtime

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/aretw0/wayfinder/pkg/feedback"
)

// ErrLoopClosed is returned when posting to a loop that has stopped running.
var ErrLoopClosed = errors.New("event loop closed")

// ErrLoopRunning is returned by a second concurrent call to Run.
var ErrLoopRunning = errors.New("event loop already running")

// View is the read side of the loop, republished after every event.
type View struct {
	Session   domain.Session    `json:"session"`
	Alignment domain.Alignment  `json:"alignment"`
	Movement  domain.Movement   `json:"movement"`
	Steps     domain.StepStatus `json:"steps"`
	Cue       feedback.Cue      `json:"cue"`
}

type sampleKind int

const (
	sampleHeading sampleKind = iota
	sampleAccel
	sampleStep
)

type sampleEvent struct {
	feed  uint64
	kind  sampleKind
	deg   float64
	accel domain.Vector
	at    time.Time
}

type tickEvent struct {
	feed uint64
	at   time.Time
}

type settleEvent struct {
	feed   uint64
	commit Commit
}

type commandEvent struct {
	feed  uint64
	fn    func(ctx context.Context, n *Navigator, now time.Time) error
	reply chan error
}

// maxSampleSkew is how far a sample timestamp may sit from the loop clock
// before the feed is re-anchored to it.
const maxSampleSkew = time.Second

// Loop is the single writer of a Navigator. Sensor samples, step events,
// evaluation ticks, settle timers and commands are all funneled through one
// ordered queue and handled sequentially by Run. Readers use View.
type Loop struct {
	nav    *Navigator
	clock  Clock
	tick   time.Duration
	logger *slog.Logger

	events    chan any
	done      chan struct{}
	closeOnce sync.Once
	running   atomic.Bool

	// feed is the current feed generation. Halt bumps it so samples, ticks
	// and settle commits stamped with an older value are dropped, even when
	// already queued.
	feed atomic.Uint64

	// armed is the feed the running session was started under. While it
	// lags feed the session is being halted and nothing may advance it.
	// Only the loop goroutine touches it.
	armed uint64

	viewMu sync.RWMutex
	view   View

	timerMu sync.Mutex
	settle  Timer

	subsMu sync.Mutex
	subs   map[*Subscription]struct{}
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithClock replaces the wall clock.
func WithClock(c Clock) LoopOption {
	return func(l *Loop) {
		l.clock = c
	}
}

// WithTickInterval sets the evaluation period. Zero disables the ticker;
// ticks can then only be injected with Tick.
func WithTickInterval(d time.Duration) LoopOption {
	return func(l *Loop) {
		l.tick = d
	}
}

// WithQueueSize sets the event queue capacity.
func WithQueueSize(n int) LoopOption {
	return func(l *Loop) {
		l.events = make(chan any, n)
	}
}

// WithLoopLogger sets the structured logger.
func WithLoopLogger(logger *slog.Logger) LoopOption {
	return func(l *Loop) {
		l.logger = logger
	}
}

// NewLoop wraps a navigator. The navigator must not be used directly afterwards.
func NewLoop(nav *Navigator, opts ...LoopOption) *Loop {
	l := &Loop{
		nav:    nav,
		clock:  SystemClock{},
		tick:   200 * time.Millisecond,
		logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
		events: make(chan any, 256),
		done:   make(chan struct{}),
		subs:   make(map[*Subscription]struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.publish()
	return l
}

// Run processes events until ctx is cancelled. It may only be called once.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrLoopRunning
	}
	defer l.closeOnce.Do(func() { close(l.done) })
	defer l.Halt()

	var tickC <-chan time.Time
	if l.tick > 0 {
		ticker := l.clock.NewTicker(l.tick)
		defer ticker.Stop()
		tickC = ticker.C()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-l.events:
			l.dispatch(ctx, e)
		case now := <-tickC:
			l.dispatch(ctx, tickEvent{feed: l.armed, at: now})
		}
	}
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Do runs fn on the loop goroutine and waits for its result.
func (l *Loop) Do(ctx context.Context, fn func(ctx context.Context, n *Navigator, now time.Time) error) error {
	reply := make(chan error, 1)
	if err := l.post(ctx, commandEvent{feed: l.feed.Load(), fn: fn, reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrLoopClosed
	}
}

// Tick injects an evaluation tick at the given time.
func (l *Loop) Tick(ctx context.Context, at time.Time) error {
	return l.post(ctx, tickEvent{feed: l.feed.Load(), at: at})
}

// Halt synchronously invalidates every sensor subscription and cancels the
// settle timer. Samples, ticks and settle commits already queued are dropped
// when dequeued, and the session cannot advance until a command posted after
// Halt starts a new one. The session itself is stopped by a command afterwards.
func (l *Loop) Halt() {
	l.subsMu.Lock()
	l.feed.Add(1)
	subs := make([]*Subscription, 0, len(l.subs))
	for s := range l.subs {
		subs = append(subs, s)
	}
	l.subs = make(map[*Subscription]struct{})
	l.subsMu.Unlock()

	l.cancelSettle()
	for _, s := range subs {
		s.close()
	}
}

// Subscribe opens a sensor feed bound to the current feed generation.
func (l *Loop) Subscribe() *Subscription {
	l.subsMu.Lock()
	defer l.subsMu.Unlock()
	s := &Subscription{loop: l, feed: l.feed.Load()}
	l.subs[s] = struct{}{}
	return s
}

// View returns the latest published view.
func (l *Loop) View() View {
	l.viewMu.RLock()
	defer l.viewMu.RUnlock()
	return l.view
}

func (l *Loop) dispatch(ctx context.Context, e any) {
	switch ev := e.(type) {
	case sampleEvent:
		// steps could still open the gate of a session being halted
		if ev.feed != l.feed.Load() || (ev.kind == sampleStep && l.halting()) {
			l.logger.Debug("Stale Sample Dropped", "feed", ev.feed)
			return
		}
		switch ev.kind {
		case sampleHeading:
			l.nav.ObserveHeading(ev.deg, ev.at)
		case sampleAccel:
			l.nav.ObserveAccel(ev.accel, ev.at)
		case sampleStep:
			if err := l.nav.IncrementStep(ctx, ev.at); err != nil {
				l.logger.Debug("Step Ignored", "err", err)
			}
		}
	case tickEvent:
		if !l.live(ev.feed) {
			l.logger.Debug("Stale Tick Dropped", "feed", ev.feed)
			return
		}
		if c := l.nav.Tick(ctx, ev.at); c != nil {
			l.armSettle(*c, ev.at)
		}
	case settleEvent:
		if !l.live(ev.feed) {
			l.logger.Debug("Stale Commit Dropped", "feed", ev.feed, "epoch", ev.commit.Epoch)
			return
		}
		l.nav.Settle(ctx, ev.commit, l.clock.Now())
	case commandEvent:
		gen := l.nav.Session().Generation
		err := ev.fn(ctx, l.nav, l.clock.Now())
		if s := l.nav.Session(); s.Active && s.Generation != gen {
			// a session started by this command runs under the feed it was posted with
			l.armed = ev.feed
		}
		// publish before replying so callers read their own writes
		l.publish()
		ev.reply <- err
		return
	}
	l.publish()
}

// halting reports whether Halt ran after the current session was started.
func (l *Loop) halting() bool {
	return l.armed != l.feed.Load()
}

// live reports whether an event stamped with feed may still touch the session.
func (l *Loop) live(feed uint64) bool {
	return feed == l.feed.Load() && !l.halting()
}

func (l *Loop) publish() {
	now := l.clock.Now()
	v := View{
		Session:   l.nav.Session(),
		Alignment: l.nav.Alignment(),
		Movement:  l.nav.Movement(now),
		Steps:     l.nav.Steps(),
		Cue:       l.nav.Cue(now),
	}
	l.viewMu.Lock()
	l.view = v
	l.viewMu.Unlock()
}

func (l *Loop) armSettle(c Commit, now time.Time) {
	l.timerMu.Lock()
	defer l.timerMu.Unlock()
	if l.settle != nil {
		l.settle.Stop()
	}
	feed := l.armed
	l.settle = l.clock.AfterFunc(c.Due.Sub(now), func() {
		// a timer racing Halt posts a commit dropped as stale
		_ = l.post(context.Background(), settleEvent{feed: feed, commit: c})
	})
}

func (l *Loop) cancelSettle() {
	l.timerMu.Lock()
	defer l.timerMu.Unlock()
	if l.settle != nil {
		l.settle.Stop()
		l.settle = nil
	}
}

func (l *Loop) post(ctx context.Context, e any) error {
	select {
	case <-l.done:
		return ErrLoopClosed
	default:
	}
	select {
	case l.events <- e:
		return nil
	case <-l.done:
		return ErrLoopClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) unsubscribe(s *Subscription) {
	l.subsMu.Lock()
	delete(l.subs, s)
	l.subsMu.Unlock()
}

// Subscription is a handle for one sensor source. Once closed, by the
// source or by Halt, every push is silently discarded.
type Subscription struct {
	loop   *Loop
	feed   uint64
	closed atomic.Bool

	mu      sync.Mutex
	onClose []func()

	// source timestamps are shifted by skew onto the loop clock
	clockMu  sync.Mutex
	anchored bool
	skew     time.Duration
	last     time.Time
}

// PushHeading forwards a compass sample. A zero timestamp means now.
// Timestamps are taken in the source's time base: the first sample anchors
// it to the loop clock, the spacing between samples is kept, and a sample
// drifting more than a second from the loop clock re-anchors the feed.
// Samples never go back in time.
func (s *Subscription) PushHeading(deg float64, at time.Time) error {
	return s.push(sampleEvent{kind: sampleHeading, deg: deg, at: at})
}

// PushAccel forwards an accelerometer sample.
func (s *Subscription) PushAccel(v domain.Vector, at time.Time) error {
	return s.push(sampleEvent{kind: sampleAccel, accel: v, at: at})
}

// PushStep forwards one step event.
func (s *Subscription) PushStep(at time.Time) error {
	return s.push(sampleEvent{kind: sampleStep, at: at})
}

// Active reports whether pushes are still accepted.
func (s *Subscription) Active() bool { return !s.closed.Load() }

// OnClose registers fn to run when the subscription closes. If it is
// already closed fn runs immediately.
func (s *Subscription) OnClose(fn func()) {
	s.mu.Lock()
	if !s.closed.Load() {
		s.onClose = append(s.onClose, fn)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	fn()
}

// Close detaches the source.
func (s *Subscription) Close() {
	s.loop.unsubscribe(s)
	s.close()
}

func (s *Subscription) close() {
	s.mu.Lock()
	if s.closed.Swap(true) {
		s.mu.Unlock()
		return
	}
	fns := s.onClose
	s.onClose = nil
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (s *Subscription) push(e sampleEvent) error {
	if s.closed.Load() {
		return nil
	}
	e.at = s.rebase(e.at)
	e.feed = s.feed
	return s.loop.post(context.Background(), e)
}

// rebase maps a source timestamp onto the loop clock.
func (s *Subscription) rebase(at time.Time) time.Time {
	now := s.loop.clock.Now()
	if at.IsZero() {
		at = now
	}

	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	t := at.Add(s.skew)
	if d := t.Sub(now); !s.anchored || d > maxSampleSkew || d < -maxSampleSkew {
		s.anchored = true
		s.skew = now.Sub(at)
		t = now
	}
	if t.Before(s.last) {
		t = s.last
	}
	s.last = t
	return t
}
