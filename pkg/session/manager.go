package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/wayfinder"
	"github.com/aretw0/wayfinder/internal/logging"
	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/aretw0/wayfinder/pkg/ports"
	"github.com/google/uuid"
)

// ErrNoStore is returned by operations that need a SessionStore when none is configured.
var ErrNoStore = errors.New("no session store configured")

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// handle is one running engine.
type handle struct {
	engine *wayfinder.Engine
	cancel context.CancelFunc
	dirty  atomic.Bool
}

// Manager orchestrates session access, ensuring safe concurrent operations.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	routes     ports.RouteRepository
	store      ports.SessionStore
	locker     ports.DistributedLocker
	lockTTL    time.Duration
	hooks      domain.LifecycleHooks
	engineOpts []wayfinder.Option
	logger     *slog.Logger

	mu    sync.Mutex            // guards locks and open
	locks map[string]*lockEntry // per-session locks
	open  map[string]*handle    // running engines

	checkpoints sync.WaitGroup
}

// Option configures the Manager.
type Option func(*Manager)

// WithStore enables checkpointing and Resume.
func WithStore(store ports.SessionStore) Option {
	return func(m *Manager) {
		m.store = store
	}
}

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets how long a distributed lock survives a crashed holder.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithLifecycleHooks registers hooks that every session shares.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(m *Manager) {
		m.hooks = hooks
	}
}

// WithEngineOptions passes options to every engine the manager creates.
// Routes, logger and hooks are always set by the manager itself.
func WithEngineOptions(opts ...wayfinder.Option) Option {
	return func(m *Manager) {
		m.engineOpts = append(m.engineOpts, opts...)
	}
}

// NewManager creates a new Session Manager reading routes from repo.
func NewManager(routes ports.RouteRepository, opts ...Option) *Manager {
	m := &Manager{
		routes:  routes,
		lockTTL: 30 * time.Second,
		locks:   make(map[string]*lockEntry),
		open:    make(map[string]*handle),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// WithLock executes a function while holding the lock for the session.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Open starts a session on routeID. An empty sessionID gets a random one.
// Opening an id that is already running restarts it on the new route.
func (m *Manager) Open(ctx context.Context, sessionID, routeID string, mode domain.FeedbackMode) (domain.Session, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	var out domain.Session
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		h, created, err := m.ensure(sessionID)
		if err != nil {
			return err
		}
		out, err = h.engine.Start(ctx, sessionID, routeID, mode)
		if err != nil && created {
			m.discard(sessionID, h)
		}
		return err
	})
	return out, err
}

// Resume loads a stored snapshot and continues it on a fresh engine.
// Completed sessions cannot be resumed.
func (m *Manager) Resume(ctx context.Context, sessionID string) (domain.Session, error) {
	if m.store == nil {
		return domain.Session{}, ErrNoStore
	}
	var out domain.Session
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		snap, err := m.store.Load(ctx, sessionID)
		if err != nil {
			return err
		}
		if snap.Completed {
			return fmt.Errorf("%w: session %s already completed", domain.ErrSessionInactive, sessionID)
		}
		h, created, err := m.ensure(sessionID)
		if err != nil {
			return err
		}
		out, err = h.engine.Resume(ctx, *snap)
		if err != nil && created {
			m.discard(sessionID, h)
		}
		return err
	})
	return out, err
}

// Get returns the engine of a running session.
func (m *Manager) Get(sessionID string) (*wayfinder.Engine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.open[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
	}
	return h.engine, nil
}

// View returns the current view of a running session.
func (m *Manager) View(sessionID string) (wayfinder.View, error) {
	eng, err := m.Get(sessionID)
	if err != nil {
		return wayfinder.View{}, err
	}
	return eng.View(), nil
}

// Subscribe opens a sensor feed into a running session.
func (m *Manager) Subscribe(sessionID string) (*wayfinder.Subscription, error) {
	eng, err := m.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return eng.Subscribe(), nil
}

// Close stops a running session, writes a final checkpoint and releases its engine.
func (m *Manager) Close(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.closeLocked(ctx, sessionID)
	})
}

// Delete closes the session if it is running and removes its snapshot.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		if err := m.closeLocked(ctx, sessionID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			return err
		}
		if m.store == nil {
			return nil
		}
		return m.store.Delete(ctx, sessionID)
	})
}

// Checkpoint saves the current snapshot of a running session.
func (m *Manager) Checkpoint(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		m.mu.Lock()
		h, ok := m.open[sessionID]
		m.mu.Unlock()
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
		}
		return m.save(ctx, sessionID, h)
	})
}

// Active returns the ids of running sessions, sorted.
func (m *Manager) Active() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.open))
	for id := range m.open {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// List returns running and stored session ids, sorted and deduplicated.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	for _, id := range m.Active() {
		seen[id] = struct{}{}
	}
	if m.store != nil {
		stored, err := m.store.List(ctx)
		if err != nil {
			return nil, err
		}
		for _, id := range stored {
			seen[id] = struct{}{}
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Load returns a snapshot: live for running sessions, stored otherwise.
func (m *Manager) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	if eng, err := m.Get(sessionID); err == nil {
		s := eng.Session()
		return &s, nil
	}
	if m.store == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
	}
	return m.store.Load(ctx, sessionID)
}

// Store returns the underlying session store, nil when none is configured.
func (m *Manager) Store() ports.SessionStore {
	return m.store
}

// Routes returns the route repository shared by every session.
func (m *Manager) Routes() ports.RouteRepository {
	return m.routes
}

// Shutdown closes every running session and waits for pending checkpoints.
func (m *Manager) Shutdown(ctx context.Context) error {
	var errs []error
	for _, id := range m.Active() {
		if err := m.Close(ctx, id); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			errs = append(errs, fmt.Errorf("close %s: %w", id, err))
		}
	}
	m.checkpoints.Wait()
	return errors.Join(errs...)
}

func (m *Manager) closeLocked(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	h, ok := m.open[sessionID]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
	}

	if err := h.engine.Stop(ctx); err != nil {
		return err
	}
	err := m.save(ctx, sessionID, h)
	m.discard(sessionID, h)
	return err
}

// ensure returns the running engine for sessionID, creating it if needed.
func (m *Manager) ensure(sessionID string) (*handle, bool, error) {
	m.mu.Lock()
	h, ok := m.open[sessionID]
	m.mu.Unlock()
	if ok {
		return h, false, nil
	}

	hooks := m.hooks
	if m.store != nil {
		hooks = domain.ChainHooks(m.hooks, m.checkpointHooks(sessionID))
	}
	opts := append([]wayfinder.Option{}, m.engineOpts...)
	opts = append(opts,
		wayfinder.WithRoutes(m.routes),
		wayfinder.WithLogger(m.logger.With("session_id", sessionID)),
		wayfinder.WithLifecycleHooks(hooks),
	)
	eng, err := wayfinder.New("", opts...)
	if err != nil {
		return nil, false, err
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	go func() { _ = eng.Run(loopCtx) }()

	h = &handle{engine: eng, cancel: cancel}
	m.mu.Lock()
	m.open[sessionID] = h
	m.mu.Unlock()
	return h, true, nil
}

func (m *Manager) discard(sessionID string, h *handle) {
	m.mu.Lock()
	if m.open[sessionID] == h {
		delete(m.open, sessionID)
	}
	m.mu.Unlock()
	h.cancel()
	<-h.engine.Done()
}

func (m *Manager) save(ctx context.Context, sessionID string, h *handle) error {
	if m.store == nil {
		return nil
	}
	snap := h.engine.Session()
	if snap.ID == "" {
		return nil
	}
	if err := m.store.Save(ctx, sessionID, &snap); err != nil {
		return fmt.Errorf("checkpoint %s: %w", sessionID, err)
	}
	return nil
}

// checkpointHooks run on the engine's loop goroutine, which must never wait
// for the session lock (Open holds it while waiting for the loop). They only
// schedule a checkpoint; at most one is queued per session at a time.
func (m *Manager) checkpointHooks(sessionID string) domain.LifecycleHooks {
	mark := func(context.Context, *domain.NavigationEvent) { m.markDirty(sessionID) }
	return domain.LifecycleHooks{
		OnSessionStart:  mark,
		OnWaypointEnter: mark,
		OnArrived:       mark,
		OnSessionEnd:    mark,
	}
}

func (m *Manager) markDirty(sessionID string) {
	m.mu.Lock()
	h, ok := m.open[sessionID]
	m.mu.Unlock()
	if !ok || !h.dirty.CompareAndSwap(false, true) {
		return
	}

	m.checkpoints.Add(1)
	go func() {
		defer m.checkpoints.Done()
		h.dirty.Store(false)
		err := m.Checkpoint(context.Background(), sessionID)
		if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			m.logger.Warn("Checkpoint Failed", "session_id", sessionID, "err", err)
		}
	}()
}
