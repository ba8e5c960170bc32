package cli

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/aretw0/wayfinder"
	"github.com/aretw0/wayfinder/pkg/adapters/file"
	loamAdapter "github.com/aretw0/wayfinder/pkg/adapters/loam"
	"github.com/aretw0/wayfinder/pkg/adapters/memory"
	redisAdapter "github.com/aretw0/wayfinder/pkg/adapters/redis"
	"github.com/aretw0/wayfinder/pkg/config"
	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/aretw0/wayfinder/pkg/observability"
	"github.com/aretw0/wayfinder/pkg/persistence/middleware"
	"github.com/aretw0/wayfinder/pkg/ports"
	"github.com/aretw0/wayfinder/pkg/session"
	backend "github.com/redis/go-redis/v9"
)

// Store backends accepted by --store.
const (
	StoreFile   = "file"
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Route formats detected in the --routes directory.
const (
	FormatLoam = "loam"
	FormatYAML = "yaml"
)

// Options holds the persistent flags shared by every command.
type Options struct {
	RoutesPath string
	ConfigPath string
	Store      string
	RedisURL   string
	// StoreKey is a hex encoded AES-256 key; when set, snapshots are
	// sealed before they reach the store.
	StoreKey string
	Debug    bool
}

// Env is the set of adapters selected by Options.
type Env struct {
	Logger *slog.Logger
	Config config.Config
	Routes ports.RouteRepository
	Store  ports.SessionStore
	Locker ports.DistributedLocker

	closers []func() error
}

// Setup resolves Options into concrete adapters.
func Setup(opts Options) (*Env, error) {
	env := &Env{Logger: createLogger(opts.Debug)}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	env.Config = cfg

	if opts.RoutesPath == "" {
		opts.RoutesPath = "."
	}
	switch detectRouteFormat(opts.RoutesPath) {
	case FormatLoam:
		loader, err := loamAdapter.Open(opts.RoutesPath)
		if err != nil {
			return nil, err
		}
		env.Routes = loader
	default:
		env.Routes = file.NewRoutes(opts.RoutesPath)
	}

	if err := env.openStore(opts); err != nil {
		return nil, err
	}
	env.Logger.Debug("Environment ready", "routes", opts.RoutesPath, "store", opts.Store)
	return env, nil
}

// detectRouteFormat picks loam when the directory holds markdown documents
// and plain YAML route files otherwise.
func detectRouteFormat(dir string) string {
	matches, _ := filepath.Glob(filepath.Join(dir, "*.md"))
	if len(matches) > 0 {
		return FormatLoam
	}
	return FormatYAML
}

func (e *Env) openStore(opts Options) error {
	switch strings.ToLower(opts.Store) {
	case "", StoreFile:
		e.Store = file.New(filepath.Join(opts.RoutesPath, ".wayfinder", "sessions"))
	case StoreMemory:
		e.Store = memory.NewStore()
	case StoreRedis:
		if opts.RedisURL == "" {
			return errors.New("--store redis requires --redis")
		}
		rdbOpts, err := backend.ParseURL(opts.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid redis url: %w", err)
		}
		client := backend.NewClient(rdbOpts)
		store := redisAdapter.NewFromClient(client)
		e.Store = store
		e.Locker = redisAdapter.NewLocker(client, "wayfinder:")
		e.closers = append(e.closers, store.Close)
	default:
		return fmt.Errorf("unknown store %q (want file, memory or redis)", opts.Store)
	}

	if opts.StoreKey != "" {
		key, err := hex.DecodeString(opts.StoreKey)
		if err != nil {
			return fmt.Errorf("invalid store key: %w", err)
		}
		seal, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
		if err != nil {
			return err
		}
		e.Store = middleware.Chain(e.Store, seal)
	}
	return nil
}

// Close releases the store connections.
func (e *Env) Close() error {
	var errs []error
	for _, c := range e.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// NewManager builds a session manager over the environment's adapters.
func (e *Env) NewManager(hooks ...domain.LifecycleHooks) *session.Manager {
	hooks = append([]domain.LifecycleHooks{observability.LogHooks(e.Logger)}, hooks...)
	opts := []session.Option{
		session.WithStore(e.Store),
		session.WithLogger(e.Logger),
		session.WithLifecycleHooks(domain.ChainHooks(hooks...)),
		session.WithEngineOptions(wayfinder.WithConfig(e.Config)),
	}
	if e.Locker != nil {
		opts = append(opts, session.WithLocker(e.Locker))
	}
	return session.NewManager(e.Routes, opts...)
}

// loadRoute fetches and validates one route.
func (e *Env) loadRoute(ctx context.Context, id string) (*domain.Route, error) {
	route, err := e.Routes.GetRoute(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := route.Validate(); err != nil {
		return nil, err
	}
	return route, nil
}
