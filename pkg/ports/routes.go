package ports

import (
	"context"

	"github.com/aretw0/wayfinder/pkg/domain"
)

// RouteRepository is how the engine retrieves authored routes.
// From the engine's perspective routes are read-only.
type RouteRepository interface {
	// GetRoute returns the route with the given ID.
	// Returns domain.ErrRouteNotFound if it does not exist.
	GetRoute(ctx context.Context, id string) (*domain.Route, error)

	// ListRoutes returns every route ID, sorted.
	ListRoutes(ctx context.Context) ([]string, error)
}

// RouteWriter is the authoring side of a repository.
// Every write validates the route, including its order invariant.
type RouteWriter interface {
	PutRoute(ctx context.Context, route *domain.Route) error
	DeleteRoute(ctx context.Context, id string) error
}

// Watchable defines an interface for repositories that can notify about backend changes.
type Watchable interface {
	// Watch returns a channel that receives the ID of every changed route.
	Watch(ctx context.Context) (<-chan string, error)
}
