package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/wayfinder/pkg/domain"
)

// Routes implements ports.RouteRepository and ports.RouteWriter in memory.
// It is the default repository for tests and for the library facade.
type Routes struct {
	mu     sync.RWMutex
	routes map[string]*domain.Route
}

// NewRoutes creates a repository seeded with the given routes.
// Seed routes are reindexed before validation.
func NewRoutes(routes ...*domain.Route) (*Routes, error) {
	r := &Routes{routes: make(map[string]*domain.Route)}
	for _, route := range routes {
		cp := route.Clone()
		cp.Reindex()
		if err := r.PutRoute(context.Background(), cp); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// GetRoute returns a deep copy of the route.
func (r *Routes) GetRoute(ctx context.Context, id string) (*domain.Route, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	route, ok := r.routes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrRouteNotFound, id)
	}
	return route.Clone(), nil
}

// ListRoutes returns all route IDs, sorted.
func (r *Routes) ListRoutes(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.routes))
	for id := range r.routes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// PutRoute validates and stores a copy of the route, replacing any previous version.
func (r *Routes) PutRoute(ctx context.Context, route *domain.Route) error {
	if err := route.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[route.ID] = route.Clone()
	return nil
}

// DeleteRoute removes a route. Deleting an unknown route is an error.
func (r *Routes) DeleteRoute(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.routes[id]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrRouteNotFound, id)
	}
	delete(r.routes, id)
	return nil
}

// AppendWaypoint adds a waypoint at the end of a stored route.
func (r *Routes) AppendWaypoint(ctx context.Context, routeID string, w domain.Waypoint) error {
	return r.edit(routeID, func(route *domain.Route) error { return route.Append(w) })
}

// UpdateWaypoint replaces a waypoint in place, keeping its order.
func (r *Routes) UpdateWaypoint(ctx context.Context, routeID string, w domain.Waypoint) error {
	return r.edit(routeID, func(route *domain.Route) error { return route.Update(w) })
}

// RemoveWaypoint deletes a waypoint; the remaining waypoints are renumbered.
func (r *Routes) RemoveWaypoint(ctx context.Context, routeID, waypointID string) error {
	return r.edit(routeID, func(route *domain.Route) error { return route.Remove(waypointID) })
}

// edit applies fn to a copy and only commits it if the result is valid.
func (r *Routes) edit(routeID string, fn func(*domain.Route) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.routes[routeID]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrRouteNotFound, routeID)
	}
	next := current.Clone()
	if err := fn(next); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	r.routes[routeID] = next
	return nil
}
