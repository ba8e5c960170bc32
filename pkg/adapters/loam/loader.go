// Package loam reads routes from a Loam repository of markdown documents
// whose frontmatter carries the waypoint list.
package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/loam"
	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/aretw0/wayfinder/pkg/geometry"
)

// Loader adapts a Loam repository to ports.RouteRepository.
type Loader struct {
	Repo *loam.TypedRepository[RouteMetadata]
}

// New creates a new Loam adapter.
func New(repo *loam.TypedRepository[RouteMetadata]) *Loader {
	return &Loader{
		Repo: repo,
	}
}

// Open initializes a read-only Loam repository at dir.
func Open(dir string) (*Loader, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	repo, err := loam.Init(absPath, loam.WithReadOnly(true))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[RouteMetadata](repo)), nil
}

// GetRoute loads and validates the route document with the given ID.
func (l *Loader) GetRoute(ctx context.Context, id string) (*domain.Route, error) {
	doc, err := l.Repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrRouteNotFound, id, err)
	}
	return toRoute(doc.ID, doc.Data)
}

// ListRoutes lists every route in the repository.
// Two documents resolving to the same ID are reported as a collision.
func (l *Loader) ListRoutes(ctx context.Context) ([]string, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string)
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		rawID := doc.Data.ID
		if rawID == "" {
			rawID = doc.ID
		}
		id := trimExtension(rawID)
		if existing, ok := seen[id]; ok {
			return nil, fmt.Errorf("collision detected: route '%s' is defined in both '%s' and '%s'", id, existing, doc.ID)
		}
		seen[id] = doc.ID
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Save writes the route as a markdown document with the given notes as body.
func (l *Loader) Save(ctx context.Context, route *domain.Route, notes string) error {
	if err := route.Validate(); err != nil {
		return err
	}
	return l.Repo.Save(ctx, &loam.DocumentModel[RouteMetadata]{
		ID:      route.ID,
		Content: notes,
		Data:    fromRoute(route),
	})
}

// Watch implements ports.Watchable.
func (l *Loader) Watch(ctx context.Context) (<-chan string, error) {
	events, err := l.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan string, 1)
	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				select {
				case ch <- trimExtension(evt.ID):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch, nil
}

func toRoute(docID string, meta RouteMetadata) (*domain.Route, error) {
	id := meta.ID
	if id == "" {
		id = docID
	}
	route := &domain.Route{
		ID:       trimExtension(id),
		Name:     meta.Name,
		TaskType: meta.TaskType,
	}

	explicit := false
	for i, wm := range meta.Waypoints {
		w := domain.Waypoint{
			ID:            wm.ID,
			Order:         i,
			Instruction:   strings.TrimSpace(wm.Instruction),
			TargetHeading: wm.TargetHeading,
			RequiredSteps: wm.RequiredSteps,
		}
		if wm.Order != nil {
			explicit = true
			w.Order = *wm.Order
		}
		switch len(wm.Position) {
		case 0:
		case 2:
			w.Position = &geometry.Point{Lat: wm.Position[0], Lon: wm.Position[1]}
		default:
			return nil, domain.NewConfigurationError("waypoint.position", "%s: expected [lat, lon]", wm.ID)
		}
		route.Waypoints = append(route.Waypoints, w)
	}
	if explicit {
		// Authored order wins over file order, but must still be contiguous.
		sort.SliceStable(route.Waypoints, func(i, j int) bool {
			return route.Waypoints[i].Order < route.Waypoints[j].Order
		})
	}
	if err := route.Validate(); err != nil {
		return nil, fmt.Errorf("route %s: %w", route.ID, err)
	}
	return route, nil
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}
