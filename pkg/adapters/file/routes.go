package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/wayfinder/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Routes implements ports.RouteRepository and ports.RouteWriter over a
// directory of YAML files, one route per file named <id>.yaml.
type Routes struct {
	Dir string
}

// NewRoutes returns a repository rooted at dir.
func NewRoutes(dir string) *Routes {
	return &Routes{Dir: dir}
}

// GetRoute decodes <id>.yaml. Waypoints without an explicit order are
// numbered by position.
func (r *Routes) GetRoute(ctx context.Context, id string) (*domain.Route, error) {
	data, err := os.ReadFile(r.path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrRouteNotFound, id)
		}
		return nil, fmt.Errorf("failed to read route %s: %w", id, err)
	}
	return DecodeRoute(id, data)
}

// ListRoutes returns the IDs of every *.yaml file in the directory.
func (r *Routes) ListRoutes(ctx context.Context) ([]string, error) {
	return listIDs(r.Dir, ".yaml")
}

// PutRoute validates and writes the route.
func (r *Routes) PutRoute(ctx context.Context, route *domain.Route) error {
	if err := route.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(route)
	if err != nil {
		return fmt.Errorf("failed to marshal route: %w", err)
	}
	return writeAtomic(r.Dir, route.ID+".yaml", data)
}

// DeleteRoute removes <id>.yaml.
func (r *Routes) DeleteRoute(ctx context.Context, id string) error {
	err := os.Remove(r.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", domain.ErrRouteNotFound, id)
	}
	return err
}

func (r *Routes) path(id string) string {
	return filepath.Join(r.Dir, id+".yaml")
}

// DecodeRoute parses a YAML route document. The file name wins when the
// document omits its id.
func DecodeRoute(id string, data []byte) (*domain.Route, error) {
	var route domain.Route
	if err := yaml.Unmarshal(data, &route); err != nil {
		return nil, domain.NewConfigurationError("route", "%s: %v", id, err)
	}
	if route.ID == "" {
		route.ID = id
	}
	if !hasExplicitOrder(data) {
		route.Reindex()
	}
	if err := route.Validate(); err != nil {
		return nil, err
	}
	return &route, nil
}

// hasExplicitOrder reports whether any waypoint in the document sets "order".
func hasExplicitOrder(data []byte) bool {
	var probe struct {
		Waypoints []map[string]any `yaml:"waypoints"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return false
	}
	for _, w := range probe.Waypoints {
		if _, ok := w["order"]; ok {
			return true
		}
	}
	return false
}
