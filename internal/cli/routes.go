package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/wayfinder/internal/presentation/graph"
	"github.com/aretw0/wayfinder/internal/presentation/tui"
	"github.com/charmbracelet/glamour"
)

// ListRoutes prints every route id.
func ListRoutes(ctx context.Context, env *Env, out io.Writer) error {
	ids, err := env.Routes.ListRoutes(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Fprintln(out, "No routes found.")
		return nil
	}
	for _, id := range ids {
		fmt.Fprintln(out, id)
	}
	return nil
}

// InspectRoute renders a route as markdown, styled when out is a terminal.
func InspectRoute(ctx context.Context, env *Env, routeID string, out io.Writer) error {
	route, err := env.Routes.GetRoute(ctx, routeID)
	if err != nil {
		return err
	}
	md := tui.RouteMarkdown(route)
	if !isTerminal(out) {
		_, err := io.WriteString(out, md)
		return err
	}

	render, err := tui.NewRenderer(glamour.WithWordWrap(100))
	if err != nil {
		return err
	}
	rendered, err := render(md)
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, rendered)
	return err
}

// ValidateRoutes checks the given routes, or every route when ids is empty,
// and reports each failure. Routes with no waypoints are flagged as
// not navigable.
func ValidateRoutes(ctx context.Context, env *Env, ids []string, out io.Writer) error {
	if len(ids) == 0 {
		all, err := env.Routes.ListRoutes(ctx)
		if err != nil {
			return err
		}
		ids = all
	}

	var errs []error
	for _, id := range ids {
		route, err := env.loadRoute(ctx, id)
		if err == nil {
			err = route.Navigable()
		}
		if err != nil {
			fmt.Fprintf(out, "✗ %s: %v\n", id, err)
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
			continue
		}
		fmt.Fprintf(out, "✓ %s (%d waypoints)\n", id, route.Len())
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d of %d routes invalid: %w", len(errs), len(ids), errors.Join(errs...))
	}
	return nil
}

// GraphRoute prints the Mermaid flowchart of a route. When sessionID is set,
// the stored session's progress is overlaid.
func GraphRoute(ctx context.Context, env *Env, routeID, sessionID string, out io.Writer) error {
	route, err := env.Routes.GetRoute(ctx, routeID)
	if err != nil {
		return err
	}

	var overlay *graph.Overlay
	if sessionID != "" {
		snap, err := env.Store.Load(ctx, sessionID)
		if err != nil {
			return err
		}
		if snap.RouteID != route.ID {
			return fmt.Errorf("session %s follows route %s, not %s", sessionID, snap.RouteID, route.ID)
		}
		overlay = &graph.Overlay{CurrentIndex: snap.CurrentWaypointIndex, Completed: snap.Completed}
	}

	_, err = io.WriteString(out, graph.GenerateMermaid(route, overlay))
	return err
}
