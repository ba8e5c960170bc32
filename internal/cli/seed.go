package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/loam"
	loamAdapter "github.com/aretw0/wayfinder/pkg/adapters/loam"
	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/aretw0/wayfinder/pkg/dsl"
)

// sampleRoutes are written by `route seed`. Each entry keeps its notes,
// stored as the markdown body.
func sampleRoutes() ([]*domain.Route, map[string]string, error) {
	routes, err := dsl.New().
		Route("office-tour", "Office tour").Task("indoor").
		Waypoint("lobby").Say("Face the elevators").Heading(0).
		Waypoint("corridor").Say("Walk down the corridor").Steps(20).
		Waypoint("kitchen").Say("Turn right towards the kitchen").Heading(90).
		Waypoint("desk").Say("Your desk is on the left").
		Done().
		Route("park-loop", "Park loop").Task("outdoor").
		Waypoint("gate").Say("Face the park gate").Heading(45).At(51.5007, -0.1246).
		Waypoint("fountain").Say("Head to the fountain").Heading(120).At(51.5010, -0.1240).
		Waypoint("bench").Say("Stop at the bench").At(51.5004, -0.1232).
		Done().
		Routes()
	if err != nil {
		return nil, nil, err
	}
	notes := map[string]string{
		"office-tour": "Second floor, from the lobby to the open plan desks.",
		"park-loop":   "Short loop used for outdoor compass trials.",
	}
	return routes, notes, nil
}

// SeedRoutes writes sample markdown routes into dir.
func SeedRoutes(ctx context.Context, dir string, out io.Writer) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	repo, err := loam.Init(dir, loam.WithVersioning(false))
	if err != nil {
		return fmt.Errorf("failed to initialize loam: %w", err)
	}
	loader := loamAdapter.New(loam.NewTypedRepository[loamAdapter.RouteMetadata](repo))

	routes, notes, err := sampleRoutes()
	if err != nil {
		return err
	}
	for _, r := range routes {
		if err := loader.Save(ctx, r, notes[r.ID]); err != nil {
			return fmt.Errorf("save %s: %w", r.ID, err)
		}
		fmt.Fprintf(out, "Wrote %s (%d waypoints)\n", r.ID, r.Len())
	}
	return nil
}
