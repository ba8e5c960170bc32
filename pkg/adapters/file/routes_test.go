package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/wayfinder/pkg/adapters/file"
	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/aretw0/wayfinder/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const corridorYAML = `name: Corridor
task_type: indoor
waypoints:
  - id: door
    instruction: Face the door
    target_heading: 90
  - id: hall
    instruction: Walk the hall
    required_steps: 12
  - id: lab
    instruction: Enter the lab
`

func TestRoutes_Contract(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "corridor.yaml"), []byte(corridorYAML), 0644))

	want := &domain.Route{
		ID:   "corridor",
		Name: "Corridor",
		Waypoints: []domain.Waypoint{
			{ID: "door", Instruction: "Face the door", TargetHeading: domain.Float(90)},
			{ID: "hall", Order: 1, Instruction: "Walk the hall", RequiredSteps: domain.Int(12)},
			{ID: "lab", Order: 2, Instruction: "Enter the lab"},
		},
	}
	ports.RunRouteRepositoryContract(t, file.NewRoutes(dir), []*domain.Route{want})
}

func TestRoutes_PutAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := file.NewRoutes(t.TempDir())

	route := &domain.Route{ID: "loop", Name: "Loop", Waypoints: []domain.Waypoint{{ID: "a", Instruction: "start"}}}
	require.NoError(t, repo.PutRoute(ctx, route))

	got, err := repo.GetRoute(ctx, "loop")
	require.NoError(t, err)
	assert.Equal(t, "Loop", got.Name)

	ids, err := repo.ListRoutes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"loop"}, ids)

	require.NoError(t, repo.DeleteRoute(ctx, "loop"))
	assert.ErrorIs(t, repo.DeleteRoute(ctx, "loop"), domain.ErrRouteNotFound)
}

func TestDecodeRoute_ExplicitOrderIsValidated(t *testing.T) {
	doc := []byte(`waypoints:
  - id: a
    order: 0
  - id: b
    order: 2
`)
	_, err := file.DecodeRoute("gap", doc)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestDecodeRoute_Malformed(t *testing.T) {
	_, err := file.DecodeRoute("bad", []byte("waypoints: [::"))
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
