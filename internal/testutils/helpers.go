// Package testutils holds fixtures shared by adapter and facade tests.
package testutils

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/core"
	"github.com/stretchr/testify/require"
)

// SetupTestRepo creates a temporary directory and initializes a Loam repository in it.
// It returns the absolute path to the temp dir and the initialized repository.
func SetupTestRepo(t *testing.T, opts ...loam.Option) (string, core.Repository) {
	t.Helper()

	absPath, err := filepath.Abs(t.TempDir())
	require.NoError(t, err, "Failed to get absolute path for temp dir")

	repo, err := loam.Init(absPath, opts...)
	require.NoError(t, err, "Failed to init loam repo")

	return absPath, repo
}

// SeedDocs writes raw documents (frontmatter included) keyed by file name.
func SeedDocs(t *testing.T, repo core.Repository, docs map[string]string) {
	t.Helper()
	ctx := context.Background()
	for id, content := range docs {
		require.NoError(t, repo.Save(ctx, core.Document{ID: id, Content: content}), "seed %s", id)
	}
}

// CorridorDoc is a three-waypoint route: a heading target, a step gate and
// a direction-free final waypoint.
const CorridorDoc = `---
id: corridor
name: Corridor
waypoints:
  - id: door
    instruction: Face the door
    target_heading: 90
  - id: hall
    instruction: Walk the hall
    required_steps: 12
  - id: lab
    instruction: Enter the lab
---
Ground floor, east wing.
`
